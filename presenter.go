package orderlens

import "time"

// DisplayLayout is the timestamp format of presented rows.
const DisplayLayout = "2006-01-02 15:04:05"

// DefaultDisplayTimezone is the zone timestamps are shown in.
const DefaultDisplayTimezone = "Asia/Shanghai"

var statusLabels = map[Status]string{
	StatusPending:   "未支付",
	StatusSuccess:   "支付成功",
	StatusCancelled: "取消",
	StatusOverdue:   "过期",
	StatusRefunded:  "退款",
}

// Label returns the display label of s; unknown codes are shown as is.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// OrderRow is an order as returned to the dashboard.
type OrderRow struct {
	ID          uint    `json:"id"`
	Amount      float64 `json:"amount"`
	Status      string  `json:"status"`
	CreateTime  string  `json:"create_time"`
	PayTime     *string `json:"pay_time"`
	Platform    string  `json:"platform"`
	Province    string  `json:"province"`
	ProductLine string  `json:"product_line"`
	CourseID    uint    `json:"course_id"`
	Course      string  `json:"course"`
}

// Presenter reshapes orders for transport. It has no state besides the zone.
type Presenter struct {
	loc *time.Location
}

// NewPresenter returns a Presenter for loc; nil means UTC.
func NewPresenter(loc *time.Location) *Presenter {
	if loc == nil {
		loc = time.UTC
	}
	return &Presenter{loc: loc}
}

func (p *Presenter) Location() *time.Location {
	return p.loc
}

func (p *Presenter) Row(o Order) OrderRow {
	row := OrderRow{
		ID:          o.ID,
		Amount:      o.Amount,
		Status:      o.Status.Label(),
		CreateTime:  p.Format(o.CreateTime),
		Platform:    o.Platform,
		Province:    o.Province,
		ProductLine: o.ProductLine,
		CourseID:    o.CourseID,
		Course:      o.CourseTitle(),
	}
	if o.PayTime != nil {
		s := p.Format(*o.PayTime)
		row.PayTime = &s
	}
	return row
}

func (p *Presenter) Rows(orders []Order) []OrderRow {
	rows := make([]OrderRow, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, p.Row(o))
	}
	return rows
}

func (p *Presenter) Format(t time.Time) string {
	return t.In(p.loc).Format(DisplayLayout)
}
