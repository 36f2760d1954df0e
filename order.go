package orderlens

import (
	"fmt"
	"time"
)

// Status is the payment lifecycle state of an order, stored as a two letter code.
type Status string

const (
	StatusPending   Status = "PE"
	StatusSuccess   Status = "SU"
	StatusCancelled Status = "CA"
	StatusOverdue   Status = "OV"
	StatusRefunded  Status = "RE"
)

var statuses = []Status{StatusPending, StatusSuccess, StatusCancelled, StatusOverdue, StatusRefunded}

// Statuses returns every known status in declaration order.
func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

func ParseStatus(s string) (Status, error) {
	for _, st := range statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// Paid reports whether an order in this status has a payment time.
// Refunds imply a prior payment.
func (s Status) Paid() bool {
	return s == StatusSuccess || s == StatusRefunded
}

type Course struct {
	ID    uint   `gorm:"primaryKey" bson:"id" json:"id"`
	Title string `bson:"title" json:"title"`
}

type Order struct {
	ID          uint       `gorm:"primaryKey" bson:"id" json:"id"`
	Amount      float64    `bson:"amount" json:"amount"`
	Status      Status     `gorm:"size:2;index" bson:"status" json:"status"`
	CreateTime  time.Time  `gorm:"index" bson:"create_time" json:"create_time"`
	PayTime     *time.Time `bson:"pay_time" json:"pay_time"`
	Platform    string     `bson:"platform" json:"platform"`
	Province    string     `bson:"province" json:"province"`
	ProductLine string     `bson:"product_line" json:"product_line"`
	CourseID    uint       `bson:"course_id" json:"course_id"`
	Course      *Course    `bson:"course,omitempty" json:"-"`
}

// Validate checks the status/pay time invariant.
func (o Order) Validate() error {
	if _, err := ParseStatus(string(o.Status)); err != nil {
		return err
	}
	if o.Status.Paid() && o.PayTime == nil {
		return fmt.Errorf("order %d: status %s requires a pay time", o.ID, o.Status)
	}
	if !o.Status.Paid() && o.PayTime != nil {
		return fmt.Errorf("order %d: status %s must not have a pay time", o.ID, o.Status)
	}
	return nil
}

// CourseTitle returns the title of the referenced course, or "" when it was not loaded.
func (o Order) CourseTitle() string {
	if o.Course == nil {
		return ""
	}
	return o.Course.Title
}

// InUTC returns o with its timestamps moved to UTC. Stores keep every instant
// in UTC so textual comparisons agree with the operands the schema produces.
func (o Order) InUTC() Order {
	o.CreateTime = o.CreateTime.UTC()
	if o.PayTime != nil {
		t := o.PayTime.UTC()
		o.PayTime = &t
	}
	return o
}
