package orderlens

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// snapshotVersion is bumped whenever the encoded row layout changes.
const snapshotVersion = 2

// SnapshotColumn describes one column of an encoded snapshot.
type SnapshotColumn struct {
	Name string `bson:"name"`
	Type string `bson:"type"`
}

var snapshotSchema = []SnapshotColumn{
	{Name: "id", Type: "integer"},
	{Name: "amount", Type: "number"},
	{Name: "status", Type: "string"},
	{Name: "create_time", Type: "unix_nano"},
	{Name: "pay_time", Type: "unix_nano"},
	{Name: "platform", Type: "string"},
	{Name: "province", Type: "string"},
	{Name: "product_line", Type: "string"},
	{Name: "course_id", Type: "integer"},
	{Name: "course_title", Type: "string"},
}

type snapshotRow struct {
	ID          int64      `bson:"id"`
	Amount      float64    `bson:"amount"`
	Status      string     `bson:"status"`
	CreateTime  int64      `bson:"create_time"`
	PayTime     *int64     `bson:"pay_time"`
	Platform    string     `bson:"platform"`
	Province    string     `bson:"province"`
	ProductLine string     `bson:"product_line"`
	CourseID    int64      `bson:"course_id"`
	CourseTitle *string    `bson:"course_title"`
}

type snapshotDocument struct {
	Version int              `bson:"version"`
	Schema  []SnapshotColumn `bson:"schema"`
	Rows    []snapshotRow    `bson:"rows"`
}

// EncodeSnapshot serialises rows as a bson table. Timestamps are stored as
// unix nanoseconds since bson datetimes stop at milliseconds.
func EncodeSnapshot(rows []Order) ([]byte, error) {
	doc := snapshotDocument{Version: snapshotVersion, Schema: snapshotSchema, Rows: make([]snapshotRow, 0, len(rows))}
	for _, o := range rows {
		r := snapshotRow{
			ID:          int64(o.ID),
			Amount:      o.Amount,
			Status:      string(o.Status),
			CreateTime:  unixNano(o.CreateTime),
			Platform:    o.Platform,
			Province:    o.Province,
			ProductLine: o.ProductLine,
			CourseID:    int64(o.CourseID),
		}
		if o.PayTime != nil {
			n := unixNano(*o.PayTime)
			r.PayTime = &n
		}
		if o.Course != nil {
			title := o.Course.Title
			r.CourseTitle = &title
		}
		doc.Rows = append(doc.Rows, r)
	}
	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

func DecodeSnapshot(data []byte) ([]Order, error) {
	var doc snapshotDocument
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if doc.Version != snapshotVersion {
		return nil, fmt.Errorf("decode snapshot: unsupported version %d", doc.Version)
	}
	rows := make([]Order, 0, len(doc.Rows))
	for _, r := range doc.Rows {
		o := Order{
			ID:          uint(r.ID),
			Amount:      r.Amount,
			Status:      Status(r.Status),
			CreateTime:  fromUnixNano(r.CreateTime),
			Platform:    r.Platform,
			Province:    r.Province,
			ProductLine: r.ProductLine,
			CourseID:    uint(r.CourseID),
		}
		if r.PayTime != nil {
			t := fromUnixNano(*r.PayTime)
			o.PayTime = &t
		}
		if r.CourseTitle != nil {
			o.Course = &Course{ID: o.CourseID, Title: *r.CourseTitle}
		}
		rows = append(rows, o)
	}
	return rows, nil
}

// unixNano maps the zero time to 0 so it survives outside the int64 nanosecond range.
func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
