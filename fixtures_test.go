package orderlens

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func tsp(s string) *time.Time {
	t := ts(s)
	return &t
}

var testCourses = []Course{
	{ID: 1, Title: "Go in Action"},
	{ID: 2, Title: "Python 100%"},
	{ID: 3, Title: "Data_Analysis"},
}

// testOrders covers every status, a missing pay time on each unpaid status and
// amounts on both sides of the [10, 20] range.
func testOrders() []Order {
	return []Order{
		{ID: 1, Amount: 5, Status: StatusSuccess, CreateTime: ts("2024-03-01T09:00:00Z"), PayTime: tsp("2024-03-01T09:05:00Z"), Platform: "web", Province: "北京", ProductLine: "python", CourseID: 1},
		{ID: 2, Amount: 10, Status: StatusPending, CreateTime: ts("2024-03-01T10:00:00Z"), Platform: "ios", Province: "上海", ProductLine: "python", CourseID: 2},
		{ID: 3, Amount: 15, Status: StatusSuccess, CreateTime: ts("2024-03-01T17:00:00Z"), PayTime: tsp("2024-03-01T17:30:00Z"), Platform: "web", Province: "上海", ProductLine: "ai", CourseID: 1},
		{ID: 4, Amount: 20, Status: StatusCancelled, CreateTime: ts("2024-03-02T08:00:00Z"), Platform: "android", Province: "广东", ProductLine: "ai", CourseID: 3},
		{ID: 5, Amount: 25, Status: StatusRefunded, CreateTime: ts("2024-03-02T12:00:00Z"), PayTime: tsp("2024-03-02T12:10:00Z"), Platform: "ios", Province: "北京", ProductLine: "design", CourseID: 2},
		{ID: 6, Amount: 30.5, Status: StatusOverdue, CreateTime: ts("2024-03-03T00:00:00Z"), Platform: "web", Province: "广东", ProductLine: "design", CourseID: 3},
	}
}

func ids(orders []Order) []uint {
	out := make([]uint, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func newMemoryStore(t *testing.T, orders []Order) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	if err := s.Insert(context.Background(), testCourses, orders); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return s
}

func newGormStore(t *testing.T, orders []Order) *GormStore {
	t.Helper()
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := s.Insert(ctx, testCourses, orders); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return s
}

// queryIDs runs predicate against s and returns the ids of every match.
func queryIDs(t *testing.T, s Store, predicate Expr) []uint {
	t.Helper()
	ctx := context.Background()
	res, err := s.Query(ctx, predicate)
	if err != nil {
		t.Fatalf("query %s: %v", Describe(predicate), err)
	}
	defer res.Close()
	rows, err := res.All(ctx)
	if err != nil {
		t.Fatalf("all %s: %v", Describe(predicate), err)
	}
	return ids(rows)
}
