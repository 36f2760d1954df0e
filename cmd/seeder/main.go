package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"time"

	"github.com/icrowley/fake"

	"github.com/bi0dread/orderlens"
)

var (
	platforms    = []string{"web", "ios", "android", "wechat", "mini_program"}
	productLines = []string{"python", "data_analysis", "frontend", "backend", "ai", "design"}
	provinces    = []string{
		"北京", "上海", "天津", "重庆", "河北", "山西", "辽宁", "吉林", "黑龙江", "江苏",
		"浙江", "安徽", "福建", "江西", "山东", "河南", "湖北", "湖南", "广东", "海南",
		"四川", "贵州", "云南", "陕西", "甘肃", "青海", "广西", "内蒙古", "西藏", "宁夏", "新疆",
	}
)

func main() {
	configFile := flag.String("config", "", "configuration file")
	courseCount := flag.Int("courses", 20, "number of courses")
	orderCount := flag.Int("orders", 2000, "number of orders")
	days := flag.Int("days", 90, "spread order creation over this many days")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	cfg, err := orderlens.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Driver == orderlens.DriverMemory {
		log.Fatalf("driver %q keeps no data between runs; configure a database", cfg.Driver)
	}

	ctx := context.Background()
	backend, err := orderlens.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open backend: %v", err)
	}
	defer backend.Close()

	rng := rand.New(rand.NewSource(*seed))
	fake.Seed(*seed)

	courses := generateCourses(*courseCount)
	orders := generateOrders(rng, courses, *orderCount, *days, time.Now().UTC())
	for _, o := range orders {
		if err := o.Validate(); err != nil {
			log.Fatalf("generated invalid order: %v", err)
		}
	}

	log.Printf("inserting %d courses and %d orders into %s", len(courses), len(orders), cfg.Driver)
	start := time.Now()
	if err := backend.Store.Insert(ctx, courses, orders); err != nil {
		log.Fatalf("failed to insert: %v", err)
	}
	log.Printf("done in %v", time.Since(start))
}

func generateCourses(n int) []orderlens.Course {
	courses := make([]orderlens.Course, n)
	for i := range courses {
		courses[i] = orderlens.Course{ID: uint(i + 1), Title: fake.ProductName()}
	}
	return courses
}

func generateOrders(rng *rand.Rand, courses []orderlens.Course, n, days int, now time.Time) []orderlens.Order {
	statuses := orderlens.Statuses()
	window := time.Duration(days) * 24 * time.Hour
	if window <= 0 {
		window = 24 * time.Hour
	}
	orders := make([]orderlens.Order, n)
	for i := range orders {
		created := now.Add(-time.Duration(rng.Int63n(int64(window)))).Truncate(time.Second)
		o := orderlens.Order{
			ID:          uint(i + 1),
			Amount:      float64(rng.Intn(99900)+100) / 100,
			Status:      statuses[rng.Intn(len(statuses))],
			CreateTime:  created,
			Platform:    platforms[rng.Intn(len(platforms))],
			Province:    provinces[rng.Intn(len(provinces))],
			ProductLine: productLines[rng.Intn(len(productLines))],
		}
		if len(courses) > 0 {
			o.CourseID = courses[rng.Intn(len(courses))].ID
		}
		if o.Status.Paid() {
			paid := created.Add(time.Duration(rng.Intn(3600)) * time.Second)
			o.PayTime = &paid
		}
		orders[i] = o
	}
	return orders
}
