package orderlens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// FilterRequest asks for one page of orders matching Conditions. A nil
// Conditions selects every order and is never cached.
type FilterRequest struct {
	Page       int
	PerPage    int
	Conditions Node
}

type filterWire struct {
	Page       *int            `json:"page"`
	PerPage    *int            `json:"perPage"`
	Conditions json.RawMessage `json:"conditions"`
}

// DecodeFilterRequest parses the body posted by the dashboard. Missing page and
// perPage default to 1 and DefaultPerPage.
func DecodeFilterRequest(data []byte) (FilterRequest, error) {
	var w filterWire
	if err := json.Unmarshal(data, &w); err != nil {
		return FilterRequest{}, fmt.Errorf("decode filter request: %w", err)
	}
	req := FilterRequest{Page: 1, PerPage: DefaultPerPage}
	if w.Page != nil {
		req.Page = *w.Page
	}
	if w.PerPage != nil {
		req.PerPage = *w.PerPage
	}
	node, err := DecodeConditions(w.Conditions)
	if err != nil {
		return FilterRequest{}, err
	}
	req.Conditions = node
	return req, nil
}

type FilterResult struct {
	Total int64      `json:"total"`
	Items []OrderRow `json:"items"`
	Sid   string     `json:"sid,omitempty"`
}

type AnalyticsRequest struct {
	Type string
	Sid  string
}

// Response is the envelope of every dashboard endpoint.
type Response struct {
	Status int    `json:"status"`
	Msg    string `json:"msg"`
	Data   any    `json:"data"`
}

const (
	StatusCodeOK    = 0
	StatusCodeError = 1
)

func OK(data any) Response {
	if data == nil {
		data = struct{}{}
	}
	return Response{Status: StatusCodeOK, Msg: "ok", Data: data}
}

func Fail(err error) Response {
	return Response{Status: StatusCodeError, Msg: err.Error(), Data: struct{}{}}
}

// Service wires the filter and analytics pipelines together.
type Service struct {
	store     Store
	cache     *ResultCache
	compiler  *Compiler
	engine    *Engine
	presenter *Presenter
	logger    *slog.Logger
	strict    bool
}

type ServiceOption func(*Service)

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

func WithCompiler(c *Compiler) ServiceOption {
	return func(s *Service) { s.compiler = c }
}

// WithLocation sets the zone used for displayed timestamps and for the
// calendar days of daily aggregates.
func WithLocation(loc *time.Location) ServiceOption {
	return func(s *Service) {
		s.presenter = NewPresenter(loc)
		s.engine = NewEngine(loc)
	}
}

// WithStrictAnalytics makes Analytics return ErrCacheMiss for unknown or
// expired handles instead of empty data.
func WithStrictAnalytics(strict bool) ServiceOption {
	return func(s *Service) { s.strict = strict }
}

func NewService(store Store, cache *ResultCache, opts ...ServiceOption) *Service {
	s := &Service{store: store, cache: cache}
	for _, opt := range opts {
		opt(s)
	}
	if s.compiler == nil {
		s.compiler = NewCompiler(nil)
	}
	if s.presenter == nil {
		s.presenter = NewPresenter(nil)
	}
	if s.engine == nil {
		s.engine = NewEngine(s.presenter.Location())
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s.logger = s.logger.With("component", "order-service")
	return s
}

// Filter returns the requested page. When the request carries conditions the
// full matching set is also snapshotted and its handle returned as Sid.
func (s *Service) Filter(ctx context.Context, req FilterRequest) (*FilterResult, error) {
	predicate := Expr(MatchAll{})
	if req.Conditions != nil {
		compiled, err := s.compiler.Compile(req.Conditions)
		if err != nil {
			s.logger.Warn("rejecting filter", "error", err)
			return nil, err
		}
		predicate = compiled
	}

	snapshot := req.Conditions != nil
	total, page, all, err := s.read(ctx, predicate, req.Page, req.PerPage, snapshot)
	if err != nil {
		s.logger.Error("filter query failed", "predicate", Describe(predicate), "error", err)
		return nil, err
	}

	out := &FilterResult{Total: total, Items: s.presenter.Rows(page)}
	if snapshot {
		sid, err := s.cache.Snapshot(ctx, all)
		if err != nil {
			s.logger.Error("snapshot failed", "rows", len(all), "error", err)
			return nil, err
		}
		out.Sid = sid
	}
	s.logger.Debug("filter", "predicate", Describe(predicate), "total", total, "page", len(page), "sid", out.Sid)
	return out, nil
}

// read performs every store access of one filter request on a single Result,
// and closes it before the caller touches the cache.
func (s *Service) read(ctx context.Context, predicate Expr, number, size int, withAll bool) (int64, []Order, []Order, error) {
	res, err := s.store.Query(ctx, predicate)
	if err != nil {
		return 0, nil, nil, err
	}
	defer res.Close()

	total, err := res.Count(ctx)
	if err != nil {
		return 0, nil, nil, err
	}
	window := ResolvePage(number, size, total)
	page, err := res.Page(ctx, window.Number, window.Size)
	if err != nil {
		return 0, nil, nil, err
	}
	if !withAll {
		return total, page, nil, nil
	}
	all, err := res.All(ctx)
	if err != nil {
		return 0, nil, nil, err
	}
	return total, page, all, nil
}

// Analytics runs one aggregation over the snapshot behind req.Sid. An unknown
// kind is always an error. A missing or expired snapshot yields a nil result
// unless the service is strict.
func (s *Service) Analytics(ctx context.Context, req AnalyticsRequest) (AggregateResult, error) {
	if _, err := ParseKind(req.Type); err != nil {
		return nil, err
	}
	rows, err := s.cache.Fetch(ctx, req.Sid)
	if errors.Is(err, ErrCacheMiss) {
		s.logger.Info("analytics on missing snapshot", "type", req.Type, "sid", req.Sid)
		if s.strict {
			return nil, err
		}
		return nil, nil
	}
	if err != nil {
		s.logger.Error("snapshot fetch failed", "sid", req.Sid, "error", err)
		return nil, err
	}
	return s.engine.Aggregate(req.Type, rows)
}
