package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bi0dread/orderlens"
)

type envelope struct {
	Status int             `json:"status"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T, opts ...orderlens.ServiceOption) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := orderlens.NewMemoryStore()
	paid := time.Date(2024, 3, 1, 9, 5, 0, 0, time.UTC)
	require.NoError(t, store.Insert(context.Background(),
		[]orderlens.Course{{ID: 1, Title: "Go in Action"}},
		[]orderlens.Order{
			{ID: 1, Amount: 99.5, Status: orderlens.StatusSuccess, CreateTime: paid.Add(-5 * time.Minute), PayTime: &paid, Platform: "web", Province: "北京", ProductLine: "python", CourseID: 1},
			{ID: 2, Amount: 20, Status: orderlens.StatusPending, CreateTime: paid, Platform: "ios", Province: "上海", ProductLine: "python", CourseID: 1},
		}))
	cache := orderlens.NewResultCache(orderlens.NewMemoryCache(nil))
	return NewRouter(orderlens.NewService(store, cache, opts...))
}

func do(t *testing.T, r http.Handler, method, target, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func TestFilterAndAnalytics(t *testing.T) {
	r := newTestRouter(t)

	code, env := do(t, r, http.MethodPost, "/api/order/filter", `{
		"page": 1, "perPage": 10,
		"conditions": {"children": [{"left": {"type": "field", "field": "order.status"}, "op": "select_any_in", "right": ["SU"]}]}
	}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, env.Status)
	assert.Equal(t, "ok", env.Msg)

	var data struct {
		Total int64                `json:"total"`
		Items []orderlens.OrderRow `json:"items"`
		Sid   string               `json:"sid"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.EqualValues(t, 1, data.Total)
	require.Len(t, data.Items, 1)
	assert.Equal(t, "支付成功", data.Items[0].Status)
	require.NotEmpty(t, data.Sid)

	code, env = do(t, r, http.MethodGet, "/api/order/data_vis?type=total_income&sid="+data.Sid, "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"value": 99.5}`, string(env.Data))

	code, env = do(t, r, http.MethodGet, "/api/order/data_vis?type=platform_pie&sid="+data.Sid, "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"items": [{"name": "web", "value": 1}]}`, string(env.Data))
}

func TestFilterWithoutConditions(t *testing.T) {
	r := newTestRouter(t)
	code, env := do(t, r, http.MethodPost, "/api/order/filter", `{}`)
	require.Equal(t, http.StatusOK, code)

	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.EqualValues(t, 2, data["total"])
	assert.NotContains(t, data, "sid")
}

func TestFilterRejectsBadRequests(t *testing.T) {
	r := newTestRouter(t)

	code, env := do(t, r, http.MethodPost, "/api/order/filter", `{"conditions": {"children": [{"left": {"field": "order.discount"}, "op": "equal", "right": 1}]}}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, 1, env.Status)
	assert.Contains(t, env.Msg, "order.discount")

	code, env = do(t, r, http.MethodPost, "/api/order/filter", `{"page": "one"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, 1, env.Status)
}

func TestAnalyticsMisses(t *testing.T) {
	r := newTestRouter(t)

	code, env := do(t, r, http.MethodGet, "/api/order/data_vis?type=total_income&sid=", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, env.Status)
	assert.JSONEq(t, `{}`, string(env.Data))

	code, env = do(t, r, http.MethodGet, "/api/order/data_vis?type=weekly&sid=", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, 1, env.Status)

	strict := newTestRouter(t, orderlens.WithStrictAnalytics(true))
	code, env = do(t, strict, http.MethodGet, "/api/order/data_vis?type=total_income&sid=gone", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, 1, env.Status)
}

func TestHealthz(t *testing.T) {
	code, env := do(t, newTestRouter(t), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, env.Status)
}
