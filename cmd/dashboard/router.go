package main

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bi0dread/orderlens"
)

// OrderHandler serves the filter and analytics endpoints of the dashboard.
type OrderHandler struct {
	service *orderlens.Service
}

func NewOrderHandler(service *orderlens.Service) *OrderHandler {
	return &OrderHandler{service: service}
}

// Filter handles POST /api/order/filter.
func (h *OrderHandler) Filter(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, orderlens.Fail(err))
		return
	}
	req, err := orderlens.DecodeFilterRequest(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, orderlens.Fail(err))
		return
	}
	result, err := h.service.Filter(c.Request.Context(), req)
	if err != nil {
		c.JSON(statusOf(err), orderlens.Fail(err))
		return
	}
	c.JSON(http.StatusOK, orderlens.OK(result))
}

// Analytics handles GET /api/order/data_vis?type=&sid=.
func (h *OrderHandler) Analytics(c *gin.Context) {
	result, err := h.service.Analytics(c.Request.Context(), orderlens.AnalyticsRequest{
		Type: c.Query("type"),
		Sid:  c.Query("sid"),
	})
	if err != nil {
		c.JSON(statusOf(err), orderlens.Fail(err))
		return
	}
	if result == nil {
		c.JSON(http.StatusOK, orderlens.OK(nil))
		return
	}
	c.JSON(http.StatusOK, orderlens.OK(result))
}

func statusOf(err error) int {
	switch {
	case orderlens.IsConditionError(err), errors.Is(err, orderlens.ErrUnknownAggregationKind):
		return http.StatusBadRequest
	case errors.Is(err, orderlens.ErrCacheMiss):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func NewRouter(service *orderlens.Service) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	h := NewOrderHandler(service)
	api := r.Group("/api/order")
	api.POST("/filter", h.Filter)
	api.GET("/data_vis", h.Analytics)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, orderlens.OK(nil))
	})
	return r
}
