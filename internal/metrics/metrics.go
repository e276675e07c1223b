// Package metrics - Prometheus-метрики чата: поток сообщений, ответы ассистента,
// передачи оператору и HTTP-запросы.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	RouteBot   = "bot"
	RouteHuman = "human"

	OutcomeText      = "text"
	OutcomeSearch    = "search"
	OutcomeHandoff   = "handoff"
	OutcomeMalformed = "malformed"
	OutcomeError     = "error"
)

var (
	// VisitorMessagesTotal: route = "bot" | "human"
	VisitorMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realty_chat_visitor_messages_total",
		Help: "Visitor messages by routing decision",
	}, []string{"route"})

	ResponderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realty_chat_responder_requests_total",
		Help: "Responder calls by interpreted outcome",
	}, []string{"outcome"})

	ResponderLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "realty_chat_responder_latency_seconds",
		Help:    "Responder call latency in seconds",
		Buckets: []float64{.25, .5, 1, 2, 4, 8, 15, 30},
	})

	HandoffsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "realty_chat_handoffs_total",
		Help: "Sessions handed off to live support",
	})

	OperatorRepliesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "realty_chat_operator_replies_total",
		Help: "Messages sent by operators",
	})

	StreamConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "realty_chat_stream_connections",
		Help: "Open websocket push connections",
	})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realty_chat_http_requests_total",
		Help: "HTTP requests by method and status",
	}, []string{"method", "status"})
)

func init() {
	prometheus.MustRegister(
		VisitorMessagesTotal,
		ResponderRequestsTotal,
		ResponderLatency,
		HandoffsTotal,
		OperatorRepliesTotal,
		StreamConnections,
		HTTPRequestsTotal,
	)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveResponder фиксирует вызов ассистента
func ObserveResponder(outcome string, started time.Time) {
	ResponderRequestsTotal.WithLabelValues(outcome).Inc()
	ResponderLatency.Observe(time.Since(started).Seconds())
}

// Middleware считает HTTP-запросы
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
