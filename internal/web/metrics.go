package web

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// metrics holds the server's Prometheus collectors. Each server owns its
// registry so several servers can run in one process.
type metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	comments    prometheus.Counter
	replies     prometheus.Counter
	reactions   *prometheus.CounterVec
	uploadBytes prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "commentbox_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "method", "code"}),
		comments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "commentbox_comments_created_total",
			Help: "Comments created.",
		}),
		replies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "commentbox_replies_created_total",
			Help: "Replies created.",
		}),
		reactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "commentbox_reactions_total",
			Help: "Reaction increments by kind.",
		}, []string{"kind"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "commentbox_upload_bytes_total",
			Help: "Bytes received as attachments.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.requests,
		m.comments,
		m.replies,
		m.reactions,
		m.uploadBytes,
	)
	return m
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// middleware counts requests by matched route template.
func (m *metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unknown"
		if cr := mux.CurrentRoute(r); cr != nil {
			if tmpl, err := cr.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}

		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)

		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(sr.status)).Inc()
	})
}
