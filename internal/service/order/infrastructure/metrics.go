package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 汇集订单服务的 Prometheus 指标。
// 命令维度由消费侧适配器记录，事件维度由外发适配器记录。
type Metrics struct {
	CommandsTotal     *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec
	EventsPublished   *prometheus.CounterVec
	StatusTransitions *prometheus.CounterVec
}

// NewMetrics 注册并返回指标集合。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "omnia",
			Subsystem: "order",
			Name:      "commands_total",
			Help:      "Total order commands handled, by command type and outcome.",
		}, []string{"command", "outcome"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "omnia",
			Subsystem: "order",
			Name:      "command_duration_seconds",
			Help:      "Order command handling latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "omnia",
			Subsystem: "order",
			Name:      "events_published_total",
			Help:      "Domain events published to the event topic.",
		}, []string{"event"}),
		StatusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "omnia",
			Subsystem: "order",
			Name:      "status_transitions_total",
			Help:      "Order status transitions, by business context.",
		}, []string{"context", "from", "to"}),
	}
	reg.MustRegister(m.CommandsTotal, m.CommandDuration, m.EventsPublished, m.StatusTransitions)
	return m
}
