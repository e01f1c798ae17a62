package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics exposes counters/histograms for the response pipeline.
type PipelineMetrics struct {
	inboundTotal    *prometheus.CounterVec
	outboundTotal   *prometheus.CounterVec
	strategyTotal   *prometheus.CounterVec
	adapterFailures *prometheus.CounterVec
	pipelineLatency prometheus.Histogram
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drai",
			Subsystem: "pipeline",
			Name:      "inbound_total",
			Help:      "Total inbound messages by acceptance status",
		}, []string{"status"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drai",
			Subsystem: "pipeline",
			Name:      "outbound_total",
			Help:      "Total outbound responses by delivery status",
		}, []string{"status"}),
		strategyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drai",
			Subsystem: "pipeline",
			Name:      "generation_strategy_total",
			Help:      "Responses produced per cascade strategy",
		}, []string{"strategy"}),
		adapterFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drai",
			Subsystem: "pipeline",
			Name:      "adapter_failures_total",
			Help:      "Data source adapter failures by topic",
		}, []string{"topic"}),
		pipelineLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "drai",
			Subsystem: "pipeline",
			Name:      "latency_seconds",
			Help:      "End-to-end latency of pipeline invocations",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.outboundTotal, m.strategyTotal, m.adapterFailures, m.pipelineLatency)
	return m
}

func (m *PipelineMetrics) ObserveInbound(accepted bool) {
	if m == nil {
		return
	}
	status := "accepted"
	if !accepted {
		status = "suppressed"
	}
	m.inboundTotal.WithLabelValues(status).Inc()
}

func (m *PipelineMetrics) ObserveOutbound(sent bool) {
	if m == nil {
		return
	}
	status := "sent"
	if !sent {
		status = "suppressed"
	}
	m.outboundTotal.WithLabelValues(status).Inc()
}

func (m *PipelineMetrics) ObserveStrategy(strategy string) {
	if m == nil {
		return
	}
	m.strategyTotal.WithLabelValues(strategy).Inc()
}

func (m *PipelineMetrics) ObserveAdapterFailure(topic string) {
	if m == nil {
		return
	}
	m.adapterFailures.WithLabelValues(topic).Inc()
}

func (m *PipelineMetrics) ObservePipelineLatency(seconds float64) {
	if m == nil {
		return
	}
	m.pipelineLatency.Observe(seconds)
}
