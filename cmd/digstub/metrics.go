package main

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// queriesTotal and hopSeconds mirror the shape of the teacher's gRPC request
// counter/duration pair, narrowed from a long-running daemon's /metrics
// endpoint to a single invocation's own tally, printed at exit under
// +trace rather than scraped.
var (
	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "digstub_queries_total", Help: "Queries sent, by transport kind and response RCODE"},
		[]string{"kind", "rcode"},
	)
	hopSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "digstub_hop_seconds", Help: "Per-hop round-trip latency", Buckets: prometheus.DefBuckets},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(queriesTotal, hopSeconds)
}

// dumpMetrics renders the counters/histograms gathered during one run as
// plain text, since this process never serves an HTTP /metrics endpoint.
func dumpMetrics(w io.Writer) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return
	}
	fmt.Fprintln(w, ";; METRICS")
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := ""
			for _, lp := range m.GetLabel() {
				labels += lp.GetName() + "=" + lp.GetValue() + " "
			}
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				fmt.Fprintf(w, ";;   %s{%s} %.0f\n", mf.GetName(), labels, m.GetCounter().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				fmt.Fprintf(w, ";;   %s{%s} count=%d sum=%.6f\n", mf.GetName(), labels, h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
}
