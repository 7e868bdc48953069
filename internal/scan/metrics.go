package scan

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus metrics of a scan run. They are meant for a
// node_exporter textfile collector rather than a scrape endpoint.
type Metrics struct {
	FilesScanned prometheus.Counter
	BytesScanned prometheus.Counter
	ErrorsFound  *prometheus.CounterVec
	ScanDuration prometheus.Gauge
}

// NewMetrics creates and registers all scan metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FilesScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logsift_files_scanned_total",
			Help: "Total log files scanned",
		}),
		BytesScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logsift_bytes_scanned_total",
			Help: "Total bytes of log spans scanned",
		}),
		ErrorsFound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logsift_errors_found_total",
			Help: "Total error entries found by server and label",
		}, []string{"server", "label"}),
		ScanDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "logsift_scan_duration_seconds",
			Help: "Wall-clock duration of the last scan",
		}),
	}
	reg.MustRegister(
		m.FilesScanned,
		m.BytesScanned,
		m.ErrorsFound,
		m.ScanDuration,
	)
	return m
}

// Observe records res. A nil receiver is a no-op.
func (m *Metrics) Observe(res *Result) {
	if m == nil || res == nil {
		return
	}
	m.FilesScanned.Add(float64(res.Files))
	m.BytesScanned.Add(float64(res.Bytes))
	m.ScanDuration.Set(res.Elapsed.Seconds())
	for _, e := range res.Entries {
		m.ErrorsFound.WithLabelValues(e.Server, e.Label).Inc()
	}
}

// WriteTextfile writes the metrics gathered by g to path in the text
// exposition format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
