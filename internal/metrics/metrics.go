// Package metrics keeps per-batch Prometheus metrics and writes them in the
// node_exporter textfile format once the batch is done.
package metrics

import (
	"log/slog"

	"github.com/jgivc/fetchimages/internal/entity"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fetchimages"

// Recorder is a batch observer backed by its own registry.
type Recorder struct {
	path string
	reg  *prometheus.Registry

	outcomesTotal *prometheus.CounterVec
	bytesWritten  prometheus.Counter
	urlDuration   prometheus.Histogram
	ledgerHashes  prometheus.Gauge
	lastBatch     prometheus.Gauge

	log *slog.Logger
}

// NewRecorder returns a recorder that writes to path on Finish. An empty path disables writing.
func NewRecorder(path string, log *slog.Logger) *Recorder {
	r := &Recorder{
		path: path,
		reg:  prometheus.NewRegistry(),
		outcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outcomes_total",
				Help:      "Processed URLs by outcome status and error kind.",
			},
			[]string{"status", "kind"},
		),
		bytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_written_total",
			Help:      "Bytes of image payload written to the output directory.",
		}),
		urlDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "url_duration_seconds",
			Help:      "Time spent on one URL from probe to write.",
			Buckets:   prometheus.DefBuckets,
		}),
		ledgerHashes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_hashes",
			Help:      "Hashes in the ledger after the last flush.",
		}),
		lastBatch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_batch_timestamp_seconds",
			Help:      "Unix time the last batch finished.",
		}),
		log: log.With(slog.String("item", "MetricsRecorder")),
	}

	r.reg.MustRegister(r.outcomesTotal, r.bytesWritten, r.urlDuration, r.ledgerHashes, r.lastBatch)

	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

func (r *Recorder) Outcome(o *entity.Outcome, _ int) {
	kind := string(o.Kind)
	if o.Kind == entity.KindNone {
		kind = "none"
	}

	r.outcomesTotal.WithLabelValues(string(o.Status), kind).Inc()
	r.urlDuration.Observe(o.Elapsed.Seconds())

	if o.Status == entity.StatusSaved {
		r.bytesWritten.Add(float64(o.Size))
	}
}

func (r *Recorder) Finish(report *entity.BatchReport) {
	r.ledgerHashes.Set(float64(report.LedgerSize))
	r.lastBatch.Set(float64(report.FinishedAt.Unix()))

	if r.path == "" {
		return
	}

	if err := prometheus.WriteToTextfile(r.path, r.reg); err != nil {
		r.log.Error("Cannot write metrics", slog.String("path", r.path), slog.Any("error", err))

		return
	}

	r.log.Debug("Metrics written", slog.String("path", r.path))
}
