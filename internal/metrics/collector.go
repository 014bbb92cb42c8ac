// Package metrics собирает счётчики загрузок и перезагрузок в собственный
// prometheus-реестр и отдаёт их через promhttp.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Результаты обработки архива для метки result.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// Collector хранит метрики сервиса. Нулевой указатель допустим: все методы — no-op.
type Collector struct {
	registry *prometheus.Registry

	uploads        *prometheus.CounterVec
	uploadDuration *prometheus.HistogramVec
	entries        prometheus.Counter
	bytes          prometheus.Counter
	reloads        prometheus.Counter
}

// New создаёт коллектор с метриками в пространстве имён namespace.
func New(namespace string) *Collector {
	if namespace == "" {
		namespace = "staticserve"
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archives_total",
			Help:      "Uploaded archives by format and result.",
		}, []string{"format", "result"}),
		uploadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "archive_extract_seconds",
			Help:      "Time spent streaming and extracting one archive.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"format"}),
		entries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extracted_entries_total",
			Help:      "Archive entries written to disk.",
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extracted_bytes_total",
			Help:      "File bytes written to disk by extraction.",
		}),
		reloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reloads_total",
			Help:      "Serving session restarts triggered by uploads.",
		}),
	}

	c.registry.MustRegister(
		c.uploads,
		c.uploadDuration,
		c.entries,
		c.bytes,
		c.reloads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// ObserveArchive учитывает один обработанный архив.
func (c *Collector) ObserveArchive(format, result string, entries int, bytes int64, d time.Duration) {
	if c == nil {
		return
	}
	if format == "" {
		format = "unknown"
	}

	c.uploads.WithLabelValues(format, result).Inc()
	if result == ResultSkipped {
		return
	}
	c.uploadDuration.WithLabelValues(format).Observe(d.Seconds())
	c.entries.Add(float64(entries))
	c.bytes.Add(float64(bytes))
}

// ObserveReload учитывает перезапуск сессии.
func (c *Collector) ObserveReload() {
	if c == nil {
		return
	}
	c.reloads.Inc()
}

// Registry возвращает реестр (для тестов и дополнительных коллекторов).
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler отдаёт метрики в формате exposition.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
