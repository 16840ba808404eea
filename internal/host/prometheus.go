package host

import (
	"context"
	"waterbill/internal/poller"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "waterbill_"

// PrometheusPublisher exposes the latest reading as gauges on its own
// registry.
type PrometheusPublisher struct {
	registry *prometheus.Registry

	reading     *prometheus.GaugeVec
	stale       prometheus.Gauge
	lastSuccess prometheus.Gauge
	updates     *prometheus.CounterVec
}

func NewPrometheusPublisher(account string) *PrometheusPublisher {
	labels := prometheus.Labels{"account": account}

	p := &PrometheusPublisher{
		registry: prometheus.NewRegistry(),
		reading: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        metricPrefix + "reading",
				Help:        "Latest billing reading by sensor",
				ConstLabels: labels,
			},
			[]string{"sensor"},
		),
		stale: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        metricPrefix + "stale",
			Help:        "1 when the latest poll failed and the reading is stale",
			ConstLabels: labels,
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        metricPrefix + "last_success_timestamp_seconds",
			Help:        "Unix time of the latest successful poll",
			ConstLabels: labels,
		}),
		updates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        metricPrefix + "updates_total",
				Help:        "Published updates by result",
				ConstLabels: labels,
			},
			[]string{"result"},
		),
	}
	p.registry.MustRegister(p.reading, p.stale, p.lastSuccess, p.updates)
	return p
}

func (p *PrometheusPublisher) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusPublisher) Publish(ctx context.Context, update poller.Update) {
	if update.Err != nil {
		p.stale.Set(1)
		p.updates.WithLabelValues("error").Inc()
		return
	}

	reading := update.Reading
	p.reading.WithLabelValues(SensorBalance).Set(reading.CurrentBalance)
	p.reading.WithLabelValues(SensorConsumption).Set(reading.LastMonthConsumption)
	p.reading.WithLabelValues(SensorUnpaidCount).Set(float64(reading.UnpaidCount))
	p.reading.WithLabelValues(SensorUnpaidAmount).Set(reading.UnpaidAmount)
	p.stale.Set(0)
	p.lastSuccess.Set(float64(update.At.Unix()))
	p.updates.WithLabelValues("success").Inc()
}
