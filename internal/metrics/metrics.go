// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package metrics exposes poll results and line statistics to Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Thermoquad/prtlink/internal/poller"
	"github.com/Thermoquad/prtlink/pkg/prt"
)

const namespace = "prtlink"

var statLabels = []string{"address", "name"}

// LineSource returns the current line statistics of a transport
type LineSource func() prt.StatisticsSnapshot

// Collector holds the per-thermostat gauges and the line counters
type Collector struct {
	gauges map[string]*prometheus.GaugeVec
	failed prometheus.Gauge
}

// New registers every metric on reg. line may be nil when no transport
// statistics should be exported.
func New(reg prometheus.Registerer, line LineSource) (*Collector, error) {
	c := &Collector{gauges: map[string]*prometheus.GaugeVec{}}

	c.addGaugeVec("temperature_celsius", "Current temperature from the selected sensor (°C)")
	c.addGaugeVec("target_celsius", "Target temperature (°C)")
	c.addGaugeVec("frost_celsius", "Frost protection temperature (°C)")
	c.addGaugeVec("heating", "1 while the thermostat is calling for heat")
	c.addGaugeVec("frost_mode", "1 while the thermostat is in frost protection mode")
	c.addGaugeVec("stale", "1 when the last update failed and values are from an earlier read")
	c.addGaugeVec("read_error_ratio", "Retried read attempts per read transaction")

	c.failed = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "poll_failed_thermostats",
		Help:      "Thermostats whose update hit a hard failure in the last poll cycle",
	})

	collectors := []prometheus.Collector{c.failed}
	for _, gv := range c.gauges {
		collectors = append(collectors, gv)
	}
	if line != nil {
		collectors = append(collectors, newLineCollector(line))
	}

	for _, col := range collectors {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) addGaugeVec(name, help string) {
	c.gauges[name] = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "thermostat",
		Name:      name,
		Help:      help,
	}, statLabels)
}

func (c *Collector) set(name string, r poller.Reading, v float64) {
	c.gauges[name].WithLabelValues(strconv.Itoa(int(r.Address)), r.Name).Set(v)
}

// Observe updates the gauges from one poll cycle
func (c *Collector) Observe(res poller.PollResult) {
	for _, r := range res.Readings {
		c.set("temperature_celsius", r, r.Current)
		c.set("target_celsius", r, float64(r.Target))
		c.set("frost_celsius", r, float64(r.Frost))
		c.set("heating", r, boolValue(r.Heating))
		c.set("frost_mode", r, boolValue(r.RunMode == prt.RunModeFrost))
		c.set("stale", r, boolValue(r.Stale))
		c.set("read_error_ratio", r, r.Statistics.Read.ErrorRate())
	}
	c.failed.Set(float64(res.Failed))
}

// Handler serves the metrics gathered from g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// lineCollector turns a statistics snapshot into counters at scrape time
type lineCollector struct {
	source       LineSource
	transactions *prometheus.Desc
	errors       *prometheus.Desc
}

func newLineCollector(source LineSource) *lineCollector {
	return &lineCollector{
		source: source,
		transactions: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "line", "transactions_total"),
			"Transactions on the bus by direction",
			[]string{"direction"}, nil,
		),
		errors: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "line", "errors_total"),
			"Failed attempts and hard failures on the bus by direction and kind",
			[]string{"direction", "kind"}, nil,
		),
	}
}

func (l *lineCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- l.transactions
	ch <- l.errors
}

func (l *lineCollector) Collect(ch chan<- prometheus.Metric) {
	s := l.source()
	l.collectDirection(ch, "read", s.Read)
	l.collectDirection(ch, "write", s.Write)
}

func (l *lineCollector) collectDirection(ch chan<- prometheus.Metric, direction string, c prt.CountersSnapshot) {
	ch <- prometheus.MustNewConstMetric(l.transactions, prometheus.CounterValue, float64(c.Transactions), direction)

	kinds := []struct {
		kind  prt.FailureKind
		value uint64
	}{
		{prt.FailureChecksum, c.Checksum},
		{prt.FailureNoData, c.NoData},
		{prt.FailureProtocol, c.Protocol},
		{prt.FailureConnection, c.Connection},
		{prt.FailureHard, c.Hard},
	}
	for _, k := range kinds {
		ch <- prometheus.MustNewConstMetric(l.errors, prometheus.CounterValue, float64(k.value), direction, k.kind.Label())
	}
}
