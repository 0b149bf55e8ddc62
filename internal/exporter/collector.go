// Package exporter exposes the published snapshot and the exporter's own
// health as Prometheus metrics.
package exporter

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tejusbharadwaj/smardexporter/internal/snapshot"
)

// Source returns the currently published snapshot.
type Source interface {
	Current() *snapshot.Snapshot
}

// Collector emits one timestamped gauge per sample of the current snapshot.
// It never blocks the poller: it only reads the published pointer.
type Collector struct {
	source Source
	desc   *prometheus.Desc
}

func NewCollector(source Source) *Collector {
	return &Collector{
		source: source,
		desc: prometheus.NewDesc(
			"smard_energydata",
			"consumption or production in KWh",
			[]string{"id", "region", "cat_name", "module_name", "energy_type"},
			nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.source.Current()
	if snap == nil {
		return
	}

	for _, s := range snap.Samples {
		m, err := prometheus.NewConstMetric(
			c.desc,
			prometheus.GaugeValue,
			s.Value,
			strconv.Itoa(s.ID), s.Region, s.CategoryName, s.ModuleName, string(s.EnergyType),
		)
		if err != nil {
			ch <- prometheus.NewInvalidMetric(c.desc, err)
			continue
		}
		ch <- prometheus.NewMetricWithTimestamp(time.Unix(s.TimestampSeconds, 0), m)
	}
}
