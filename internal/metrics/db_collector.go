package metrics

import "github.com/prometheus/client_golang/prometheus"

// DBPoolStats is a snapshot of the lead archive's connection pool.
type DBPoolStats struct {
	TotalConns    int32
	IdleConns     int32
	AcquiredConns int32
	MaxConns      int32
}

// DBPoolStatFunc returns pool statistics without importing pgxpool.
type DBPoolStatFunc func() DBPoolStats

type dbPoolCollector struct {
	stats DBPoolStatFunc
	descs [4]*prometheus.Desc
}

// NewDBPoolCollector creates a collector that exposes pool gauges.
func NewDBPoolCollector(stats DBPoolStatFunc) prometheus.Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("mbnakom_db_pool_"+name, help, nil, nil)
	}
	return &dbPoolCollector{
		stats: stats,
		descs: [4]*prometheus.Desc{
			desc("total_conns", "Total number of connections in the DB pool."),
			desc("idle_conns", "Number of idle connections in the DB pool."),
			desc("acquired_conns", "Number of acquired connections in the DB pool."),
			desc("max_conns", "Configured maximum size of the DB pool."),
		},
	}
}

func (c *dbPoolCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d
	}
}

func (c *dbPoolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	values := [4]int32{s.TotalConns, s.IdleConns, s.AcquiredConns, s.MaxConns}
	for i, d := range c.descs {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(values[i]))
	}
}
