package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/trickstertwo/xframe"
)

// Collector samples world state at scrape time.
type Collector struct {
	world *xframe.World

	pending    *prometheus.Desc
	registered *prometheus.Desc
	paused     *prometheus.Desc
	active     *prometheus.Desc
	inactive   *prometheus.Desc
	buffered   *prometheus.Desc
	dropped    *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector for w. Register it with
// prometheus.Registerer.MustRegister.
func NewCollector(w *xframe.World, namespace string) *Collector {
	if namespace == "" {
		namespace = "xframe"
	}
	name := func(n string) string { return prometheus.BuildFQName(namespace, "", n) }

	return &Collector{
		world:      w,
		pending:    prometheus.NewDesc(name("bus_pending_messages"), "Messages waiting for the next drain", nil, nil),
		registered: prometheus.NewDesc(name("scheduler_registered_entities"), "Entities in the update set", nil, nil),
		paused:     prometheus.NewDesc(name("scheduler_paused"), "1 while update passes are paused", nil, nil),
		active:     prometheus.NewDesc(name("pool_active_instances"), "Pooled instances in play", []string{"prototype"}, nil),
		inactive:   prometheus.NewDesc(name("pool_inactive_instances"), "Pooled instances parked for reuse", []string{"prototype"}, nil),
		buffered:   prometheus.NewDesc(name("journal_buffered_records"), "Records waiting for the journal worker", nil, nil),
		dropped:    prometheus.NewDesc(name("journal_dropped_records_total"), "Records dropped on a full journal buffer", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.pending
	ch <- c.registered
	ch <- c.paused
	ch <- c.active
	ch <- c.inactive
	ch <- c.buffered
	ch <- c.dropped
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(c.world.Bus.Pending()))
	ch <- prometheus.MustNewConstMetric(c.registered, prometheus.GaugeValue, float64(c.world.Scheduler.Len()))

	paused := 0.0
	if c.world.Paused() {
		paused = 1
	}
	ch <- prometheus.MustNewConstMetric(c.paused, prometheus.GaugeValue, paused)

	// Prototypes sharing a description are summed so label sets stay unique.
	active := map[string]int{}
	inactive := map[string]int{}
	var order []string
	for _, s := range c.world.Pools.RollCall() {
		if _, seen := active[s.Prototype]; !seen {
			order = append(order, s.Prototype)
		}
		active[s.Prototype] += s.Active
		inactive[s.Prototype] += s.Inactive
	}
	for _, p := range order {
		ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(active[p]), p)
		ch <- prometheus.MustNewConstMetric(c.inactive, prometheus.GaugeValue, float64(inactive[p]), p)
	}

	if jw, err := c.world.Journal(); err == nil {
		st := jw.Stats()
		ch <- prometheus.MustNewConstMetric(c.buffered, prometheus.GaugeValue, float64(st.Buffered))
		ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(st.Dropped))
	}
}
