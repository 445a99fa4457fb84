package ipfs

import "github.com/prometheus/client_golang/prometheus"

// Metrics exports supervisor and client activity.
type Metrics struct {
	state      prometheus.Gauge
	probes     *prometheus.CounterVec
	operations *prometheus.CounterVec
	launches   *prometheus.CounterVec
}

// NewMetrics builds the collectors and registers them on reg when it is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "assetnode_ipfs_state",
			Help: "Current IPFS supervisor lifecycle state (0=not_started .. 6=daemon_start_failed).",
		}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assetnode_ipfs_probes_total",
			Help: "Health probes issued against the IPFS API, by result.",
		}, []string{"result"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assetnode_ipfs_operations_total",
			Help: "IPFS client operations, by operation and result.",
		}, []string{"op", "result"}),
		launches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assetnode_ipfs_process_commands_total",
			Help: "Daemon process commands dispatched, by command and result.",
		}, []string{"command", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.state, m.probes, m.operations, m.launches)
	}
	return m
}

func (m *Metrics) setState(s State) {
	if m == nil {
		return
	}
	m.state.Set(float64(s))
}

func (m *Metrics) observeProbe(err error) {
	if m == nil {
		return
	}
	m.probes.WithLabelValues(resultLabel(err)).Inc()
}

func (m *Metrics) observeOperation(op string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, resultLabel(err)).Inc()
}

func (m *Metrics) observeCommand(command string, err error) {
	if m == nil {
		return
	}
	m.launches.WithLabelValues(command, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}
