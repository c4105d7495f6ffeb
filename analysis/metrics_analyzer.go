package analysis

import (
	"net/http"

	"github.com/jesbu1/rl-starter-files/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsAnalyzer exports the latest report as Prometheus gauges on its own
// registry.
type MetricsAnalyzer struct {
	registry *prometheus.Registry

	update    prometheus.Gauge
	frames    prometheus.Gauge
	fps       prometheus.Gauge
	losses    *prometheus.GaugeVec
	returns   *prometheus.GaugeVec
	reshaped  *prometheus.GaugeVec
	epFrames  *prometheus.GaugeVec
	completed prometheus.Counter
}

var _ core.Analyzer = &MetricsAnalyzer{}

func NewMetricsAnalyzer(constLabels prometheus.Labels) *MetricsAnalyzer {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rl", Name: name, Help: help, ConstLabels: constLabels,
		})
	}
	stats := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "rl", Name: name, Help: help, ConstLabels: constLabels,
		}, []string{"stat"})
	}

	m := &MetricsAnalyzer{
		registry: prometheus.NewRegistry(),
		update:   gauge("update", "Number of parameter updates so far."),
		frames:   gauge("frames", "Number of environment frames so far."),
		fps:      gauge("fps", "Frames per second of the last update."),
		losses: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "rl", Name: "loss", Help: "Losses of the last update.", ConstLabels: constLabels,
		}, []string{"kind"}),
		returns:  stats("return", "Episode return statistics."),
		reshaped: stats("reshaped_return", "Reshaped episode return statistics."),
		epFrames: stats("episode_frames", "Episode length statistics."),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rl", Name: "reports_total", Help: "Number of reports received.", ConstLabels: constLabels,
		}),
	}
	m.registry.MustRegister(m.update, m.frames, m.fps, m.losses, m.returns, m.reshaped, m.epFrames, m.completed)
	return m
}

func (m *MetricsAnalyzer) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *MetricsAnalyzer) Analyze(r *core.UpdateReport) error {
	m.update.Set(float64(r.Update))
	m.frames.Set(float64(r.NumFrames))
	m.fps.Set(r.FPS)

	m.losses.WithLabelValues("entropy").Set(r.Losses.Entropy)
	m.losses.WithLabelValues("value").Set(r.Losses.Value)
	m.losses.WithLabelValues("policy").Set(r.Losses.PolicyLoss)
	m.losses.WithLabelValues("value_loss").Set(r.Losses.ValueLoss)
	m.losses.WithLabelValues("grad_norm").Set(r.Losses.GradNorm)

	setStats(m.returns, Synthesize(r.Episodes.ReturnPerEpisode))
	setStats(m.reshaped, Synthesize(r.Episodes.ReshapedReturnPerEpisode))
	setStats(m.epFrames, Synthesize(r.Episodes.NumFramesPerEpisode))
	m.completed.Inc()
	return nil
}

func setStats(g *prometheus.GaugeVec, s Stats) {
	for i, v := range s.values() {
		g.WithLabelValues(statNames[i]).Set(v)
	}
}
