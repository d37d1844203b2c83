package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the auth-flow counters the app exposes on /metrics.
type Metrics struct {
	OAuthBegins    prometheus.Counter
	OAuthCallbacks *prometheus.CounterVec
	Reauths        prometheus.Counter
}

// New registers the app's collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OAuthBegins: factory.NewCounter(prometheus.CounterOpts{
			Name: "wholesale_oauth_begin_total",
			Help: "OAuth handshakes started.",
		}),
		OAuthCallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wholesale_oauth_callback_total",
			Help: "OAuth callback outcomes.",
		}, []string{"outcome"}),
		Reauths: factory.NewCounter(prometheus.CounterOpts{
			Name: "wholesale_reauthorize_total",
			Help: "401 responses demanding client reauthorization.",
		}),
	}
}
