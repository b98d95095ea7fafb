package links

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	keygenAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kwlnk_key_generation_attempts_total",
		Help: "Random key candidates drawn while creating links.",
	})
	keygenExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kwlnk_key_generation_exhausted_total",
		Help: "Link creations that ran out of key generation attempts.",
	})
	resolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kwlnk_link_resolve_total",
		Help: "Redirect lookups by outcome.",
	}, []string{"result"})
)
