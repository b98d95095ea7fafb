package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kwlnk_login_total",
		Help: "Login attempts by result.",
	}, []string{"result"})

	redirectTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kwlnk_redirect_total",
		Help: "Redirect requests by response status.",
	}, []string{"status"})
)
