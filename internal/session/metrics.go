package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var fallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "venture_pulse_session_fallback_total",
	Help: "Session operations served by the in-memory fallback after a primary failure",
}, []string{"op"})
