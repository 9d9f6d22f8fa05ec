package diff

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var refResolutionWarnings = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modgate_diff_ref_resolution_warnings",
	Help: "Number of reference fields which degraded to unlinked text during diff rendering",
}, []string{"type"})
