package auction

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.dedis.ch/sealbid"
)

var (
	promCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sealbid_auctions_created_total",
		Help: "total number of auctions created",
	})

	promBids = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sealbid_bids_placed_total",
		Help: "total number of bids accepted",
	})

	promEnded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sealbid_auctions_ended_total",
		Help: "total number of auctions settled",
	})

	promRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sealbid_rejected_total",
		Help: "total number of refused requests by kind of error",
	}, []string{"kind"})
)

func init() {
	sealbid.PromCollectors = append(sealbid.PromCollectors, promCreated, promBids,
		promEnded, promRejected)
}

// observe counts the refused requests. Failures that are not a refusal are
// not counted.
func observe(err error) error {
	kind := Kind(err)
	if kind != "" {
		promRejected.WithLabelValues(kind).Inc()
	}

	return err
}
