package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	PagesFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "certsync",
		Subsystem: "sync",
		Name:      "pages_fetched_total",
		Help:      "Number of certificate pages fetched and committed.",
	})

	CertificatesUpserted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "certsync",
		Subsystem: "sync",
		Name:      "certificates_upserted_total",
		Help:      "Number of certificates inserted or updated by sync.",
	})

	TokenRefreshes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "certsync",
		Subsystem: "auth",
		Name:      "token_refreshes_total",
		Help:      "Number of successful auth token refreshes.",
	})
)

func Metrics() {
	prometheus.MustRegister(PagesFetched)
	prometheus.MustRegister(CertificatesUpserted)
	prometheus.MustRegister(TokenRefreshes)
}
