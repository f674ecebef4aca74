package pxgated

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricNameSpace = "pxgated"
)

var (
	loadedChunksGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: MetricNameSpace,
			Name:      "loaded_chunks",
			Help:      "canvas chunks fetched from chain",
		},
	)
	pendingOpsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: MetricNameSpace,
			Name:      "pending_ops",
			Help:      "transactions awaiting confirmation",
		},
	)
	totalMintedGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: MetricNameSpace,
			Name:      "total_minted",
			Help:      "minted pixels on the canvas",
		},
	)
)

func init() {
	prometheus.MustRegister(
		loadedChunksGauge,
		pendingOpsGauge,
		totalMintedGauge,
	)
}

func metricLoadedChunks(n int) {
	loadedChunksGauge.Set(float64(n))
}

func metricPendingOps(n int) {
	pendingOpsGauge.Set(float64(n))
}

func metricTotalMinted(n int64) {
	totalMintedGauge.Set(float64(n))
}
