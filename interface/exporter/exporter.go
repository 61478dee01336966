package exporter

import (
	"math/big"
	"vault/domain"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	METRIC_ERROR_COUNT    = "error_count"
	METRIC_CLAIM_COUNT    = "claim_count"
	METRIC_CURRENT_ROUND  = "current_round"
	METRIC_CLAIMED_AMOUNT = "claimed_amount"

	namespace = "vesting"
	subsystem = "vault"
)

var (
	counters    map[string]prometheus.Counter
	counterVecs map[string]*prometheus.CounterVec
	gaugeVecs   map[string]*prometheus.GaugeVec
)

// Init creates the metrics and registers them. Until it is called every update is a
// no-op.
func Init(registerer prometheus.Registerer) {
	counters = make(map[string]prometheus.Counter)
	counterVecs = make(map[string]*prometheus.CounterVec)
	gaugeVecs = make(map[string]*prometheus.GaugeVec)

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      METRIC_ERROR_COUNT,
		Help:      "Counts the number of failed storage and ledger operations",
	})
	registerer.MustRegister(counter)
	counters[METRIC_ERROR_COUNT] = counter

	claims := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      METRIC_CLAIM_COUNT,
		Help:      "Counts the number of committed claims by kind",
	}, []string{"kind"})
	registerer.MustRegister(claims)
	counterVecs[METRIC_CLAIM_COUNT] = claims

	round := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      METRIC_CURRENT_ROUND,
		Help:      "Highest regular round paid by the vault",
	}, []string{"vault"})
	registerer.MustRegister(round)
	gaugeVecs[METRIC_CURRENT_ROUND] = round

	claimed := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      METRIC_CLAIMED_AMOUNT,
		Help:      "Total amount paid by the vault in base units, approximated as float",
	}, []string{"vault"})
	registerer.MustRegister(claimed)
	gaugeVecs[METRIC_CLAIMED_AMOUNT] = claimed
}

func GetCounter(name string) prometheus.Counter {
	return counters[name]
}

func IncErrorCount() {
	if counter, ok := counters[METRIC_ERROR_COUNT]; ok {
		counter.Inc()
	}
}

func IncClaimCount(kind string) {
	if vec, ok := counterVecs[METRIC_CLAIM_COUNT]; ok {
		vec.WithLabelValues(kind).Inc()
	}
}

func SetVaultProgress(vault *domain.Vault) {
	if vec, ok := gaugeVecs[METRIC_CURRENT_ROUND]; ok {
		vec.WithLabelValues(vault.Name).Set(float64(vault.State.CurrentRound))
	}
	if vec, ok := gaugeVecs[METRIC_CLAIMED_AMOUNT]; ok {
		claimed, _ := new(big.Float).SetInt(vault.TotalClaimedAmount()).Float64()
		vec.WithLabelValues(vault.Name).Set(claimed)
	}
}
