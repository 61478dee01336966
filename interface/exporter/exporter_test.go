package exporter

import (
	"math/big"
	"testing"
	"time"
	"vault/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	// updates before Init are dropped
	IncErrorCount()
	IncClaimCount(domain.PayoutKindTge)

	registry := prometheus.NewRegistry()
	Init(registry)

	IncErrorCount()
	IncErrorCount()
	require.Equal(t, 2.0, testutil.ToFloat64(GetCounter(METRIC_ERROR_COUNT)))

	IncClaimCount(domain.PayoutKindRegular)
	require.Equal(t, 1.0, testutil.ToFloat64(counterVecs[METRIC_CLAIM_COUNT].WithLabelValues(domain.PayoutKindRegular)))

	vault := domain.NewVault("lp", "", time.Now())
	vault.State.CurrentRound = 7
	vault.State.ClaimedAmount = big.NewInt(700)
	SetVaultProgress(vault)
	require.Equal(t, 7.0, testutil.ToFloat64(gaugeVecs[METRIC_CURRENT_ROUND].WithLabelValues("lp")))
	require.Equal(t, 700.0, testutil.ToFloat64(gaugeVecs[METRIC_CLAIMED_AMOUNT].WithLabelValues("lp")))
}
