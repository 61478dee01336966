package domain

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/tlb"
)

func TestMessageOpcodeAndQueryId(t *testing.T) {
	body, err := JettonTransfer{
		QueryId:     0x1234_5678_9abc,
		Amount:      big.NewInt(5),
		Destination: tongo.MustParseAccountID("0:3333333333333333333333333333333333333333333333333333333333333333"),
	}.Cell()
	require.NoError(t, err)

	msg := tlb.Message{}
	msg.Body.Value = tlb.Any(*body)
	op, queryId, ok := NewHMessage(&msg).OpcodeAndQueryId()
	require.True(t, ok)
	require.Equal(t, OpcodeJettonTransfer, op)
	require.Equal(t, uint64(0x1234_5678_9abc), queryId)
}

func TestTransactionWithoutInMessage(t *testing.T) {
	sender := tongo.MustParseAccountID("0:1111111111111111111111111111111111111111111111111111111111111111")
	ht := NewHTransaction(&tlb.Transaction{})
	require.Nil(t, ht.InMessage())
	require.Equal(t, TransferNotFound, ht.JettonTransferStatus(sender, 1))
}

func TestClaimIsVerifiable(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	before := now.Add(-time.Hour)

	for state, want := range map[string]bool{
		ClaimStateNew:         false,
		ClaimStateSent:        true,
		ClaimStateUnconfirmed: true,
		ClaimStateVerified:    false,
		ClaimStateSkipped:     false,
		ClaimStateError:       false,
	} {
		record := &ClaimRecord{State: state, CreateTime: before}
		require.Equal(t, want, record.IsVerifiable(now), state)
	}

	ongoing := &ClaimRecord{State: ClaimStateOngoing, CreateTime: before}
	require.False(t, ongoing.IsVerifiable(now))
	ongoing.RetryTime = &now
	require.False(t, ongoing.IsVerifiable(now))
	require.True(t, ongoing.IsVerifiable(now.Add(time.Second)))

	require.Equal(t, now, ongoing.DispatchTime())
	require.Equal(t, before, (&ClaimRecord{CreateTime: before}).DispatchTime())
}

func TestUnconfirmedClaimIsNotRetriable(t *testing.T) {
	for _, state := range []string{ClaimStateUnconfirmed, ClaimStateOngoing, ClaimStateSent, ClaimStateVerified} {
		require.False(t, (&ClaimRecord{State: state}).IsRetriable(3), state)
	}
	require.True(t, (&ClaimRecord{State: ClaimStateError, Retried: 2}).IsRetriable(3))
}
