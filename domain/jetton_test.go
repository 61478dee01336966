package domain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/boc"
)

func readAddress(t *testing.T, cell *boc.Cell) tongo.AccountID {
	t.Helper()
	prefix, err := cell.ReadUint(2)
	require.NoError(t, err)
	require.Equal(t, uint64(0b10), prefix)
	anycast, err := cell.ReadUint(1)
	require.NoError(t, err)
	require.Zero(t, anycast)
	workchain, err := cell.ReadUint(8)
	require.NoError(t, err)

	accid := tongo.AccountID{Workchain: int32(int8(uint8(workchain)))}
	for i := range accid.Address {
		b, err := cell.ReadUint(8)
		require.NoError(t, err)
		accid.Address[i] = byte(b)
	}
	return accid
}

func readCoins(t *testing.T, cell *boc.Cell) *big.Int {
	t.Helper()
	size, err := cell.ReadUint(4)
	require.NoError(t, err)
	data := make([]byte, size)
	for i := range data {
		b, err := cell.ReadUint(8)
		require.NoError(t, err)
		data[i] = byte(b)
	}
	return new(big.Int).SetBytes(data)
}

func TestJettonTransferCell(t *testing.T) {
	destination := tongo.MustParseAccountID("0:3333333333333333333333333333333333333333333333333333333333333333")
	response := tongo.MustParseAccountID("-1:5555555555555555555555555555555555555555555555555555555555555555")
	amount, ok := new(big.Int).SetString("173611111111111111111115", 10)
	require.True(t, ok)

	cell, err := JettonTransfer{
		QueryId:             77,
		Amount:              amount,
		Destination:         destination,
		ResponseDestination: response,
		ForwardTonAmount:    1,
	}.Cell()
	require.NoError(t, err)

	opcode, err := cell.ReadUint(32)
	require.NoError(t, err)
	require.Equal(t, uint64(OpcodeJettonTransfer), opcode)
	queryId, err := cell.ReadUint(64)
	require.NoError(t, err)
	require.Equal(t, uint64(77), queryId)
	require.Zero(t, readCoins(t, cell).Cmp(amount))
	require.Equal(t, destination, readAddress(t, cell))
	require.Equal(t, response, readAddress(t, cell))

	customPayload, err := cell.ReadUint(1)
	require.NoError(t, err)
	require.Zero(t, customPayload)
	require.Zero(t, readCoins(t, cell).Cmp(big.NewInt(1)))
	forwardPayload, err := cell.ReadUint(1)
	require.NoError(t, err)
	require.Zero(t, forwardPayload)
}

func TestJettonTransferZeroAmount(t *testing.T) {
	cell, err := JettonTransfer{Amount: new(big.Int)}.Cell()
	require.NoError(t, err)

	_, err = cell.ReadUint(32)
	require.NoError(t, err)
	_, err = cell.ReadUint(64)
	require.NoError(t, err)
	require.Zero(t, readCoins(t, cell).Sign())
}

func TestJettonTransferInvalidAmount(t *testing.T) {
	_, err := JettonTransfer{Amount: new(big.Int).Lsh(big.NewInt(1), 120)}.Cell()
	require.ErrorIs(t, err, ErrorCoinsOverflow)

	_, err = JettonTransfer{Amount: big.NewInt(-1)}.Cell()
	require.ErrorIs(t, err, ErrorInvalidParameter)

	_, err = JettonTransfer{}.Cell()
	require.ErrorIs(t, err, ErrorInvalidParameter)
}
