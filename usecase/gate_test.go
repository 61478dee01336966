package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tonkeeper/tongo"
)

func TestAdminGate(t *testing.T) {
	admin := tongo.MustParseAccountID(adminAddress)
	gate := NewAdminGate([]tongo.AccountID{admin})

	require.True(t, gate.IsAdmin(adminAddress))
	require.True(t, gate.IsAdmin(" "+adminAddress+" "))
	require.True(t, gate.IsAdmin(admin.ToHuman(true, false)))
	require.True(t, gate.IsAdmin(admin.ToHuman(false, true)))
	require.False(t, gate.IsAdmin(strangerAddress))
	require.False(t, gate.IsAdmin(""))
	require.False(t, gate.IsAdmin("not an address"))
}

func TestGateFunc(t *testing.T) {
	gate := GateFunc(func(caller string) bool { return caller == "root" })
	require.True(t, gate.IsAdmin("root"))
	require.False(t, gate.IsAdmin("guest"))
}
