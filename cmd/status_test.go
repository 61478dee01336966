package cmd

import (
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
	"vault/domain"

	"github.com/stretchr/testify/require"
)

func TestWriteSnapshot(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	vault := domain.NewVault("team", "0:4444444444444444444444444444444444444444444444444444444444444444", now)
	record := &domain.ClaimRecord{Id: "a", Vault: "team", Kind: domain.PayoutKindTge, State: domain.ClaimStateSent}
	record.Amount.SetString("62500000000000000000000", 10)

	path := filepath.Join(t.TempDir(), "team.json")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o600))

	err := writeSnapshot(path, &domain.VaultSnapshot{
		Vault:     vault,
		Round:     2,
		Claimable: big.NewInt(10),
		Claims:    []*domain.ClaimRecord{record},
		Time:      now,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded struct {
		Vault struct {
			Name string `json:"name"`
		} `json:"vault"`
		Round     uint32 `json:"elapsed_round"`
		Claimable int64  `json:"claimable"`
		Claims    []struct {
			Amount json.Number `json:"amount"`
		} `json:"claims"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, "team", decoded.Vault.Name)
	require.Equal(t, uint32(2), decoded.Round)
	require.Equal(t, int64(10), decoded.Claimable)
	require.Len(t, decoded.Claims, 1)
	require.Equal(t, "62500000000000000000000", decoded.Claims[0].Amount.String())
}
