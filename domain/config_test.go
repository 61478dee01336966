package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestReadConfigInvalidNetwork(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network: moon\n"), 0o600))

	err := ReadConfig(path)
	require.ErrorIs(t, err, ErrorInvalidNetwork)
	require.ErrorContains(t, err, "configuration error")
}

func TestInitializeVariablesMnemonic(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.txt")
	tests := map[string]struct {
		values map[string]string
		err    error
	}{
		"no mnemonic": {
			values: map[string]string{},
			err:    ErrorNoMnemonic,
		},
		"both sources": {
			values: map[string]string{"mnemonic": "a b c", "mnemonic_url": missing},
			err:    ErrorMnemonicConflict,
		},
		"unreadable file": {
			values: map[string]string{"mnemonic_url": missing},
			err:    ErrorReadingMnemonicFile,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(viper.Reset)
			setDefaults()
			for key, value := range tc.values {
				viper.Set(key, value)
			}
			require.ErrorIs(t, initializeVariables(), tc.err)
		})
	}
}

func TestReadMnemonicFileTrims(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mnemonic.txt")
	require.NoError(t, os.WriteFile(path, []byte("  word1 word2\n"), 0o600))

	seed, err := readMnemonicFile(path)
	require.NoError(t, err)
	require.Equal(t, "word1 word2", seed)
}
