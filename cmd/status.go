package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"vault/domain"
	"vault/domain/util"
	"vault/interface/repository"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var statusCmd = &cobra.Command{
	Use:   "status [vault]",
	Short: "Prints vaults and their claims",
	Long: `Prints every vault, or one vault with its claimable amount, the balance of its token
wallet and its claim history.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd.Context(), func(ctx context.Context) error {
			if len(args) == 0 {
				vaults, err := vaultInteractor.List(ctx)
				if err != nil {
					return err
				}
				for _, vault := range vaults {
					printVault(vault)
				}
				return nil
			}
			return printStatus(ctx, args[0])
		})
	},
}

func printStatus(ctx context.Context, name string) error {
	decimals := domain.GetTokenDecimals()

	snapshot, err := vaultInteractor.Snapshot(ctx, name)
	if err != nil {
		return err
	}
	printVault(snapshot.Vault)
	fmt.Printf("elapsed      : round %v, %v claimable\n", snapshot.Round, util.TokenString(snapshot.Claimable, decimals))

	balance, err := ledger.BalanceOf(ctx, snapshot.Vault.Token)
	if err != nil {
		logger.Warn("🔴 reading token wallet balance", zap.String("token", snapshot.Vault.Token), zap.Error(err))
	} else {
		fmt.Printf("balance      : %v (forward %v per transfer)\n", util.TokenString(balance, decimals), util.GramToTonString(int64(domain.GetForwardAmount())))
	}

	fmt.Printf("------------- CLAIMS -----------------\n")
	for i, record := range snapshot.Claims {
		fmt.Printf("#%03d ", i+1)
		printClaim(record)
	}
	return nil
}

var exportCmd = &cobra.Command{
	Use:   "export <vault> <file>",
	Short: "Writes a JSON snapshot of a vault",
	Long:  `Writes a JSON snapshot of a vault and its claims. The file is replaced atomically.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd.Context(), func(ctx context.Context) error {
			snapshot, err := vaultInteractor.Snapshot(ctx, args[0])
			if err != nil {
				return err
			}
			if err := writeSnapshot(args[1], snapshot); err != nil {
				return err
			}
			fmt.Printf("✅ vault %v exported to %v\n", args[0], args[1])
			return nil
		})
	},
}

func writeSnapshot(path string, snapshot *domain.VaultSnapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Checks dispatched payouts on chain",
	Long: `Looks for the transfer of every sent, unconfirmed or stuck claim on its token wallet.
Found transfers are marked verified, missing ones are made retriable for 'start'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd.Context(), func(ctx context.Context) error {
			verified, err := verifyInteractor.Verify(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("✅ %v payout(s) verified\n", verified)
			return nil
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Creates the database tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		databaseInject()
		defer closeDependencies()

		if err := dbHandler.Exec(cmd.Context(), repository.Schema...); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
		fmt.Println("✅ database is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(verifyCmd)
}
