package cmd

import (
	"context"
	"fmt"
	"vault/domain"
	"vault/domain/util"

	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create <vault> <token-wallet>",
	Short: "Registers a new vault",
	Long: `Registers a new vault. <token-wallet> is the jetton wallet of the operator that holds
the vested tokens.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd.Context(), func(ctx context.Context) error {
			vault, err := vaultInteractor.Create(ctx, caller(), args[0], args[1])
			if err != nil {
				return err
			}
			printVault(vault)
			return nil
		})
	},
}

var initializeCmd = &cobra.Command{
	Use:   "initialize <vault> <total-amount> <claim-counts> <start-time> <claim-period>",
	Short: "Sets the regular schedule of a vault",
	Long: `Sets the regular schedule of a vault, once. Amounts are in base units, times are unix
seconds or RFC 3339 and the period is seconds or a duration like 10m.`,
	Args: cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		total, err := parseAmount(args[1])
		if err != nil {
			return err
		}
		counts, err := parseCounts(args[2])
		if err != nil {
			return err
		}
		start, err := parseTime(args[3])
		if err != nil {
			return err
		}
		period, err := parsePeriod(args[4])
		if err != nil {
			return err
		}

		return withEngine(cmd.Context(), func(ctx context.Context) error {
			vault, err := vaultInteractor.Initialize(ctx, caller(), args[0], total, counts, start, period)
			if err != nil {
				return err
			}
			printVault(vault)
			return nil
		})
	},
}

var tgeSettingCmd = &cobra.Command{
	Use:   "tge-setting <vault> <amount> <time>",
	Short: "Sets the TGE unlock of a vault",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		tge, err := parseUnlock(args[1], args[2])
		if err != nil {
			return err
		}
		return withEngine(cmd.Context(), func(ctx context.Context) error {
			vault, err := vaultInteractor.TgeSetting(ctx, caller(), args[0], tge)
			if err != nil {
				return err
			}
			printVault(vault)
			return nil
		})
	},
}

var firstClaimSettingCmd = &cobra.Command{
	Use:   "first-claim-setting <vault> <amount> <time>",
	Short: "Sets the first claim unlock of a vault",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		firstClaim, err := parseUnlock(args[1], args[2])
		if err != nil {
			return err
		}
		return withEngine(cmd.Context(), func(ctx context.Context) error {
			vault, err := vaultInteractor.FirstClaimSetting(ctx, caller(), args[0], firstClaim)
			if err != nil {
				return err
			}
			printVault(vault)
			return nil
		})
	},
}

var allSettingCmd = &cobra.Command{
	Use:   "all-setting <vault> <tge-amount> <tge-time> <first-claim-amount> <first-claim-time>",
	Short: "Sets the TGE and first claim unlocks of a vault together",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		tge, err := parseUnlock(args[1], args[2])
		if err != nil {
			return err
		}
		firstClaim, err := parseUnlock(args[3], args[4])
		if err != nil {
			return err
		}
		return withEngine(cmd.Context(), func(ctx context.Context) error {
			vault, err := vaultInteractor.AllSetting(ctx, caller(), args[0], tge, firstClaim)
			if err != nil {
				return err
			}
			printVault(vault)
			return nil
		})
	},
}

type claimFunc func(ctx context.Context, caller, name, destination string) (*domain.ClaimRecord, error)

func newClaimCmd(use, short string, claim func() claimFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <vault> <destination>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context) error {
				record, err := claim()(ctx, caller(), args[0], args[1])
				if err != nil {
					return err
				}
				printClaim(record)
				return nil
			})
		},
	}
}

// The interactor only exists after injection, so the claim functions are resolved lazily.
var (
	tgeClaimCmd = newClaimCmd("tge-claim", "Releases the TGE unlock of a vault", func() claimFunc {
		return vaultInteractor.TgeClaim
	})
	firstClaimCmd = newClaimCmd("first-claim", "Releases the first claim unlock of a vault", func() claimFunc {
		return vaultInteractor.FirstClaim
	})
	claimCmd = newClaimCmd("claim", "Releases every regular round elapsed since the last claim", func() claimFunc {
		return vaultInteractor.Claim
	})
)

func withEngine(ctx context.Context, fn func(ctx context.Context) error) error {
	defaultDependencyInject()
	defer closeDependencies()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx)
}

func printVault(vault *domain.Vault) {
	decimals := domain.GetTokenDecimals()
	c, s := vault.Config, vault.State

	fmt.Printf("------------- VAULT %v -----------------\n", vault.Name)
	fmt.Printf("token wallet : %v\n", vault.Token)
	if c.Initialized {
		fmt.Printf("schedule     : %v over %v rounds of %vs from %v\n",
			util.TokenString(c.TotalAllocatedAmount, decimals), c.TotalClaimCounts, c.ClaimPeriodTimes, c.StartTime)
	} else {
		fmt.Printf("schedule     : not initialized\n")
	}
	if c.TgeConfigured {
		fmt.Printf("tge          : %v at %v (claimed: %v)\n", util.TokenString(c.TgeAmount, decimals), c.TgeTime, s.TgeClaimed)
	}
	if c.FirstClaimConfigured {
		fmt.Printf("first claim  : %v at %v (claimed: %v)\n", util.TokenString(c.FirstClaimAmount, decimals), c.FirstClaimTime, s.FirstClaimClaimed)
	}
	fmt.Printf("round        : %v / %v\n", s.CurrentRound, c.TotalClaimCounts)
	fmt.Printf("claimed      : %v of %v\n", util.TokenString(vault.TotalClaimedAmount(), decimals), util.TokenString(vault.TotalAmount(), decimals))
}

func printClaim(record *domain.ClaimRecord) {
	icon := "✅"
	switch record.State {
	case domain.ClaimStateError:
		icon = "❌"
	case domain.ClaimStateSkipped:
		icon = "⏭️"
	case domain.ClaimStateNew, domain.ClaimStateOngoing, domain.ClaimStateUnconfirmed:
		icon = "⏳"
	case domain.ClaimStateSent:
		icon = "📤"
	}
	rounds := ""
	if record.Kind == domain.PayoutKindRegular {
		rounds = fmt.Sprintf(" rounds %v-%v", record.FromRound, record.ToRound)
	}
	fmt.Printf("%v %v claim%v of %v to %v [%v]",
		icon, record.Kind, rounds, util.TokenString(&record.Amount, domain.GetTokenDecimals()), record.Destination, record.State)
	if record.LastError != "" {
		fmt.Printf(" - %v", record.LastError)
	}
	fmt.Printf("\n")
}

func init() {
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(initializeCmd)
	rootCmd.AddCommand(tgeSettingCmd)
	rootCmd.AddCommand(firstClaimSettingCmd)
	rootCmd.AddCommand(allSettingCmd)
	rootCmd.AddCommand(tgeClaimCmd)
	rootCmd.AddCommand(firstClaimCmd)
	rootCmd.AddCommand(claimCmd)
}
