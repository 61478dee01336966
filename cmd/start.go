/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"vault/domain"
	"vault/interface/exporter"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var pidFile string

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Starts vault's tasks",
	Long: `Starts the auto claim scheduler, the payout verify and retry loop and the metrics endpoint.
To stop it, run 'stop' command.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		defaultDependencyInject()
		defer closeDependencies()

		exporter.Init(prometheus.DefaultRegisterer)

		if err := writePidFile(pidFile); err != nil {
			return err
		}
		defer os.Remove(pidFile)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger.Info("started",
			zap.String("operator", driverWallet.GetAddress().ToHuman(true, domain.IsTestNet())),
			zap.Strings("admins", domain.GetAdminAddresses()),
			zap.Int("auto_claims", len(domain.GetAutoClaims())),
		)

		clock := clockwork.NewRealClock()
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return schedule(ctx, clock, func(ctx context.Context) {
				autoClaim(ctx, vaultInteractor.Claim, caller(), domain.GetAutoClaims())
			}, domain.GetClaimInterval())
		})
		g.Go(func() error {
			return schedule(ctx, clock, retryPayouts, domain.GetRetryInterval())
		})
		g.Go(func() error {
			return serveMetrics(ctx, domain.GetMetricsAddress())
		})

		err := g.Wait()
		logger.Info("stopped", zap.Error(err))
		return err
	},
}

// schedule runs task every interval until ctx is done. The interval is counted from the
// end of the previous run.
func schedule(ctx context.Context, clock clockwork.Clock, task func(context.Context), interval time.Duration) error {
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {

		case <-ticker.Chan():
			if ctx.Err() != nil {
				return nil
			}
			ticker.Stop()
			task(ctx)
			ticker.Reset(interval)

		case <-ctx.Done():
			return nil
		}
	}
}

// autoClaim claims the regular rounds of the configured vaults. A vault with no new round
// is the usual outcome and is not an error. It returns the number of committed claims.
func autoClaim(ctx context.Context, claim claimFunc, claimer string, entries []domain.AutoClaim) int {
	committed := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		record, err := claim(ctx, claimer, entry.Vault, entry.Destination)
		switch {
		case errors.Is(err, domain.ErrorAlreadyClaimedThisRound), errors.Is(err, domain.ErrorTooEarly):
			logger.Debug("nothing to claim", zap.String("vault", entry.Vault), zap.Error(err))
		case err != nil:
			logger.Error("🔴 auto claim", zap.String("vault", entry.Vault), zap.Error(err))
		default:
			committed++
			logger.Info("auto claim",
				zap.String("vault", entry.Vault),
				zap.Uint32("to_round", record.ToRound),
				zap.String("state", record.State),
			)
		}
	}
	return committed
}

// retryPayouts settles dispatched claims first, so a claim whose transfer went missing is
// sent again in the same run.
func retryPayouts(ctx context.Context) {
	verified, err := verifyInteractor.Verify(ctx)
	if err != nil {
		logger.Error("🔴 verifying payouts", zap.Error(err))
		return
	}
	if verified > 0 {
		logger.Info("payouts verified", zap.Int("verified", verified))
	}

	sent, err := payoutInteractor.RetryFailed(ctx)
	if err != nil {
		logger.Error("🔴 retrying payouts", zap.Error(err))
		return
	}
	if sent > 0 {
		logger.Info("payouts retried", zap.Int("sent", sent))
	}
}

func serveMetrics(ctx context.Context, address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving metrics on %v: %w", address, err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(startCmd)

	startCmd.Flags().StringVar(&pidFile, "pid-file", "vault.pid", "file that keeps the process id for 'stop'")
}
