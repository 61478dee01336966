package usecase

import (
	"context"
	"fmt"
	"time"
	"vault/domain"
	"vault/interface/exporter"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Transactions on chain carry the validator's clock.
const clockSkew = time.Minute

// VerifyInteractor settles dispatched claims by looking for their transfer on the custody
// jetton wallet. A claim found executed becomes 'verified'. A claim whose transfer was
// aborted, or is still missing once the window has passed, goes back to 'error' for the
// retry loop. The window must be longer than the lifetime of a wallet message, so a missing
// transfer can no longer land.
type VerifyInteractor struct {
	claims     ClaimRepository
	vaults     VaultRepository
	ledger     Ledger
	clock      clockwork.Clock
	logger     *zap.Logger
	staleAfter time.Duration
	window     time.Duration
}

func NewVerifyInteractor(claims ClaimRepository,
	vaults VaultRepository,
	ledger Ledger,
	clock clockwork.Clock,
	logger *zap.Logger,
	staleAfter time.Duration,
	window time.Duration) *VerifyInteractor {
	return &VerifyInteractor{
		claims:     claims,
		vaults:     vaults,
		ledger:     ledger,
		clock:      clock,
		logger:     logger,
		staleAfter: staleAfter,
		window:     window,
	}
}

func (interactor *VerifyInteractor) LoadVerifiable(ctx context.Context) ([]*domain.ClaimRecord, error) {
	staleBefore := interactor.clock.Now().Add(-interactor.staleAfter)
	records, err := interactor.claims.FindAllVerifiable(ctx, staleBefore)
	if err != nil {
		exporter.IncErrorCount()
		return nil, fmt.Errorf("loading verifiable claims: %w", err)
	}

	verifiable := records[:0]
	for _, record := range records {
		if record.IsVerifiable(staleBefore) {
			verifiable = append(verifiable, record)
		}
	}
	return verifiable, nil
}

// Verify checks every verifiable claim and returns the number of claims verified.
func (interactor *VerifyInteractor) Verify(ctx context.Context) (int, error) {
	records, err := interactor.LoadVerifiable(ctx)
	if err != nil {
		return 0, err
	}
	return interactor.VerifyClaims(ctx, records)
}

func (interactor *VerifyInteractor) VerifyClaims(ctx context.Context, records []*domain.ClaimRecord) (int, error) {
	tokens := newTokenCache(interactor.vaults)
	verified := 0
	for _, record := range records {
		if ctx.Err() != nil {
			return verified, ctx.Err()
		}

		token, err := tokens.get(ctx, record.Vault)
		if err != nil {
			interactor.logger.Error("🔴 loading vault of claim", zap.String("claim", record.Id), zap.Error(err))
			continue
		}

		dispatched := record.DispatchTime()
		status, err := interactor.ledger.FindTransfer(ctx, token, record.QueryId, dispatched.Add(-clockSkew))
		if err != nil {
			exporter.IncErrorCount()
			interactor.logger.Warn("🔴 verifying claim", zap.String("claim", record.Id), zap.Error(err))
			continue
		}

		switch status {
		case domain.TransferSucceeded:
			if err := interactor.claims.SetVerified(ctx, record.Id, record.State, interactor.clock.Now()); err != nil {
				interactor.logger.Error("🔴 updating claim state", zap.String("claim", record.Id), zap.Error(err))
				continue
			}
			verified++
			interactor.logger.Info("payout verified", zap.String("claim", record.Id), zap.String("vault", record.Vault))

		case domain.TransferAborted:
			interactor.retry(ctx, record, "transfer aborted on chain")

		default:
			if interactor.clock.Since(dispatched) < interactor.window {
				interactor.logger.Debug("payout not on chain yet", zap.String("claim", record.Id), zap.String("state", record.State))
				continue
			}
			interactor.retry(ctx, record, "transfer not found on chain")
		}
	}
	return verified, nil
}

func (interactor *VerifyInteractor) retry(ctx context.Context, record *domain.ClaimRecord, reason string) {
	exporter.IncErrorCount()
	if err := interactor.claims.SetRetriable(ctx, record.Id, record.State, reason); err != nil {
		interactor.logger.Error("🔴 updating claim state", zap.String("claim", record.Id), zap.Error(err))
		return
	}
	interactor.logger.Warn("🔴 payout not delivered", zap.String("claim", record.Id), zap.String("was", record.State), zap.String("reason", reason))
}
