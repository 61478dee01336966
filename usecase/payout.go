package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"vault/domain"
	"vault/domain/util"
	"vault/interface/exporter"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type ClaimRepository interface {
	Find(ctx context.Context, id string) (*domain.ClaimRecord, error)
	FindByVault(ctx context.Context, vault string) ([]*domain.ClaimRecord, error)
	FindAllTriable(ctx context.Context, maxRetry int, staleBefore time.Time) ([]*domain.ClaimRecord, error)
	FindAllVerifiable(ctx context.Context, staleBefore time.Time) ([]*domain.ClaimRecord, error)
	SetOngoing(ctx context.Context, id string, timestamp time.Time) error
	SetSent(ctx context.Context, id string, timestamp time.Time) error
	SetVerified(ctx context.Context, id string, from string, timestamp time.Time) error
	SetRetriable(ctx context.Context, id string, from string, lastError string) error
	SetState(ctx context.Context, id string, state string, lastError string) error
}

// PayoutInteractor turns committed claim records into ledger transfers. Transfers leave one
// at a time, whoever dispatches them.
type PayoutInteractor struct {
	sendMu sync.Mutex

	claims        ClaimRepository
	vaults        VaultRepository
	ledger        Ledger
	clock         clockwork.Clock
	logger        *zap.Logger
	maxRetry      int
	staleAfter    time.Duration
	tokenDecimals int
}

func NewPayoutInteractor(claims ClaimRepository,
	vaults VaultRepository,
	ledger Ledger,
	clock clockwork.Clock,
	logger *zap.Logger,
	maxRetry int,
	staleAfter time.Duration,
	tokenDecimals int) *PayoutInteractor {
	return &PayoutInteractor{
		claims:        claims,
		vaults:        vaults,
		ledger:        ledger,
		clock:         clock,
		logger:        logger,
		maxRetry:      maxRetry,
		staleAfter:    staleAfter,
		tokenDecimals: tokenDecimals,
	}
}

// Dispatch sends the transfer of a 'new' or 'error' record and moves it to 'sent', or to
// 'unconfirmed' when the transfer may have left, or to 'error' when it surely did not. The
// record is updated in place.
func (interactor *PayoutInteractor) Dispatch(ctx context.Context, token string, record *domain.ClaimRecord) error {
	now := interactor.clock.Now()
	if err := interactor.claims.SetOngoing(ctx, record.Id, now); err != nil {
		return fmt.Errorf("taking claim %v: %w", record.Id, err)
	}
	record.State = domain.ClaimStateOngoing
	record.Retried++
	record.RetryTime = &now

	interactor.sendMu.Lock()
	err := interactor.ledger.Transfer(ctx, token, record.Destination, &record.Amount, record.QueryId)
	interactor.sendMu.Unlock()
	if err != nil {
		exporter.IncErrorCount()
		record.State = domain.ClaimStateError
		if errors.Is(err, domain.ErrorTransferUnconfirmed) {
			record.State = domain.ClaimStateUnconfirmed
		}
		record.LastError = err.Error()
		if setErr := interactor.claims.SetState(context.WithoutCancel(ctx), record.Id, record.State, err.Error()); setErr != nil {
			interactor.logger.Error("🔴 updating claim state", zap.String("claim", record.Id), zap.Error(setErr))
		}
		return fmt.Errorf("transferring claim %v: %w", record.Id, err)
	}

	sent := interactor.clock.Now()
	record.State = domain.ClaimStateSent
	record.SentTime = &sent
	record.LastError = ""
	if err := interactor.claims.SetSent(context.WithoutCancel(ctx), record.Id, sent); err != nil {
		interactor.logger.Error("🔴 updating claim state", zap.String("claim", record.Id), zap.Error(err))
	}

	interactor.logger.Info("payout sent",
		zap.String("claim", record.Id),
		zap.String("vault", record.Vault),
		zap.String("amount", util.TokenString(&record.Amount, interactor.tokenDecimals)),
		zap.String("destination", record.Destination),
	)
	return nil
}

// RetryFailed dispatches the claims whose transfer failed or never started. Claims that may
// have been paid are left to verification. It returns the number of claims sent.
func (interactor *PayoutInteractor) RetryFailed(ctx context.Context) (int, error) {
	staleBefore := interactor.clock.Now().Add(-interactor.staleAfter)
	records, err := interactor.claims.FindAllTriable(ctx, interactor.maxRetry, staleBefore)
	if err != nil {
		exporter.IncErrorCount()
		return 0, fmt.Errorf("loading triable claims: %w", err)
	}

	tokens := newTokenCache(interactor.vaults)
	sent := 0
	for _, record := range records {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if !record.IsRetriable(interactor.maxRetry) {
			continue
		}

		token, err := tokens.get(ctx, record.Vault)
		if err != nil {
			interactor.logger.Error("🔴 loading vault of claim", zap.String("claim", record.Id), zap.Error(err))
			continue
		}

		if err := interactor.Dispatch(ctx, token, record); err != nil {
			interactor.logger.Warn("🔴 retrying payout", zap.String("claim", record.Id), zap.Int("retried", record.Retried), zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}

// tokenCache keeps the custody wallet of each vault for the duration of one pass.
type tokenCache struct {
	vaults VaultRepository
	tokens map[string]string
}

func newTokenCache(vaults VaultRepository) *tokenCache {
	return &tokenCache{vaults: vaults, tokens: make(map[string]string)}
}

func (cache *tokenCache) get(ctx context.Context, name string) (string, error) {
	if token, ok := cache.tokens[name]; ok {
		return token, nil
	}
	vault, err := cache.vaults.Find(ctx, name)
	if err != nil {
		return "", err
	}
	cache.tokens[name] = vault.Token
	return vault.Token, nil
}
