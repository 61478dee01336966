package usecase

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"
	"vault/domain"
	"vault/interface/exporter"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/tonkeeper/tongo"
	"go.uber.org/zap"
)

const maxQueryId = uint64(1)<<63 - 1

type VaultRepository interface {
	InsertIfNotExists(ctx context.Context, vault *domain.Vault) (*domain.Vault, error)
	Find(ctx context.Context, name string) (*domain.Vault, error)
	FindAll(ctx context.Context) ([]*domain.Vault, error)
	Save(ctx context.Context, vault *domain.Vault, claim *domain.ClaimRecord) error
}

// VaultInteractor is the vesting engine. Every mutating operation checks the gate first,
// then computes the transition on a copy of the stored vault and commits it in one step;
// a rejected operation changes nothing.
type VaultInteractor struct {
	mu sync.Mutex

	vaults VaultRepository
	claims ClaimRepository
	gate   Gate
	payout *PayoutInteractor
	clock  clockwork.Clock
	logger *zap.Logger
}

func NewVaultInteractor(vaults VaultRepository,
	claims ClaimRepository,
	gate Gate,
	payout *PayoutInteractor,
	clock clockwork.Clock,
	logger *zap.Logger) *VaultInteractor {
	return &VaultInteractor{
		vaults: vaults,
		claims: claims,
		gate:   gate,
		payout: payout,
		clock:  clock,
		logger: logger,
	}
}

// Create registers an empty vault whose tokens sit in the token jetton wallet.
func (interactor *VaultInteractor) Create(ctx context.Context, caller, name, token string) (*domain.Vault, error) {
	if !interactor.gate.IsAdmin(caller) {
		return nil, domain.ErrorUnauthorized
	}
	if name == "" {
		return nil, fmt.Errorf("%w: vault name is empty", domain.ErrorInvalidParameter)
	}
	if _, err := tongo.ParseAccountID(token); err != nil {
		return nil, fmt.Errorf("%w: token wallet %q", domain.ErrorInvalidParameter, token)
	}

	interactor.mu.Lock()
	defer interactor.mu.Unlock()

	vault, err := interactor.vaults.InsertIfNotExists(ctx, domain.NewVault(name, token, interactor.clock.Now()))
	if err != nil {
		return nil, err
	}
	interactor.logger.Info("vault created", zap.String("vault", name), zap.String("token", token))
	return vault, nil
}

func (interactor *VaultInteractor) Initialize(ctx context.Context, caller, name string, total *big.Int, counts uint32, start, period int64) (*domain.Vault, error) {
	vault, _, err := interactor.apply(ctx, caller, name, "", func(v *domain.Vault, _ int64) (*domain.Payout, error) {
		return nil, v.Initialize(total, counts, start, period)
	})
	return vault, err
}

func (interactor *VaultInteractor) TgeSetting(ctx context.Context, caller, name string, tge domain.Unlock) (*domain.Vault, error) {
	vault, _, err := interactor.apply(ctx, caller, name, "", func(v *domain.Vault, _ int64) (*domain.Payout, error) {
		return nil, v.SetTge(tge)
	})
	return vault, err
}

func (interactor *VaultInteractor) FirstClaimSetting(ctx context.Context, caller, name string, firstClaim domain.Unlock) (*domain.Vault, error) {
	vault, _, err := interactor.apply(ctx, caller, name, "", func(v *domain.Vault, _ int64) (*domain.Payout, error) {
		return nil, v.SetFirstClaim(firstClaim)
	})
	return vault, err
}

// AllSetting stores both unlocks, or none of them.
func (interactor *VaultInteractor) AllSetting(ctx context.Context, caller, name string, tge, firstClaim domain.Unlock) (*domain.Vault, error) {
	vault, _, err := interactor.apply(ctx, caller, name, "", func(v *domain.Vault, _ int64) (*domain.Payout, error) {
		if err := v.SetTge(tge); err != nil {
			return nil, err
		}
		return nil, v.SetFirstClaim(firstClaim)
	})
	return vault, err
}

func (interactor *VaultInteractor) TgeClaim(ctx context.Context, caller, name, destination string) (*domain.ClaimRecord, error) {
	_, record, err := interactor.apply(ctx, caller, name, destination, func(v *domain.Vault, now int64) (*domain.Payout, error) {
		return v.ClaimTge(now)
	})
	return record, err
}

func (interactor *VaultInteractor) FirstClaim(ctx context.Context, caller, name, destination string) (*domain.ClaimRecord, error) {
	_, record, err := interactor.apply(ctx, caller, name, destination, func(v *domain.Vault, now int64) (*domain.Payout, error) {
		return v.ClaimFirst(now)
	})
	return record, err
}

// Claim pays every regular round elapsed since the previous claim.
func (interactor *VaultInteractor) Claim(ctx context.Context, caller, name, destination string) (*domain.ClaimRecord, error) {
	_, record, err := interactor.apply(ctx, caller, name, destination, func(v *domain.Vault, now int64) (*domain.Payout, error) {
		return v.ClaimRound(now)
	})
	return record, err
}

func (interactor *VaultInteractor) Get(ctx context.Context, name string) (*domain.Vault, error) {
	return interactor.vaults.Find(ctx, name)
}

func (interactor *VaultInteractor) List(ctx context.Context) ([]*domain.Vault, error) {
	return interactor.vaults.FindAll(ctx)
}

func (interactor *VaultInteractor) CurrentRound(ctx context.Context, name string) (uint32, error) {
	vault, err := interactor.vaults.Find(ctx, name)
	if err != nil {
		return 0, err
	}
	return vault.State.CurrentRound, nil
}

// Claimable is the amount a regular claim would pay right now.
func (interactor *VaultInteractor) Claimable(ctx context.Context, name string) (*big.Int, error) {
	vault, err := interactor.vaults.Find(ctx, name)
	if err != nil {
		return nil, err
	}
	return vault.Claimable(interactor.clock.Now().Unix()), nil
}

func (interactor *VaultInteractor) Claims(ctx context.Context, name string) ([]*domain.ClaimRecord, error) {
	return interactor.claims.FindByVault(ctx, name)
}

// Snapshot collects a vault, its claim history and what a claim would pay at the moment.
func (interactor *VaultInteractor) Snapshot(ctx context.Context, name string) (*domain.VaultSnapshot, error) {
	vault, err := interactor.vaults.Find(ctx, name)
	if err != nil {
		return nil, err
	}
	claims, err := interactor.claims.FindByVault(ctx, name)
	if err != nil {
		return nil, err
	}
	now := interactor.clock.Now()
	return &domain.VaultSnapshot{
		Vault:     vault,
		Round:     vault.ElapsedRound(now.Unix()),
		Claimable: vault.Claimable(now.Unix()),
		Claims:    claims,
		Time:      now,
	}, nil
}

type transition func(v *domain.Vault, now int64) (*domain.Payout, error)

func (interactor *VaultInteractor) apply(ctx context.Context, caller, name, destination string, fn transition) (*domain.Vault, *domain.ClaimRecord, error) {
	if !interactor.gate.IsAdmin(caller) {
		return nil, nil, domain.ErrorUnauthorized
	}

	next, record, err := interactor.commit(ctx, name, destination, fn)
	if err != nil {
		return nil, nil, err
	}

	if record != nil && record.State == domain.ClaimStateNew {
		// The claim is committed; a failed transfer is left to verification and retry.
		if err := interactor.payout.Dispatch(ctx, next.Token, record); err != nil && !errors.Is(err, context.Canceled) {
			interactor.logger.Warn("🔴 payout postponed", zap.String("claim", record.Id), zap.String("state", record.State), zap.Error(err))
		}
	}
	return next, record, nil
}

// commit stores the transition and its claim record. The engine lock is held only here,
// so a slow transfer does not block other vault operations.
func (interactor *VaultInteractor) commit(ctx context.Context, name, destination string, fn transition) (*domain.Vault, *domain.ClaimRecord, error) {
	interactor.mu.Lock()
	defer interactor.mu.Unlock()

	stored, err := interactor.vaults.Find(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	now := interactor.clock.Now()
	next := stored.Clone()
	payout, err := fn(next, now.Unix())
	if err != nil {
		return nil, nil, err
	}
	next.UpdateTime = now

	var record *domain.ClaimRecord
	if payout != nil {
		if _, err := tongo.ParseAccountID(destination); err != nil {
			return nil, nil, fmt.Errorf("%w: %q", domain.ErrorInvalidAddress, destination)
		}
		record = newClaimRecord(name, destination, payout, now)
	}

	if err := interactor.vaults.Save(ctx, next, record); err != nil {
		exporter.IncErrorCount()
		return nil, nil, fmt.Errorf("saving vault %v: %w", name, err)
	}
	exporter.SetVaultProgress(next)

	if record == nil {
		interactor.logger.Info("vault configured", zap.String("vault", name))
		return next, nil, nil
	}

	exporter.IncClaimCount(record.Kind)
	interactor.logger.Info("claim committed",
		zap.String("vault", name),
		zap.String("kind", record.Kind),
		zap.Uint32("from_round", record.FromRound),
		zap.Uint32("to_round", record.ToRound),
		zap.Stringer("amount", &record.Amount),
		zap.String("destination", destination),
	)
	return next, record, nil
}

// queryIdOf derives the transfer query id from the claim id, so it is unique per claim.
func queryIdOf(id uuid.UUID) uint64 {
	return binary.BigEndian.Uint64(id[:8]) & maxQueryId
}

func newClaimRecord(vault, destination string, payout *domain.Payout, now time.Time) *domain.ClaimRecord {
	id := uuid.New()
	record := &domain.ClaimRecord{
		Id:          id.String(),
		Vault:       vault,
		Kind:        payout.Kind,
		FromRound:   payout.FromRound,
		ToRound:     payout.ToRound,
		Destination: destination,
		QueryId:     queryIdOf(id),
		State:       domain.ClaimStateNew,
		CreateTime:  now,
	}
	record.Amount.Set(payout.Amount)
	if payout.Amount.Sign() == 0 {
		record.State = domain.ClaimStateSkipped
	}
	return record
}
