package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"testing"
	"time"
	"vault/domain"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap/zaptest"
)

const (
	adminAddress    = "0:1111111111111111111111111111111111111111111111111111111111111111"
	strangerAddress = "0:2222222222222222222222222222222222222222222222222222222222222222"
	destAddress     = "0:3333333333333333333333333333333333333333333333333333333333333333"
	tokenAddress    = "0:4444444444444444444444444444444444444444444444444444444444444444"
)

type memVaultRepository struct {
	mu      sync.Mutex
	vaults  map[string]*domain.Vault
	claims  *memClaimRepository
	saveErr error
}

func newMemVaultRepository(claims *memClaimRepository) *memVaultRepository {
	return &memVaultRepository{vaults: make(map[string]*domain.Vault), claims: claims}
}

func (repo *memVaultRepository) InsertIfNotExists(_ context.Context, vault *domain.Vault) (*domain.Vault, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if _, ok := repo.vaults[vault.Name]; ok {
		return nil, fmt.Errorf("%w: %v", domain.ErrorVaultExists, vault.Name)
	}
	repo.vaults[vault.Name] = vault.Clone()
	return vault.Clone(), nil
}

func (repo *memVaultRepository) Find(_ context.Context, name string) (*domain.Vault, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	vault, ok := repo.vaults[name]
	if !ok {
		return nil, fmt.Errorf("%w: %v", domain.ErrorVaultNotFound, name)
	}
	return vault.Clone(), nil
}

func (repo *memVaultRepository) FindAll(_ context.Context) ([]*domain.Vault, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	list := make([]*domain.Vault, 0, len(repo.vaults))
	for _, vault := range repo.vaults {
		list = append(list, vault.Clone())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (repo *memVaultRepository) Save(_ context.Context, vault *domain.Vault, claim *domain.ClaimRecord) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.saveErr != nil {
		return repo.saveErr
	}
	stored, ok := repo.vaults[vault.Name]
	if !ok {
		return domain.ErrorVaultNotFound
	}
	if stored.Version != vault.Version {
		return domain.ErrorConcurrentUpdate
	}
	vault.Version++
	repo.vaults[vault.Name] = vault.Clone()
	if claim != nil {
		repo.claims.insert(claim)
	}
	return nil
}

type memClaimRepository struct {
	mu     sync.Mutex
	claims []*domain.ClaimRecord
}

func (repo *memClaimRepository) insert(record *domain.ClaimRecord) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.claims = append(repo.claims, repo.copyOf(record))
}

func (repo *memClaimRepository) get(id string) *domain.ClaimRecord {
	for _, c := range repo.claims {
		if c.Id == id {
			return c
		}
	}
	return nil
}

func (repo *memClaimRepository) copyOf(c *domain.ClaimRecord) *domain.ClaimRecord {
	r := *c
	r.Amount = *new(big.Int).Set(&c.Amount)
	return &r
}

func (repo *memClaimRepository) Find(_ context.Context, id string) (*domain.ClaimRecord, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if c := repo.get(id); c != nil {
		return repo.copyOf(c), nil
	}
	return nil, nil
}

func (repo *memClaimRepository) FindByVault(_ context.Context, vault string) ([]*domain.ClaimRecord, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	list := make([]*domain.ClaimRecord, 0)
	for _, c := range repo.claims {
		if c.Vault == vault {
			list = append(list, repo.copyOf(c))
		}
	}
	return list, nil
}

func (repo *memClaimRepository) FindAllTriable(_ context.Context, maxRetry int, staleBefore time.Time) ([]*domain.ClaimRecord, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	list := make([]*domain.ClaimRecord, 0)
	for _, c := range repo.claims {
		if c.Retried >= maxRetry {
			continue
		}
		if c.State == domain.ClaimStateError || (c.State == domain.ClaimStateNew && c.CreateTime.Before(staleBefore)) {
			list = append(list, repo.copyOf(c))
		}
	}
	return list, nil
}

func (repo *memClaimRepository) FindAllVerifiable(_ context.Context, staleBefore time.Time) ([]*domain.ClaimRecord, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	list := make([]*domain.ClaimRecord, 0)
	for _, c := range repo.claims {
		switch {
		case c.State == domain.ClaimStateSent, c.State == domain.ClaimStateUnconfirmed:
		case c.State == domain.ClaimStateOngoing && c.RetryTime != nil && c.RetryTime.Before(staleBefore):
		default:
			continue
		}
		list = append(list, repo.copyOf(c))
	}
	return list, nil
}

func (repo *memClaimRepository) SetOngoing(_ context.Context, id string, timestamp time.Time) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	c := repo.get(id)
	if c == nil || (c.State != domain.ClaimStateNew && c.State != domain.ClaimStateError) {
		return errors.New("claim is not dispatchable")
	}
	c.State = domain.ClaimStateOngoing
	c.Retried++
	c.RetryTime = &timestamp
	return nil
}

func (repo *memClaimRepository) SetSent(_ context.Context, id string, timestamp time.Time) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	c := repo.get(id)
	if c == nil {
		return errors.New("claim not found")
	}
	c.State = domain.ClaimStateSent
	c.SentTime = &timestamp
	c.LastError = ""
	return nil
}

func (repo *memClaimRepository) SetVerified(_ context.Context, id string, from string, timestamp time.Time) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	c := repo.get(id)
	if c == nil || c.State != from {
		return errors.New("claim state changed")
	}
	c.State = domain.ClaimStateVerified
	c.VerifiedTime = &timestamp
	c.LastError = ""
	return nil
}

func (repo *memClaimRepository) SetRetriable(_ context.Context, id string, from string, lastError string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	c := repo.get(id)
	if c == nil || c.State != from {
		return errors.New("claim state changed")
	}
	c.State = domain.ClaimStateError
	c.LastError = lastError
	return nil
}

func (repo *memClaimRepository) SetState(_ context.Context, id string, state string, lastError string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	c := repo.get(id)
	if c == nil {
		return errors.New("claim not found")
	}
	c.State = state
	c.LastError = lastError
	return nil
}

type transfer struct {
	token       string
	destination string
	amount      *big.Int
	queryId     uint64
}

// fakeLedger records transfers. failures fail before anything is sent, unconfirmed
// transfers are recorded and then time out, dropped transfers time out without landing.
type fakeLedger struct {
	mu          sync.Mutex
	transfers   []transfer
	failures    int
	unconfirmed int
	dropped     int
	aborted     map[uint64]bool
	findErr     error
	balances    map[string]*big.Int

	// delay keeps each transfer in flight for a while; hold blocks it until closed.
	delay       time.Duration
	hold        chan struct{}
	started     chan struct{}
	inFlight    int
	maxInFlight int
}

func (ledger *fakeLedger) Transfer(_ context.Context, token string, destination string, amount *big.Int, queryId uint64) error {
	ledger.mu.Lock()
	ledger.inFlight++
	if ledger.inFlight > ledger.maxInFlight {
		ledger.maxInFlight = ledger.inFlight
	}
	delay, hold, started := ledger.delay, ledger.hold, ledger.started
	ledger.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if hold != nil {
		<-hold
	}
	time.Sleep(delay)

	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	ledger.inFlight--
	if ledger.failures > 0 {
		ledger.failures--
		return errors.New("liteserver unavailable")
	}
	if ledger.dropped > 0 {
		ledger.dropped--
		return fmt.Errorf("%w: %v", domain.ErrorTransferUnconfirmed, ErrorTimeOut)
	}
	ledger.transfers = append(ledger.transfers, transfer{
		token:       token,
		destination: destination,
		amount:      new(big.Int).Set(amount),
		queryId:     queryId,
	})
	if ledger.unconfirmed > 0 {
		ledger.unconfirmed--
		return fmt.Errorf("%w: %v", domain.ErrorTransferUnconfirmed, ErrorTimeOut)
	}
	return nil
}

func (ledger *fakeLedger) FindTransfer(_ context.Context, token string, queryId uint64, _ time.Time) (domain.TransferStatus, error) {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	if ledger.findErr != nil {
		return domain.TransferNotFound, ledger.findErr
	}
	for i := len(ledger.transfers) - 1; i >= 0; i-- {
		tr := ledger.transfers[i]
		if tr.token != token || tr.queryId != queryId {
			continue
		}
		if ledger.aborted[queryId] {
			return domain.TransferAborted, nil
		}
		return domain.TransferSucceeded, nil
	}
	return domain.TransferNotFound, nil
}

func (ledger *fakeLedger) count() int {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	return len(ledger.transfers)
}

func (ledger *fakeLedger) BalanceOf(_ context.Context, token string) (*big.Int, error) {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	if balance, ok := ledger.balances[token]; ok {
		return new(big.Int).Set(balance), nil
	}
	return new(big.Int), nil
}

// paidTo sums every transfer made to destination.
func (ledger *fakeLedger) paidTo(destination string) *big.Int {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	total := new(big.Int)
	for _, tr := range ledger.transfers {
		if tr.destination == destination {
			total.Add(total, tr.amount)
		}
	}
	return total
}

type testEnv struct {
	clock   clockwork.FakeClock
	vaults  *memVaultRepository
	claims  *memClaimRepository
	ledger  *fakeLedger
	payout  *PayoutInteractor
	verify  *VerifyInteractor
	engine  *VaultInteractor
	context context.Context
}

func newTestEnv(t *testing.T, start time.Time) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)
	clock := clockwork.NewFakeClockAt(start)
	claims := &memClaimRepository{}
	vaults := newMemVaultRepository(claims)
	ledger := &fakeLedger{balances: make(map[string]*big.Int), aborted: make(map[uint64]bool)}
	payout := NewPayoutInteractor(claims, vaults, ledger, clock, logger, 3, time.Minute, 18)
	verify := NewVerifyInteractor(claims, vaults, ledger, clock, logger, time.Minute, 10*time.Minute)
	gate := GateFunc(func(caller string) bool { return caller == adminAddress })
	engine := NewVaultInteractor(vaults, claims, gate, payout, clock, logger)
	return &testEnv{
		clock:   clock,
		vaults:  vaults,
		claims:  claims,
		ledger:  ledger,
		payout:  payout,
		verify:  verify,
		engine:  engine,
		context: context.Background(),
	}
}
