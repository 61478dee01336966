package domain

import (
	"errors"
	"fmt"
	"math/big"
	"time"
)

var (
	ErrorUnauthorized = errors.New("caller is not an admin")

	// Every time gate failure wraps ErrorTooEarly.
	ErrorTooEarly                = errors.New("too early")
	ErrorNotStarted              = fmt.Errorf("%w: not started yet", ErrorTooEarly)
	ErrorTgeTooEarly             = fmt.Errorf("%w: need the tgeTime", ErrorTooEarly)
	ErrorFirstClaimTooEarly      = fmt.Errorf("%w: need the firstClaimTime", ErrorTooEarly)
	ErrorAlreadyClaimedThisRound = errors.New("already get this round")
	ErrorAlreadyClaimed          = errors.New("already claimed")

	ErrorAlreadyConfigured = errors.New("already configured")
	ErrorNotConfigured     = errors.New("not configured")
	ErrorNotInitialized    = errors.New("vault is not initialized")
	ErrorInvalidParameter  = errors.New("invalid parameter")
	ErrorVaultExists       = errors.New("vault already exists")
	ErrorVaultNotFound     = errors.New("vault not found")
	ErrorInvalidAddress    = errors.New("invalid destination address")
	ErrorConcurrentUpdate  = errors.New("vault was updated concurrently")
)

// Unlock is an amount released once at a given time.
type Unlock struct {
	Amount *big.Int `json:"amount"`
	Time   int64    `json:"time"`
}

// VaultConfig holds the write-once settings of a vault. Every group has its own flag so
// that a setter can refuse to run twice.
type VaultConfig struct {
	TotalAllocatedAmount *big.Int `json:"total_allocated_amount"`
	TotalClaimCounts     uint32   `json:"total_claim_counts"`
	StartTime            int64    `json:"start_time"`
	ClaimPeriodTimes     int64    `json:"claim_period_times"`
	Initialized          bool     `json:"initialized"`

	TgeAmount     *big.Int `json:"tge_amount"`
	TgeTime       int64    `json:"tge_time"`
	TgeConfigured bool     `json:"tge_configured"`

	FirstClaimAmount     *big.Int `json:"first_claim_amount"`
	FirstClaimTime       int64    `json:"first_claim_time"`
	FirstClaimConfigured bool     `json:"first_claim_configured"`
}

// VaultState is the accounting part of a vault. It only moves forward.
type VaultState struct {
	CurrentRound      uint32   `json:"current_round"`
	TgeClaimed        bool     `json:"tge_claimed"`
	FirstClaimClaimed bool     `json:"first_claim_claimed"`
	ClaimedAmount     *big.Int `json:"claimed_amount"`
}

type Vault struct {
	Name       string      `json:"name"`
	Token      string      `json:"token"`
	Config     VaultConfig `json:"config"`
	State      VaultState  `json:"state"`
	Version    int64       `json:"version"`
	CreateTime time.Time   `json:"create_time"`
	UpdateTime time.Time   `json:"update_time"`
}

// NewVault returns a vault with zeroed configuration and accounting.
func NewVault(name, token string, now time.Time) *Vault {
	return &Vault{
		Name:  name,
		Token: token,
		Config: VaultConfig{
			TotalAllocatedAmount: new(big.Int),
			TgeAmount:            new(big.Int),
			FirstClaimAmount:     new(big.Int),
		},
		State: VaultState{
			ClaimedAmount: new(big.Int),
		},
		CreateTime: now,
		UpdateTime: now,
	}
}

// Clone returns a deep copy, so that a transition can be computed without touching the
// committed value.
func (v *Vault) Clone() *Vault {
	c := *v
	c.Config.TotalAllocatedAmount = cloneInt(v.Config.TotalAllocatedAmount)
	c.Config.TgeAmount = cloneInt(v.Config.TgeAmount)
	c.Config.FirstClaimAmount = cloneInt(v.Config.FirstClaimAmount)
	c.State.ClaimedAmount = cloneInt(v.State.ClaimedAmount)
	return &c
}

// TotalClaimedAmount sums everything paid out by the regular schedule, the TGE and the
// first claim.
func (v *Vault) TotalClaimedAmount() *big.Int {
	total := cloneInt(v.State.ClaimedAmount)
	if v.State.TgeClaimed {
		total.Add(total, v.Config.TgeAmount)
	}
	if v.State.FirstClaimClaimed {
		total.Add(total, v.Config.FirstClaimAmount)
	}
	return total
}

// TotalAmount is the upper bound of TotalClaimedAmount.
func (v *Vault) TotalAmount() *big.Int {
	total := cloneInt(v.Config.TotalAllocatedAmount)
	total.Add(total, nonNil(v.Config.TgeAmount))
	total.Add(total, nonNil(v.Config.FirstClaimAmount))
	return total
}

func cloneInt(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}

func nonNil(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return x
}

// VaultSnapshot is the exported view of a vault at a point in time.
type VaultSnapshot struct {
	Vault     *Vault         `json:"vault"`
	Round     uint32         `json:"elapsed_round"`
	Claimable *big.Int       `json:"claimable"`
	Claims    []*ClaimRecord `json:"claims"`
	Time      time.Time      `json:"time"`
}
