package domain

import (
	"fmt"
	"math/big"
)

const (
	PayoutKindTge        = "tge"
	PayoutKindFirstClaim = "first"
	PayoutKindRegular    = "regular"
)

// Payout is the amount a successful transition owes to the destination.
type Payout struct {
	Kind      string
	FromRound uint32
	ToRound   uint32
	Amount    *big.Int
}

// Initialize stores the regular schedule. It may run only once per vault.
func (v *Vault) Initialize(total *big.Int, counts uint32, start, period int64) error {
	if v.Config.Initialized {
		return fmt.Errorf("%w: regular schedule", ErrorAlreadyConfigured)
	}
	if total == nil || total.Sign() < 0 {
		return fmt.Errorf("%w: total allocated amount must not be negative", ErrorInvalidParameter)
	}
	if counts == 0 {
		return fmt.Errorf("%w: total claim counts must be positive", ErrorInvalidParameter)
	}
	if period <= 0 {
		return fmt.Errorf("%w: claim period must be positive", ErrorInvalidParameter)
	}
	if start < 0 {
		return fmt.Errorf("%w: start time must not be negative", ErrorInvalidParameter)
	}

	v.Config.TotalAllocatedAmount = new(big.Int).Set(total)
	v.Config.TotalClaimCounts = counts
	v.Config.StartTime = start
	v.Config.ClaimPeriodTimes = period
	v.Config.Initialized = true
	return nil
}

// SetTge stores the TGE unlock.
func (v *Vault) SetTge(u Unlock) error {
	if v.Config.TgeConfigured {
		return fmt.Errorf("%w: tge", ErrorAlreadyConfigured)
	}
	if err := validateUnlock(u); err != nil {
		return fmt.Errorf("tge: %w", err)
	}
	v.Config.TgeAmount = new(big.Int).Set(u.Amount)
	v.Config.TgeTime = u.Time
	v.Config.TgeConfigured = true
	return nil
}

// SetFirstClaim stores the first claim unlock.
func (v *Vault) SetFirstClaim(u Unlock) error {
	if v.Config.FirstClaimConfigured {
		return fmt.Errorf("%w: first claim", ErrorAlreadyConfigured)
	}
	if err := validateUnlock(u); err != nil {
		return fmt.Errorf("first claim: %w", err)
	}
	v.Config.FirstClaimAmount = new(big.Int).Set(u.Amount)
	v.Config.FirstClaimTime = u.Time
	v.Config.FirstClaimConfigured = true
	return nil
}

func validateUnlock(u Unlock) error {
	if u.Amount == nil || u.Amount.Sign() < 0 {
		return fmt.Errorf("%w: amount must not be negative", ErrorInvalidParameter)
	}
	if u.Time < 0 {
		return fmt.Errorf("%w: time must not be negative", ErrorInvalidParameter)
	}
	return nil
}

// ElapsedRound is the highest round claimable at now, clamped to TotalClaimCounts.
// Round 1 opens at StartTime; it returns 0 before that.
func (v *Vault) ElapsedRound(now int64) uint32 {
	c := v.Config
	if !c.Initialized || now < c.StartTime {
		return 0
	}
	passed := (now - c.StartTime) / c.ClaimPeriodTimes
	if passed >= int64(c.TotalClaimCounts) {
		return c.TotalClaimCounts
	}
	return uint32(passed) + 1
}

// PerRoundAmount is the truncated share of one round.
func (v *Vault) PerRoundAmount() *big.Int {
	if v.Config.TotalClaimCounts == 0 {
		return new(big.Int)
	}
	return new(big.Int).Quo(v.Config.TotalAllocatedAmount, big.NewInt(int64(v.Config.TotalClaimCounts)))
}

// PayableAmount is what moving CurrentRound to elapsed pays. The transition onto the
// last round pays the remainder so the schedule sums to TotalAllocatedAmount exactly.
func (v *Vault) PayableAmount(elapsed uint32) *big.Int {
	if elapsed <= v.State.CurrentRound {
		return new(big.Int)
	}
	if elapsed >= v.Config.TotalClaimCounts {
		return new(big.Int).Sub(v.Config.TotalAllocatedAmount, v.State.ClaimedAmount)
	}
	delta := big.NewInt(int64(elapsed - v.State.CurrentRound))
	return delta.Mul(delta, v.PerRoundAmount())
}

// Claimable previews the regular payout a claim at now would make.
func (v *Vault) Claimable(now int64) *big.Int {
	return v.PayableAmount(v.ElapsedRound(now))
}

// ClaimRound advances the regular schedule to the round elapsed at now.
func (v *Vault) ClaimRound(now int64) (*Payout, error) {
	if !v.Config.Initialized {
		return nil, ErrorNotInitialized
	}
	if now < v.Config.StartTime {
		return nil, ErrorNotStarted
	}

	elapsed := v.ElapsedRound(now)
	if elapsed <= v.State.CurrentRound {
		return nil, ErrorAlreadyClaimedThisRound
	}

	amount := v.PayableAmount(elapsed)
	payout := &Payout{
		Kind:      PayoutKindRegular,
		FromRound: v.State.CurrentRound + 1,
		ToRound:   elapsed,
		Amount:    amount,
	}

	v.State.CurrentRound = elapsed
	v.State.ClaimedAmount = new(big.Int).Add(v.State.ClaimedAmount, amount)
	return payout, nil
}

// ClaimTge releases the TGE unlock once.
func (v *Vault) ClaimTge(now int64) (*Payout, error) {
	if !v.Config.TgeConfigured {
		return nil, fmt.Errorf("%w: tge", ErrorNotConfigured)
	}
	if now < v.Config.TgeTime {
		return nil, ErrorTgeTooEarly
	}
	if v.State.TgeClaimed {
		return nil, fmt.Errorf("%w: tge", ErrorAlreadyClaimed)
	}

	v.State.TgeClaimed = true
	return &Payout{Kind: PayoutKindTge, Amount: new(big.Int).Set(v.Config.TgeAmount)}, nil
}

// ClaimFirst releases the first claim unlock once.
func (v *Vault) ClaimFirst(now int64) (*Payout, error) {
	if !v.Config.FirstClaimConfigured {
		return nil, fmt.Errorf("%w: first claim", ErrorNotConfigured)
	}
	if now < v.Config.FirstClaimTime {
		return nil, ErrorFirstClaimTooEarly
	}
	if v.State.FirstClaimClaimed {
		return nil, fmt.Errorf("%w: first claim", ErrorAlreadyClaimed)
	}

	v.State.FirstClaimClaimed = true
	return &Payout{Kind: PayoutKindFirstClaim, Amount: new(big.Int).Set(v.Config.FirstClaimAmount)}, nil
}
