package domain

import (
	"errors"
	"math/big"
	"time"
)

const (
	ClaimStateNew         = "new"
	ClaimStateOngoing     = "ongoing"
	ClaimStateSent        = "sent"
	ClaimStateUnconfirmed = "unconfirmed"
	ClaimStateVerified    = "verified"
	ClaimStateSkipped     = "skipped"
	ClaimStateError       = "error"
)

// ErrorTransferUnconfirmed wraps failures that happen after the transfer may have left the
// operator wallet. Such a claim must be verified on chain before any resend.
var ErrorTransferUnconfirmed = errors.New("transfer broadcast but not confirmed")

// ClaimRecord is the payout obligation created by a successful claim. It is stored in the
// same transaction as the vault state it belongs to.
type ClaimRecord struct {
	Id           string     `json:"id"`
	Vault        string     `json:"vault"`
	Kind         string     `json:"kind"`
	FromRound    uint32     `json:"from_round"`
	ToRound      uint32     `json:"to_round"`
	Amount       big.Int    `json:"amount"`
	Destination  string     `json:"destination"`
	QueryId      uint64     `json:"query_id"`
	State        string     `json:"state"`
	Retried      int        `json:"retried"`
	LastError    string     `json:"last_error"`
	CreateTime   time.Time  `json:"create_time"`
	RetryTime    *time.Time `json:"retry_time"`
	SentTime     *time.Time `json:"sent_time"`
	VerifiedTime *time.Time `json:"verified_time"`
}

// IsRetriable tells if the scheduler should dispatch the record again. A record left in
// 'new' was committed but never dispatched, e.g. the process stopped in between.
func (r *ClaimRecord) IsRetriable(maxRetry int) bool {
	return (r.State == ClaimStateError || r.State == ClaimStateNew) && r.Retried < maxRetry
}

// IsVerifiable tells if the outcome of the last dispatch is still to be checked on chain.
// A record left in 'ongoing' by a stopped process counts once it is older than
// staleBefore.
func (r *ClaimRecord) IsVerifiable(staleBefore time.Time) bool {
	switch r.State {
	case ClaimStateSent, ClaimStateUnconfirmed:
		return true
	case ClaimStateOngoing:
		return r.RetryTime != nil && r.RetryTime.Before(staleBefore)
	}
	return false
}

// DispatchTime is the start of the last dispatch, or the creation time when there was
// none.
func (r *ClaimRecord) DispatchTime() time.Time {
	if r.RetryTime != nil {
		return *r.RetryTime
	}
	return r.CreateTime
}
