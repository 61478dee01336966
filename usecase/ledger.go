package usecase

import (
	"context"
	"fmt"
	"math/big"
	"time"
	"vault/domain"

	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/tlb"
	tgwallet "github.com/tonkeeper/tongo/wallet"
)

// Ledger moves tokens out of a vault's custody. token is the custody jetton wallet.
// Transfer wraps domain.ErrorTransferUnconfirmed when the transfer may still land.
type Ledger interface {
	Transfer(ctx context.Context, token string, destination string, amount *big.Int, queryId uint64) error
	BalanceOf(ctx context.Context, token string) (*big.Int, error)
	FindTransfer(ctx context.Context, token string, queryId uint64, since time.Time) (domain.TransferStatus, error)
}

// JettonLedger transfers jettons held by the operator wallet.
type JettonLedger struct {
	messenger     *MessengerInteractor
	contract      *ContractInteractor
	forwardAmount uint64
}

func NewJettonLedger(messenger *MessengerInteractor, contract *ContractInteractor, forwardAmount uint64) *JettonLedger {
	return &JettonLedger{
		messenger:     messenger,
		contract:      contract,
		forwardAmount: forwardAmount,
	}
}

func (ledger *JettonLedger) Transfer(ctx context.Context, token string, destination string, amount *big.Int, queryId uint64) error {
	tokenId, err := tongo.ParseAccountID(token)
	if err != nil {
		return fmt.Errorf("parsing token wallet %v: %w", token, err)
	}
	destId, err := tongo.ParseAccountID(destination)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrorInvalidAddress, destination)
	}

	body, err := domain.JettonTransfer{
		QueryId:             queryId,
		Amount:              amount,
		Destination:         destId,
		ResponseDestination: ledger.messenger.Address(),
	}.Cell()
	if err != nil {
		return err
	}

	msg := tgwallet.Message{
		Amount:  tlb.Grams(ledger.forwardAmount),
		Address: tokenId,
		Body:    body,
		Code:    nil,
		Data:    nil,
		Bounce:  true,
		Mode:    1, // Pay transfer fees separately from the message value
	}
	return ledger.messenger.Send(ctx, msg)
}

func (ledger *JettonLedger) BalanceOf(ctx context.Context, token string) (*big.Int, error) {
	tokenId, err := tongo.ParseAccountID(token)
	if err != nil {
		return nil, fmt.Errorf("parsing token wallet %v: %w", token, err)
	}
	return ledger.contract.GetJettonBalance(ctx, tokenId)
}

func (ledger *JettonLedger) FindTransfer(ctx context.Context, token string, queryId uint64, since time.Time) (domain.TransferStatus, error) {
	tokenId, err := tongo.ParseAccountID(token)
	if err != nil {
		return domain.TransferNotFound, fmt.Errorf("parsing token wallet %v: %w", token, err)
	}
	return ledger.contract.FindJettonTransfer(ctx, tokenId, ledger.messenger.Address(), queryId, since)
}
