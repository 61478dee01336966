package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"
	"vault/domain"

	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/liteapi"
	tgwallet "github.com/tonkeeper/tongo/wallet"
	"go.uber.org/zap"
)

var ErrorTimeOut = fmt.Errorf("timeout for new seqno")

const (
	seqnoTimeout      = 30 * time.Second
	seqnoPollInterval = 500 * time.Millisecond
)

// MessengerInteractor sends external messages from the operator wallet and waits until
// the wallet seqno moves. Sends are serialized since the wallet accepts one message per
// seqno.
type MessengerInteractor struct {
	mu sync.Mutex

	client       *liteapi.Client
	driverWallet *tgwallet.Wallet
	logger       *zap.Logger
}

func NewMessengerInteractor(client *liteapi.Client, driverWallet *tgwallet.Wallet, logger *zap.Logger) *MessengerInteractor {
	return &MessengerInteractor{
		client:       client,
		driverWallet: driverWallet,
		logger:       logger,
	}
}

func (interactor *MessengerInteractor) Address() tongo.AccountID {
	return interactor.driverWallet.GetAddress()
}

// Send returns an error wrapping domain.ErrorTransferUnconfirmed when the message may
// have reached the network, and a plain error when it surely did not.
func (interactor *MessengerInteractor) Send(ctx context.Context, msg tgwallet.Message) error {
	interactor.mu.Lock()
	defer interactor.mu.Unlock()

	seqno, err := interactor.client.GetSeqno(ctx, interactor.Address())
	if err != nil {
		return fmt.Errorf("getting driver's seqno: %w", err)
	}
	if err = ctx.Err(); err != nil {
		return err
	}

	// The liteserver may have accepted the message even when the call fails.
	if err = interactor.driverWallet.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: sending message: %v", domain.ErrorTransferUnconfirmed, err)
	}

	if _, err = interactor.waitForNextSeqno(ctx, seqno); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrorTransferUnconfirmed, err)
	}
	return nil
}

func (interactor *MessengerInteractor) waitForNextSeqno(ctx context.Context, seqno uint32) (uint32, error) {
	driverAccountId := interactor.Address()

	ctx, cancel := context.WithTimeout(ctx, seqnoTimeout)
	defer cancel()

	ticker := time.NewTicker(seqnoPollInterval)
	defer ticker.Stop()

	for {
		currSeqno, err := interactor.client.GetSeqno(ctx, driverAccountId)
		if err != nil {
			interactor.logger.Warn("🔴 getting current driver's seqno", zap.Error(err))
		} else if currSeqno > seqno {
			return currSeqno, nil
		}

		select {
		case <-ctx.Done():
			return seqno, ErrorTimeOut
		case <-ticker.C:
		}
	}
}
