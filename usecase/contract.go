package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"
	"vault/domain"

	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/liteapi"
	"github.com/tonkeeper/tongo/tlb"
)

var (
	ErrorInvalidWalletData = fmt.Errorf("invalid jetton wallet data")
	ErrorHistoryTooLong    = fmt.Errorf("too many transactions to scan")
)

const maxScannedTransactions = 2000

type ContractInteractor struct {
	client *liteapi.Client
}

func NewContractInteractor(client *liteapi.Client) *ContractInteractor {
	return &ContractInteractor{
		client: client,
	}
}

// GetJettonBalance runs get_wallet_data on a jetton wallet and returns its balance.
func (interactor *ContractInteractor) GetJettonBalance(ctx context.Context, wallet tongo.AccountID) (*big.Int, error) {
	code, stack, err := interactor.client.RunSmcMethod(ctx, wallet, "get_wallet_data", tlb.VmStack{})
	if err != nil {
		return nil, fmt.Errorf("running get_wallet_data [code = %v]: %w", code, err)
	}

	// balance, owner, master, wallet code
	if len(stack) != 4 {
		return nil, ErrorInvalidWalletData
	}

	switch stack[0].SumType {
	case "VmStkTinyInt":
		return big.NewInt(stack[0].VmStkTinyInt), nil
	case "VmStkInt":
		buff, err := json.Marshal(stack[0].VmStkInt)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrorInvalidWalletData, err)
		}
		balance, ok := new(big.Int).SetString(strings.Trim(string(buff), `"`), 10)
		if !ok {
			return nil, fmt.Errorf("%w: balance %s", ErrorInvalidWalletData, buff)
		}
		return balance, nil
	default:
		return nil, ErrorInvalidWalletData
	}
}

// FindJettonTransfer looks through the transactions of a jetton wallet, newest first, for
// the execution of the transfer with queryId sent by sender. Transactions before since
// are not scanned. An error is returned when the history could not be scanned up to since.
func (interactor *ContractInteractor) FindJettonTransfer(ctx context.Context, wallet, sender tongo.AccountID, queryId uint64, since time.Time) (domain.TransferStatus, error) {
	trans, err := interactor.client.GetLastTransactions(ctx, wallet, 50)
	if err != nil {
		return domain.TransferNotFound, fmt.Errorf("getting last transactions: %w", err)
	}

	scanned := 0
	var lastHash tongo.Bits256
	for len(trans) > 0 {
		for i := range trans {
			ht := domain.NewHTransaction(&trans[i].Transaction)
			if ht.UnixTime().Before(since) {
				return domain.TransferNotFound, nil
			}
			if status := ht.JettonTransferStatus(sender, queryId); status != domain.TransferNotFound {
				return status, nil
			}
		}

		scanned += len(trans)
		if scanned >= maxScannedTransactions {
			return domain.TransferNotFound, ErrorHistoryTooLong
		}

		// Extract the Lt and the Hash of last transaction
		lastLt := trans[len(trans)-1].Lt
		if err = lastHash.FromHex(trans[len(trans)-1].Hash().Hex()); err != nil {
			return domain.TransferNotFound, fmt.Errorf("reading transaction hash: %w", err)
		}

		// GetTransactions returns 16 items by max.
		trans, err = interactor.client.GetTransactions(ctx, 16, wallet, lastLt, lastHash)
		if err != nil {
			return domain.TransferNotFound, fmt.Errorf("getting transactions: %w", err)
		}

		// The first one is the last of the previous page.
		if len(trans) > 0 {
			trans = trans[1:]
		}
	}
	return domain.TransferNotFound, nil
}
