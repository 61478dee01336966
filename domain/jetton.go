package domain

import (
	"fmt"
	"math/big"

	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/boc"
)

const (
	OpcodeJettonTransfer = uint32(0x0f8a7ea5)

	maxCoinsBytes = 15
)

var (
	ErrorCoinsOverflow = fmt.Errorf("amount does not fit in VarUInteger 16")
)

// JettonTransfer is the TEP-74 transfer body sent to the custody jetton wallet.
type JettonTransfer struct {
	QueryId             uint64
	Amount              *big.Int
	Destination         tongo.AccountID
	ResponseDestination tongo.AccountID
	ForwardTonAmount    uint64
}

// Cell serializes the message body:
//
//	transfer#0f8a7ea5 query_id:uint64 amount:(VarUInteger 16) destination:MsgAddress
//	  response_destination:MsgAddress custom_payload:(Maybe ^Cell)
//	  forward_ton_amount:(VarUInteger 16) forward_payload:(Either Cell ^Cell)
func (m JettonTransfer) Cell() (*boc.Cell, error) {
	w := cellWriter{cell: boc.NewCell()}

	w.uint(uint64(OpcodeJettonTransfer), 32)
	w.uint(m.QueryId, 64)
	w.coins(m.Amount)
	w.address(m.Destination)
	w.address(m.ResponseDestination)
	w.uint(0, 1) // no custom payload
	w.coins(new(big.Int).SetUint64(m.ForwardTonAmount))
	w.uint(0, 1) // empty inline forward payload

	if w.err != nil {
		return nil, w.err
	}
	return w.cell, nil
}

type cellWriter struct {
	cell *boc.Cell
	err  error
}

func (w *cellWriter) uint(value uint64, bits int) {
	if w.err != nil {
		return
	}
	w.err = w.cell.WriteUint(value, bits)
}

func (w *cellWriter) bytes(data []byte) {
	for _, b := range data {
		w.uint(uint64(b), 8)
	}
}

func (w *cellWriter) coins(amount *big.Int) {
	if amount == nil || amount.Sign() < 0 {
		w.err = fmt.Errorf("%w: %v", ErrorInvalidParameter, amount)
		return
	}
	data := amount.Bytes()
	if len(data) > maxCoinsBytes {
		w.err = ErrorCoinsOverflow
		return
	}
	w.uint(uint64(len(data)), 4)
	w.bytes(data)
}

// address writes addr_std$10 anycast:(Maybe Anycast) workchain_id:int8 address:bits256.
func (w *cellWriter) address(accid tongo.AccountID) {
	w.uint(0b10, 2)
	w.uint(0, 1)
	w.uint(uint64(uint8(int8(accid.Workchain))), 8)
	w.bytes(accid.Address[:])
}
