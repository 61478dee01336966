package domain

import (
	"time"

	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/tlb"
)

type TransferStatus int

const (
	TransferNotFound TransferStatus = iota
	TransferSucceeded
	TransferAborted
)

func (s TransferStatus) String() string {
	switch s {
	case TransferSucceeded:
		return "succeeded"
	case TransferAborted:
		return "aborted"
	default:
		return "not found"
	}
}

type HTransaction struct {
	trans *tlb.Transaction
}

func NewHTransaction(trans *tlb.Transaction) *HTransaction {
	return &HTransaction{
		trans: trans,
	}
}

func (t *HTransaction) Lt() uint64 {
	return t.trans.Lt
}

func (t *HTransaction) UnixTime() time.Time {
	return time.Unix(int64(t.trans.Now), 0)
}

// InMessage returns nil for a transaction without an inbound message, e.g. a tick-tock.
func (t *HTransaction) InMessage() *HMessage {
	if !t.trans.Msgs.InMsg.Exists {
		return nil
	}
	msg := t.trans.Msgs.InMsg.Value.Value
	return NewHMessage(&msg)
}

func (t *HTransaction) IsSucceeded() bool {
	return t.trans.Description.TransOrd.Action.Value.Value.Success
}

// JettonTransferStatus tells if this transaction is the custody wallet executing the
// transfer with queryId sent by sender.
func (t *HTransaction) JettonTransferStatus(sender tongo.AccountID, queryId uint64) TransferStatus {
	msg := t.InMessage()
	if msg == nil {
		return TransferNotFound
	}
	src := msg.SrcInt()
	if src == nil || *src != sender {
		return TransferNotFound
	}
	op, id, ok := msg.OpcodeAndQueryId()
	if !ok || op != OpcodeJettonTransfer || id != queryId {
		return TransferNotFound
	}
	if !t.IsSucceeded() {
		return TransferAborted
	}
	return TransferSucceeded
}

type HMessage struct {
	msg *tlb.Message
}

func NewHMessage(msg *tlb.Message) *HMessage {
	return &HMessage{
		msg: msg,
	}
}

// OpcodeAndQueryId reads the standard op and query_id prefix of the body.
func (m *HMessage) OpcodeAndQueryId() (uint32, uint64, bool) {
	body, err := m.msg.Body.Value.MarshalJSON()
	if err != nil {
		return 0, 0, false
	}
	cell := boc.NewCell()
	if err = cell.UnmarshalJSON(body); err != nil {
		return 0, 0, false
	}
	opcode, err := cell.ReadUint(32)
	if err != nil {
		return 0, 0, false
	}
	queryId, err := cell.ReadUint(64)
	if err != nil {
		return uint32(opcode), 0, false
	}
	return uint32(opcode), queryId, true
}

func (m *HMessage) SrcInt() *tongo.AccountID {
	if m.msg.Info.IntMsgInfo == nil {
		return nil
	}
	acntId, _ := tongo.AccountIDFromTlb(m.msg.Info.IntMsgInfo.Src)
	return acntId
}
