package usecase

import (
	"strings"

	"github.com/tonkeeper/tongo"
)

// Gate decides whether a caller holds the administrator capability.
type Gate interface {
	IsAdmin(caller string) bool
}

// GateFunc adapts a plain predicate to Gate.
type GateFunc func(caller string) bool

func (f GateFunc) IsAdmin(caller string) bool {
	return f(caller)
}

// AdminGate accepts the configured administrator wallets, whatever address form the
// caller uses.
type AdminGate struct {
	admins map[string]struct{}
}

func NewAdminGate(admins []tongo.AccountID) *AdminGate {
	gate := &AdminGate{admins: make(map[string]struct{}, len(admins))}
	for _, accid := range admins {
		gate.admins[accid.ToRaw()] = struct{}{}
	}
	return gate
}

func (gate *AdminGate) IsAdmin(caller string) bool {
	accid, err := tongo.ParseAccountID(strings.TrimSpace(caller))
	if err != nil {
		return false
	}
	_, ok := gate.admins[accid.ToRaw()]
	return ok
}
