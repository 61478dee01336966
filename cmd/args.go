package cmd

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
	"vault/domain"
)

// parseAmount reads a non-negative amount in base units. Underscores may group digits.
func parseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.ReplaceAll(strings.TrimSpace(s), "_", ""), 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: amount %q", domain.ErrorInvalidParameter, s)
	}
	return amount, nil
}

// parseTime reads either unix seconds or an RFC 3339 timestamp.
func parseTime(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return unix, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("%w: time %q", domain.ErrorInvalidParameter, s)
	}
	return t.Unix(), nil
}

// parsePeriod reads a whole number of seconds, either bare or as a Go duration like "10m".
func parsePeriod(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if seconds, err := strconv.ParseInt(s, 10, 64); err == nil {
		return seconds, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d%time.Second != 0 {
		return 0, fmt.Errorf("%w: period %q", domain.ErrorInvalidParameter, s)
	}
	return int64(d / time.Second), nil
}

func parseCounts(s string) (uint32, error) {
	counts, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: claim counts %q", domain.ErrorInvalidParameter, s)
	}
	return uint32(counts), nil
}

func parseUnlock(amount, at string) (domain.Unlock, error) {
	a, err := parseAmount(amount)
	if err != nil {
		return domain.Unlock{}, err
	}
	t, err := parseTime(at)
	if err != nil {
		return domain.Unlock{}, err
	}
	return domain.Unlock{Amount: a, Time: t}, nil
}
