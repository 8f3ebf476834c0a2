package utils

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	// OrderIDPrefix is the current id scheme. LegacyOrderIDPrefix ids
	// ("ORD1234567") are still present in older data.
	OrderIDPrefix       = "LD-"
	LegacyOrderIDPrefix = "ORD"
)

// NewOrderID returns "LD-" + the last 4 digits of the millisecond clock +
// 5 random digits. Uniqueness is probabilistic.
func NewOrderID(now time.Time) string {
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	if len(ms) > 4 {
		ms = ms[len(ms)-4:]
	}

	n, err := rand.Int(rand.Reader, big.NewInt(90000))
	if err != nil {
		// crypto/rand does not fail on supported platforms; keep a usable id anyway
		n = big.NewInt(now.UnixNano() % 90000)
	}
	return OrderIDPrefix + ms + strconv.FormatInt(10000+n.Int64(), 10)
}

// DigitsOnly strips every non-digit rune.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SwapOrderIDPrefix maps "LD-xxxx" to "ORDxxxx" and back. The prefix match
// ignores case. ok is false when s carries neither prefix.
func SwapOrderIDPrefix(s string) (swapped string, ok bool) {
	switch {
	case hasPrefixFold(s, OrderIDPrefix):
		return LegacyOrderIDPrefix + s[len(OrderIDPrefix):], true
	case hasPrefixFold(s, LegacyOrderIDPrefix):
		return OrderIDPrefix + s[len(LegacyOrderIDPrefix):], true
	}
	return "", false
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
