package services

import (
	"strings"

	"github.com/AnshRaj112/laundry-backend/internal/models"
	"github.com/AnshRaj112/laundry-backend/pkg/utils"
)

// lookupTier names the rule that matched an order id.
type lookupTier string

const (
	tierExact           lookupTier = "exact"
	tierCaseInsensitive lookupTier = "case_insensitive"
	tierPrefixSwap      lookupTier = "prefix_swap"
	tierDigits          lookupTier = "digits"
	tierNone            lookupTier = ""
)

// resolveOrderIndex finds the order a client-supplied id refers to. Tiers
// are tried in order and the first hit wins:
//
//	exact               "LD-12345"
//	case-insensitive    "ld-12345"
//	LD-/ORD prefix swap "ORD12345" (prefix case ignored)
//	digits only         "12345"
//
// Old clients and printed receipts still carry the looser forms.
func resolveOrderIndex(orders []models.Order, id string) (int, lookupTier) {
	id = strings.TrimSpace(id)
	if id == "" {
		return -1, tierNone
	}

	for i := range orders {
		if orders[i].ID == id {
			return i, tierExact
		}
	}

	for i := range orders {
		if orders[i].ID != "" && strings.EqualFold(orders[i].ID, id) {
			return i, tierCaseInsensitive
		}
	}

	if swapped, ok := utils.SwapOrderIDPrefix(id); ok {
		for i := range orders {
			if orders[i].ID == swapped {
				return i, tierPrefixSwap
			}
		}
	}

	if digits := utils.DigitsOnly(id); digits != "" {
		for i := range orders {
			if orders[i].ID != "" && utils.DigitsOnly(orders[i].ID) == digits {
				return i, tierDigits
			}
		}
	}

	return -1, tierNone
}
