package services

import (
	"strings"

	"github.com/AnshRaj112/laundry-backend/internal/apperr"
	"github.com/AnshRaj112/laundry-backend/internal/models"
)

// Transition is one allowed status change.
type Transition struct {
	From models.OrderStatus
	To   models.OrderStatus
}

// forwardTransitions is the strict lifecycle: a status may be re-stamped or
// moved forward, never back, and nothing leaves completed.
var forwardTransitions = func() []Transition {
	var ts []Transition
	for i, from := range models.OrderStatuses {
		for _, to := range models.OrderStatuses[i:] {
			if from == models.StatusCompleted && to != from {
				continue
			}
			ts = append(ts, Transition{From: from, To: to})
		}
	}
	return ts
}()

var transitionSet = func() map[Transition]bool {
	m := make(map[Transition]bool, len(forwardTransitions))
	for _, t := range forwardTransitions {
		m[t] = true
	}
	return m
}()

// TransitionPolicy decides whether an order may move between two statuses.
type TransitionPolicy struct {
	Strict bool
}

// Check returns a validation error when to is unknown or, in strict mode,
// when from -> to is not in the lifecycle.
func (p TransitionPolicy) Check(from, to models.OrderStatus) error {
	if !to.Valid() {
		return apperr.Validation("Invalid status '" + string(to) + "'. Valid statuses are: " + joinStatuses(models.OrderStatuses))
	}
	if !p.Strict || !from.Valid() {
		return nil
	}
	if transitionSet[Transition{From: from, To: to}] {
		return nil
	}
	return apperr.Validation(
		"Invalid status transition: " + string(from) + " -> " + string(to) +
			". Valid next statuses are: " + joinStatuses(ValidTransitionsFrom(from)),
	)
}

// ValidTransitionsFrom returns every status reachable from status, itself included.
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	for _, t := range forwardTransitions {
		if t.From == status {
			nexts = append(nexts, t.To)
		}
	}
	return nexts
}

func joinStatuses(statuses []models.OrderStatus) string {
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
