package combat

import (
	"sort"
	"strings"
)

// InitiativeRoll is the operator input for one actor at the start of an encounter.
type InitiativeRoll struct {
	InstanceID string
	// Rolled is the d10 reading; 0 counts as 10.
	Rolled int
	// Bonus is the operator's bonus or malus.
	Bonus int
}

// InitiativeEntry is one slot of the computed initiative order.
type InitiativeEntry struct {
	Actor  Actor
	Rolled int
	// ActionScore is the character's base Handeln category score.
	ActionScore int
	Bonus       int
}

// Total is rolled + action score + bonus.
func (e InitiativeEntry) Total() int {
	return e.Rolled + e.ActionScore + e.Bonus
}

// SortInitiative orders entries by descending total, player characters before
// non-player characters on ties, then by lower-cased name.
func SortInitiative(entries []InitiativeEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if ta, tb := a.Total(), b.Total(); ta != tb {
			return ta > tb
		}
		if a.Actor.IsPC() != b.Actor.IsPC() {
			return a.Actor.IsPC()
		}
		return strings.ToLower(a.Actor.Name) < strings.ToLower(b.Actor.Name)
	})
}
