// Package combat implements the encounter state machine: roster and teams,
// initiative order, turn and round progression, parry discipline, and damage
// with incapacitation.
package combat

import (
	"errors"

	"github.com/htbah/campaign-manager/internal/game/character"
)

// Incapacitation thresholds.
const (
	// UnconsciousBelowHP: a living actor with fewer hit points falls unconscious.
	UnconsciousBelowHP = 10
	// MaxRoundDamage: taking more damage than this in one round knocks an actor out.
	MaxRoundDamage = 60
)

// Default team labels.
var DefaultTeams = []string{"Team A", "Team B"}

var (
	// ErrNotStarted is returned by turn operations before Start succeeded.
	ErrNotStarted = errors.New("encounter has not started")
	// ErrNoEligibleActor is returned when every actor in the order would be skipped.
	ErrNoEligibleActor = errors.New("no actor is able to act")
	// ErrActionPending is returned when an action is already in flight.
	ErrActionPending = errors.New("another action is in progress")
	// ErrActorNotFound is returned for unknown instance ids.
	ErrActorNotFound = errors.New("actor not found")
	// ErrNoTargets is returned when an attacker has nobody to attack.
	ErrNoTargets = errors.New("no targets available")
	// ErrCancelled is returned by a Prompter when the operator aborts the action.
	ErrCancelled = errors.New("action cancelled")
)

// Status is the incapacitation state of an actor.
type Status int

const (
	StatusActive Status = iota
	StatusUnconscious
	StatusDead
)

func (s Status) String() string {
	switch s {
	case StatusUnconscious:
		return "unconscious"
	case StatusDead:
		return "dead"
	default:
		return "active"
	}
}

// Actor is one character instantiated inside an encounter. Several actors may
// share a SourceID.
type Actor struct {
	InstanceID  string
	SourceID    string
	Name        string
	Team        string
	Role        character.Role
	CurrentHP   int
	MaxHP       int
	Unconscious bool
	Dead        bool
}

// Status folds the flags into one value. Dead implies unconscious.
func (a Actor) Status() Status {
	switch {
	case a.Dead:
		return StatusDead
	case a.Unconscious:
		return StatusUnconscious
	default:
		return StatusActive
	}
}

// IsPC reports whether the actor is a player character.
func (a Actor) IsPC() bool { return a.Role == character.RolePC }

// DamageReport describes one damage application.
type DamageReport struct {
	TargetID          string
	TargetName        string
	Amount            int
	HPBefore          int
	HPAfter           int
	MaxHP             int
	RoundDamage       int
	BecameUnconscious bool
	BecameDead        bool
}

// applyDamage mutates a and returns what happened. roundDamage is the
// accumulated damage including amount.
//
// Postcondition: a.CurrentHP >= 0; HP 0 sets Dead and Unconscious.
func applyDamage(a *Actor, amount, roundDamage int) DamageReport {
	rep := DamageReport{
		TargetID:    a.InstanceID,
		TargetName:  a.Name,
		Amount:      amount,
		HPBefore:    a.CurrentHP,
		MaxHP:       a.MaxHP,
		RoundDamage: roundDamage,
	}
	wasUnconscious, wasDead := a.Unconscious, a.Dead

	a.CurrentHP = max(0, a.CurrentHP-amount)
	if (a.CurrentHP > 0 && a.CurrentHP < UnconsciousBelowHP) || roundDamage > MaxRoundDamage {
		a.Unconscious = true
	}
	if a.CurrentHP <= 0 {
		a.Dead = true
		a.Unconscious = true
	}

	rep.HPAfter = a.CurrentHP
	rep.BecameUnconscious = a.Unconscious && !wasUnconscious
	rep.BecameDead = a.Dead && !wasDead
	return rep
}
