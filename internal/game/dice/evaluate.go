// Package dice evaluates operator-supplied rolls: percentile checks with
// critical bands, initiative d10 rolls, and damage formulas.
//
// Nothing here generates randomness. Every roll value comes from the operator.
package dice

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/htbah/campaign-manager/internal/game/rules"
)

// Percentile roll bounds.
const (
	MinRoll = 1
	MaxRoll = 100
)

// ErrInvalidRoll is matched by every *InvalidRollError via errors.Is.
var ErrInvalidRoll = errors.New("invalid roll")

// InvalidRollError reports a roll outside the die's range after 0 was
// substituted by the die's maximum.
type InvalidRollError struct {
	Rolled int
	Min    int
	Max    int
}

func (e *InvalidRollError) Error() string {
	return fmt.Sprintf("%s: %d is outside %d-%d (0 counts as %d)", ErrInvalidRoll, e.Rolled, e.Min, e.Max, e.Max)
}

// Is reports whether target is ErrInvalidRoll.
func (e *InvalidRollError) Is(target error) bool { return target == ErrInvalidRoll }

// Outcome is the four-tier result of a check.
type Outcome int

const (
	CritSuccess Outcome = iota
	Success
	Failure
	CritFailure
)

// String returns a human-readable outcome name.
func (o Outcome) String() string {
	switch o {
	case CritSuccess:
		return "critical success"
	case Success:
		return "success"
	case Failure:
		return "failure"
	case CritFailure:
		return "critical failure"
	default:
		return "unknown"
	}
}

// Result is the evaluation of one percentile check.
type Result struct {
	// Rolled is the normalised roll in [1,100].
	Rolled int
	// FinalChance is base chance plus bonus, unclamped.
	FinalChance          int
	CritSuccessThreshold int
	CritFailThreshold    int
	Success              bool
	Crit                 bool
}

// Outcome folds Success and Crit into one value.
func (r Result) Outcome() Outcome {
	switch {
	case r.Success && r.Crit:
		return CritSuccess
	case r.Success:
		return Success
	case r.Crit:
		return CritFailure
	default:
		return Failure
	}
}

// Evaluate resolves a percentile check.
//
//	final     = baseChance + bonus
//	success   = rolled <= final
//	critS     = max(1, round(clamp(final,0,100) / 10))
//	critF     = max(1, round((100 - clamp(final,0,100)) / 10))
//
// A roll of 0 counts as 100. A roll of 1 is always in the critical-success
// band and 100 always in the critical-fail band; a band only makes the result
// critical when it matches the outcome.
//
// Postcondition: returns *InvalidRollError when rolled is outside [1,100] after substitution.
func Evaluate(baseChance, bonus, rolled int) (Result, error) {
	if rolled == 0 {
		rolled = MaxRoll
	}
	if rolled < MinRoll || rolled > MaxRoll {
		return Result{}, &InvalidRollError{Rolled: rolled, Min: MinRoll, Max: MaxRoll}
	}

	final := baseChance + bonus
	ability := rules.Clamp(final, 0, 100)
	inability := 100 - ability

	critS := max(1, rules.RoundCommercial(float64(ability)/10))
	critF := max(1, rules.RoundCommercial(float64(inability)/10))

	inSuccessBand := rolled == MinRoll || rolled <= critS
	inFailBand := rolled == MaxRoll || rolled >= MaxRoll-critF+1

	success := rolled <= final
	crit := (success && inSuccessBand) || (!success && inFailBand)

	return Result{
		Rolled:               rolled,
		FinalChance:          final,
		CritSuccessThreshold: critS,
		CritFailThreshold:    critF,
		Success:              success,
		Crit:                 crit,
	}, nil
}

// ParseRoll reads an integer roll typed by the operator. Range checking is
// left to Evaluate or NormalizeInitiativeRoll.
func ParseRoll(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, rules.Validationf("roll %q is not a whole number", strings.TrimSpace(s))
	}
	return n, nil
}

// ParseModifier reads an optional signed bonus/malus ("+3", "-2", ""). Empty
// input is 0.
func ParseModifier(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, rules.Validationf("modifier %q is not a whole number", s)
	}
	return n, nil
}

// Initiative die bounds.
const (
	MinInitiative = 1
	MaxInitiative = 10
)

// NormalizeInitiativeRoll maps a d10 reading to [1,10], counting 0 as 10.
func NormalizeInitiativeRoll(rolled int) (int, error) {
	if rolled == 0 {
		rolled = MaxInitiative
	}
	if rolled < MinInitiative || rolled > MaxInitiative {
		return 0, &InvalidRollError{Rolled: rolled, Min: MinInitiative, Max: MaxInitiative}
	}
	return rolled, nil
}
