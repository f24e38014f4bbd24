package dice

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/htbah/campaign-manager/internal/game/rules"
)

// Formula is a parsed damage formula such as "2W10+5". The dice part is only
// descriptive: the operator rolls it and reports the sum.
type Formula struct {
	Raw      string // original input string
	Count    int    // number of dice
	Sides    int    // faces per die
	Modifier int    // fixed bonus (may be negative)
}

// ParseFormula parses "W6", "2W10", "2W10+5", "1d6-1". Both W and d are
// accepted as the die letter.
//
// Precondition: expr must be non-empty.
// Postcondition: Returns a Formula with Count >= 1 and Sides >= 2, or an error.
func ParseFormula(expr string) (Formula, error) {
	raw := expr
	s := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(expr), " ", ""))
	if s == "" {
		return Formula{}, fmt.Errorf("dice: empty formula")
	}

	dIdx := strings.IndexAny(s, "wd")
	if dIdx < 0 {
		return Formula{}, fmt.Errorf("dice: missing 'W' in formula %q", raw)
	}

	count := 1
	if countStr := s[:dIdx]; countStr != "" {
		var err error
		count, err = strconv.Atoi(countStr)
		if err != nil {
			return Formula{}, fmt.Errorf("dice: invalid die count in %q: %w", raw, err)
		}
		if count <= 0 {
			return Formula{}, fmt.Errorf("dice: invalid die count in %q: must be >= 1", raw)
		}
	}

	rest := s[dIdx+1:]
	sidesStr, modStr := rest, ""
	if i := strings.IndexAny(rest, "+-"); i >= 0 {
		sidesStr, modStr = rest[:i], rest[i:]
	}

	sides, err := strconv.Atoi(sidesStr)
	if err != nil {
		return Formula{}, fmt.Errorf("dice: invalid die sides in %q: %w", raw, err)
	}
	if sides < 2 {
		return Formula{}, fmt.Errorf("dice: invalid die sides in %q: must be >= 2", raw)
	}

	modifier := 0
	if modStr != "" {
		modifier, err = strconv.Atoi(modStr)
		if err != nil {
			return Formula{}, fmt.Errorf("dice: invalid modifier in %q: %w", raw, err)
		}
	}
	return Formula{Raw: raw, Count: count, Sides: sides, Modifier: modifier}, nil
}

// Range returns the smallest and largest dice sum, before the modifier.
func (f Formula) Range() (int, int) {
	return f.Count, f.Count * f.Sides
}

// String renders the canonical form, e.g. "2W10+5".
func (f Formula) String() string {
	if f.Modifier == 0 {
		return fmt.Sprintf("%dW%d", f.Count, f.Sides)
	}
	return fmt.Sprintf("%dW%d%+d", f.Count, f.Sides, f.Modifier)
}

// FixedBonus extracts the fixed bonus of a damage formula. Well-formed
// formulas yield their signed modifier. Otherwise the text after the first
// '+' is scanned for digits; when that fails the bonus is 0 and a warning is
// returned. Formulas without '+' that do not parse have no bonus.
func FixedBonus(formula string) (int, *rules.DataIntegrityWarning) {
	if f, err := ParseFormula(formula); err == nil {
		return f.Modifier, nil
	}
	_, after, ok := strings.Cut(formula, "+")
	if !ok {
		return 0, nil
	}
	fields := strings.Fields(after)
	if len(fields) == 0 {
		return 0, rules.Warnf(formula, "invalid bonus in damage formula; ignored")
	}
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, fields[0])
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, rules.Warnf(formula, "invalid bonus in damage formula; ignored")
	}
	return n, nil
}

// Damage is the outcome of a damage roll.
type Damage struct {
	Formula     string
	Rolled      int
	Fixed       int
	Situational int
}

// Total is rolled + fixed + situational.
func (d Damage) Total() int {
	return d.Rolled + d.Fixed + d.Situational
}

// String renders an audit line, e.g. "2W10+5: 12 +5 +0 = 17".
func (d Damage) String() string {
	return fmt.Sprintf("%s: %d %+d %+d = %d", d.Formula, d.Rolled, d.Fixed, d.Situational, d.Total())
}

// ComputeDamage combines an operator-rolled dice sum with the formula's fixed
// bonus and a situational modifier.
func ComputeDamage(formula string, rolled, situational int) (Damage, *rules.DataIntegrityWarning) {
	fixed, warn := FixedBonus(formula)
	return Damage{Formula: formula, Rolled: rolled, Fixed: fixed, Situational: situational}, warn
}
