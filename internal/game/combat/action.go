package combat

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/htbah/campaign-manager/internal/game/character"
	"github.com/htbah/campaign-manager/internal/game/dice"
)

// Prompter asks the operator for the inputs of an action. Any method may
// return ErrCancelled to abort the action.
type Prompter interface {
	// Choose returns the index of the selected option.
	Choose(ctx context.Context, question string, options []string) (int, error)
	Confirm(ctx context.Context, question string) (bool, error)
	// Number reads an integer. When optional is true an empty answer yields 0.
	Number(ctx context.Context, question string, optional bool) (int, error)
}

// TurnReport describes one executed action.
type TurnReport struct {
	Attacker Actor
	Target   Actor
	// Skipped is true when the attacker lost the turn to surprise.
	Skipped        bool
	AttackCheck    character.Check
	Attack         dice.Result
	ParryOffered   bool
	ParryAttempted bool
	ParryCheck     *character.Check
	Parry          *dice.Result
	Damage         *dice.Damage
	DamageReport   *DamageReport
	Events         []string
}

// Hit reports whether the attack got through to damage.
func (r *TurnReport) Hit() bool { return r.DamageReport != nil }

// ExecuteTurn runs the attack action of the current actor. Nothing is
// committed until every input has been collected, so an error or cancellation
// leaves the encounter as it was.
//
// Precondition: the encounter has started.
func (e *Encounter) ExecuteTurn(ctx context.Context, p Prompter) (*TurnReport, error) {
	e.mu.Lock()
	if e.pending {
		e.mu.Unlock()
		return nil, ErrActionPending
	}
	if !e.started || len(e.order) == 0 {
		e.mu.Unlock()
		return nil, ErrNotStarted
	}
	attacker := *e.actors[e.order[e.turnIndex]]
	round := e.round
	blocked := e.surprisedBlocked(attacker.InstanceID, round)
	var targets []Actor
	for _, id := range e.order {
		a := e.actors[id]
		if id == attacker.InstanceID || a.Dead {
			continue
		}
		targets = append(targets, *a)
	}
	e.pending = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.pending = false
		e.mu.Unlock()
	}()

	rep := &TurnReport{Attacker: attacker}
	if blocked {
		rep.Skipped = true
		rep.Events = append(rep.Events, fmt.Sprintf("%s is surprised and cannot act", attacker.Name))
		e.commit(rep, nil)
		return rep, nil
	}
	if attacker.Dead || attacker.Unconscious {
		return nil, fmt.Errorf("%s is %s: %w", attacker.Name, attacker.Status(), ErrNoEligibleActor)
	}
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}

	attackSheet, err := e.sheets.Sheet(attacker.SourceID)
	if err != nil {
		return nil, err
	}

	// Target.
	labels := make([]string, len(targets))
	for i, t := range targets {
		labels[i] = fmt.Sprintf("%s (%s, %d/%d HP, %s)", t.Name, t.Team, t.CurrentHP, t.MaxHP, t.Status())
	}
	ti, err := p.Choose(ctx, fmt.Sprintf("%s attacks whom?", attacker.Name), labels)
	if err != nil {
		return nil, err
	}
	if ti < 0 || ti >= len(targets) {
		return nil, ErrCancelled
	}
	target := targets[ti]
	rep.Target = target

	// Attack roll.
	check, err := chooseCheck(ctx, p, attackSheet, "Attack with which skill?")
	if err != nil {
		return nil, err
	}
	rep.AttackCheck = check
	bonus, err := p.Number(ctx, "Attack bonus/malus", true)
	if err != nil {
		return nil, err
	}
	rolled, err := p.Number(ctx, fmt.Sprintf("Attack roll d100 (%s %d%%)", check.Name, check.Chance+bonus), false)
	if err != nil {
		return nil, err
	}
	attack, err := e.evaluator.Evaluate(check.Chance, bonus, rolled)
	if err != nil {
		return nil, err
	}
	rep.Attack = attack
	rep.Events = append(rep.Events, fmt.Sprintf("%s attacks %s with %s: %d vs %d, %s",
		attacker.Name, target.Name, check.Name, attack.Rolled, attack.FinalChance, attack.Outcome()))
	if !attack.Success {
		e.commit(rep, nil)
		return rep, nil
	}

	// Parry.
	switch {
	case attack.Crit:
		rep.Events = append(rep.Events, "critical hit, no parry possible")
	case !e.CanParry(target.InstanceID):
		rep.Events = append(rep.Events, fmt.Sprintf("%s has already parried this round", target.Name))
	default:
		rep.ParryOffered = true
		ok, err := p.Confirm(ctx, fmt.Sprintf("Does %s parry?", target.Name))
		if err != nil {
			return nil, err
		}
		if ok {
			parried, err := e.parry(ctx, p, rep, target)
			if err != nil {
				return nil, err
			}
			if parried {
				e.commit(rep, nil)
				return rep, nil
			}
		}
	}

	// Damage.
	dmg, err := e.rollDamage(ctx, p, attackSheet.Character)
	if err != nil {
		return nil, err
	}
	rep.Damage = &dmg
	rep.Events = append(rep.Events, fmt.Sprintf("damage %s", dmg))
	if err := e.commit(rep, &dmg); err != nil {
		return nil, err
	}
	return rep, nil
}

func (e *Encounter) parry(ctx context.Context, p Prompter, rep *TurnReport, target Actor) (bool, error) {
	sheet, err := e.sheets.Sheet(target.SourceID)
	if err != nil {
		return false, err
	}
	check, err := chooseCheck(ctx, p, sheet, fmt.Sprintf("%s parries with which skill?", target.Name))
	if err != nil {
		return false, err
	}
	rolled, err := p.Number(ctx, fmt.Sprintf("Parry roll d100 (%s %d%%)", check.Name, check.Chance), false)
	if err != nil {
		return false, err
	}
	res, err := e.evaluator.Evaluate(check.Chance, 0, rolled)
	if err != nil {
		return false, err
	}
	rep.ParryAttempted = true
	rep.ParryCheck = &check
	rep.Parry = &res
	if res.Success {
		rep.Events = append(rep.Events, fmt.Sprintf("%s parries with %s: %d vs %d, %s",
			target.Name, check.Name, res.Rolled, res.FinalChance, res.Outcome()))
		return true, nil
	}
	rep.Events = append(rep.Events, fmt.Sprintf("%s fails to parry: %d vs %d, %s",
		target.Name, res.Rolled, res.FinalChance, res.Outcome()))
	return false, nil
}

func chooseCheck(ctx context.Context, p Prompter, sheet *character.Sheet, question string) (character.Check, error) {
	names := character.CheckNames(sheet.Character.Skills)
	if len(names) == 0 {
		return character.Check{}, fmt.Errorf("%s has no skills: %w", sheet.Character.Name, character.ErrUnknownSkill)
	}
	labels := make([]string, len(names))
	for i, n := range names {
		c, err := sheet.Check(n)
		if err != nil {
			return character.Check{}, err
		}
		if c.IsCategory {
			labels[i] = fmt.Sprintf("[%s] %d%%", n, c.Chance)
		} else {
			labels[i] = fmt.Sprintf("  %s %d%%", n, c.Chance)
		}
	}
	i, err := p.Choose(ctx, question, labels)
	if err != nil {
		return character.Check{}, err
	}
	if i < 0 || i >= len(names) {
		return character.Check{}, ErrCancelled
	}
	return sheet.Check(names[i])
}

func (e *Encounter) rollDamage(ctx context.Context, p Prompter, c *character.Character) (dice.Damage, error) {
	base := c.BaseDamage
	if base == "" {
		base = character.DefaultBaseDamage
	}
	formulas := []string{base}
	labels := []string{fmt.Sprintf("Base damage (%s)", base)}
	for _, w := range c.Weapons() {
		f := w.DamageFormula
		if f == "" {
			f = base
		}
		formulas = append(formulas, f)
		labels = append(labels, fmt.Sprintf("%s (%s)", w.Name, f))
	}
	i := 0
	if len(formulas) > 1 {
		var err error
		i, err = p.Choose(ctx, "Damage source", labels)
		if err != nil {
			return dice.Damage{}, err
		}
		if i < 0 || i >= len(formulas) {
			return dice.Damage{}, ErrCancelled
		}
	}
	formula := formulas[i]
	rolled, err := p.Number(ctx, fmt.Sprintf("Damage roll %s", formula), false)
	if err != nil {
		return dice.Damage{}, err
	}
	situational, err := p.Number(ctx, "Situational damage bonus", true)
	if err != nil {
		return dice.Damage{}, err
	}
	dmg, warn := dice.ComputeDamage(formula, rolled, situational)
	if warn != nil {
		e.logger.Warn("damage formula", zap.Error(warn))
	}
	return dmg, nil
}

// commit writes the outcome of an action. It is the only step of ExecuteTurn
// that mutates the encounter.
func (e *Encounter) commit(rep *TurnReport, dmg *dice.Damage) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.actors[rep.Attacker.InstanceID]; !ok {
		return fmt.Errorf("%w: %s", ErrActorNotFound, rep.Attacker.InstanceID)
	}
	for _, ev := range rep.Events {
		e.record("%s", ev)
	}
	if rep.ParryAttempted {
		e.parryUsed[rep.Target.InstanceID] = true
	}
	if dmg == nil {
		return nil
	}
	dr, err := e.applyDamage(rep.Target.InstanceID, dmg.Total())
	if err != nil {
		return err
	}
	rep.DamageReport = &dr
	rep.Target = *e.actors[rep.Target.InstanceID]
	return nil
}

// IsCancelled reports whether err aborted an action at the operator's request.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}
