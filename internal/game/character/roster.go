package character

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/htbah/campaign-manager/internal/game/condition"
	"github.com/htbah/campaign-manager/internal/game/inventory"
	"github.com/htbah/campaign-manager/internal/game/rules"
)

// ErrNotFound is returned when a character id is not on the roster.
var ErrNotFound = errors.New("character not found")

// Persisted is a character as read from or written to storage, together with
// its condition snapshot.
type Persisted struct {
	Character *Character
	// Conditions is the snapshot of every condition that was active at save time.
	Conditions []*condition.Definition
	// Manual lists the ids activated by hand. Nil when the record predates
	// manual tracking; then every persisted condition not granted by an item
	// is treated as manual.
	Manual []string
}

// Sheet is the computed view of one character.
type Sheet struct {
	Character   *Character
	Active      []*condition.Definition
	Derived     Derived
	Effective   EffectiveValues
	HitPoints   int
	Inspiration map[string]int
	Warnings    []*rules.DataIntegrityWarning
}

// Check resolves a skill or category name on this sheet.
func (s *Sheet) Check(name string) (Check, error) {
	return ResolveCheck(s.Character.Skills, s.Effective, name)
}

// Roster owns the loaded characters and their condition activations.
// All mutations validate first and commit only on success. It is safe for
// concurrent use.
type Roster struct {
	mu         sync.RWMutex
	chars      map[string]*Character
	ledger     *condition.Ledger
	conditions *condition.Library
	logger     *zap.Logger
}

// NewRoster creates an empty roster resolving condition ids through lib.
//
// Precondition: lib must not be nil.
func NewRoster(lib *condition.Library, logger *zap.Logger) *Roster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roster{
		chars:      make(map[string]*Character),
		ledger:     condition.NewLedger(),
		conditions: lib,
		logger:     logger,
	}
}

// Ledger exposes the activation ledger.
func (r *Roster) Ledger() *condition.Ledger { return r.ledger }

// Restore adds a persisted character and rebuilds its activations: every
// linked condition of every equipped item is activated with that item as
// source, and manual conditions are activated once. Definitions resolve from
// the library first, then the persisted snapshot, then a placeholder.
//
// Postcondition: returns one warning per condition that could not be resolved
// or whose target the character lacks.
func (r *Roster) Restore(p Persisted) ([]*rules.DataIntegrityWarning, error) {
	c := p.Character
	if c == nil || c.ID == "" {
		return nil, errors.New("Restore: character with an id is required")
	}
	snapshot := make(map[string]*condition.Definition, len(p.Conditions))
	for _, d := range p.Conditions {
		if d != nil && d.ID != "" {
			snapshot[d.ID] = d
		}
	}

	var warnings []*rules.DataIntegrityWarning
	resolve := func(id string) *condition.Definition {
		if d, ok := r.conditions.Get(id); ok {
			return d
		}
		if d, ok := snapshot[id]; ok {
			return d
		}
		d, w := r.conditions.Resolve(id)
		warnings = append(warnings, w)
		return d
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ledger.Forget(c.ID)
	r.chars[c.ID] = c

	for _, it := range c.Items {
		for _, id := range it.LinkedConditions {
			_ = r.ledger.Activate(c.ID, resolve(id), condition.FromItem(it.Name))
		}
	}

	manual := p.Manual
	if manual == nil {
		for _, d := range p.Conditions {
			if d != nil && d.ID != "" && !c.LinksCondition(d.ID) {
				manual = append(manual, d.ID)
			}
		}
	}
	for _, id := range manual {
		_ = r.ledger.Activate(c.ID, resolve(id), condition.Manual())
	}

	warnings = append(warnings, InvalidTargets(c.Skills, r.ledger.Active(c.ID))...)
	for _, w := range warnings {
		r.logger.Warn("character data degraded",
			zap.String("character", c.Name),
			zap.String("subject", w.Subject),
			zap.String("detail", w.Detail),
		)
	}
	return warnings, nil
}

// Snapshot returns the persistable form of the character with id.
func (r *Roster) Snapshot(id string) (Persisted, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.chars[id]
	if !ok {
		return Persisted{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	manual := r.ledger.ManualIDs(id)
	if manual == nil {
		manual = []string{}
	}
	return Persisted{Character: c, Conditions: r.ledger.Active(id), Manual: manual}, nil
}

// Remove drops the character and its activations from the roster.
func (r *Roster) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.chars[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.chars, id)
	r.ledger.Forget(id)
	return nil
}

// Get returns the character with id.
func (r *Roster) Get(id string) (*Character, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.chars[id]
	return c, ok
}

// FindByName returns the character whose name matches case-insensitively.
func (r *Roster) FindByName(name string) (*Character, bool) {
	for _, c := range r.List() {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return nil, false
}

// List returns all characters sorted by name.
func (r *Roster) List() []*Character {
	r.mu.RLock()
	out := make([]*Character, 0, len(r.chars))
	for _, c := range r.chars {
		out = append(out, c)
	}
	r.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// Sheet computes the current view of the character with id.
func (r *Roster) Sheet(id string) (*Sheet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.chars[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	active := r.ledger.Active(id)
	return &Sheet{
		Character:   c,
		Active:      active,
		Derived:     c.Skills.Derive(),
		Effective:   ComputeEffectiveValues(c.Skills, active),
		HitPoints:   EffectiveHitPoints(c.HitPoints, active),
		Inspiration: EffectiveInspiration(c.Skills, active),
		Warnings:    InvalidTargets(c.Skills, active),
	}, nil
}

// Equip adds a copy of item to the character and activates its linked
// conditions with the item as source.
//
// Postcondition: on error neither the character nor the ledger changed.
func (r *Roster) Equip(id string, item *inventory.Item) ([]*rules.DataIntegrityWarning, error) {
	if item == nil {
		return nil, errors.New("Equip: item must not be nil")
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chars[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if _, dup := c.Item(item.Name); dup {
		return nil, rules.Validationf("%s already carries an item named %q", c.Name, item.Name)
	}

	var warnings []*rules.DataIntegrityWarning
	defs := make([]*condition.Definition, 0, len(item.LinkedConditions))
	for _, cid := range item.LinkedConditions {
		d, w := r.conditions.Resolve(cid)
		if w != nil {
			warnings = append(warnings, w)
		}
		defs = append(defs, d)
	}

	cp := item.Clone()
	c.Items = append(c.Items, cp)
	for _, d := range defs {
		_ = r.ledger.Activate(c.ID, d, condition.FromItem(cp.Name))
	}
	r.logger.Info("item equipped", zap.String("character", c.Name), zap.String("item", cp.Name))
	return warnings, nil
}

// Unequip removes the named item and releases every condition it granted.
func (r *Roster) Unequip(id, itemName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chars[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	idx := -1
	for i, it := range c.Items {
		if it.Name == itemName {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %q on %s", inventory.ErrNotFound, itemName, c.Name)
	}
	it := c.Items[idx]
	c.Items = append(c.Items[:idx:idx], c.Items[idx+1:]...)
	for _, cid := range it.LinkedConditions {
		r.ledger.Deactivate(c.ID, cid, condition.FromItem(it.Name))
	}
	r.logger.Info("item unequipped", zap.String("character", c.Name), zap.String("item", it.Name))
	return nil
}

// AddCondition activates a library condition on the character by hand.
// A condition is held manually at most once.
func (r *Roster) AddCondition(id, condID string) (*rules.DataIntegrityWarning, error) {
	d, ok := r.conditions.Get(condID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", condition.ErrNotFound, condID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chars[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	for _, s := range r.ledger.Sources(id, condID) {
		if s.IsManual() {
			return nil, rules.Validationf("%s already has %q", c.Name, d.Name)
		}
	}
	if err := r.ledger.Activate(id, d, condition.Manual()); err != nil {
		return nil, err
	}
	var warn *rules.DataIntegrityWarning
	if d.EffectType != condition.EffectNone && !TargetValidFor(c.Skills, d.Target) {
		warn = rules.Warnf(d.Name, "target %s does not exist on %s", d.Target.Describe(), c.Name)
	}
	return warn, nil
}

// RemoveCondition releases the manual activation of condID. Conditions granted
// only by items cannot be removed this way; unequip the item instead.
func (r *Roster) RemoveCondition(id, condID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chars[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !r.ledger.IsActive(id, condID) {
		return fmt.Errorf("%w: %s is not active on %s", condition.ErrNotFound, condID, c.Name)
	}
	if !r.ledger.Deactivate(id, condID, condition.Manual()) {
		return rules.Validationf("condition %s is granted by an item on %s", condID, c.Name)
	}
	return nil
}

// UpdateSkills applies fn to a copy of the character's skills and commits the
// copy only if fn succeeds and the result passes validation.
func (r *Roster) UpdateSkills(id string, fn func(SkillSet) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chars[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := c.Skills.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	c.Skills = next
	return nil
}
