package combat

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/htbah/campaign-manager/internal/game/character"
	"github.com/htbah/campaign-manager/internal/game/dice"
	"github.com/htbah/campaign-manager/internal/game/rules"
)

// Sheets resolves a character id to its computed sheet.
type Sheets interface {
	Sheet(id string) (*character.Sheet, error)
}

// Event is one line of the combat narrative.
type Event struct {
	Round int
	Text  string
}

// SkipReason says why an actor's turn was passed over.
type SkipReason string

const (
	SkipDead        SkipReason = "dead"
	SkipUnconscious SkipReason = "unconscious"
	SkipSurprised   SkipReason = "surprised"
)

// Skip records one actor passed over while advancing.
type Skip struct {
	Actor  Actor
	Reason SkipReason
}

// TurnChange is the result of moving to the next eligible actor.
type TurnChange struct {
	Actor    Actor
	Round    int
	NewRound bool
	Skipped  []Skip
}

// Encounter is the state of one fight. All methods are safe for concurrent
// use, and at most one action is in flight at a time.
type Encounter struct {
	mu        sync.Mutex
	sheets    Sheets
	evaluator *dice.Evaluator
	logger    *zap.Logger

	actors    map[string]*Actor
	roster    []string // instance ids in insertion order
	teams     []string
	surprised map[string]bool

	order       []string // instance ids in initiative order
	initiative  []InitiativeEntry
	turnIndex   int
	round       int
	started     bool
	parryUsed   map[string]bool
	roundDamage map[string]int

	pending bool
	log     []Event
}

// NewEncounter creates an empty encounter with the default teams.
//
// Precondition: sheets must not be nil.
func NewEncounter(sheets Sheets, logger *zap.Logger) *Encounter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Encounter{
		sheets:      sheets,
		evaluator:   dice.NewLoggedEvaluator(logger),
		logger:      logger,
		actors:      make(map[string]*Actor),
		teams:       append([]string(nil), DefaultTeams...),
		surprised:   make(map[string]bool),
		parryUsed:   make(map[string]bool),
		roundDamage: make(map[string]int),
	}
}

// lockIdle takes the lock and fails if an action is in flight. The caller
// must unlock when err is nil.
func (e *Encounter) lockIdle() error {
	e.mu.Lock()
	if e.pending {
		e.mu.Unlock()
		return ErrActionPending
	}
	return nil
}

func (e *Encounter) record(format string, args ...any) {
	ev := Event{Round: e.round, Text: fmt.Sprintf(format, args...)}
	e.log = append(e.log, ev)
	e.logger.Info("combat", zap.Int("round", ev.Round), zap.String("event", ev.Text))
}

// Teams returns the team labels in creation order.
func (e *Encounter) Teams() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.teams...)
}

// AddTeam adds a new team label.
func (e *Encounter) AddTeam(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return rules.Validationf("team name must not be empty")
	}
	if err := e.lockIdle(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	for _, t := range e.teams {
		if strings.EqualFold(t, name) {
			return rules.Validationf("team %q already exists", name)
		}
	}
	e.teams = append(e.teams, name)
	return nil
}

func (e *Encounter) hasTeam(name string) bool {
	for _, t := range e.teams {
		if t == name {
			return true
		}
	}
	return false
}

// AddCombatants instantiates count actors of the character with sourceID on
// team. A single actor keeps the character's name while no other actor uses
// it; otherwise actors are numbered "Name #n", skipping numbers already in the
// encounter. Actors added after Start join the order at the next Start.
//
// Postcondition: actor names are unique within the encounter, ignoring case.
func (e *Encounter) AddCombatants(sourceID, team string, count int) ([]Actor, error) {
	if count < 1 {
		return nil, rules.Validationf("count must be at least 1, got %d", count)
	}
	sheet, err := e.sheets.Sheet(sourceID)
	if err != nil {
		return nil, err
	}
	if err := e.lockIdle(); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	if !e.hasTeam(team) {
		return nil, rules.Validationf("unknown team %q", team)
	}

	out := make([]Actor, 0, count)
	for _, name := range e.freeNames(sheet.Character.Name, count) {
		a := &Actor{
			InstanceID: uuid.NewString(),
			SourceID:   sourceID,
			Name:       name,
			Team:       team,
			Role:       sheet.Character.Role,
			CurrentHP:  sheet.HitPoints,
			MaxHP:      sheet.HitPoints,
		}
		e.actors[a.InstanceID] = a
		e.roster = append(e.roster, a.InstanceID)
		out = append(out, *a)
		e.record("%s joins %s (%d HP)", a.Name, a.Team, a.MaxHP)
	}
	return out, nil
}

// freeNames returns count actor names derived from base that no actor in the
// encounter uses yet. The caller must hold the lock.
func (e *Encounter) freeNames(base string, count int) []string {
	taken := make(map[string]bool, len(e.actors))
	for _, a := range e.actors {
		taken[strings.ToLower(a.Name)] = true
	}
	if count == 1 && !taken[strings.ToLower(base)] {
		return []string{base}
	}
	n := 1
	if count == 1 {
		// the bare name counts as #1
		n = 2
	}
	out := make([]string, 0, count)
	for ; len(out) < count; n++ {
		name := fmt.Sprintf("%s #%d", base, n)
		if taken[strings.ToLower(name)] {
			continue
		}
		out = append(out, name)
	}
	return out
}

// AssignTeam moves an actor to another existing team.
func (e *Encounter) AssignTeam(instanceID, team string) error {
	if err := e.lockIdle(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	a, ok := e.actors[instanceID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrActorNotFound, instanceID)
	}
	if !e.hasTeam(team) {
		return rules.Validationf("unknown team %q", team)
	}
	a.Team = team
	return nil
}

// Remove takes an actor out of the encounter. The turn stays with the same
// actor unless the removed actor was the current one; then it passes to the
// next eligible actor as with AdvanceTurn.
func (e *Encounter) Remove(instanceID string) error {
	if err := e.lockIdle(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	a, ok := e.actors[instanceID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrActorNotFound, instanceID)
	}
	delete(e.actors, instanceID)
	delete(e.surprised, instanceID)
	delete(e.parryUsed, instanceID)
	delete(e.roundDamage, instanceID)
	e.roster = without(e.roster, instanceID)

	for i, id := range e.order {
		if id != instanceID {
			continue
		}
		wasCurrent := e.started && i == e.turnIndex
		e.order = append(e.order[:i:i], e.order[i+1:]...)
		e.initiative = append(e.initiative[:i:i], e.initiative[i+1:]...)
		if i < e.turnIndex {
			e.turnIndex--
		}
		e.record("%s leaves the fight", a.Name)
		if wasCurrent {
			e.passTurn(i - 1)
		}
		return nil
	}
	e.record("%s leaves the fight", a.Name)
	return nil
}

// passTurn moves the turn to the first eligible actor after position from,
// which may be -1. The caller must hold the lock.
func (e *Encounter) passTurn(from int) {
	if len(e.order) == 0 {
		e.turnIndex = 0
		return
	}
	idx, round, newRound, skipped, ok := e.seek(e.order, from, e.round)
	if !ok {
		e.turnIndex = 0
		e.record("nobody can act any more")
		return
	}
	e.commitPosition(idx, round, newRound)
	e.turnChange(round, newRound, skipped)
}

func without(ids []string, id string) []string {
	out := ids[:0:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

// Actors returns copies of all actors in insertion order.
func (e *Encounter) Actors() []Actor {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Actor, 0, len(e.roster))
	for _, id := range e.roster {
		out = append(out, *e.actors[id])
	}
	return out
}

// Actor returns a copy of the actor with instanceID.
func (e *Encounter) Actor(instanceID string) (Actor, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.actors[instanceID]
	if !ok {
		return Actor{}, false
	}
	return *a, true
}

// SetSurprised replaces the set of surprised actors. Surprise only matters in round 1.
func (e *Encounter) SetSurprised(instanceIDs []string) error {
	if err := e.lockIdle(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	next := make(map[string]bool, len(instanceIDs))
	for _, id := range instanceIDs {
		if _, ok := e.actors[id]; !ok {
			return fmt.Errorf("%w: %s", ErrActorNotFound, id)
		}
		next[id] = true
	}
	e.surprised = next
	return nil
}

// IsSurprisedBlocked reports whether the actor loses its turn to surprise,
// which only happens in round 1.
func (e *Encounter) IsSurprisedBlocked(instanceID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.surprisedBlocked(instanceID, e.round)
}

func (e *Encounter) surprisedBlocked(instanceID string, round int) bool {
	return round == 1 && e.surprised[instanceID]
}

func (e *Encounter) skipReason(a *Actor, round int) SkipReason {
	switch {
	case a.Dead:
		return SkipDead
	case a.Unconscious:
		return SkipUnconscious
	case e.surprisedBlocked(a.InstanceID, round):
		return SkipSurprised
	default:
		return ""
	}
}

// Start computes the initiative order from one roll per actor and opens round 1
// on the first eligible actor.
//
// Precondition: rolls holds exactly one entry for every actor on the roster.
// Postcondition: on error the encounter is unchanged.
func (e *Encounter) Start(rolls []InitiativeRoll) (TurnChange, error) {
	if err := e.lockIdle(); err != nil {
		return TurnChange{}, err
	}
	defer e.mu.Unlock()

	if len(e.roster) == 0 {
		return TurnChange{}, rules.Validationf("no combatants in the encounter")
	}
	var p rules.Problems
	byID := make(map[string]InitiativeRoll, len(rolls))
	for _, r := range rolls {
		if _, ok := e.actors[r.InstanceID]; !ok {
			p.Addf("initiative for unknown actor %s", r.InstanceID)
			continue
		}
		if _, dup := byID[r.InstanceID]; dup {
			p.Addf("two initiative rolls for %s", e.actors[r.InstanceID].Name)
			continue
		}
		byID[r.InstanceID] = r
	}
	for _, id := range e.roster {
		if _, ok := byID[id]; !ok {
			p.Addf("missing initiative roll for %s", e.actors[id].Name)
		}
	}
	if err := p.Err(); err != nil {
		return TurnChange{}, err
	}

	entries := make([]InitiativeEntry, 0, len(e.roster))
	for _, id := range e.roster {
		a := e.actors[id]
		r := byID[id]
		rolled, err := dice.NormalizeInitiativeRoll(r.Rolled)
		if err != nil {
			return TurnChange{}, fmt.Errorf("initiative for %s: %w", a.Name, err)
		}
		sheet, err := e.sheets.Sheet(a.SourceID)
		if err != nil {
			return TurnChange{}, fmt.Errorf("initiative for %s: %w", a.Name, err)
		}
		entries = append(entries, InitiativeEntry{
			Actor:       *a,
			Rolled:      rolled,
			ActionScore: sheet.Derived.Categories[character.CategoryAction],
			Bonus:       r.Bonus,
		})
	}
	SortInitiative(entries)

	order := make([]string, len(entries))
	for i, en := range entries {
		order[i] = en.Actor.InstanceID
	}
	idx, round, newRound, skipped, ok := e.seek(order, -1, 1)
	if !ok {
		return TurnChange{}, ErrNoEligibleActor
	}

	e.order = order
	e.initiative = entries
	e.started = true
	e.round = 1
	e.parryUsed = make(map[string]bool)
	e.roundDamage = make(map[string]int)
	e.commitPosition(idx, round, newRound)

	for i, en := range entries {
		e.record("initiative %d. %s: %d (roll %d + action %d %+d)", i+1, en.Actor.Name, en.Total(), en.Rolled, en.ActionScore, en.Bonus)
	}
	return e.turnChange(round, newRound, skipped), nil
}

// seek walks forward from idx until it lands on an eligible actor. Wrapping
// past the end starts a new round. It inspects at most 2*len(order) slots.
func (e *Encounter) seek(order []string, idx, round int) (int, int, bool, []Skip, bool) {
	var skipped []Skip
	newRound := false
	for i := 0; i < 2*len(order); i++ {
		idx++
		if idx >= len(order) {
			idx = 0
			round++
			newRound = true
		}
		a := e.actors[order[idx]]
		if reason := e.skipReason(a, round); reason != "" {
			skipped = append(skipped, Skip{Actor: *a, Reason: reason})
			continue
		}
		return idx, round, newRound, skipped, true
	}
	return 0, 0, false, skipped, false
}

func (e *Encounter) commitPosition(idx, round int, newRound bool) {
	if newRound && round != e.round {
		e.parryUsed = make(map[string]bool)
		e.roundDamage = make(map[string]int)
		e.record("round %d begins", round)
	}
	e.turnIndex = idx
	e.round = round
}

func (e *Encounter) turnChange(round int, newRound bool, skipped []Skip) TurnChange {
	for _, s := range skipped {
		e.record("%s is %s and skips the turn", s.Actor.Name, s.Reason)
	}
	cur := *e.actors[e.order[e.turnIndex]]
	e.record("%s's turn", cur.Name)
	return TurnChange{Actor: cur, Round: round, NewRound: newRound && round > 1, Skipped: skipped}
}

// AdvanceTurn moves to the next eligible actor, starting a new round when the
// order wraps. Dead, unconscious and round-1 surprised actors are skipped.
//
// Postcondition: on ErrNoEligibleActor the position and round are unchanged.
func (e *Encounter) AdvanceTurn() (TurnChange, error) {
	if err := e.lockIdle(); err != nil {
		return TurnChange{}, err
	}
	defer e.mu.Unlock()
	if !e.started || len(e.order) == 0 {
		return TurnChange{}, ErrNotStarted
	}
	idx, round, newRound, skipped, ok := e.seek(e.order, e.turnIndex, e.round)
	if !ok {
		e.record("nobody can act any more")
		return TurnChange{}, ErrNoEligibleActor
	}
	e.commitPosition(idx, round, newRound)
	return e.turnChange(round, newRound, skipped), nil
}

// ResetRound clears parries and round damage and moves the turn back to the
// first eligible actor of the order. The round number is kept.
//
// Postcondition: per-round state is cleared even when ErrNoEligibleActor is returned.
func (e *Encounter) ResetRound() (TurnChange, error) {
	if err := e.lockIdle(); err != nil {
		return TurnChange{}, err
	}
	defer e.mu.Unlock()
	if !e.started || len(e.order) == 0 {
		return TurnChange{}, ErrNotStarted
	}
	e.parryUsed = make(map[string]bool)
	e.roundDamage = make(map[string]int)
	e.turnIndex = 0
	e.record("round %d reset", e.round)

	first := e.actors[e.order[0]]
	if e.skipReason(first, e.round) == "" {
		return e.turnChange(e.round, false, nil), nil
	}
	idx, round, newRound, skipped, ok := e.seek(e.order, 0, e.round)
	if !ok {
		return TurnChange{}, ErrNoEligibleActor
	}
	skipped = append([]Skip{{Actor: *first, Reason: e.skipReason(first, e.round)}}, skipped...)
	e.commitPosition(idx, round, newRound)
	return e.turnChange(round, newRound, skipped), nil
}

// Current returns the actor whose turn it is.
func (e *Encounter) Current() (Actor, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started || len(e.order) == 0 {
		return Actor{}, false
	}
	return *e.actors[e.order[e.turnIndex]], true
}

// Round returns the current round number; 0 before Start.
func (e *Encounter) Round() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.round
}

// Started reports whether an initiative order exists.
func (e *Encounter) Started() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started
}

// Order returns the actors in initiative order.
func (e *Encounter) Order() []Actor {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Actor, len(e.order))
	for i, id := range e.order {
		out[i] = *e.actors[id]
	}
	return out
}

// Initiative returns the initiative entries with current actor state.
func (e *Encounter) Initiative() []InitiativeEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]InitiativeEntry, len(e.initiative))
	for i, en := range e.initiative {
		en.Actor = *e.actors[en.Actor.InstanceID]
		out[i] = en
	}
	return out
}

// CanParry reports whether the defender still has its parry this round.
func (e *Encounter) CanParry(instanceID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.parryUsed[instanceID]
}

// RoundDamage returns the damage taken by the actor this round.
func (e *Encounter) RoundDamage(instanceID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roundDamage[instanceID]
}

// ApplyDamage deals total damage to the target. Negative totals count as 0.
// Round damage is accumulated before the incapacitation check.
func (e *Encounter) ApplyDamage(instanceID string, total int) (DamageReport, error) {
	if err := e.lockIdle(); err != nil {
		return DamageReport{}, err
	}
	defer e.mu.Unlock()
	return e.applyDamage(instanceID, total)
}

func (e *Encounter) applyDamage(instanceID string, total int) (DamageReport, error) {
	a, ok := e.actors[instanceID]
	if !ok {
		return DamageReport{}, fmt.Errorf("%w: %s", ErrActorNotFound, instanceID)
	}
	total = max(0, total)
	e.roundDamage[instanceID] += total
	rep := applyDamage(a, total, e.roundDamage[instanceID])
	e.record("%s takes %d damage (%d/%d HP, %d this round)", a.Name, total, a.CurrentHP, a.MaxHP, rep.RoundDamage)
	if rep.BecameDead {
		e.record("%s is dead", a.Name)
	} else if rep.BecameUnconscious {
		e.record("%s is unconscious", a.Name)
	}
	return rep, nil
}

// AdjustHP corrects an actor's hit points by delta within [0, MaxHP]. It does
// not change status flags.
func (e *Encounter) AdjustHP(instanceID string, delta int) (Actor, error) {
	if err := e.lockIdle(); err != nil {
		return Actor{}, err
	}
	defer e.mu.Unlock()
	a, ok := e.actors[instanceID]
	if !ok {
		return Actor{}, fmt.Errorf("%w: %s", ErrActorNotFound, instanceID)
	}
	a.CurrentHP = rules.Clamp(a.CurrentHP+delta, 0, a.MaxHP)
	e.record("%s HP adjusted by %+d to %d/%d", a.Name, delta, a.CurrentHP, a.MaxHP)
	return *a, nil
}

// Log returns the combat narrative so far.
func (e *Encounter) Log() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Event(nil), e.log...)
}
