package console

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htbah/campaign-manager/internal/config"
	"github.com/htbah/campaign-manager/internal/game/character"
	"github.com/htbah/campaign-manager/internal/game/combat"
	"github.com/htbah/campaign-manager/internal/game/command"
	"github.com/htbah/campaign-manager/internal/game/condition"
	"github.com/htbah/campaign-manager/internal/game/dice"
	"github.com/htbah/campaign-manager/internal/game/inventory"
	"github.com/htbah/campaign-manager/internal/game/rules"
	"github.com/htbah/campaign-manager/internal/storage"
	"github.com/htbah/campaign-manager/internal/storage/jsonfile"
)

// memStore is an in-memory character store.
type memStore struct {
	mu    sync.Mutex
	chars map[string]character.Persisted
	saves int
}

func (m *memStore) LoadCharacters(context.Context) ([]character.Persisted, []*rules.DataIntegrityWarning, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]character.Persisted, 0, len(m.chars))
	for _, p := range m.chars {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Character.Name < out[j].Character.Name })
	return out, nil, nil
}

func (m *memStore) SaveCharacter(_ context.Context, p character.Persisted) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chars[p.Character.ID] = p
	m.saves++
	return nil
}

func (m *memStore) DeleteCharacter(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chars, id)
	return nil
}

func fighter(name string, role character.Role, hp int) *character.Character {
	c := character.New(name, role)
	c.Profile.Age = 30
	c.HitPoints = hp
	c.Skills[character.CategoryAction]["Nahkampf"] = 60
	c.Skills[character.CategoryAction]["Ausweichen"] = 40
	return c
}

type harness struct {
	s     *Session
	store *memStore
	out   *bytes.Buffer
	hero  *character.Character
}

// newHarness loads Alrik (PC, 50 HP) and Ork (NPC, 40 HP), both with
// Nahkampf 70 effective, plus a condition and item library. input feeds
// every prompt.
func newHarness(t *testing.T, input string) *harness {
	t.Helper()
	conds := condition.NewLibrary(nil, nil)
	require.NoError(t, conds.Put(&condition.Definition{
		ID: "arm", Name: "Gebrochener Arm",
		EffectType: condition.EffectMissionWide, Target: condition.Skill("Nahkampf"), Value: -20,
	}))
	require.NoError(t, conds.Put(&condition.Definition{
		ID: "mut", Name: "Mut",
		EffectType: condition.EffectMissionWide, Target: condition.Skill("Nahkampf"), Value: 10,
	}))
	items := inventory.NewLibrary(nil, nil)
	require.NoError(t, items.Put(&inventory.Item{
		ID: "schwert", Name: "Schwert", IsWeapon: true, DamageFormula: "2W10+5", LinkedConditions: []string{"mut"},
	}))

	hero := fighter("Alrik", character.RolePC, 50)
	orc := fighter("Ork", character.RoleNPC, 40)
	store := &memStore{chars: map[string]character.Persisted{
		hero.ID: {Character: hero},
		orc.ID:  {Character: orc},
	}}
	out := &bytes.Buffer{}
	s, err := NewSession(Deps{
		Registry:   command.DefaultRegistry(),
		Roster:     character.NewRoster(conds, nil),
		Conditions: conds,
		Items:      items,
		Store:      store,
		In:         strings.NewReader(input),
		Out:        out,
		Config:     config.ConsoleConfig{Prompt: "> "},
	})
	require.NoError(t, err)
	require.NoError(t, s.Load(context.Background()))
	return &harness{s: s, store: store, out: out, hero: hero}
}

func (h *harness) exec(t *testing.T, line string) {
	t.Helper()
	require.NoError(t, h.s.Execute(context.Background(), line))
}

func (h *harness) sheet(t *testing.T) *character.Sheet {
	t.Helper()
	sh, err := h.s.roster.Sheet(h.hero.ID)
	require.NoError(t, err)
	return sh
}

func TestNewSession_MissingHandler(t *testing.T) {
	reg, err := command.NewRegistry([]command.Command{{Name: "dance", Handler: "dance"}})
	require.NoError(t, err)
	_, err = NewSession(Deps{Registry: reg, Out: &bytes.Buffer{}, In: strings.NewReader("")})
	assert.ErrorContains(t, err, "no handler")
}

func TestExecute_UnknownCommandSuggests(t *testing.T) {
	h := newHarness(t, "")
	err := h.s.Execute(context.Background(), "sheat Alrik")
	require.ErrorIs(t, err, ErrUnknownCommand)
	assert.Contains(t, err.Error(), `"sheet"`)
}

func TestExecute_EmptyLineIsNoop(t *testing.T) {
	h := newHarness(t, "")
	assert.NoError(t, h.s.Execute(context.Background(), "   "))
}

func TestExecute_Busy(t *testing.T) {
	h := newHarness(t, "")
	h.s.busy.Lock()
	defer h.s.busy.Unlock()
	assert.ErrorIs(t, h.s.Execute(context.Background(), "chars"), ErrBusy)
}

func TestChars(t *testing.T) {
	h := newHarness(t, "")
	h.exec(t, "chars")
	out := h.out.String()
	assert.Contains(t, out, "Alrik")
	assert.Contains(t, out, "Ork")
	assert.Less(t, strings.Index(out, "Alrik"), strings.Index(out, "Ork"))
}

func TestSheet_FuzzyName(t *testing.T) {
	h := newHarness(t, "")
	h.exec(t, "sheet alr")
	out := h.out.String()
	assert.Contains(t, out, "Alrik (pc)")
	assert.Contains(t, out, "Nahkampf")
	assert.Contains(t, out, "300 remaining")
}

func TestSheet_UnknownCharacter(t *testing.T) {
	h := newHarness(t, "")
	err := h.s.Execute(context.Background(), "sheet Alrk")
	require.ErrorIs(t, err, character.ErrNotFound)
	assert.Contains(t, err.Error(), `did you mean "Alrik"`)
}

func TestCheck(t *testing.T) {
	h := newHarness(t, "")
	h.exec(t, "check Alrik Nahkampf 12 +5")
	assert.Contains(t, h.out.String(), "Nahkampf (Handeln) 70 +5 = 75, rolled 12: success")
}

func TestCheck_InvalidRoll(t *testing.T) {
	h := newHarness(t, "")
	err := h.s.Execute(context.Background(), "check Alrik Nahkampf 101")
	assert.ErrorIs(t, err, dice.ErrInvalidRoll)
}

func TestCheck_Usage(t *testing.T) {
	h := newHarness(t, "")
	err := h.s.Execute(context.Background(), "check Alrik")
	require.ErrorIs(t, err, rules.ErrValidation)
	assert.Contains(t, err.Error(), "usage: check")
}

func TestSkill_SetAddRemove(t *testing.T) {
	h := newHarness(t, "")
	h.exec(t, "skill set Alrik nahk 80")
	v, _ := h.hero.Skills.Value("Nahkampf")
	assert.Equal(t, 80, v)

	h.exec(t, `skill add Alrik wissen "Erste Hilfe" 30`)
	cat, ok := h.hero.Skills.CategoryOf("Erste Hilfe")
	require.True(t, ok)
	assert.Equal(t, character.CategoryKnowledge, cat)

	h.exec(t, `skill remove Alrik "Erste Hilfe"`)
	_, ok = h.hero.Skills.Value("Erste Hilfe")
	assert.False(t, ok)
	assert.Contains(t, h.out.String(), "280 of 400 points left")
}

func TestSkill_BudgetRejectedWithoutChange(t *testing.T) {
	h := newHarness(t, "")
	h.exec(t, "skill add Alrik Wissen Geschichte 100")
	h.exec(t, "skill add Alrik Wissen Magie 100")
	h.exec(t, "skill add Alrik Soziales Reden 100")
	err := h.s.Execute(context.Background(), "skill add Alrik Soziales Lügen 1")
	require.ErrorIs(t, err, rules.ErrValidation)
	_, ok := h.hero.Skills.Value("Lügen")
	assert.False(t, ok)
	assert.Equal(t, rules.SkillPointPool, h.hero.Skills.Total())
}

func TestCond_AddAndRemove(t *testing.T) {
	h := newHarness(t, "")
	h.exec(t, "cond add Alrik gebrochen")
	assert.Equal(t, 50, h.sheet(t).Effective.Skills["Nahkampf"])

	h.exec(t, `cond remove Alrik "Gebrochener Arm"`)
	assert.Equal(t, 70, h.sheet(t).Effective.Skills["Nahkampf"])
	assert.Contains(t, h.out.String(), "no longer has Gebrochener Arm")

	err := h.s.Execute(context.Background(), "cond add Alrik Pest")
	assert.ErrorIs(t, err, condition.ErrNotFound)
}

func TestEquipAndUnequip(t *testing.T) {
	h := newHarness(t, "")
	h.exec(t, "equip Alrik schw")
	assert.Equal(t, 80, h.sheet(t).Effective.Skills["Nahkampf"])
	assert.True(t, h.s.roster.Ledger().IsActive(h.hero.ID, "mut"))

	h.exec(t, "cond add Alrik Mut")
	h.exec(t, "unequip Alrik Schwert")
	assert.True(t, h.s.roster.Ledger().IsActive(h.hero.ID, "mut"), "manual activation survives")
	h.exec(t, "cond remove Alrik Mut")
	assert.False(t, h.s.roster.Ledger().IsActive(h.hero.ID, "mut"))
}

func TestSave_ClearsDirtyAndRejectsInvalid(t *testing.T) {
	h := newHarness(t, "")
	h.exec(t, "cond add Alrik Mut")
	assert.Equal(t, []string{"Alrik"}, h.s.dirtyNames())

	h.exec(t, "save Alrik")
	assert.Empty(t, h.s.dirtyNames())
	saved := h.store.chars[h.hero.ID]
	assert.Equal(t, []string{"mut"}, saved.Manual)

	h.hero.Profile.Age = 0
	err := h.s.Execute(context.Background(), "save")
	require.ErrorIs(t, err, rules.ErrValidation)
	assert.Contains(t, err.Error(), "Alrik not saved")
	assert.Contains(t, h.out.String(), "saved 1 character(s)")
}

func TestLoad_UnreadableLibraryIsAWarning(t *testing.T) {
	ctx := context.Background()
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/campaign/conditions.json", []byte("{not json"), 0o644))
	store := jsonfile.New(fsys, config.StorageConfig{
		Driver:         config.DriverJSON,
		DataDir:        "/campaign",
		CharactersDir:  "characters",
		ConditionsFile: "conditions.json",
		ItemsFile:      "items.json",
	}, nil)
	hero := fighter("Alrik", character.RolePC, 50)
	require.NoError(t, store.SaveCharacter(ctx, character.Persisted{Character: hero}))

	conds := condition.NewLibrary(store, nil)
	out := &bytes.Buffer{}
	s, err := NewSession(Deps{
		Registry:   command.DefaultRegistry(),
		Roster:     character.NewRoster(conds, nil),
		Conditions: conds,
		Items:      inventory.NewLibrary(store, nil),
		Store:      store,
		In:         strings.NewReader(""),
		Out:        out,
		Config:     config.ConsoleConfig{Prompt: "> "},
	})
	require.NoError(t, err)

	require.NoError(t, s.Load(ctx))
	assert.Contains(t, out.String(), "warning: data integrity: conditions.json")
	assert.Len(t, s.roster.List(), 1)

	err = s.Execute(ctx, "save")
	require.ErrorIs(t, err, storage.ErrDegraded)
	assert.Contains(t, out.String(), "saved 1 character(s)")
	data, err := afero.ReadFile(fsys, "/campaign/conditions.json")
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))
}

func TestReload_RefusesUnsavedChanges(t *testing.T) {
	h := newHarness(t, "")
	h.exec(t, "cond add Alrik Mut")
	err := h.s.Execute(context.Background(), "reload")
	require.ErrorIs(t, err, rules.ErrValidation)
	assert.Contains(t, err.Error(), "Alrik")

	h.exec(t, "reload force")
	assert.Empty(t, h.s.dirtyNames())
	assert.Contains(t, h.out.String(), "loaded 2 character(s)")
}

func TestQuit(t *testing.T) {
	h := newHarness(t, "n\ny\n")
	assert.ErrorIs(t, h.s.Execute(context.Background(), "quit"), ErrQuit)

	h.exec(t, "cond add Alrik Mut")
	assert.NoError(t, h.s.Execute(context.Background(), "quit"))
	assert.ErrorIs(t, h.s.Execute(context.Background(), "quit"), ErrQuit)
}

func TestHelp(t *testing.T) {
	h := newHarness(t, "")
	h.exec(t, "help")
	out := h.out.String()
	assert.Contains(t, out, "combat:")
	assert.Contains(t, out, "fight add|remove")

	h.exec(t, "help kampf")
	assert.Contains(t, h.out.String(), "aliases: f, kampf")
}

func TestLibrary(t *testing.T) {
	h := newHarness(t, "")
	h.exec(t, "library conditions")
	h.exec(t, "lib items")
	out := h.out.String()
	assert.Contains(t, out, "Gebrochener Arm")
	assert.Contains(t, out, "Schwert [weapon 2W10+5]")
}

func TestRun_ReadsUntilQuit(t *testing.T) {
	h := newHarness(t, "chars\nbogus\nquit\nsheet Alrik\n")
	require.NoError(t, h.s.Run(context.Background()))
	out := h.out.String()
	assert.Contains(t, out, "error: unknown command")
	assert.NotContains(t, out, "Alrik (pc)")
}

func TestRun_EndOfInput(t *testing.T) {
	h := newHarness(t, "chars\n")
	assert.NoError(t, h.s.Run(context.Background()))
}

func TestStartStop(t *testing.T) {
	h := newHarness(t, "")
	done := make(chan error, 1)
	go func() { done <- h.s.Start() }()
	require.NoError(t, <-done)
	h.s.Stop()
}

func TestReport(t *testing.T) {
	h := newHarness(t, "")
	h.s.report(combat.ErrCancelled)
	h.s.report(rules.NewValidationError("first", "second"))
	h.s.report(errors.New("boom"))
	out := h.out.String()
	assert.Contains(t, out, "cancelled, nothing changed")
	assert.Contains(t, out, "  - second")
	assert.Contains(t, out, "error: boom")
}
