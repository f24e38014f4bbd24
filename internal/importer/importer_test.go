package importer_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/htbah/campaign-manager/internal/config"
	"github.com/htbah/campaign-manager/internal/game/character"
	"github.com/htbah/campaign-manager/internal/game/condition"
	"github.com/htbah/campaign-manager/internal/importer"
	"github.com/htbah/campaign-manager/internal/storage"
	"github.com/htbah/campaign-manager/internal/storage/jsonfile"
)

func memBackend(dataDir string) *jsonfile.Store {
	return jsonfile.New(afero.NewMemMapFs(), config.StorageConfig{
		Driver:         config.DriverJSON,
		DataDir:        dataDir,
		CharactersDir:  "characters",
		ConditionsFile: "conditions.json",
		ItemsFile:      "items.json",
	}, nil)
}

func writeSeeds(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	conds := filepath.Join(root, "conditions")
	items := filepath.Join(root, "items")
	require.NoError(t, os.MkdirAll(conds, 0o755))
	require.NoError(t, os.MkdirAll(items, 0o755))
	write := func(path, s string) {
		require.NoError(t, os.WriteFile(path, []byte(s), 0o644))
	}
	write(filepath.Join(conds, "mut.yaml"), `
id: mut
name: Mut
description: Furchtlos.
effect_type: missionsweit
effect_target: "Skill: Nahkampf"
effect_value: 10
`)
	write(filepath.Join(items, "schwert.yaml"), `
id: schwert
name: Schwert
is_weapon: true
damage_formula: 2W10+5
linked_conditions: [mut, fehlt]
`)
	return conds, items
}

func TestImporter_YAMLSeeds(t *testing.T) {
	condDir, itemDir := writeSeeds(t)
	target := memBackend("/campaign")
	imp := importer.New(importer.YAMLSource{ConditionsDir: condDir, ItemsDir: itemDir}, target, nil)

	sum, err := imp.Run(context.Background(), importer.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Conditions)
	assert.Equal(t, 1, sum.Items)
	require.Len(t, sum.Warnings, 1)
	assert.Contains(t, sum.Warnings[0].Detail, "fehlt")

	defs, err := target.LoadConditions(context.Background())
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, condition.Skill("Nahkampf"), defs[0].Target)
	items, err := target.LoadItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "2W10+5", items[0].DamageFormula)
}

func TestImporter_KeepExistingAndDryRun(t *testing.T) {
	condDir, itemDir := writeSeeds(t)
	target := memBackend("/campaign")
	require.NoError(t, target.SaveConditions(context.Background(), []*condition.Definition{{ID: "mut", Name: "Alter Mut"}}))
	src := importer.YAMLSource{ConditionsDir: condDir, ItemsDir: itemDir}

	sum, err := importer.New(src, target, nil).Run(context.Background(), importer.Options{KeepExisting: true})
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Conditions)
	assert.Equal(t, 1, sum.Skipped)
	defs, err := target.LoadConditions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Alter Mut", defs[0].Name)

	fresh := memBackend("/other")
	sum, err = importer.New(src, fresh, nil).Run(context.Background(), importer.Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Conditions)
	defs, err = fresh.LoadConditions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestImporter_BackendSourceCopiesCharacters(t *testing.T) {
	src := memBackend("/old")
	good := character.New("Alrik", character.RolePC)
	good.Profile.Age = 30
	good.HitPoints = 50
	bad := character.New("Ohne Alter", character.RoleNPC)
	bad.HitPoints = 20
	for _, c := range []*character.Character{good, bad} {
		require.NoError(t, src.SaveCharacter(context.Background(), character.Persisted{Character: c, Manual: []string{}}))
	}

	target := memBackend("/new")
	sum, err := importer.New(importer.BackendSource{Backend: src}, target, nil).Run(context.Background(), importer.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Characters)
	assert.Equal(t, 1, sum.Skipped)

	chars, _, err := target.LoadCharacters(context.Background())
	require.NoError(t, err)
	require.Len(t, chars, 1)
	assert.Equal(t, good.ID, chars[0].Character.ID)
}

func TestImporter_BackendSourceRefusesUnreadableLibrary(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/src/items.json", []byte("{not json"), 0o644))
	src := jsonfile.New(fsys, config.StorageConfig{
		Driver:         config.DriverJSON,
		DataDir:        "/src",
		CharactersDir:  "characters",
		ConditionsFile: "conditions.json",
		ItemsFile:      "items.json",
	}, nil)
	target := memBackend("/dst")

	_, err := importer.New(importer.BackendSource{Backend: src}, target, nil).Run(context.Background(), importer.Options{})
	assert.ErrorIs(t, err, storage.ErrDegraded)
}

func TestImporter_InvalidSourceDir(t *testing.T) {
	imp := importer.New(importer.YAMLSource{ConditionsDir: "/nonexistent/dir"}, memBackend("/x"), nil)
	_, err := imp.Run(context.Background(), importer.Options{})
	require.Error(t, err)
}

// Importing N distinct condition seeds yields N library entries.
func TestImporter_NSeedsProduceNConditions(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(rt, "numSeeds")
		dir := t.TempDir()
		for i := 0; i < n; i++ {
			seed := fmt.Sprintf("id: c%d\nname: Zustand %d\n", i, i)
			if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("c%d.yaml", i)), []byte(seed), 0o644); err != nil {
				rt.Fatal(err)
			}
		}
		target := memBackend("/campaign")
		sum, err := importer.New(importer.YAMLSource{ConditionsDir: dir}, target, nil).Run(context.Background(), importer.Options{})
		if err != nil {
			rt.Fatal(err)
		}
		defs, err := target.LoadConditions(context.Background())
		if err != nil {
			rt.Fatal(err)
		}
		assert.Equal(rt, n, sum.Conditions)
		assert.Len(rt, defs, n)
	})
}
