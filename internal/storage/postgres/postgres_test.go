package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/htbah/campaign-manager/internal/game/character"
	"github.com/htbah/campaign-manager/internal/game/condition"
	"github.com/htbah/campaign-manager/internal/game/inventory"
	"github.com/htbah/campaign-manager/internal/storage"
	"github.com/htbah/campaign-manager/internal/storage/postgres"
	"github.com/htbah/campaign-manager/internal/testutil"
)

func setupStore(t *testing.T) (*postgres.Store, *postgres.Pool) {
	t.Helper()
	pool := testutil.NewPool(t)
	return postgres.NewStore(pool, nil), pool
}

func makeTestCharacter(name string) character.Persisted {
	c := character.New(name, character.RoleNPC)
	c.Profile.Age = 25
	c.HitPoints = 40
	c.Skills[character.CategoryAction]["Nahkampf"] = 50
	c.Items = []*inventory.Item{{ID: "i-club", Name: "Keule", IsWeapon: true, DamageFormula: "1W10", LinkedConditions: []string{"c-rage"}}}
	return character.Persisted{
		Character: c,
		Conditions: []*condition.Definition{
			{ID: "c-rage", Name: "Wut", EffectType: condition.EffectMissionWide, Target: condition.Skill("Nahkampf"), Value: 5},
		},
		Manual: []string{},
	}
}

func TestPool_Health(t *testing.T) {
	_, pool := setupStore(t)
	assert.NoError(t, pool.Health(context.Background(), 2*time.Second))
}

func TestPool_CheckSchema(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in -short mode")
	}
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(t)
	err := pc.Pool.CheckSchema(ctx)
	require.ErrorIs(t, err, postgres.ErrSchemaMissing)
	assert.Contains(t, err.Error(), "characters")

	pc.ApplyMigrations(t)
	assert.NoError(t, pc.Pool.CheckSchema(ctx))

	var app string
	require.NoError(t, pc.RawPool.QueryRow(ctx, `SELECT current_setting('application_name')`).Scan(&app))
	assert.Equal(t, postgres.ApplicationName, app)
}

func TestCharacterRepository_SaveAndLoad(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	p := makeTestCharacter("Ork")
	require.NoError(t, store.SaveCharacter(ctx, p))

	loaded, warns, err := store.LoadCharacters(ctx)
	require.NoError(t, err)
	assert.Empty(t, warns)
	require.Len(t, loaded, 1)
	got := loaded[0]
	assert.Equal(t, p.Character.ID, got.Character.ID)
	assert.Equal(t, "Ork", got.Character.Name)
	assert.Equal(t, character.RoleNPC, got.Character.Role)
	assert.Equal(t, 50, got.Character.Skills[character.CategoryAction]["Nahkampf"])
	require.Len(t, got.Character.Items, 1)
	assert.Equal(t, "Keule", got.Character.Items[0].Name)
	require.Len(t, got.Conditions, 1)
	assert.Equal(t, condition.Skill("Nahkampf"), got.Conditions[0].Target)
	assert.NotNil(t, got.Manual)
}

func TestCharacterRepository_SaveIsUpsert(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	p := makeTestCharacter("Goblin")
	require.NoError(t, store.SaveCharacter(ctx, p))
	p.Character.HitPoints = 12
	p.Character.Name = "Goblin-Häuptling"
	require.NoError(t, store.SaveCharacter(ctx, p))

	loaded, _, err := store.LoadCharacters(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, 12, loaded[0].Character.HitPoints)
	assert.Equal(t, "Goblin-Häuptling", loaded[0].Character.Name)
}

func TestCharacterRepository_Delete(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	p := makeTestCharacter("Zara")
	require.NoError(t, store.SaveCharacter(ctx, p))
	require.NoError(t, store.DeleteCharacter(ctx, p.Character.ID))
	assert.ErrorIs(t, store.DeleteCharacter(ctx, p.Character.ID), storage.ErrCharacterNotFound)
}

func TestCharacterRepository_MalformedDocumentSkipped(t *testing.T) {
	store, pool := setupStore(t)
	ctx := context.Background()

	_, err := pool.DB().Exec(ctx, `INSERT INTO characters (id, name, document) VALUES ('bad', 'Kaputt', '["x"]')`)
	require.NoError(t, err)
	require.NoError(t, store.SaveCharacter(ctx, makeTestCharacter("Heil")))

	loaded, warns, err := store.LoadCharacters(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Len(t, warns, 1)
	assert.Equal(t, "bad", warns[0].Subject)
}

func TestLibraryRepository_ReplaceAll(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	conds := condition.NewLibrary(store, nil)
	require.NoError(t, conds.Put(&condition.Definition{ID: "c-1", Name: "Mutig", EffectType: condition.EffectMissionWide, Target: condition.Category("Soziales"), Value: 3}))
	require.NoError(t, conds.Put(&condition.Definition{ID: "c-2", Name: "Vergiftet", EffectType: condition.EffectRoundBased, Target: condition.HitPoints(), Value: -1}))
	require.NoError(t, conds.Flush(ctx))
	require.NoError(t, conds.Delete("c-2"))
	require.NoError(t, conds.Flush(ctx))

	reloaded := condition.NewLibrary(store, nil)
	require.NoError(t, reloaded.Reload(ctx))
	assert.Equal(t, 1, reloaded.Len())
	got, ok := reloaded.Get("c-1")
	require.True(t, ok)
	assert.Equal(t, condition.Category("Soziales"), got.Target)

	items := inventory.NewLibrary(store, nil)
	require.NoError(t, items.Put(&inventory.Item{ID: "i-1", Name: "Fackel", Attributes: map[string]string{"Brenndauer": "1h"}}))
	require.NoError(t, items.Flush(ctx))
	reloadedItems := inventory.NewLibrary(store, nil)
	require.NoError(t, reloadedItems.Reload(ctx))
	assert.Equal(t, []string{"Fackel"}, reloadedItems.Names())
}

func TestLibraryRepository_EmptyFlush(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveItems(ctx, nil))
	items, err := store.LoadItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestProperty_CharacterHitPointsPersist(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()
	rapid.Check(t, func(rt *rapid.T) {
		hp := rapid.IntRange(character.MinHitPoints, character.MaxHitPoints).Draw(rt, "hp")
		p := makeTestCharacter("Probe")
		p.Character.HitPoints = hp
		if err := store.SaveCharacter(ctx, p); err != nil {
			rt.Fatalf("save: %v", err)
		}
		loaded, _, err := store.LoadCharacters(ctx)
		if err != nil {
			rt.Fatalf("load: %v", err)
		}
		found := false
		for _, l := range loaded {
			if l.Character.ID == p.Character.ID {
				found = true
				if l.Character.HitPoints != hp {
					rt.Fatalf("hit points %d persisted as %d", hp, l.Character.HitPoints)
				}
			}
		}
		if !found {
			rt.Fatalf("character %s not found", p.Character.ID)
		}
	})
}
