package storage_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/htbah/campaign-manager/internal/game/character"
	"github.com/htbah/campaign-manager/internal/game/condition"
	"github.com/htbah/campaign-manager/internal/storage"
)

func TestSoftInt(t *testing.T) {
	cases := map[string]int{
		`12`:     12,
		`"12"`:   12,
		`12.5`:   12,
		`"x"`:    0,
		`null`:   0,
		`true`:   0,
		`-3`:     -3,
		`" 7 "`:  7,
		`[1, 2]`: 0,
	}
	for in, want := range cases {
		var s storage.SoftInt
		require.NoError(t, json.Unmarshal([]byte(in), &s), in)
		assert.Equal(t, want, int(s), in)
	}
}

func TestConditionRecord(t *testing.T) {
	def, w := storage.ConditionRecord{ID: "0123456789", EffectType: "rundenbasiert", EffectTarget: "Lebenspunkte", EffectValue: -3}.Definition()
	require.Nil(t, w)
	assert.Equal(t, "Zustand 01234567", def.Name)
	assert.Equal(t, condition.EffectRoundBased, def.EffectType)
	assert.Equal(t, condition.HitPoints(), def.Target)

	_, w = storage.ConditionRecord{Name: "ohne id"}.Definition()
	require.NotNil(t, w)
	assert.Equal(t, "ohne id", w.Subject)
}

func TestDecodeCharacter_Malformed(t *testing.T) {
	_, _, err := storage.DecodeCharacter([]byte(`["not", "an", "object"]`))
	assert.ErrorIs(t, err, storage.ErrMalformed)
}

func TestDecodeCharacter_MissingIDAssigned(t *testing.T) {
	p, warns, err := storage.DecodeCharacter([]byte(`{"name": "Namenlos", "role": "pc"}`))
	require.NoError(t, err)
	assert.NotEmpty(t, p.Character.ID)
	require.Len(t, warns, 1)
	assert.True(t, p.Character.Skills.HasCategory(character.CategorySocial))
}

func TestCharacterRecord_SkillsSurviveEncoding(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := character.New("Probe", character.RolePC)
		for _, cat := range character.DefaultCategories {
			n := rapid.IntRange(0, 3).Draw(t, "n")
			for i := 0; i < n; i++ {
				name := rapid.StringMatching(`[A-Z][a-z]{2,8}`).Draw(t, "skill")
				if _, taken := c.Skills.CategoryOf(name); taken {
					continue
				}
				c.Skills[cat][name] = rapid.IntRange(0, 100).Draw(t, "value")
			}
		}
		data, err := storage.EncodeCharacter(character.Persisted{Character: c})
		if err != nil {
			t.Fatal(err)
		}
		p, _, err := storage.DecodeCharacter(data)
		if err != nil {
			t.Fatal(err)
		}
		if !assert.ObjectsAreEqual(c.Skills, p.Character.Skills) {
			t.Fatalf("skills changed: %v -> %v", c.Skills, p.Character.Skills)
		}
		if p.Manual == nil {
			t.Fatal("manual list must survive as empty, not absent")
		}
	})
}

func TestCharacterRecord_SameNamedConditionsBothPersist(t *testing.T) {
	c := character.New("Alrik", character.RolePC)
	c.Profile.Age = 30
	p := character.Persisted{
		Character: c,
		Conditions: []*condition.Definition{
			{ID: "c-a", Name: "Vergiftet", EffectType: condition.EffectMissionWide, Target: condition.HitPoints(), Value: -5},
			{ID: "c-b", Name: "Vergiftet", EffectType: condition.EffectMissionWide, Target: condition.HitPoints(), Value: -10},
		},
		Manual: []string{"c-a", "c-b"},
	}
	rec := storage.NewCharacterRecord(p)
	assert.Len(t, rec.Conditions, 2)

	data, err := storage.EncodeCharacter(p)
	require.NoError(t, err)
	got, warns, err := storage.DecodeCharacter(data)
	require.NoError(t, err)
	assert.Empty(t, warns)
	require.Len(t, got.Conditions, 2)
	ids := []string{got.Conditions[0].ID, got.Conditions[1].ID}
	assert.ElementsMatch(t, []string{"c-a", "c-b"}, ids)
	assert.Equal(t, "Vergiftet", got.Conditions[0].Name)
	assert.Equal(t, "Vergiftet", got.Conditions[1].Name)
}
