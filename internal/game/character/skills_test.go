package character_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/htbah/campaign-manager/internal/game/character"
	"github.com/htbah/campaign-manager/internal/game/rules"
)

func sampleSkills() character.SkillSet {
	return character.SkillSet{
		character.CategoryAction:    {"Klettern": 40, "Schwimmen": 25},
		character.CategoryKnowledge: {"Geschichte": 30, "Erste Hilfe": 15},
		character.CategorySocial:    {"Überreden": 50},
	}
}

func TestSkillSet_Scores(t *testing.T) {
	s := sampleSkills()
	assert.Equal(t, 65, s.CategorySum(character.CategoryAction))
	assert.Equal(t, 7, s.CategoryScore(character.CategoryAction), "65/10 = 6.5 rounds up")
	assert.Equal(t, 5, s.CategoryScore(character.CategoryKnowledge), "45/10 = 4.5 rounds up")
	assert.Equal(t, 5, s.CategoryScore(character.CategorySocial))
	assert.Equal(t, 1, s.InspirationScore(character.CategoryAction), "7/10 = 0.7")
	assert.Equal(t, 1, s.InspirationScore(character.CategoryKnowledge), "5/10 = 0.5 rounds up")
	assert.Equal(t, 160, s.Total())
	assert.Equal(t, 240, s.Remaining())

	d := s.Derive()
	assert.Equal(t, 7, d.Categories[character.CategoryAction])
	assert.Equal(t, 240, d.Remaining)
}

func TestSkillSet_CategoriesOrder(t *testing.T) {
	s := sampleSkills()
	s["Magie"] = map[string]int{}
	assert.Equal(t, []string{"Handeln", "Wissen", "Soziales", "Magie"}, s.Categories())
}

func TestSkillSet_AddSkill(t *testing.T) {
	s := sampleSkills()
	require.NoError(t, s.AddSkill(character.CategoryAction, "Schleichen", 20))
	cat, ok := s.CategoryOf("Schleichen")
	require.True(t, ok)
	assert.Equal(t, character.CategoryAction, cat)

	err := s.AddSkill(character.CategorySocial, "Klettern", 10)
	assert.ErrorIs(t, err, rules.ErrValidation, "names are unique across categories")

	assert.ErrorIs(t, s.AddSkill(character.CategorySocial, "", 10), rules.ErrValidation)
	assert.ErrorIs(t, s.AddSkill(character.CategorySocial, "Lügen", 101), rules.ErrValidation)
}

func TestSkillSet_BudgetIsAllOrNothing(t *testing.T) {
	s := character.NewSkillSet()
	require.NoError(t, s.AddSkill(character.CategoryAction, "A", 100))
	require.NoError(t, s.AddSkill(character.CategoryAction, "B", 100))
	require.NoError(t, s.AddSkill(character.CategoryKnowledge, "C", 100))
	require.NoError(t, s.AddSkill(character.CategorySocial, "D", 90))

	err := s.AddSkill(character.CategorySocial, "E", 20)
	require.ErrorIs(t, err, rules.ErrValidation)
	_, exists := s.CategoryOf("E")
	assert.False(t, exists)

	err = s.SetSkill("D", 100)
	require.NoError(t, err)
	assert.Equal(t, 400, s.Total())

	err = s.SetSkill("D", 101)
	require.ErrorIs(t, err, rules.ErrValidation)
	v, _ := s.Value("D")
	assert.Equal(t, 100, v)

	require.NoError(t, s.RemoveSkill("D"))
	assert.ErrorIs(t, s.RemoveSkill("D"), rules.ErrValidation)
}

func TestSkillSet_Validate(t *testing.T) {
	s := sampleSkills()
	require.NoError(t, s.Validate())

	s[character.CategoryAction]["Klettern"] = -1
	s[character.CategorySocial]["Überreden"] = 400
	err := s.Validate()
	var ve *rules.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Problems, 3)
}

func TestProperty_CategoryScoresMatchRounding(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := character.NewSkillSet()
		for _, cat := range character.DefaultCategories {
			n := rapid.IntRange(0, 4).Draw(t, "n")
			for i := 0; i < n; i++ {
				v := rapid.IntRange(0, 100).Draw(t, "v")
				s[cat][cat+string(rune('a'+i))] = v
			}
		}
		sum := 0
		for _, cat := range s.Categories() {
			want := rules.RoundCommercial(float64(s.CategorySum(cat)) / 10)
			if got := s.CategoryScore(cat); got != want {
				t.Fatalf("CategoryScore(%s) = %d, want %d", cat, got, want)
			}
			sum += want
		}
		total := 0
		for _, v := range s.Derive().Categories {
			total += v
		}
		if total != sum {
			t.Fatalf("derived category total %d != %d", total, sum)
		}
	})
}

func TestProperty_AcceptedMutationsStayWithinBudget(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := character.NewSkillSet()
		names := []string{"a", "b", "c", "d", "e", "f"}
		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			name := rapid.SampledFrom(names).Draw(t, "name")
			value := rapid.IntRange(-20, 140).Draw(t, "value")
			if _, ok := s.CategoryOf(name); ok {
				_ = s.SetSkill(name, value)
			} else {
				cat := rapid.SampledFrom(character.DefaultCategories).Draw(t, "cat")
				_ = s.AddSkill(cat, name, value)
			}
			if err := s.Validate(); err != nil {
				t.Fatalf("accepted mutation broke invariants: %v", err)
			}
		}
	})
}
