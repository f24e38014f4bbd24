package condition_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"pgregory.net/rapid"

	"github.com/htbah/campaign-manager/internal/game/condition"
)

func TestParseEffectType(t *testing.T) {
	assert.Equal(t, condition.EffectMissionWide, condition.ParseEffectType("missionsweit"))
	assert.Equal(t, condition.EffectMissionWide, condition.ParseEffectType("mission-wide"))
	assert.Equal(t, condition.EffectRoundBased, condition.ParseEffectType("rundenbasiert"))
	assert.Equal(t, condition.EffectRoundBased, condition.ParseEffectType(" Round-Based "))
	assert.Equal(t, condition.EffectNone, condition.ParseEffectType("keine Auswirkung"))
	assert.Equal(t, condition.EffectNone, condition.ParseEffectType("bogus"))
	assert.Equal(t, "missionsweit", condition.EffectMissionWide.Label())
	assert.Equal(t, "round-based", condition.EffectRoundBased.String())
}

func TestParseTarget(t *testing.T) {
	cases := map[string]condition.EffectTarget{
		"":                           condition.NoTarget(),
		"(kein Ziel / n/a)":          condition.NoTarget(),
		"Lebenspunkte":               condition.HitPoints(),
		"hit-points":                 condition.HitPoints(),
		"Fertigkeit: Schwimmen":      condition.Skill("Schwimmen"),
		"skill:Schwimmen":            condition.Skill("Schwimmen"),
		"Kategoriewert: Handeln":     condition.Category("Handeln"),
		"category: Wissen":           condition.Category("Wissen"),
		"Geistesblitzpunkte: Wissen": condition.Inspiration("Wissen"),
		"inspiration:Soziales":       condition.Inspiration("Soziales"),
		"Glück":                      condition.Custom("Glück"),
		"Fertigkeit: ":               condition.Custom("Fertigkeit:"),
	}
	for in, want := range cases {
		assert.Equal(t, want, condition.ParseTarget(in), "ParseTarget(%q)", in)
	}
}

func TestEffectTarget_String(t *testing.T) {
	assert.Equal(t, "Fertigkeit: Schwimmen", condition.Skill("Schwimmen").String())
	assert.Equal(t, "Kategoriewert: Handeln", condition.Category("Handeln").String())
	assert.Equal(t, "Geistesblitzpunkte: Wissen", condition.Inspiration("Wissen").String())
	assert.Equal(t, "Lebenspunkte", condition.HitPoints().String())
	assert.Equal(t, "(kein Ziel / n/a)", condition.NoTarget().String())
	assert.Equal(t, "Glück", condition.Custom("Glück").String())
}

func TestEffectTarget_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		name := rapid.StringMatching(`[A-Za-zÄÖÜäöüß][A-Za-zÄÖÜäöüß ]{0,15}[A-Za-zÄÖÜäöüß]`).Draw(t, "name")
		kind := rapid.SampledFrom([]func(string) condition.EffectTarget{
			condition.Skill, condition.Category, condition.Inspiration,
		}).Draw(t, "kind")
		target := kind(name)
		if got := condition.ParseTarget(target.String()); got != target {
			t.Fatalf("round trip of %#v gave %#v", target, got)
		}
	})
}

func TestDefinition_YAMLTextFields(t *testing.T) {
	src := `
id: c1
name: Gebrochener Arm
description: Autsch.
effect_type: missionsweit
effect_target: "Fertigkeit: Klettern"
effect_value: -10
`
	var d condition.Definition
	require.NoError(t, yaml.Unmarshal([]byte(src), &d))
	assert.Equal(t, condition.EffectMissionWide, d.EffectType)
	assert.Equal(t, condition.Skill("Klettern"), d.Target)
	assert.Equal(t, -10, d.Value)

	out, err := yaml.Marshal(&d)
	require.NoError(t, err)
	assert.Contains(t, string(out), "effect_type: missionsweit")
	assert.Contains(t, string(out), "Fertigkeit: Klettern")
}

func TestMissionModifiers(t *testing.T) {
	active := []*condition.Definition{
		{ID: "1", Name: "a", EffectType: condition.EffectMissionWide, Target: condition.Skill("Klettern"), Value: -10},
		{ID: "2", Name: "b", EffectType: condition.EffectMissionWide, Target: condition.Skill("Klettern"), Value: 3},
		{ID: "3", Name: "c", EffectType: condition.EffectMissionWide, Target: condition.Category("Handeln"), Value: 2},
		{ID: "4", Name: "d", EffectType: condition.EffectMissionWide, Target: condition.HitPoints(), Value: -5},
		{ID: "5", Name: "e", EffectType: condition.EffectMissionWide, Target: condition.Inspiration("Wissen"), Value: 1},
		{ID: "6", Name: "f", EffectType: condition.EffectRoundBased, Target: condition.Skill("Klettern"), Value: 50},
		{ID: "7", Name: "g", EffectType: condition.EffectNone, Target: condition.HitPoints(), Value: 50},
		{ID: "8", Name: "h", EffectType: condition.EffectMissionWide, Target: condition.Custom("Glück"), Value: 50},
	}
	m := condition.MissionModifiers(active)
	assert.Equal(t, -7, m.Skills["Klettern"])
	assert.Equal(t, 2, m.Categories["Handeln"])
	assert.Equal(t, -5, m.HitPoints)
	assert.Equal(t, 1, m.Inspiration["Wissen"])
	assert.Len(t, m.Skills, 1)
}
