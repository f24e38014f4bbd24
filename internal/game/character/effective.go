package character

import (
	"errors"
	"fmt"

	"github.com/htbah/campaign-manager/internal/game/condition"
	"github.com/htbah/campaign-manager/internal/game/rules"
)

// ErrUnknownSkill is returned when a check names neither a skill nor a category.
var ErrUnknownSkill = errors.New("unknown skill or category")

// EffectiveValues are the scores used as base chances for checks.
type EffectiveValues struct {
	Categories map[string]int
	Skills     map[string]int
}

// ComputeEffectiveValues derives effective category and skill scores from raw
// skill values and the active conditions. Only mission-wide conditions count.
//
//	effective_category = category_score + category_modifier
//	effective_skill    = raw + skill_modifier + effective_category(own category)
//
// Modifiers naming unknown skills or categories contribute nothing.
func ComputeEffectiveValues(skills SkillSet, active []*condition.Definition) EffectiveValues {
	mods := condition.MissionModifiers(active)
	ev := EffectiveValues{
		Categories: make(map[string]int, len(skills)),
		Skills:     make(map[string]int),
	}
	for cat, members := range skills {
		catValue := skills.CategoryScore(cat) + mods.Categories[cat]
		ev.Categories[cat] = catValue
		for name, raw := range members {
			ev.Skills[name] = raw + mods.Skills[name] + catValue
		}
	}
	return ev
}

// EffectiveHitPoints is base plus every mission-wide hit point modifier.
func EffectiveHitPoints(base int, active []*condition.Definition) int {
	return base + condition.MissionModifiers(active).HitPoints
}

// EffectiveInspiration is the inspiration score per category plus mission-wide
// inspiration modifiers.
func EffectiveInspiration(skills SkillSet, active []*condition.Definition) map[string]int {
	mods := condition.MissionModifiers(active)
	out := make(map[string]int, len(skills))
	for cat := range skills {
		out[cat] = skills.InspirationScore(cat) + mods.Inspiration[cat]
	}
	return out
}

// TargetValidFor reports whether target refers to something this skill set has.
// Hit points, custom and empty targets are always valid.
func TargetValidFor(skills SkillSet, target condition.EffectTarget) bool {
	switch target.Kind {
	case condition.TargetSkill:
		_, ok := skills.CategoryOf(target.Name)
		return ok
	case condition.TargetCategory, condition.TargetInspiration:
		return skills.HasCategory(target.Name)
	default:
		return true
	}
}

// InvalidTargets returns a warning for every active condition whose target the
// character does not have. Such conditions stay active but change nothing.
func InvalidTargets(skills SkillSet, active []*condition.Definition) []*rules.DataIntegrityWarning {
	var out []*rules.DataIntegrityWarning
	for _, d := range active {
		if d.EffectType == condition.EffectNone || TargetValidFor(skills, d.Target) {
			continue
		}
		out = append(out, rules.Warnf(d.Name, "target %s does not exist on this character", d.Target.Describe()))
	}
	return out
}

// Check describes what a named check resolves to.
type Check struct {
	Name     string
	Category string
	// IsCategory is true when the check is rolled directly on a category score.
	IsCategory bool
	// Chance is the effective value used as base chance.
	Chance int
}

// ResolveCheck maps a skill or category name to its effective value.
// Category names take precedence over skill names.
func ResolveCheck(skills SkillSet, ev EffectiveValues, name string) (Check, error) {
	if skills.HasCategory(name) {
		return Check{Name: name, Category: name, IsCategory: true, Chance: ev.Categories[name]}, nil
	}
	if cat, ok := skills.CategoryOf(name); ok {
		return Check{Name: name, Category: cat, Chance: ev.Skills[name]}, nil
	}
	return Check{}, fmt.Errorf("%w: %q", ErrUnknownSkill, name)
}

// CheckNames lists every category followed by its skills, in display order.
func CheckNames(skills SkillSet) []string {
	var out []string
	for _, cat := range skills.Categories() {
		out = append(out, cat)
		out = append(out, skills.SkillNames(cat)...)
	}
	return out
}
