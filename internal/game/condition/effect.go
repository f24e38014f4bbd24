package condition

import (
	"fmt"
	"strings"
)

// EffectType controls whether a condition feeds the computed scores.
type EffectType int

const (
	// EffectNone marks a purely descriptive condition.
	EffectNone EffectType = iota
	// EffectMissionWide conditions modify computed scores for the whole session.
	EffectMissionWide
	// EffectRoundBased conditions are scoped to combat rounds and tracked by hand.
	EffectRoundBased
)

// Persisted labels, as written to the data files.
const (
	labelNone        = "keine Auswirkung"
	labelMissionWide = "missionsweit"
	labelRoundBased  = "rundenbasiert"
)

// ParseEffectType accepts both the persisted label and the English name.
// Anything unrecognised is EffectNone.
func ParseEffectType(s string) EffectType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case labelMissionWide, "mission-wide", "mission_wide", "missionwide":
		return EffectMissionWide
	case labelRoundBased, "round-based", "round_based", "roundbased":
		return EffectRoundBased
	default:
		return EffectNone
	}
}

// String returns the English name of the effect type.
func (t EffectType) String() string {
	switch t {
	case EffectMissionWide:
		return "mission-wide"
	case EffectRoundBased:
		return "round-based"
	default:
		return "none"
	}
}

// Label returns the persisted label of the effect type.
func (t EffectType) Label() string {
	switch t {
	case EffectMissionWide:
		return labelMissionWide
	case EffectRoundBased:
		return labelRoundBased
	default:
		return labelNone
	}
}

// MarshalText implements encoding.TextMarshaler using the persisted label.
func (t EffectType) MarshalText() ([]byte, error) {
	return []byte(t.Label()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *EffectType) UnmarshalText(b []byte) error {
	*t = ParseEffectType(string(b))
	return nil
}

// TargetKind discriminates EffectTarget.
type TargetKind int

const (
	TargetNone TargetKind = iota
	TargetHitPoints
	TargetSkill
	TargetCategory
	TargetInspiration
	TargetCustom
)

// Persisted target prefixes.
const (
	noTargetLabel     = "(kein Ziel / n/a)"
	hitPointsLabel    = "Lebenspunkte"
	skillPrefix       = "Fertigkeit: "
	categoryPrefix    = "Kategoriewert: "
	inspirationPrefix = "Geistesblitzpunkte: "
)

// EffectTarget names what a condition's value modifies. Name holds the skill
// or category for Skill, Category and Inspiration targets and the free text
// for Custom targets.
type EffectTarget struct {
	Kind TargetKind
	Name string
}

// NoTarget returns the empty target.
func NoTarget() EffectTarget { return EffectTarget{Kind: TargetNone} }

// HitPoints returns the hit point target.
func HitPoints() EffectTarget { return EffectTarget{Kind: TargetHitPoints} }

// Skill returns a target modifying the named skill.
func Skill(name string) EffectTarget { return EffectTarget{Kind: TargetSkill, Name: name} }

// Category returns a target modifying the named category score.
func Category(name string) EffectTarget { return EffectTarget{Kind: TargetCategory, Name: name} }

// Inspiration returns a target modifying the inspiration points of the named category.
func Inspiration(name string) EffectTarget { return EffectTarget{Kind: TargetInspiration, Name: name} }

// Custom returns a free-form target that never feeds computed values.
func Custom(text string) EffectTarget { return EffectTarget{Kind: TargetCustom, Name: text} }

// ParseTarget converts a persisted target string into an EffectTarget.
// It accepts the persisted German form ("Fertigkeit: Schwimmen") and the
// short English form ("skill:Schwimmen"). Unrecognised text becomes Custom.
//
// Postcondition: ParseTarget(t.String()) == t for HitPoints, Skill, Category
// and Inspiration targets whose Name is trimmed and non-empty.
func ParseTarget(s string) EffectTarget {
	s = strings.TrimSpace(s)
	switch {
	case s == "" || s == noTargetLabel || strings.EqualFold(s, "none"):
		return NoTarget()
	case s == hitPointsLabel || strings.EqualFold(s, "hit-points") || strings.EqualFold(s, "hitpoints"):
		return HitPoints()
	}

	prefixes := []struct {
		persisted, short string
		build            func(string) EffectTarget
	}{
		{skillPrefix, "skill:", Skill},
		{categoryPrefix, "category:", Category},
		{inspirationPrefix, "inspiration:", Inspiration},
	}
	for _, p := range prefixes {
		var rest string
		var ok bool
		if rest, ok = strings.CutPrefix(s, strings.TrimSpace(p.persisted)); !ok {
			if len(s) >= len(p.short) && strings.EqualFold(s[:len(p.short)], p.short) {
				rest, ok = s[len(p.short):], true
			}
		}
		if !ok {
			continue
		}
		if name := strings.TrimSpace(rest); name != "" {
			return p.build(name)
		}
		return Custom(s)
	}
	return Custom(s)
}

// String renders the persisted form of the target.
func (t EffectTarget) String() string {
	switch t.Kind {
	case TargetHitPoints:
		return hitPointsLabel
	case TargetSkill:
		return skillPrefix + t.Name
	case TargetCategory:
		return categoryPrefix + t.Name
	case TargetInspiration:
		return inspirationPrefix + t.Name
	case TargetCustom:
		if t.Name == "" {
			return noTargetLabel
		}
		return t.Name
	default:
		return noTargetLabel
	}
}

// Describe renders a short English form for logs and the console.
func (t EffectTarget) Describe() string {
	switch t.Kind {
	case TargetHitPoints:
		return "hit-points"
	case TargetSkill:
		return "skill:" + t.Name
	case TargetCategory:
		return "category:" + t.Name
	case TargetInspiration:
		return "inspiration:" + t.Name
	case TargetCustom:
		return fmt.Sprintf("custom:%q", t.Name)
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler using the persisted form.
func (t EffectTarget) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *EffectTarget) UnmarshalText(b []byte) error {
	*t = ParseTarget(string(b))
	return nil
}
