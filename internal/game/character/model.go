// Package character defines the character domain model, the skill-point
// budget, and the effective-value calculations derived from active conditions.
package character

import (
	"strings"

	"github.com/google/uuid"

	"github.com/htbah/campaign-manager/internal/game/inventory"
	"github.com/htbah/campaign-manager/internal/game/rules"
)

// Role distinguishes player characters from non-player characters.
type Role string

const (
	RolePC  Role = "pc"
	RoleNPC Role = "npc"
)

// ParseRole accepts "pc"/"npc" and the long English forms. Anything else is RolePC.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "npc", "non-player", "nsc":
		return RoleNPC
	default:
		return RolePC
	}
}

// Bounds enforced when a character is saved.
const (
	MinAge       = 1
	MaxAge       = 120
	MinHitPoints = 1
	MaxHitPoints = 100
	MaxArmor     = 9
)

// DefaultBaseDamage is used when a character has no damage formula.
const DefaultBaseDamage = "1W6"

// Armor is the optional armor block of a character sheet.
type Armor struct {
	Enabled   bool
	Value     int // 0-9
	Condition int // 0-9
}

// Profile holds descriptive fields with no rules effect.
type Profile struct {
	Class         string
	Gender        string
	Age           int
	Build         string
	Religion      string
	Occupation    string
	MaritalStatus string
}

// Character is a persisted character sheet. Active conditions are not stored
// here; they live in the activation ledger owned by a Roster.
type Character struct {
	ID         string
	Name       string
	Role       Role
	Profile    Profile
	HitPoints  int // base hit points before conditions
	BaseDamage string
	Skills     SkillSet
	Items      []*inventory.Item
	Armor      Armor
}

// New returns an empty character with a fresh id and the default categories.
//
// Precondition: name must be non-empty.
func New(name string, role Role) *Character {
	return &Character{
		ID:         uuid.NewString(),
		Name:       name,
		Role:       role,
		BaseDamage: DefaultBaseDamage,
		Skills:     NewSkillSet(),
	}
}

// Item returns the equipped item with the given name.
func (c *Character) Item(name string) (*inventory.Item, bool) {
	for _, it := range c.Items {
		if it.Name == name {
			return it, true
		}
	}
	return nil, false
}

// Weapons returns the equipped items flagged as weapons, in equip order.
func (c *Character) Weapons() []*inventory.Item {
	var out []*inventory.Item
	for _, it := range c.Items {
		if it.IsWeapon {
			out = append(out, it)
		}
	}
	return out
}

// LinksCondition reports whether any equipped item grants condID.
func (c *Character) LinksCondition(condID string) bool {
	for _, it := range c.Items {
		for _, id := range it.LinkedConditions {
			if id == condID {
				return true
			}
		}
	}
	return false
}

// Validate checks every save-time invariant and reports all violations at once.
func (c *Character) Validate() error {
	var p rules.Problems
	if strings.TrimSpace(c.Name) == "" {
		p.Addf("name must not be empty")
	}
	if c.Profile.Age < MinAge || c.Profile.Age > MaxAge {
		p.Addf("age must be between %d and %d, got %d", MinAge, MaxAge, c.Profile.Age)
	}
	if c.HitPoints < MinHitPoints || c.HitPoints > MaxHitPoints {
		p.Addf("hit points must be between %d and %d, got %d", MinHitPoints, MaxHitPoints, c.HitPoints)
	}
	if c.Armor.Enabled {
		if c.Armor.Value < 0 || c.Armor.Value > MaxArmor {
			p.Addf("armor value must be between 0 and %d, got %d", MaxArmor, c.Armor.Value)
		}
		if c.Armor.Condition < 0 || c.Armor.Condition > MaxArmor {
			p.Addf("armor condition must be between 0 and %d, got %d", MaxArmor, c.Armor.Condition)
		}
	}
	p = append(p, c.Skills.problems()...)
	return p.Err()
}
