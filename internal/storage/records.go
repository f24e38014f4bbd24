package storage

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/htbah/campaign-manager/internal/game/character"
	"github.com/htbah/campaign-manager/internal/game/condition"
	"github.com/htbah/campaign-manager/internal/game/inventory"
	"github.com/htbah/campaign-manager/internal/game/rules"
)

// SoftInt decodes any JSON scalar into an int, failing soft to 0.
// Hand-edited files may hold numbers as strings or floats.
type SoftInt int

// UnmarshalJSON implements json.Unmarshaler.
func (s *SoftInt) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		*s = 0
		return nil
	}
	*s = SoftInt(rules.SoftInt(v))
	return nil
}

// ConditionRecord is the persisted shape of a condition definition.
type ConditionRecord struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	EffectType   string  `json:"effect_type"`
	EffectTarget string  `json:"effect_target"`
	EffectValue  SoftInt `json:"effect_value"`
}

// NewConditionRecord converts a definition to its persisted shape. A
// definition without effect stores an empty target and a zero value.
func NewConditionRecord(d *condition.Definition) ConditionRecord {
	r := ConditionRecord{
		ID:           d.ID,
		Name:         d.Name,
		Description:  d.Description,
		EffectType:   d.EffectType.Label(),
		EffectTarget: d.Target.String(),
		EffectValue:  SoftInt(d.Value),
	}
	if d.EffectType == condition.EffectNone {
		r.EffectTarget = ""
		r.EffectValue = 0
	}
	return r
}

// Definition converts the record to a domain definition.
//
// Postcondition: a record without id yields a nil definition and a warning.
func (r ConditionRecord) Definition() (*condition.Definition, *rules.DataIntegrityWarning) {
	if r.ID == "" {
		return nil, rules.Warnf(r.Name, "condition without id skipped")
	}
	name := r.Name
	if name == "" {
		short := r.ID
		if len(short) > 8 {
			short = short[:8]
		}
		name = "Zustand " + short
	}
	return &condition.Definition{
		ID:          r.ID,
		Name:        name,
		Description: r.Description,
		EffectType:  condition.ParseEffectType(r.EffectType),
		Target:      condition.ParseTarget(r.EffectTarget),
		Value:       int(r.EffectValue),
	}, nil
}

// ItemRecord is the persisted shape of a library item.
type ItemRecord struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	Attributes       map[string]string `json:"attributes"`
	IsWeapon         bool              `json:"is_weapon"`
	DamageFormula    string            `json:"damage_formula"`
	WeaponCategory   string            `json:"weapon_category,omitempty"`
	LinkedConditions []string          `json:"linked_conditions"`
}

// NewItemRecord converts an item to its persisted shape.
func NewItemRecord(it *inventory.Item) ItemRecord {
	r := ItemRecord{
		ID:               it.ID,
		Name:             it.Name,
		Description:      it.Description,
		Attributes:       it.Attributes,
		IsWeapon:         it.IsWeapon,
		DamageFormula:    it.DamageFormula,
		WeaponCategory:   it.WeaponCategory,
		LinkedConditions: it.LinkedConditions,
	}
	if r.Attributes == nil {
		r.Attributes = map[string]string{}
	}
	if r.LinkedConditions == nil {
		r.LinkedConditions = []string{}
	}
	if !r.IsWeapon {
		r.DamageFormula = ""
	}
	return r
}

// Item converts the record to a domain item. A missing id gets a fresh one.
func (r ItemRecord) Item() *inventory.Item {
	it := &inventory.Item{
		ID:               r.ID,
		Name:             r.Name,
		Description:      r.Description,
		Attributes:       r.Attributes,
		IsWeapon:         r.IsWeapon,
		DamageFormula:    r.DamageFormula,
		WeaponCategory:   r.WeaponCategory,
		LinkedConditions: dedupe(r.LinkedConditions),
	}
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if !it.IsWeapon {
		it.DamageFormula = ""
	}
	return it
}

func dedupe(ids []string) []string {
	if ids == nil {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// CharacterItemRecord is an equipped item inside a character record, keyed by
// item name.
type CharacterItemRecord struct {
	ID               *string           `json:"id"`
	Description      string            `json:"description,omitempty"`
	Attributes       map[string]string `json:"attributes"`
	LinkedConditions []string          `json:"linked_conditions"`
	IsWeapon         bool              `json:"is_weapon"`
	DamageFormula    string            `json:"damage_formula"`
	WeaponCategory   string            `json:"weapon_category,omitempty"`
}

// CharacterRecord is the persisted shape of one character file.
// Derived scores are written for readers of the file but recomputed on load.
type CharacterRecord struct {
	ID                string                         `json:"id"`
	Name              string                         `json:"name"`
	Class             string                         `json:"class"`
	Gender            string                         `json:"gender"`
	Age               SoftInt                        `json:"age"`
	HitPoints         SoftInt                        `json:"hitpoints"`
	BaseDamage        string                         `json:"base_damage"`
	Build             string                         `json:"build"`
	Religion          string                         `json:"religion"`
	Occupation        string                         `json:"occupation"`
	MaritalStatus     string                         `json:"marital_status"`
	Skills            map[string]map[string]SoftInt  `json:"skills"`
	CategoryScores    map[string]SoftInt             `json:"category_scores"`
	InspirationPoints map[string]SoftInt             `json:"inspiration_points"`
	Items             map[string]CharacterItemRecord `json:"items"`
	Conditions        map[string]ConditionRecord     `json:"conditions"`
	// ManualConditions is absent in files written before manual tracking.
	ManualConditions []string `json:"manual_conditions"`
	ArmorEnabled     bool     `json:"armor_enabled"`
	ArmorValue       SoftInt  `json:"armor_value"`
	ArmorCondition   SoftInt  `json:"armor_condition"`
	Role             string   `json:"role"`
}

// NewCharacterRecord converts a persisted character to its record.
// Conditions are keyed by name. A condition whose name is already taken is
// keyed "Name [id]"; readers take the name from the record, not the key.
func NewCharacterRecord(p character.Persisted) CharacterRecord {
	c := p.Character
	d := c.Skills.Derive()
	r := CharacterRecord{
		ID:                c.ID,
		Name:              c.Name,
		Class:             c.Profile.Class,
		Gender:            c.Profile.Gender,
		Age:               SoftInt(c.Profile.Age),
		HitPoints:         SoftInt(c.HitPoints),
		BaseDamage:        c.BaseDamage,
		Build:             c.Profile.Build,
		Religion:          c.Profile.Religion,
		Occupation:        c.Profile.Occupation,
		MaritalStatus:     c.Profile.MaritalStatus,
		Skills:            make(map[string]map[string]SoftInt, len(c.Skills)),
		CategoryScores:    make(map[string]SoftInt, len(d.Categories)),
		InspirationPoints: make(map[string]SoftInt, len(d.Inspiration)),
		Items:             make(map[string]CharacterItemRecord, len(c.Items)),
		Conditions:        make(map[string]ConditionRecord, len(p.Conditions)),
		ManualConditions:  append([]string{}, p.Manual...),
		ArmorEnabled:      c.Armor.Enabled,
		ArmorValue:        SoftInt(c.Armor.Value),
		ArmorCondition:    SoftInt(c.Armor.Condition),
		Role:              string(c.Role),
	}
	for cat, skills := range c.Skills {
		m := make(map[string]SoftInt, len(skills))
		for name, v := range skills {
			m[name] = SoftInt(v)
		}
		r.Skills[cat] = m
	}
	for cat, v := range d.Categories {
		r.CategoryScores[cat] = SoftInt(v)
	}
	for cat, v := range d.Inspiration {
		r.InspirationPoints[cat] = SoftInt(v)
	}
	for _, it := range c.Items {
		id := it.ID
		ir := CharacterItemRecord{
			ID:               &id,
			Description:      it.Description,
			Attributes:       it.Attributes,
			LinkedConditions: it.LinkedConditions,
			IsWeapon:         it.IsWeapon,
			DamageFormula:    it.DamageFormula,
			WeaponCategory:   it.WeaponCategory,
		}
		if ir.Attributes == nil {
			ir.Attributes = map[string]string{}
		}
		if ir.LinkedConditions == nil {
			ir.LinkedConditions = []string{}
		}
		r.Items[it.Name] = ir
	}
	defs := append([]*condition.Definition(nil), p.Conditions...)
	condition.SortDefinitions(defs)
	for _, def := range defs {
		key := def.Name
		if _, taken := r.Conditions[key]; taken {
			key = fmt.Sprintf("%s [%s]", def.Name, def.ID)
		}
		r.Conditions[key] = NewConditionRecord(def)
	}
	return r
}

// Persisted converts the record to the domain form. Stored derived scores
// that disagree with the recomputed ones are reported, never used.
//
// Postcondition: the returned character has at least the default categories.
func (r CharacterRecord) Persisted() (character.Persisted, []*rules.DataIntegrityWarning) {
	var warns []*rules.DataIntegrityWarning
	c := &character.Character{
		ID:   r.ID,
		Name: r.Name,
		Role: character.ParseRole(r.Role),
		Profile: character.Profile{
			Class:         r.Class,
			Gender:        r.Gender,
			Age:           int(r.Age),
			Build:         r.Build,
			Religion:      r.Religion,
			Occupation:    r.Occupation,
			MaritalStatus: r.MaritalStatus,
		},
		HitPoints:  int(r.HitPoints),
		BaseDamage: r.BaseDamage,
		Skills:     character.NewSkillSet(),
		Armor: character.Armor{
			Enabled:   r.ArmorEnabled,
			Value:     int(r.ArmorValue),
			Condition: int(r.ArmorCondition),
		},
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
		warns = append(warns, rules.Warnf(r.Name, "character without id; assigned %s", c.ID))
	}
	if c.BaseDamage == "" {
		c.BaseDamage = character.DefaultBaseDamage
	}
	for cat, skills := range r.Skills {
		m := make(map[string]int, len(skills))
		for name, v := range skills {
			m[name] = int(v)
		}
		c.Skills[cat] = m
	}

	d := c.Skills.Derive()
	for cat, stored := range r.CategoryScores {
		if got, ok := d.Categories[cat]; ok && got != int(stored) {
			warns = append(warns, rules.Warnf(c.Name, "stored category score %s=%d differs from computed %d", cat, stored, got))
		}
	}

	names := make([]string, 0, len(r.Items))
	for name := range r.Items {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ir := r.Items[name]
		it := &inventory.Item{
			Name:             name,
			Description:      ir.Description,
			Attributes:       ir.Attributes,
			LinkedConditions: dedupe(ir.LinkedConditions),
			IsWeapon:         ir.IsWeapon,
			DamageFormula:    ir.DamageFormula,
			WeaponCategory:   ir.WeaponCategory,
		}
		if ir.ID != nil && *ir.ID != "" {
			it.ID = *ir.ID
		} else {
			it.ID = uuid.NewString()
		}
		c.Items = append(c.Items, it)
	}

	p := character.Persisted{Character: c, Manual: r.ManualConditions}
	for key, cr := range r.Conditions {
		def, warn := cr.Definition()
		if warn != nil {
			warns = append(warns, rules.Warnf(c.Name, "condition %q: %s", key, warn.Detail))
			continue
		}
		p.Conditions = append(p.Conditions, def)
	}
	condition.SortDefinitions(p.Conditions)

	return p, warns
}

// DecodeCharacter parses one character document.
func DecodeCharacter(data []byte) (character.Persisted, []*rules.DataIntegrityWarning, error) {
	var r CharacterRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return character.Persisted{}, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	p, warns := r.Persisted()
	return p, warns, nil
}

// EncodeCharacter renders one character document, indented for hand editing.
func EncodeCharacter(p character.Persisted) ([]byte, error) {
	return json.MarshalIndent(NewCharacterRecord(p), "", "    ")
}
