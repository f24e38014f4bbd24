package character

import (
	"sort"
	"strings"

	"github.com/htbah/campaign-manager/internal/game/rules"
)

// Skill categories.
const (
	CategoryAction    = "Handeln"
	CategoryKnowledge = "Wissen"
	CategorySocial    = "Soziales"
)

// DefaultCategories lists the standard categories in display order.
var DefaultCategories = []string{CategoryAction, CategoryKnowledge, CategorySocial}

// SkillSet maps category -> skill -> raw value.
type SkillSet map[string]map[string]int

// NewSkillSet returns a set with the default categories and no skills.
func NewSkillSet() SkillSet {
	s := make(SkillSet, len(DefaultCategories))
	for _, c := range DefaultCategories {
		s[c] = make(map[string]int)
	}
	return s
}

// Clone returns a deep copy.
func (s SkillSet) Clone() SkillSet {
	out := make(SkillSet, len(s))
	for cat, skills := range s {
		m := make(map[string]int, len(skills))
		for k, v := range skills {
			m[k] = v
		}
		out[cat] = m
	}
	return out
}

// Categories returns the category names: defaults first, then any others alphabetically.
func (s SkillSet) Categories() []string {
	out := make([]string, 0, len(s))
	seen := make(map[string]bool, len(s))
	for _, c := range DefaultCategories {
		if _, ok := s[c]; ok {
			out = append(out, c)
			seen[c] = true
		}
	}
	var extra []string
	for c := range s {
		if !seen[c] {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// SkillNames returns the skills of cat sorted alphabetically.
func (s SkillSet) SkillNames(cat string) []string {
	names := make([]string, 0, len(s[cat]))
	for n := range s[cat] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// HasCategory reports whether cat exists.
func (s SkillSet) HasCategory(cat string) bool {
	_, ok := s[cat]
	return ok
}

// CategoryOf returns the category holding skill.
func (s SkillSet) CategoryOf(skill string) (string, bool) {
	for _, cat := range s.Categories() {
		if _, ok := s[cat][skill]; ok {
			return cat, true
		}
	}
	return "", false
}

// Value returns the raw value of skill and whether it exists.
func (s SkillSet) Value(skill string) (int, bool) {
	cat, ok := s.CategoryOf(skill)
	if !ok {
		return 0, false
	}
	return s[cat][skill], true
}

// CategorySum is the sum of raw skill values in cat.
func (s SkillSet) CategorySum(cat string) int {
	sum := 0
	for _, v := range s[cat] {
		sum += v
	}
	return sum
}

// CategoryScore is RoundCommercial(CategorySum / 10).
func (s SkillSet) CategoryScore(cat string) int {
	return rules.RoundCommercial(float64(s.CategorySum(cat)) / 10)
}

// InspirationScore is RoundCommercial(CategoryScore / 10).
func (s SkillSet) InspirationScore(cat string) int {
	return rules.RoundCommercial(float64(s.CategoryScore(cat)) / 10)
}

// Total is the number of raw points allocated across all categories.
func (s SkillSet) Total() int {
	total := 0
	for cat := range s {
		total += s.CategorySum(cat)
	}
	return total
}

// Remaining is the unallocated part of the skill point pool. Negative when over budget.
func (s SkillSet) Remaining() int {
	return rules.SkillPointPool - s.Total()
}

// Derived holds the scores computed from raw skill values alone.
type Derived struct {
	Categories  map[string]int
	Inspiration map[string]int
	Total       int
	Remaining   int
}

// Derive computes category and inspiration scores plus the budget totals.
func (s SkillSet) Derive() Derived {
	d := Derived{
		Categories:  make(map[string]int, len(s)),
		Inspiration: make(map[string]int, len(s)),
		Total:       s.Total(),
	}
	d.Remaining = rules.SkillPointPool - d.Total
	for cat := range s {
		d.Categories[cat] = s.CategoryScore(cat)
		d.Inspiration[cat] = s.InspirationScore(cat)
	}
	return d
}

// Validate checks that every value is within [0,100] and the total is within the pool.
func (s SkillSet) Validate() error {
	return rules.Problems(s.problems()).Err()
}

func (s SkillSet) problems() []string {
	var p rules.Problems
	for _, cat := range s.Categories() {
		for _, name := range s.SkillNames(cat) {
			v := s[cat][name]
			if v < rules.MinSkillValue || v > rules.MaxSkillValue {
				p.Addf("skill %q must be between %d and %d, got %d", name, rules.MinSkillValue, rules.MaxSkillValue, v)
			}
		}
	}
	if total := s.Total(); total > rules.SkillPointPool {
		p.Addf("total skill points %d exceed the pool of %d", total, rules.SkillPointPool)
	}
	return p
}

// SetSkill changes the value of an existing skill. The set is left untouched
// when the change would violate the value range or the budget.
func (s SkillSet) SetSkill(skill string, value int) error {
	cat, ok := s.CategoryOf(skill)
	if !ok {
		return rules.Validationf("unknown skill %q", skill)
	}
	if err := checkValue(skill, value); err != nil {
		return err
	}
	if total := s.Total() - s[cat][skill] + value; total > rules.SkillPointPool {
		return rules.Validationf("setting %q to %d would use %d of %d skill points", skill, value, total, rules.SkillPointPool)
	}
	s[cat][skill] = value
	return nil
}

// AddSkill adds a new skill to cat, creating the category if needed.
// Skill names are unique across all categories.
func (s SkillSet) AddSkill(cat, skill string, value int) error {
	cat, skill = strings.TrimSpace(cat), strings.TrimSpace(skill)
	var p rules.Problems
	if cat == "" {
		p.Addf("category must not be empty")
	}
	if skill == "" {
		p.Addf("skill name must not be empty")
	}
	if existing, ok := s.CategoryOf(skill); ok && skill != "" {
		p.Addf("skill %q already exists in %s", skill, existing)
	}
	if value < rules.MinSkillValue || value > rules.MaxSkillValue {
		p.Addf("skill %q must be between %d and %d, got %d", skill, rules.MinSkillValue, rules.MaxSkillValue, value)
	}
	if total := s.Total() + value; total > rules.SkillPointPool {
		p.Addf("adding %q would use %d of %d skill points", skill, total, rules.SkillPointPool)
	}
	if err := p.Err(); err != nil {
		return err
	}
	if _, ok := s[cat]; !ok {
		s[cat] = make(map[string]int)
	}
	s[cat][skill] = value
	return nil
}

// RemoveSkill deletes skill from whichever category holds it.
func (s SkillSet) RemoveSkill(skill string) error {
	cat, ok := s.CategoryOf(skill)
	if !ok {
		return rules.Validationf("unknown skill %q", skill)
	}
	delete(s[cat], skill)
	return nil
}

func checkValue(skill string, value int) error {
	if value < rules.MinSkillValue || value > rules.MaxSkillValue {
		return rules.Validationf("skill %q must be between %d and %d, got %d", skill, rules.MinSkillValue, rules.MaxSkillValue, value)
	}
	return nil
}
