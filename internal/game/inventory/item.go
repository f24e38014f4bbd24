// Package inventory defines items, the shared item library, and item seed loading.
package inventory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/htbah/campaign-manager/internal/game/rules"
)

// Item is a piece of equipment. While equipped, every id in LinkedConditions
// is activated on the wearer.
type Item struct {
	ID               string            `yaml:"id"`
	Name             string            `yaml:"name"`
	Description      string            `yaml:"description"`
	Attributes       map[string]string `yaml:"attributes"`
	IsWeapon         bool              `yaml:"is_weapon"`
	DamageFormula    string            `yaml:"damage_formula"`
	WeaponCategory   string            `yaml:"weapon_category"`
	LinkedConditions []string          `yaml:"linked_conditions"`
}

// Validate checks that the Item satisfies its invariants.
//
// Precondition: it is non-nil.
// Postcondition: returns nil iff all fields are valid.
func (it *Item) Validate() error {
	var p rules.Problems
	if strings.TrimSpace(it.ID) == "" {
		p.Addf("item id must not be empty")
	}
	if strings.TrimSpace(it.Name) == "" {
		p.Addf("item name must not be empty")
	}
	if !it.IsWeapon && it.DamageFormula != "" {
		p.Addf("item %q has a damage formula but is not a weapon", it.Name)
	}
	seen := make(map[string]bool, len(it.LinkedConditions))
	for _, id := range it.LinkedConditions {
		if seen[id] {
			p.Addf("item %q links condition %q twice", it.Name, id)
		}
		seen[id] = true
	}
	return p.Err()
}

// Clone returns a deep copy, so an equipped item does not alias the library entry.
func (it *Item) Clone() *Item {
	out := *it
	if it.Attributes != nil {
		out.Attributes = make(map[string]string, len(it.Attributes))
		for k, v := range it.Attributes {
			out.Attributes[k] = v
		}
	}
	out.LinkedConditions = append([]string(nil), it.LinkedConditions...)
	return &out
}

// AttributeNames returns the attribute keys sorted.
func (it *Item) AttributeNames() []string {
	names := make([]string, 0, len(it.Attributes))
	for k := range it.Attributes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// LoadItems reads all *.yaml and *.yml files from dir, parses each as an
// Item, validates it, and returns the collected slice.
//
// Precondition: dir is a readable directory path.
// Postcondition: returns all valid Items or the first encountered error.
func LoadItems(dir string) ([]*Item, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("LoadItems: cannot read directory %q: %w", dir, err)
	}

	var items []*Item
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("LoadItems: cannot read file %q: %w", path, err)
		}
		var it Item
		if err := yaml.Unmarshal(data, &it); err != nil {
			return nil, fmt.Errorf("LoadItems: cannot parse file %q: %w", path, err)
		}
		if err := it.Validate(); err != nil {
			return nil, fmt.Errorf("LoadItems: invalid item in %q: %w", path, err)
		}
		items = append(items, &it)
	}
	return items, nil
}

// ErrNotFound is returned when an item id or name is not in the library.
var ErrNotFound = errors.New("item not found")
