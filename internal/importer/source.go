package importer

import (
	"context"
	"fmt"

	"github.com/htbah/campaign-manager/internal/game/character"
	"github.com/htbah/campaign-manager/internal/game/condition"
	"github.com/htbah/campaign-manager/internal/game/inventory"
	"github.com/htbah/campaign-manager/internal/game/rules"
	"github.com/htbah/campaign-manager/internal/storage"
)

// Content is the common intermediate form produced by every Source.
type Content struct {
	Conditions []*condition.Definition
	Items      []*inventory.Item
	Characters []character.Persisted
	// Warnings are data problems the source skipped over.
	Warnings []*rules.DataIntegrityWarning
}

// Source loads content from a format-specific location.
//
// Postcondition: returns non-nil Content, or a non-nil error.
type Source interface {
	Load(ctx context.Context) (*Content, error)
}

// YAMLSource reads seed libraries: one condition per *.yaml file in
// ConditionsDir and one item per *.yaml/*.yml file in ItemsDir. Either
// directory may be empty to skip it. Seeds never carry characters.
type YAMLSource struct {
	ConditionsDir string
	ItemsDir      string
}

// Load implements Source.
func (s YAMLSource) Load(_ context.Context) (*Content, error) {
	out := &Content{}
	if s.ConditionsDir != "" {
		defs, err := condition.LoadDirectory(s.ConditionsDir)
		if err != nil {
			return nil, fmt.Errorf("loading condition seeds: %w", err)
		}
		out.Conditions = defs
	}
	if s.ItemsDir != "" {
		items, err := inventory.LoadItems(s.ItemsDir)
		if err != nil {
			return nil, fmt.Errorf("loading item seeds: %w", err)
		}
		out.Items = items
	}
	return out, nil
}

// BackendSource reads everything another storage backend holds, for moving a
// campaign between drivers.
type BackendSource struct {
	Backend storage.Backend
}

// Load implements Source. A library the backend could only load as empty
// fails the load instead of being copied.
func (s BackendSource) Load(ctx context.Context) (*Content, error) {
	defs, err := s.Backend.LoadConditions(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading conditions: %w", err)
	}
	items, err := s.Backend.LoadItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading items: %w", err)
	}
	if d, ok := s.Backend.(storage.DegradedReporter); ok {
		if degraded := d.Degraded(); len(degraded) > 0 {
			return nil, fmt.Errorf("source %w: %s", storage.ErrDegraded, degraded[0].Subject)
		}
	}
	chars, warnings, err := s.Backend.LoadCharacters(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading characters: %w", err)
	}
	return &Content{Conditions: defs, Items: items, Characters: chars, Warnings: warnings}, nil
}
