// Package condition models status conditions, the shared condition library,
// and the per-character activation ledger.
package condition

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/htbah/campaign-manager/internal/game/rules"
)

// ErrNotFound is returned when a condition id is not in the library.
var ErrNotFound = errors.New("condition not found")

// Definition is the shared, library-wide description of a condition.
// Characters and items refer to definitions by ID.
type Definition struct {
	ID          string       `yaml:"id"`
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	EffectType  EffectType   `yaml:"effect_type"`
	Target      EffectTarget `yaml:"effect_target"`
	Value       int          `yaml:"effect_value"`
}

// Placeholder returns the inert stand-in used when a referenced condition id
// cannot be resolved.
//
// Postcondition: the result has EffectNone and never modifies computed values.
func Placeholder(id string) *Definition {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return &Definition{
		ID:          id,
		Name:        fmt.Sprintf("(Unbekannter Zustand %s...)", short),
		Description: "Originalzustand nicht gefunden.",
		EffectType:  EffectNone,
		Target:      NoTarget(),
	}
}

// IsMissionWide reports whether d feeds the computed scores.
func (d *Definition) IsMissionWide() bool {
	return d != nil && d.EffectType == EffectMissionWide
}

// Validate checks the fields an operator must supply.
func (d *Definition) Validate() error {
	var p rules.Problems
	if strings.TrimSpace(d.ID) == "" {
		p.Addf("condition id must not be empty")
	}
	if strings.TrimSpace(d.Name) == "" {
		p.Addf("condition name must not be empty")
	}
	return p.Err()
}

// Summary renders the one-line effect description shown next to a condition.
func (d *Definition) Summary() string {
	if d.EffectType == EffectNone || d.Target.Kind == TargetNone {
		return d.Name
	}
	return fmt.Sprintf("%s [%s %s %+d]", d.Name, d.EffectType, d.Target.Describe(), d.Value)
}

// Store persists the condition library as a whole.
type Store interface {
	LoadConditions(ctx context.Context) ([]*Definition, error)
	SaveConditions(ctx context.Context, defs []*Definition) error
}

// Library is an in-memory cache of condition definitions backed by a Store.
// Reads never touch the store; Reload and Flush are the only I/O points.
// It is safe for concurrent use.
type Library struct {
	mu     sync.RWMutex
	store  Store
	defs   map[string]*Definition
	logger *zap.Logger
}

// NewLibrary creates an empty Library over store. store may be nil for a
// purely in-memory library.
func NewLibrary(store Store, logger *zap.Logger) *Library {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Library{store: store, defs: make(map[string]*Definition), logger: logger}
}

// Reload replaces the cache with the store's contents.
//
// Postcondition: on error the cache is unchanged.
func (l *Library) Reload(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	defs, err := l.store.LoadConditions(ctx)
	if err != nil {
		return fmt.Errorf("loading condition library: %w", err)
	}
	next := make(map[string]*Definition, len(defs))
	for _, d := range defs {
		if d == nil || d.ID == "" {
			continue
		}
		next[d.ID] = d
	}
	l.mu.Lock()
	l.defs = next
	l.mu.Unlock()
	l.logger.Debug("condition library loaded", zap.Int("count", len(next)))
	return nil
}

// Flush writes the whole cache back to the store.
func (l *Library) Flush(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	if err := l.store.SaveConditions(ctx, l.All()); err != nil {
		return fmt.Errorf("saving condition library: %w", err)
	}
	return nil
}

// Put adds or replaces a definition.
func (l *Library) Put(d *Definition) error {
	if d == nil {
		return errors.New("Put: definition must not be nil")
	}
	if err := d.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	l.defs[d.ID] = d
	l.mu.Unlock()
	return nil
}

// Delete removes the definition with id. Deleting an unknown id returns ErrNotFound.
func (l *Library) Delete(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.defs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(l.defs, id)
	return nil
}

// Get returns the definition for id, or (nil, false).
func (l *Library) Get(id string) (*Definition, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.defs[id]
	return d, ok
}

// FindByName returns the definition whose name matches case-insensitively.
func (l *Library) FindByName(name string) (*Definition, bool) {
	for _, d := range l.All() {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return nil, false
}

// Resolve returns the definition for id. Unknown ids resolve to Placeholder(id)
// together with a DataIntegrityWarning; they never fail.
func (l *Library) Resolve(id string) (*Definition, *rules.DataIntegrityWarning) {
	if d, ok := l.Get(id); ok {
		return d, nil
	}
	l.logger.Warn("unknown condition id; using placeholder", zap.String("condition_id", id))
	return Placeholder(id), rules.Warnf(id, "condition not found in library; treated as inert")
}

// All returns the definitions sorted by name, then id.
func (l *Library) All() []*Definition {
	l.mu.RLock()
	out := make([]*Definition, 0, len(l.defs))
	for _, d := range l.defs {
		out = append(out, d)
	}
	l.mu.RUnlock()
	SortDefinitions(out)
	return out
}

// Len returns the number of cached definitions.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.defs)
}

// SortDefinitions orders defs by case-insensitive name, then id.
func SortDefinitions(defs []*Definition) {
	sort.SliceStable(defs, func(i, j int) bool {
		ni, nj := strings.ToLower(defs[i].Name), strings.ToLower(defs[j].Name)
		if ni != nj {
			return ni < nj
		}
		return defs[i].ID < defs[j].ID
	})
}

// LoadDirectory reads every *.yaml file in dir and parses each as a Definition.
// Unknown fields are rejected.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns the parsed definitions, or an error if any file fails to parse.
func LoadDirectory(dir string) ([]*Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading condition dir %q: %w", dir, err)
	}
	var defs []*Definition
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var def Definition
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("validating %q: %w", path, err)
		}
		defs = append(defs, &def)
	}
	SortDefinitions(defs)
	return defs, nil
}
