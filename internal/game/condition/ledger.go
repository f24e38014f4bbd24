package condition

import (
	"errors"
	"sort"
	"sync"
)

// Source identifies why a condition is active on a character: a manual
// addition by the operator, or an equipped item.
type Source struct {
	// Item is the name of the granting item; empty for manual activation.
	Item string
}

// Manual returns the operator source.
func Manual() Source { return Source{} }

// FromItem returns the source for an equipped item.
func FromItem(name string) Source { return Source{Item: name} }

// IsManual reports whether s is the operator source.
func (s Source) IsManual() bool { return s.Item == "" }

func (s Source) String() string {
	if s.IsManual() {
		return "manual"
	}
	return "item:" + s.Item
}

// activation is one refcounted entry for a (character, condition) pair.
type activation struct {
	def     *Definition
	sources map[Source]int
	count   int
}

// Ledger tracks which conditions are active on which characters, reference
// counted by source. A condition is active on a character iff its count is
// positive. It is safe for concurrent use.
type Ledger struct {
	mu      sync.RWMutex
	entries map[string]map[string]*activation
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]map[string]*activation)}
}

// Activate adds one reference from src to condition def on character charID.
// The first activation stores def; later activations only raise the count.
//
// Precondition: def must not be nil and def.ID must not be empty.
// Postcondition: IsActive(charID, def.ID) is true and Count grew by one.
func (l *Ledger) Activate(charID string, def *Definition, src Source) error {
	if def == nil || def.ID == "" {
		return errors.New("Activate: definition with an id is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	byCond, ok := l.entries[charID]
	if !ok {
		byCond = make(map[string]*activation)
		l.entries[charID] = byCond
	}
	a, ok := byCond[def.ID]
	if !ok {
		a = &activation{def: def, sources: make(map[Source]int)}
		byCond[def.ID] = a
	}
	a.sources[src]++
	a.count++
	return nil
}

// Deactivate removes one reference held by src. When the count reaches zero
// the condition and its stored data are dropped. Deactivating a condition
// that src does not hold is a no-op.
//
// Postcondition: Count(charID, condID) >= 0. Returns true if a reference was released.
func (l *Ledger) Deactivate(charID, condID string, src Source) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	byCond, ok := l.entries[charID]
	if !ok {
		return false
	}
	a, ok := byCond[condID]
	if !ok || a.sources[src] <= 0 {
		return false
	}
	a.sources[src]--
	if a.sources[src] <= 0 {
		delete(a.sources, src)
	}
	a.count--
	if a.count <= 0 {
		delete(byCond, condID)
		if len(byCond) == 0 {
			delete(l.entries, charID)
		}
	}
	return true
}

// IsActive reports whether condID is active on charID.
func (l *Ledger) IsActive(charID, condID string) bool {
	return l.Count(charID, condID) > 0
}

// Count returns the number of references keeping condID active on charID.
func (l *Ledger) Count(charID, condID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if a, ok := l.entries[charID][condID]; ok {
		return a.count
	}
	return 0
}

// Sources returns the sources currently holding condID on charID, manual first,
// then items by name.
func (l *Ledger) Sources(charID, condID string) []Source {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.entries[charID][condID]
	if !ok {
		return nil
	}
	out := make([]Source, 0, len(a.sources))
	for s := range a.sources {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsManual() != out[j].IsManual() {
			return out[i].IsManual()
		}
		return out[i].Item < out[j].Item
	})
	return out
}

// Active returns the de-duplicated definitions active on charID, sorted by name then id.
func (l *Ledger) Active(charID string) []*Definition {
	l.mu.RLock()
	byCond := l.entries[charID]
	out := make([]*Definition, 0, len(byCond))
	for _, a := range byCond {
		out = append(out, a.def)
	}
	l.mu.RUnlock()
	SortDefinitions(out)
	return out
}

// ManualIDs returns the ids of conditions the operator activated by hand on charID.
func (l *Ledger) ManualIDs(charID string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var ids []string
	for id, a := range l.entries[charID] {
		if a.sources[Manual()] > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Forget drops every activation for charID.
func (l *Ledger) Forget(charID string) {
	l.mu.Lock()
	delete(l.entries, charID)
	l.mu.Unlock()
}
