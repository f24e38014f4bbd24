// Package jsonfile stores characters and the shared libraries as plain JSON
// files: one file per character plus one file per library.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/htbah/campaign-manager/internal/config"
	"github.com/htbah/campaign-manager/internal/game/character"
	"github.com/htbah/campaign-manager/internal/game/condition"
	"github.com/htbah/campaign-manager/internal/game/inventory"
	"github.com/htbah/campaign-manager/internal/game/rules"
	"github.com/htbah/campaign-manager/internal/storage"
)

// Store implements storage.Backend on a filesystem.
// It is safe for concurrent use.
type Store struct {
	fs             afero.Fs
	charactersDir  string
	conditionsFile string
	itemsFile      string
	logger         *zap.Logger

	mu         sync.Mutex
	paths      map[string]string                      // character id -> file it was loaded from or saved to
	unreadable map[string]*rules.DataIntegrityWarning // library file -> why its last read failed
}

// New returns a Store over fsys using the paths from cfg.
//
// Precondition: fsys must not be nil.
func New(fsys afero.Fs, cfg config.StorageConfig, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		fs:             fsys,
		charactersDir:  cfg.CharactersPath(),
		conditionsFile: cfg.ConditionsPath(),
		itemsFile:      cfg.ItemsPath(),
		logger:         logger,
		paths:          make(map[string]string),
		unreadable:     make(map[string]*rules.DataIntegrityWarning),
	}
}

// NewOS returns a Store on the operating system filesystem.
func NewOS(cfg config.StorageConfig, logger *zap.Logger) *Store {
	return New(afero.NewOsFs(), cfg, logger)
}

// SafeName reduces a character name to letters, digits, spaces, '_' and '-'.
// An empty result becomes "unbenannt".
func SafeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "unbenannt"
	}
	return out
}

// FileName returns the file name used for a new character file.
func FileName(id, name string) string {
	return fmt.Sprintf("%s - %s.json", id, SafeName(name))
}

// writeAtomic writes data to a temporary file next to path and renames it over path.
func (s *Store) writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(name)
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(name)
		return fmt.Errorf("syncing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(name)
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := s.fs.Rename(name, path); err != nil {
		_ = s.fs.Remove(name)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// LoadCharacters reads every *.json file in the characters directory.
// A missing directory yields no characters. Files that do not decode are
// skipped with a warning.
func (s *Store) LoadCharacters(ctx context.Context) ([]character.Persisted, []*rules.DataIntegrityWarning, error) {
	entries, err := afero.ReadDir(s.fs, s.charactersDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("listing %s: %w", s.charactersDir, err)
	}

	var (
		out   []character.Persisted
		warns []*rules.DataIntegrityWarning
		paths = make(map[string]string)
	)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		path := filepath.Join(s.charactersDir, e.Name())
		data, err := afero.ReadFile(s.fs, path)
		if err != nil {
			warns = append(warns, s.warn(e.Name(), "unreadable: %v", err))
			continue
		}
		p, recWarns, err := storage.DecodeCharacter(data)
		if err != nil {
			warns = append(warns, s.warn(e.Name(), "skipped: %v", err))
			continue
		}
		if prev, dup := paths[p.Character.ID]; dup {
			warns = append(warns, s.warn(e.Name(), "duplicate character id %s (also in %s); skipped", p.Character.ID, filepath.Base(prev)))
			continue
		}
		paths[p.Character.ID] = path
		warns = append(warns, recWarns...)
		out = append(out, p)
	}

	s.mu.Lock()
	s.paths = paths
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Character.Name) < strings.ToLower(out[j].Character.Name)
	})
	s.logger.Debug("characters loaded", zap.String("dir", s.charactersDir), zap.Int("count", len(out)), zap.Int("warnings", len(warns)))
	return out, warns, nil
}

func (s *Store) warn(subject, format string, args ...any) *rules.DataIntegrityWarning {
	w := rules.Warnf(subject, format, args...)
	s.logger.Warn("data integrity", zap.String("subject", w.Subject), zap.String("detail", w.Detail))
	return w
}

// SaveCharacter writes the character to the file it came from, or to a new
// "<id> - <name>.json" file.
func (s *Store) SaveCharacter(ctx context.Context, p character.Persisted) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := storage.EncodeCharacter(p)
	if err != nil {
		return fmt.Errorf("encoding character %s: %w", p.Character.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	path, ok := s.paths[p.Character.ID]
	if !ok {
		path = filepath.Join(s.charactersDir, FileName(p.Character.ID, p.Character.Name))
	}
	if err := s.writeAtomic(path, data); err != nil {
		return fmt.Errorf("saving character %s: %w", p.Character.Name, err)
	}
	s.paths[p.Character.ID] = path
	s.logger.Info("character saved", zap.String("id", p.Character.ID), zap.String("path", path))
	return nil
}

// DeleteCharacter removes the character's file.
func (s *Store) DeleteCharacter(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	path, ok := s.paths[id]
	if !ok {
		return fmt.Errorf("%w: %s", storage.ErrCharacterNotFound, id)
	}
	if err := s.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting %s: %w", path, err)
	}
	delete(s.paths, id)
	return nil
}

type conditionsDoc struct {
	Conditions []storage.ConditionRecord `json:"conditions"`
}

type itemsDoc struct {
	Items []storage.ItemRecord `json:"items"`
}

// readDoc decodes path into v. A missing file leaves v untouched and reports false.
func (s *Store) readDoc(path string, v any) (bool, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: %s: %v", storage.ErrMalformed, path, err)
	}
	return true, nil
}

// readLibrary decodes a library file into v. An undecodable file is reported
// as a warning and remembered, and the caller gets ok == false and should use
// an empty library. Saves to a remembered file fail until a read succeeds.
func (s *Store) readLibrary(path string, v any) (bool, error) {
	_, err := s.readDoc(path, v)
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case errors.Is(err, storage.ErrMalformed):
		s.unreadable[path] = s.warn(filepath.Base(path), "unreadable, loaded as an empty library; saving it is disabled: %v", err)
		return false, nil
	case err != nil:
		return false, err
	}
	delete(s.unreadable, path)
	return true, nil
}

// checkWritable fails with storage.ErrDegraded for a library file whose last
// read failed. The caller must hold s.mu.
func (s *Store) checkWritable(path string) error {
	if w, ok := s.unreadable[path]; ok {
		return fmt.Errorf("%w: %s", storage.ErrDegraded, w.Subject)
	}
	return nil
}

// Degraded returns a warning for each library file that could not be decoded
// on its last load.
func (s *Store) Degraded() []*rules.DataIntegrityWarning {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*rules.DataIntegrityWarning, 0, len(s.unreadable))
	for _, w := range s.unreadable {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subject < out[j].Subject })
	return out
}

// LoadConditions reads the condition library. A missing file is an empty
// library; so is an undecodable one, which is then reported by Degraded.
func (s *Store) LoadConditions(ctx context.Context) ([]*condition.Definition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var doc conditionsDoc
	ok, err := s.readLibrary(s.conditionsFile, &doc)
	if err != nil {
		return nil, err
	}
	if !ok {
		doc = conditionsDoc{}
	}
	defs := make([]*condition.Definition, 0, len(doc.Conditions))
	for _, r := range doc.Conditions {
		d, w := r.Definition()
		if w != nil {
			s.warn(filepath.Base(s.conditionsFile), "%s", w.Error())
			continue
		}
		defs = append(defs, d)
	}
	return defs, nil
}

// SaveConditions rewrites the condition library file.
func (s *Store) SaveConditions(ctx context.Context, defs []*condition.Definition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := conditionsDoc{Conditions: make([]storage.ConditionRecord, 0, len(defs))}
	for _, d := range defs {
		doc.Conditions = append(doc.Conditions, storage.NewConditionRecord(d))
	}
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding conditions: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWritable(s.conditionsFile); err != nil {
		return err
	}
	return s.writeAtomic(s.conditionsFile, data)
}

// LoadItems reads the item library. A missing file is an empty library; so
// is an undecodable one, which is then reported by Degraded.
func (s *Store) LoadItems(ctx context.Context) ([]*inventory.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var doc itemsDoc
	ok, err := s.readLibrary(s.itemsFile, &doc)
	if err != nil {
		return nil, err
	}
	if !ok {
		doc = itemsDoc{}
	}
	items := make([]*inventory.Item, 0, len(doc.Items))
	for _, r := range doc.Items {
		it := r.Item()
		if err := it.Validate(); err != nil {
			s.warn(filepath.Base(s.itemsFile), "item %q skipped: %v", r.Name, err)
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

// SaveItems rewrites the item library file.
func (s *Store) SaveItems(ctx context.Context, items []*inventory.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := itemsDoc{Items: make([]storage.ItemRecord, 0, len(items))}
	for _, it := range items {
		doc.Items = append(doc.Items, storage.NewItemRecord(it))
	}
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding items: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWritable(s.itemsFile); err != nil {
		return err
	}
	return s.writeAtomic(s.itemsFile, data)
}

var (
	_ storage.Backend          = (*Store)(nil)
	_ storage.DegradedReporter = (*Store)(nil)
)
