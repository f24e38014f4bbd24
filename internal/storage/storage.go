// Package storage defines the persisted record shapes shared by every backend
// and the repository contracts the application depends on.
package storage

import (
	"context"
	"errors"

	"github.com/htbah/campaign-manager/internal/game/character"
	"github.com/htbah/campaign-manager/internal/game/condition"
	"github.com/htbah/campaign-manager/internal/game/inventory"
	"github.com/htbah/campaign-manager/internal/game/rules"
)

// ErrMalformed is returned when stored data cannot be decoded.
var ErrMalformed = errors.New("malformed record")

// ErrDegraded is returned when a save would overwrite stored data that could
// not be read on the last load.
var ErrDegraded = errors.New("stored library is unreadable; fix or remove the file and reload before saving")

// ErrCharacterNotFound is returned when a character id has no stored record.
var ErrCharacterNotFound = errors.New("character not found")

// CharacterStore persists characters with their condition snapshots.
type CharacterStore interface {
	// LoadCharacters reads every stored character. Records that cannot be
	// decoded are skipped and reported as warnings.
	LoadCharacters(ctx context.Context) ([]character.Persisted, []*rules.DataIntegrityWarning, error)
	SaveCharacter(ctx context.Context, p character.Persisted) error
	DeleteCharacter(ctx context.Context, id string) error
}

// Backend bundles the three repositories of one storage driver.
type Backend interface {
	CharacterStore
	condition.Store
	inventory.Store
}

// DegradedReporter is implemented by backends that load an undecodable library
// as empty instead of failing. Degraded returns one warning per library in
// that state; saving such a library fails with ErrDegraded until a load
// succeeds.
type DegradedReporter interface {
	Degraded() []*rules.DataIntegrityWarning
}
