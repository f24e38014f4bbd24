package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/htbah/campaign-manager/internal/game/character"
	"github.com/htbah/campaign-manager/internal/game/rules"
	"github.com/htbah/campaign-manager/internal/storage"
)

// CharacterRepository provides character persistence operations.
type CharacterRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewCharacterRepository creates a CharacterRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewCharacterRepository(db *pgxpool.Pool, logger *zap.Logger) *CharacterRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CharacterRepository{db: db, logger: logger}
}

// LoadCharacters returns every stored character ordered by name. Documents
// that do not decode are skipped and reported as warnings.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *CharacterRepository) LoadCharacters(ctx context.Context) ([]character.Persisted, []*rules.DataIntegrityWarning, error) {
	rows, err := r.db.Query(ctx, `SELECT id, document FROM characters ORDER BY lower(name), id`)
	if err != nil {
		return nil, nil, fmt.Errorf("listing characters: %w", err)
	}
	defer rows.Close()

	var (
		out   []character.Persisted
		warns []*rules.DataIntegrityWarning
	)
	for rows.Next() {
		var id string
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, nil, fmt.Errorf("scanning character row: %w", err)
		}
		p, recWarns, err := storage.DecodeCharacter(doc)
		if err != nil {
			w := rules.Warnf(id, "skipped: %v", err)
			r.logger.Warn("data integrity", zap.String("subject", w.Subject), zap.String("detail", w.Detail))
			warns = append(warns, w)
			continue
		}
		p.Character.ID = id
		warns = append(warns, recWarns...)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating characters: %w", err)
	}
	return out, warns, nil
}

// SaveCharacter inserts or replaces the character document.
//
// Precondition: p.Character.ID must be non-empty.
func (r *CharacterRepository) SaveCharacter(ctx context.Context, p character.Persisted) error {
	doc, err := json.Marshal(storage.NewCharacterRecord(p))
	if err != nil {
		return fmt.Errorf("encoding character %s: %w", p.Character.ID, err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO characters (id, name, role, document)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, role = EXCLUDED.role,
		    document = EXCLUDED.document, updated_at = NOW()`,
		p.Character.ID, p.Character.Name, string(p.Character.Role), doc,
	)
	if err != nil {
		return fmt.Errorf("saving character %s: %w", p.Character.Name, err)
	}
	return nil
}

// DeleteCharacter removes a character.
//
// Postcondition: Returns nil on success, storage.ErrCharacterNotFound if no row was deleted.
func (r *CharacterRepository) DeleteCharacter(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM characters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting character: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", storage.ErrCharacterNotFound, id)
	}
	return nil
}
