package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/htbah/campaign-manager/internal/game/condition"
	"github.com/htbah/campaign-manager/internal/game/inventory"
	"github.com/htbah/campaign-manager/internal/storage"
)

// LibraryRepository stores the shared condition and item libraries.
type LibraryRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewLibraryRepository creates a LibraryRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewLibraryRepository(db *pgxpool.Pool, logger *zap.Logger) *LibraryRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LibraryRepository{db: db, logger: logger}
}

// document is one row of a library table.
type document struct {
	id, name string
	body     []byte
}

// replaceAll swaps the contents of table for docs in one transaction.
func (r *LibraryRepository) replaceAll(ctx context.Context, table string, docs []document) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
		batch := &pgx.Batch{}
		for _, d := range docs {
			batch.Queue("INSERT INTO "+table+" (id, name, document) VALUES ($1, $2, $3)", d.id, d.name, d.body)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting into %s: %w", table, err)
		}
		return nil
	})
}

func (r *LibraryRepository) loadAll(ctx context.Context, table string) ([][]byte, error) {
	rows, err := r.db.Query(ctx, "SELECT document FROM "+table+" ORDER BY lower(name), id")
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", table, err)
	}
	defer rows.Close()
	var out [][]byte
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// LoadConditions returns the condition library.
func (r *LibraryRepository) LoadConditions(ctx context.Context) ([]*condition.Definition, error) {
	docs, err := r.loadAll(ctx, "conditions")
	if err != nil {
		return nil, err
	}
	defs := make([]*condition.Definition, 0, len(docs))
	for _, doc := range docs {
		var rec storage.ConditionRecord
		if err := json.Unmarshal(doc, &rec); err != nil {
			r.logger.Warn("skipping malformed condition", zap.Error(err))
			continue
		}
		d, w := rec.Definition()
		if w != nil {
			r.logger.Warn("skipping condition", zap.Error(w))
			continue
		}
		defs = append(defs, d)
	}
	return defs, nil
}

// SaveConditions replaces the condition library.
func (r *LibraryRepository) SaveConditions(ctx context.Context, defs []*condition.Definition) error {
	docs := make([]document, 0, len(defs))
	for _, d := range defs {
		body, err := json.Marshal(storage.NewConditionRecord(d))
		if err != nil {
			return fmt.Errorf("encoding condition %s: %w", d.ID, err)
		}
		docs = append(docs, document{id: d.ID, name: d.Name, body: body})
	}
	return r.replaceAll(ctx, "conditions", docs)
}

// LoadItems returns the item library.
func (r *LibraryRepository) LoadItems(ctx context.Context) ([]*inventory.Item, error) {
	docs, err := r.loadAll(ctx, "items")
	if err != nil {
		return nil, err
	}
	items := make([]*inventory.Item, 0, len(docs))
	for _, doc := range docs {
		var rec storage.ItemRecord
		if err := json.Unmarshal(doc, &rec); err != nil {
			r.logger.Warn("skipping malformed item", zap.Error(err))
			continue
		}
		items = append(items, rec.Item())
	}
	return items, nil
}

// SaveItems replaces the item library.
func (r *LibraryRepository) SaveItems(ctx context.Context, items []*inventory.Item) error {
	docs := make([]document, 0, len(items))
	for _, it := range items {
		body, err := json.Marshal(storage.NewItemRecord(it))
		if err != nil {
			return fmt.Errorf("encoding item %s: %w", it.ID, err)
		}
		docs = append(docs, document{id: it.ID, name: it.Name, body: body})
	}
	return r.replaceAll(ctx, "items", docs)
}

// Store bundles the repositories into a storage.Backend.
type Store struct {
	*CharacterRepository
	*LibraryRepository
}

// NewStore returns a Store over pool.
func NewStore(pool *Pool, logger *zap.Logger) *Store {
	return &Store{
		CharacterRepository: NewCharacterRepository(pool.DB(), logger),
		LibraryRepository:   NewLibraryRepository(pool.DB(), logger),
	}
}

var _ storage.Backend = (*Store)(nil)
