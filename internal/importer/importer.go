// Package importer merges content from seed files or another storage backend
// into the configured store.
package importer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/htbah/campaign-manager/internal/game/condition"
	"github.com/htbah/campaign-manager/internal/game/inventory"
	"github.com/htbah/campaign-manager/internal/game/rules"
	"github.com/htbah/campaign-manager/internal/storage"
)

// Options control how imported records meet existing ones.
type Options struct {
	// KeepExisting leaves records whose id already exists untouched instead
	// of replacing them.
	KeepExisting bool
	// DryRun validates and counts without writing.
	DryRun bool
}

// Summary counts what an import did.
type Summary struct {
	Conditions int
	Items      int
	Characters int
	Skipped    int
	Warnings   []*rules.DataIntegrityWarning
}

// Importer orchestrates content import from a Source into a storage backend.
type Importer struct {
	source Source
	target storage.Backend
	logger *zap.Logger
}

// New constructs an Importer.
//
// Precondition: source and target must be non-nil.
// Postcondition: returns a non-nil Importer.
func New(source Source, target storage.Backend, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{source: source, target: target, logger: logger}
}

// Run loads the source, merges its libraries into the target's by id, and
// writes every valid character. Items linking conditions that exist in
// neither library are imported with a warning.
//
// Postcondition: on error nothing after the failing step was written.
func (imp *Importer) Run(ctx context.Context, opts Options) (Summary, error) {
	start := time.Now()
	var sum Summary

	content, err := imp.source.Load(ctx)
	if err != nil {
		return sum, fmt.Errorf("loading source: %w", err)
	}
	sum.Warnings = append(sum.Warnings, content.Warnings...)

	conds := condition.NewLibrary(imp.target, imp.logger)
	if err := conds.Reload(ctx); err != nil {
		return sum, err
	}
	for _, d := range content.Conditions {
		if _, exists := conds.Get(d.ID); exists && opts.KeepExisting {
			sum.Skipped++
			continue
		}
		if err := conds.Put(d); err != nil {
			sum.Warnings = append(sum.Warnings, rules.Warnf(d.Name, "not imported: %v", err))
			sum.Skipped++
			continue
		}
		sum.Conditions++
	}

	items := inventory.NewLibrary(imp.target, imp.logger)
	if err := items.Reload(ctx); err != nil {
		return sum, err
	}
	for _, it := range content.Items {
		if _, exists := items.Get(it.ID); exists && opts.KeepExisting {
			sum.Skipped++
			continue
		}
		if err := items.Put(it); err != nil {
			sum.Warnings = append(sum.Warnings, rules.Warnf(it.Name, "not imported: %v", err))
			sum.Skipped++
			continue
		}
		for _, id := range it.LinkedConditions {
			if _, ok := conds.Get(id); !ok {
				sum.Warnings = append(sum.Warnings, rules.Warnf(it.Name, "links unknown condition %s", id))
			}
		}
		sum.Items++
	}

	for _, p := range content.Characters {
		if err := p.Character.Validate(); err != nil {
			sum.Warnings = append(sum.Warnings, rules.Warnf(p.Character.Name, "not imported: %v", err))
			sum.Skipped++
			continue
		}
		sum.Characters++
	}

	if opts.DryRun {
		imp.logger.Info("import dry run", zap.Int("conditions", sum.Conditions), zap.Int("items", sum.Items), zap.Int("characters", sum.Characters))
		return sum, nil
	}
	if err := conds.Flush(ctx); err != nil {
		return sum, err
	}
	if err := items.Flush(ctx); err != nil {
		return sum, err
	}
	for _, p := range content.Characters {
		if p.Character.Validate() != nil {
			continue
		}
		if err := imp.target.SaveCharacter(ctx, p); err != nil {
			return sum, fmt.Errorf("saving %s: %w", p.Character.Name, err)
		}
	}

	for _, w := range sum.Warnings {
		imp.logger.Warn("import", zap.String("subject", w.Subject), zap.String("detail", w.Detail))
	}
	imp.logger.Info("import complete",
		zap.Int("conditions", sum.Conditions),
		zap.Int("items", sum.Items),
		zap.Int("characters", sum.Characters),
		zap.Int("skipped", sum.Skipped),
		zap.Duration("elapsed", time.Since(start)),
	)
	return sum, nil
}
