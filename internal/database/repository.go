package database

import (
	"context"
	"fmt"
	"time"

	"github.com/gnemet/SlideGraph/internal/asset"
	"github.com/gnemet/SlideGraph/internal/table"
	"go.uber.org/zap"
)

type Run struct {
	ID        string    `json:"id"`
	InputPath string    `json:"input_path"`
	StartedAt time.Time `json:"started_at"`
}

type Package struct {
	RunID    string `json:"run_id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
	Parts    int    `json:"parts"`
}

type AIUsage struct {
	PackageName      string `json:"package_name"`
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
}

func SaveRun(ctx context.Context, db *DB, r *Run) error {
	_, err := db.ExecContext(ctx,
		db.rebind(`INSERT INTO extraction_runs (id, input_path, started_at) VALUES ($1, $2, $3)`),
		r.ID, r.InputPath, r.StartedAt.UTC().Format(time.RFC3339))
	return err
}

// SavePackage stores a package with all of its animation and asset rows in
// one transaction. A package already stored under the same run and path is
// replaced, so a watcher re-handling an edited file keeps one copy. Nothing
// changes when any statement fails.
func SavePackage(ctx context.Context, db *DB, runID string, res *asset.PackageResult) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, q := range []string{
		`DELETE FROM animations WHERE run_id = $1 AND package_path = $2`,
		`DELETE FROM assets WHERE run_id = $1 AND package_path = $2`,
		`DELETE FROM packages WHERE run_id = $1 AND path = $2`,
	} {
		if _, err = tx.ExecContext(ctx, db.rebind(q), runID, res.Path); err != nil {
			return fmt.Errorf("replace package: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx,
		db.rebind(`INSERT INTO packages (run_id, name, path, checksum, parts) VALUES ($1, $2, $3, $4, $5)`),
		runID, res.Name, res.Path, res.Checksum, len(res.Parts)); err != nil {
		return fmt.Errorf("insert package: %w", err)
	}

	t := table.FromPackage(res)

	animStmt, err := tx.PrepareContext(ctx, db.rebind(`
		INSERT INTO animations (run_id, package_path, package_name, part_name, seq, target_id, category, property, value)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`))
	if err != nil {
		return err
	}
	defer animStmt.Close()
	for i, r := range t.Animations {
		if _, err = animStmt.ExecContext(ctx, runID, res.Path, r.PackageName, r.PartName, i,
			r.TargetID, r.Category, r.Property.String(), r.Value.String()); err != nil {
			return fmt.Errorf("insert animation: %w", err)
		}
	}

	assetStmt, err := tx.PrepareContext(ctx, db.rebind(`
		INSERT INTO assets (run_id, table_name, package_path, package_name, part_name, seq, asset_id, parent_id, name, type, value)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`))
	if err != nil {
		return err
	}
	defer assetStmt.Close()
	for _, name := range table.AssetTables() {
		for i, r := range t.Assets[name] {
			if _, err = assetStmt.ExecContext(ctx, runID, string(name), res.Path, r.PackageName, r.PartName, i,
				r.ID, r.ParentID, r.Name, string(r.Type), r.Value.String()); err != nil {
				return fmt.Errorf("insert asset: %w", err)
			}
		}
	}

	return tx.Commit()
}

func GetPackagesByRun(ctx context.Context, db *DB, runID string) ([]Package, error) {
	rows, err := db.QueryContext(ctx,
		db.rebind("SELECT run_id, name, path, checksum, parts FROM packages WHERE run_id = $1 ORDER BY path"), runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pkgs []Package
	for rows.Next() {
		var p Package
		if err := rows.Scan(&p.RunID, &p.Name, &p.Path, &p.Checksum, &p.Parts); err != nil {
			return nil, err
		}
		pkgs = append(pkgs, p)
	}
	return pkgs, rows.Err()
}

// GetAssetRows returns the stored rows of one asset table in insertion order.
func GetAssetRows(ctx context.Context, db *DB, runID string, name asset.Table) ([]table.AssetRow, error) {
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT package_name, part_name, asset_id, parent_id, name, type, value
		FROM assets WHERE run_id = $1 AND table_name = $2
		ORDER BY package_path, seq`), runID, string(name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []table.AssetRow
	for rows.Next() {
		var r table.AssetRow
		var typ, value string
		if err := rows.Scan(&r.PackageName, &r.PartName, &r.ID, &r.ParentID, &r.Name, &typ, &value); err != nil {
			return nil, err
		}
		r.Type = asset.Type(typ)
		r.Value = asset.ParseValue(value)
		out = append(out, r)
	}
	return out, rows.Err()
}

func CountAnimations(ctx context.Context, db *DB, runID string) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, db.rebind("SELECT COUNT(*) FROM animations WHERE run_id = $1"), runID).Scan(&count)
	return count, err
}

func LogAIUsage(ctx context.Context, db *DB, runID string, u *AIUsage) error {
	_, err := db.ExecContext(ctx, db.rebind(`
		INSERT INTO ai_usage (run_id, package_name, model, prompt_tokens, completion_tokens, total_tokens)
		VALUES ($1, $2, $3, $4, $5, $6)`),
		runID, u.PackageName, u.Model, u.PromptTokens, u.CompletionTokens, u.TotalTokens)
	return err
}

func GetTotalAITokens(ctx context.Context, db *DB, runID string) (int, error) {
	var total int
	err := db.QueryRowContext(ctx,
		db.rebind("SELECT COALESCE(SUM(total_tokens), 0) FROM ai_usage WHERE run_id = $1"), runID).Scan(&total)
	return total, err
}

// Writer stores every package result of one run.
type Writer struct {
	db    *DB
	runID string
	log   *zap.Logger
}

// NewWriter creates the schema if needed and records the run.
func NewWriter(ctx context.Context, db *DB, run *Run, log *zap.Logger) (*Writer, error) {
	if err := db.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	if err := SaveRun(ctx, db, run); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}
	return &Writer{db: db, runID: run.ID, log: log}, nil
}

func (w *Writer) RunID() string { return w.runID }

func (w *Writer) Consume(ctx context.Context, res *asset.PackageResult) error {
	if err := SavePackage(ctx, w.db, w.runID, res); err != nil {
		return fmt.Errorf("store %s: %w", res.Name, err)
	}
	w.log.Debug("package stored", zap.String("package", res.Name), zap.String("run_id", w.runID))
	return nil
}

// RecordUsage stores the token usage of one summary request.
func (w *Writer) RecordUsage(ctx context.Context, u *AIUsage) error {
	return LogAIUsage(ctx, w.db, w.runID, u)
}

// Close leaves the connection open; it belongs to the caller.
func (w *Writer) Close() error { return nil }
