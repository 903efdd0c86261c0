package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/FieldmateAI/fieldmate-mvp/engine/domain"
	"github.com/FieldmateAI/fieldmate-mvp/pkg/repo"
)

const caseColumns = `
	claim_id,
	COALESCE(series_name, '') AS series_name,
	COALESCE(sub_series, '') AS sub_series,
	COALESCE(sub_assembly, '') AS sub_assembly,
	COALESCE(symptom_text, '') AS symptom_text,
	COALESCE(symptom_text_clean, '') AS symptom_text_clean,
	COALESCE(defect_text, '') AS defect_text,
	COALESCE(defect_text_clean, '') AS defect_text_clean,
	COALESCE(part_names, '') AS part_names,
	COALESCE(part_quantity, '') AS part_quantity`

// CaseRepo exposes repository-style reads over the case base. Cases are
// immutable once loaded, so only the read side is implemented.
type CaseRepo struct {
	db *sqlx.DB
}

var _ repo.Reader[domain.HistoricalCase, string] = (*CaseRepo)(nil)

// Cases returns the read-only case repository backed by this store.
func (s *Store) Cases() *CaseRepo {
	return &CaseRepo{db: s.db}
}

// Get fetches one case by claim ID. Wraps domain.ErrNotFound for misses.
func (r *CaseRepo) Get(ctx context.Context, claimID string) (domain.HistoricalCase, error) {
	var c domain.HistoricalCase
	query := `SELECT` + caseColumns + ` FROM repair_cases WHERE claim_id = $1`
	err := r.db.GetContext(ctx, &c, query, claimID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.HistoricalCase{}, fmt.Errorf("store: case %s: %w", claimID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.HistoricalCase{}, fmt.Errorf("store: get case %s: %w", claimID, err)
	}
	return c, nil
}

// List pages through cases ordered by claim ID. Recognized filters:
// "series" and "sub_assembly", both case-insensitive substring matches.
func (r *CaseRepo) List(ctx context.Context, opts repo.ListOpts) ([]domain.HistoricalCase, error) {
	query := `SELECT` + caseColumns + ` FROM repair_cases WHERE 1=1`
	args := []any{}
	n := 1

	if v, ok := opts.Filter["series"].(string); ok && v != "" {
		query += fmt.Sprintf(" AND series_name ILIKE $%d", n)
		args = append(args, "%"+v+"%")
		n++
	}
	if v, ok := opts.Filter["sub_assembly"].(string); ok && v != "" {
		query += fmt.Sprintf(" AND sub_assembly ILIKE $%d", n)
		args = append(args, "%"+v+"%")
		n++
	}

	query += fmt.Sprintf(" ORDER BY claim_id OFFSET $%d LIMIT $%d", n, n+1)
	args = append(args, opts.Offset, opts.PageSize(50))

	var cases []domain.HistoricalCase
	if err := r.db.SelectContext(ctx, &cases, query, args...); err != nil {
		return nil, fmt.Errorf("store: list cases: %w", err)
	}
	return cases, nil
}
