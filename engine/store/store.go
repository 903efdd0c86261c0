// Package store owns all Postgres operations on the historical case base:
// hybrid vector search, schema and index management, vector backfill, and
// recommendation audit writes.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/FieldmateAI/fieldmate-mvp/engine/domain"
)

// DefaultDims is the vector dimensionality of the stock embedding model.
const DefaultDims = 1536

// Store is the sole owner of all Postgres operations.
type Store struct {
	db   *sqlx.DB
	dims int
}

// Connect opens a pooled connection to Postgres. dims is the dimensionality
// of the vector columns, used by EnsureSchema.
func Connect(dsn string, dims int) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &Store{db: db, dims: dims}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const searchBaseQuery = `
	SELECT
		claim_id,
		COALESCE(series_name, '') AS series_name,
		COALESCE(sub_series, '') AS sub_series,
		COALESCE(sub_assembly, '') AS sub_assembly,
		COALESCE(symptom_text, '') AS symptom_text,
		COALESCE(symptom_text_clean, '') AS symptom_text_clean,
		COALESCE(defect_text, '') AS defect_text,
		COALESCE(defect_text_clean, '') AS defect_text_clean,
		COALESCE(part_names, '') AS part_names,
		COALESCE(part_quantity, '') AS part_quantity,
		(
			$1 * (1 - (symptom_vector <=> $2::vector)) +
			$3 * (1 - (defect_vector <=> $2::vector))
		) AS similarity_score
	FROM repair_cases
	WHERE symptom_vector IS NOT NULL
	AND defect_vector IS NOT NULL`

// buildHybridQuery assembles the ranking query. The weight splits between
// the symptom vector (weight) and defect vector (1-weight); typeFilter, when
// non-empty, restricts to cases whose series name or sub-assembly contains
// it as a case-insensitive substring.
func buildHybridQuery(queryVec []float32, weight float64, typeFilter string, pool int) (string, []any) {
	query := searchBaseQuery
	args := []any{weight, pgvector.NewVector(queryVec), 1 - weight}
	n := len(args) + 1

	if typeFilter != "" {
		query += fmt.Sprintf(" AND (series_name ILIKE $%d OR sub_assembly ILIKE $%d)", n, n)
		args = append(args, "%"+typeFilter+"%")
		n++
	}

	query += fmt.Sprintf(" ORDER BY similarity_score DESC LIMIT $%d", n)
	args = append(args, pool)
	return query, args
}

// SearchHybrid ranks every searchable case by the blended two-vector cosine
// similarity and returns the top pool candidates, score descending. No
// cutoff is applied here; trimming is the caller's concern.
func (s *Store) SearchHybrid(ctx context.Context, queryVec []float32, weight float64, typeFilter string, pool int) ([]domain.SimilarCase, error) {
	query, args := buildHybridQuery(queryVec, weight, typeFilter, pool)

	var cases []domain.SimilarCase
	if err := s.db.SelectContext(ctx, &cases, query, args...); err != nil {
		return nil, fmt.Errorf("store: hybrid search: %w", err)
	}
	return cases, nil
}

const statsQuery = `
	SELECT
		COUNT(*) AS total_cases,
		COUNT(symptom_vector) AS symptom_vectors,
		COUNT(defect_vector) AS defect_vectors,
		COUNT(CASE WHEN symptom_vector IS NOT NULL AND defect_vector IS NOT NULL THEN 1 END) AS search_ready
	FROM repair_cases`

// Stats reports vector coverage of the case base.
func (s *Store) Stats(ctx context.Context) (domain.StoreStats, error) {
	var stats domain.StoreStats
	if err := s.db.GetContext(ctx, &stats, statsQuery); err != nil {
		return domain.StoreStats{}, fmt.Errorf("store: stats: %w", err)
	}
	return stats, nil
}

// EnsureSchema creates the pgvector extension and both tables if absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS repair_cases (
			claim_id TEXT PRIMARY KEY,
			series_name TEXT,
			sub_series TEXT,
			sub_assembly TEXT,
			symptom_text TEXT,
			symptom_text_clean TEXT,
			defect_text TEXT,
			defect_text_clean TEXT,
			part_names TEXT,
			part_quantity TEXT,
			symptom_embedding TEXT,
			defect_embedding TEXT,
			symptom_vector vector(%d),
			defect_vector vector(%d)
		)`, s.dims, s.dims),
		`CREATE TABLE IF NOT EXISTS ticket_recommendations (
			id BIGSERIAL PRIMARY KEY,
			ticket_id BIGINT NOT NULL,
			similar_claim_id TEXT,
			similarity_score DOUBLE PRECISION,
			recommended_parts JSONB,
			confidence_level DOUBLE PRECISION,
			analysis_notes JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: ensure schema: %w", err)
		}
	}
	return nil
}

// CreateVectorIndexes builds HNSW cosine indexes on both vector columns.
// Run after backfill; building on an empty table wastes nothing but
// building before bulk conversion slows the updates down.
func (s *Store) CreateVectorIndexes(ctx context.Context) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_symptom_vector ON repair_cases USING hnsw (symptom_vector vector_cosine_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_defect_vector ON repair_cases USING hnsw (defect_vector vector_cosine_ops)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: create vector indexes: %w", err)
		}
	}
	return nil
}

const listConvertibleQuery = `
	SELECT
		claim_id,
		COALESCE(symptom_embedding, '') AS symptom_embedding,
		COALESCE(defect_embedding, '') AS defect_embedding
	FROM repair_cases
	WHERE (symptom_embedding IS NOT NULL OR defect_embedding IS NOT NULL)
	AND (symptom_vector IS NULL OR defect_vector IS NULL)
	AND claim_id > $1
	ORDER BY claim_id
	LIMIT $2`

// ListConvertible pages through cases whose textual embeddings still need
// conversion to vector columns. Keyset pagination on claim_id: pass "" to
// start and the last returned claim_id to continue, so rows that fail to
// convert do not stall the scan.
func (s *Store) ListConvertible(ctx context.Context, afterClaimID string, limit int) ([]ConvertibleCase, error) {
	var rows []ConvertibleCase
	if err := s.db.SelectContext(ctx, &rows, listConvertibleQuery, afterClaimID, limit); err != nil {
		return nil, fmt.Errorf("store: list convertible: %w", err)
	}
	return rows, nil
}

const updateVectorsQuery = `
	UPDATE repair_cases
	SET symptom_vector = $1, defect_vector = $2
	WHERE claim_id = $3`

// UpdateVectors writes the converted vector columns for one case. A nil
// slice writes NULL for that column.
func (s *Store) UpdateVectors(ctx context.Context, claimID string, symptomVec, defectVec []float32) error {
	var sv, dv any
	if symptomVec != nil {
		sv = pgvector.NewVector(symptomVec)
	}
	if defectVec != nil {
		dv = pgvector.NewVector(defectVec)
	}
	if _, err := s.db.ExecContext(ctx, updateVectorsQuery, sv, dv, claimID); err != nil {
		return fmt.Errorf("store: update vectors %s: %w", claimID, err)
	}
	return nil
}

const insertCaseQuery = `
	INSERT INTO repair_cases (
		claim_id, series_name, sub_series, sub_assembly,
		symptom_text, symptom_text_clean, defect_text, defect_text_clean,
		part_names, part_quantity, symptom_embedding, defect_embedding
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (claim_id) DO NOTHING`

// InsertCase loads one historical case (text columns only; vectors are
// written by the backfill). Existing claim IDs are left untouched.
func (s *Store) InsertCase(ctx context.Context, c domain.HistoricalCase, symptomEmbedding, defectEmbedding string) error {
	_, err := s.db.ExecContext(ctx, insertCaseQuery,
		c.ClaimID, c.SeriesName, c.SubSeries, c.SubAssembly,
		c.SymptomText, c.SymptomTextClean, c.DefectText, c.DefectTextClean,
		c.PartNames, c.PartQuantity, nullIfEmpty(symptomEmbedding), nullIfEmpty(defectEmbedding),
	)
	if err != nil {
		return fmt.Errorf("store: insert case %s: %w", c.ClaimID, err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
