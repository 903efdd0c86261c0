package store

// ConvertibleCase is a backfill work item: one case's textual embedding
// columns awaiting conversion to vectors.
type ConvertibleCase struct {
	ClaimID          string `db:"claim_id"`
	SymptomEmbedding string `db:"symptom_embedding"`
	DefectEmbedding  string `db:"defect_embedding"`
}
