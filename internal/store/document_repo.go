package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
)

// DocumentRepo persists per-tender documents and the product line
// items the OCR/LLM extraction pipeline (internal/docproc) derives
// from them. ProductItem rows carry an optional pgvector embedding
// column used only by a future semantic-search surface; it is written
// when docproc supplies one and left NULL otherwise, since embedding
// generation is not itself part of this pipeline's scope.
type DocumentRepo struct {
	pool *Pool
}

func NewDocumentRepo(pool *Pool) *DocumentRepo { return &DocumentRepo{pool: pool} }

func (r *DocumentRepo) Upsert(ctx context.Context, tx pgx.Tx, d *domain.Document) (int64, error) {
	specs, err := json.Marshal(d.Specifications)
	if err != nil {
		return 0, err
	}
	payload := d.StatusPayload
	if payload == nil {
		payload = json.RawMessage("{}")
	}
	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO documents (
			tender_id, source_url, local_path, mime, file_size_bytes, page_count,
			extraction_status, extracted_text, specifications, status_payload,
			attempts, last_attempt_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12, now())
		ON CONFLICT (tender_id, source_url) DO UPDATE SET
			local_path = EXCLUDED.local_path,
			mime = EXCLUDED.mime,
			file_size_bytes = EXCLUDED.file_size_bytes,
			page_count = EXCLUDED.page_count,
			extraction_status = EXCLUDED.extraction_status,
			extracted_text = EXCLUDED.extracted_text,
			specifications = EXCLUDED.specifications,
			status_payload = EXCLUDED.status_payload,
			attempts = EXCLUDED.attempts,
			last_attempt_at = EXCLUDED.last_attempt_at,
			updated_at = now()
		RETURNING id`,
		d.TenderID, d.SourceURL, d.LocalPath, d.MIME, d.FileSizeBytes, d.PageCount,
		string(d.ExtractionStatus), d.ExtractedText, specs, payload,
		d.Attempts, d.LastAttemptAt,
	).Scan(&id)
	return id, err
}

// PendingForRetry returns documents whose extraction_status is
// "pending" or "failed" with attempts below maxAttempts, ordered
// oldest-attempt first, for the doc-processor's retry-with-backoff
// sweep. When force is true the status filter is dropped entirely, so
// documents already marked "success" are swept again too (an operator
// re-running extraction after an OCR engine or extractor change).
func (r *DocumentRepo) PendingForRetry(ctx context.Context, maxAttempts int, limit int, force bool) ([]domain.Document, error) {
	query := `
		SELECT id, tender_id, source_url, local_path, mime, file_size_bytes, page_count,
		       extraction_status, extracted_text, attempts, last_attempt_at
		FROM documents
		WHERE attempts < $1 %s
		ORDER BY last_attempt_at NULLS FIRST
		LIMIT $2`
	statusFilter := "AND extraction_status IN ('pending', 'failed')"
	if force {
		statusFilter = ""
	}
	rows, err := r.pool.Query(ctx, fmt.Sprintf(query, statusFilter), maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []domain.Document
	for rows.Next() {
		var d domain.Document
		var status string
		if err := rows.Scan(&d.ID, &d.TenderID, &d.SourceURL, &d.LocalPath, &d.MIME,
			&d.FileSizeBytes, &d.PageCount, &status, &d.ExtractedText, &d.Attempts, &d.LastAttemptAt); err != nil {
			return nil, err
		}
		d.ExtractionStatus = domain.ExtractionStatus(status)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// InsertProductItem writes one extracted line item, optionally with an
// embedding vector; embedding may be nil.
func (r *DocumentRepo) InsertProductItem(ctx context.Context, tx pgx.Tx, p *domain.ProductItem, embedding []float32) error {
	specs, err := json.Marshal(p.Specifications)
	if err != nil {
		return err
	}
	var unitPrice, totalPrice *int64
	if p.UnitPrice != nil {
		v := p.UnitPrice.Units
		unitPrice = &v
	}
	if p.TotalPrice != nil {
		v := p.TotalPrice.Units
		totalPrice = &v
	}

	var vec *pgvector.Vector
	if embedding != nil {
		v := pgvector.NewVector(embedding)
		vec = &v
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO product_items (document_id, tender_id, name, quantity, unit, unit_price_units, total_price_units, specifications, category, embedding)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.DocumentID, p.TenderID, p.Name, p.Quantity, p.Unit, unitPrice, totalPrice, specs, p.Category, vec,
	)
	return err
}

// MarkAttempt bumps a document's attempt counter and last-attempt
// timestamp without touching its extracted content, used when a
// retry fails before producing any new text.
func (r *DocumentRepo) MarkAttempt(ctx context.Context, docID int64, status domain.ExtractionStatus, attemptedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE documents SET attempts = attempts + 1, extraction_status = $2, last_attempt_at = $3, updated_at = now()
		WHERE id = $1`, docID, string(status), attemptedAt)
	return err
}
