package completion

import (
	"context"
	"encoding/json"
	"fmt"

	"vendor-onboarding/internal/common/database"

	"github.com/google/uuid"
)

const insertCompletion = `
INSERT INTO onboarding_completions (
	id, vendor_id, vendor_type, business_name, verification_type,
	completion_percent, draft, completed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (vendor_id) DO NOTHING`

// AuditSink appends one row per vendor to onboarding_completions.
type AuditSink struct {
	pg *database.PostgresClient
}

func NewAuditSink(pg *database.PostgresClient) *AuditSink {
	return &AuditSink{pg: pg}
}

func (a *AuditSink) Name() string { return "audit" }

func (a *AuditSink) Deliver(ctx context.Context, rec Record) error {
	draftJSON, err := json.Marshal(rec.MaskedDraft())
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}

	doc := rec.document()
	_, err = a.pg.DB.ExecContext(ctx, insertCompletion,
		uuid.New().String(),
		rec.VendorID,
		doc.VendorType,
		doc.BusinessName,
		doc.VerificationType,
		rec.Completion.Percentage,
		draftJSON,
		rec.CompletedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert completion audit: %w", err)
	}
	return nil
}
