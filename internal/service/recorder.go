package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"consenthub/internal/core/domain"
	"consenthub/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// recordInput describes one auditable domain change.
type recordInput struct {
	EventType    domain.EventType
	Action       domain.AuditAction
	Actor        ports.Actor
	PartyID      *uuid.UUID
	ResourceID   string
	ResourceType string
	Description  string
	OldValues    any
	NewValues    any
	Severity     domain.AuditSeverity
}

// recorder appends the audit entry and outbox event belonging to a domain
// write. Both inserts run on the caller's transaction: the change, its audit
// record and its event commit together or not at all.
type recorder struct {
	auditRepo  ports.AuditRepository
	outboxRepo ports.OutboxRepository
}

func newRecorder(auditRepo ports.AuditRepository, outboxRepo ports.OutboxRepository) *recorder {
	return &recorder{auditRepo: auditRepo, outboxRepo: outboxRepo}
}

func (r *recorder) record(ctx context.Context, tx pgx.Tx, in recordInput) error {
	now := time.Now().UTC()

	oldValues, err := marshalValues(in.OldValues)
	if err != nil {
		return fmt.Errorf("marshal old values: %w", err)
	}
	newValues, err := marshalValues(in.NewValues)
	if err != nil {
		return fmt.Errorf("marshal new values: %w", err)
	}

	severity := in.Severity
	if severity == "" {
		severity = domain.SeverityInfo
	}

	entry := &domain.AuditEntry{
		ID:           uuid.New(),
		EventType:    in.EventType,
		ActorID:      in.Actor.ID,
		ActorType:    in.Actor.Type,
		PartyID:      in.PartyID,
		ResourceID:   in.ResourceID,
		ResourceType: in.ResourceType,
		Action:       in.Action,
		Description:  in.Description,
		OldValues:    oldValues,
		NewValues:    newValues,
		IPAddress:    in.Actor.IPAddress,
		UserAgent:    in.Actor.UserAgent,
		Source:       in.Actor.Source,
		Severity:     severity,
		Timestamp:    now,
	}
	if reason, ok := entry.Validate(); !ok {
		return fmt.Errorf("invalid audit entry: %s", reason)
	}
	if err := r.auditRepo.Append(ctx, tx, entry); err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]any{
		"audit_entry_id": entry.ID,
		"actor_id":       in.Actor.ID,
		"party_id":       in.PartyID,
		"new_values":     newValues,
	})
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	outbox := &domain.OutboxEntry{
		ID:            uuid.New(),
		AggregateType: in.ResourceType,
		AggregateID:   in.ResourceID,
		EventType:     in.EventType,
		Payload:       payload,
		Status:        domain.OutboxPending,
		CreatedAt:     now,
	}
	return r.outboxRepo.Insert(ctx, tx, outbox)
}

func marshalValues(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return raw, nil
}
