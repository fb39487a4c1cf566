package service

import (
	"context"
	"fmt"
	"time"

	"consenthub/internal/core/domain"
	"consenthub/internal/core/ports"
	"consenthub/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DSARServiceImpl implements ports.DSARService.
type DSARServiceImpl struct {
	dsarRepo   ports.DSARRepository
	partyRepo  ports.PartyRepository
	recorder   *recorder
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewDSARService creates a new DSARServiceImpl.
func NewDSARService(
	dsarRepo ports.DSARRepository,
	partyRepo ports.PartyRepository,
	auditRepo ports.AuditRepository,
	outboxRepo ports.OutboxRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *DSARServiceImpl {
	return &DSARServiceImpl{
		dsarRepo:   dsarRepo,
		partyRepo:  partyRepo,
		recorder:   newRecorder(auditRepo, outboxRepo),
		transactor: transactor,
		log:        log,
	}
}

// Submit files a new request. The due date is fixed at submission and never
// recalculated afterwards.
func (s *DSARServiceImpl) Submit(ctx context.Context, in ports.SubmitDSARInput) (*domain.DSARRequest, error) {
	if !domain.ValidDSARType(in.RequestType) {
		return nil, apperror.Validation(fmt.Sprintf("unknown request type: %s", in.RequestType))
	}

	exists, err := s.partyRepo.Exists(ctx, in.PartyID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if !exists {
		return nil, apperror.ErrPartyNotFound()
	}

	now := time.Now().UTC()
	dueDate := domain.DefaultDueDate(now)
	if in.DueDate != nil {
		if !in.DueDate.After(now) {
			return nil, apperror.Validation("due_date must be in the future")
		}
		dueDate = *in.DueDate
	}

	request := &domain.DSARRequest{
		ID:                 uuid.New(),
		PartyID:            in.PartyID,
		RequestType:        in.RequestType,
		Status:             domain.DSARStatusPending,
		Description:        in.Description,
		SubmittedAt:        now,
		DueDate:            dueDate,
		VerificationStatus: domain.VerificationUnverified,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.dsarRepo.Create(ctx, dbTx, request); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create request: %w", err))
	}

	err = s.recorder.record(ctx, dbTx, recordInput{
		EventType:    domain.EventDSARSubmitted,
		Action:       domain.ActionCreate,
		Actor:        in.Actor,
		PartyID:      &request.PartyID,
		ResourceID:   request.ID.String(),
		ResourceType: "dsar_request",
		Description:  fmt.Sprintf("%s request submitted, due %s", request.RequestType, request.DueDate.Format("2006-01-02")),
		NewValues:    request,
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record request submission: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("request_id", request.ID.String()).
		Str("type", string(request.RequestType)).
		Time("due_date", request.DueDate).
		Msg("data subject request submitted")
	return request, nil
}

func (s *DSARServiceImpl) Get(ctx context.Context, id uuid.UUID) (*domain.DSARRequest, error) {
	request, err := s.dsarRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if request == nil {
		return nil, apperror.ErrNotFound("request")
	}
	return request, nil
}

func (s *DSARServiceImpl) List(ctx context.Context, params ports.DSARListParams) ([]domain.DSARRequest, int64, error) {
	requests, total, err := s.dsarRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	return requests, total, nil
}

func (s *DSARServiceImpl) ListByParty(ctx context.Context, partyID uuid.UUID) ([]domain.DSARRequest, error) {
	requests, err := s.dsarRepo.ListByParty(ctx, partyID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return requests, nil
}

func (s *DSARServiceImpl) ListOverdue(ctx context.Context, limit int) ([]domain.DSARRequest, error) {
	requests, err := s.dsarRepo.ListOverdue(ctx, time.Now().UTC(), limit)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return requests, nil
}

// UpdateStatus drives the request state machine. Terminal states reject any
// further transition.
func (s *DSARServiceImpl) UpdateStatus(ctx context.Context, id uuid.UUID, in ports.DSARStatusInput) (*domain.DSARRequest, error) {
	if !domain.ValidDSARStatus(in.Status) {
		return nil, apperror.Validation(fmt.Sprintf("unknown request status: %s", in.Status))
	}

	request, err := s.dsarRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if request == nil {
		return nil, apperror.ErrNotFound("request")
	}
	if request.IsTerminal() {
		return nil, apperror.ErrRequestTerminal(string(request.Status))
	}
	if !request.CanTransition(in.Status) {
		return nil, apperror.ErrInvalidRequestTransition(string(request.Status), string(in.Status))
	}

	old := *request
	now := time.Now().UTC()
	request.Status = in.Status
	if in.ProcessingNotes != "" {
		request.ProcessingNotes = in.ProcessingNotes
	}
	if in.Verification != nil {
		request.VerificationStatus = *in.Verification
	}
	if in.Status == domain.DSARStatusCompleted {
		request.CompletedAt = &now
	}
	request.UpdatedAt = now

	eventType := domain.EventDSARStatusChanged
	severity := domain.SeverityInfo
	if in.Status == domain.DSARStatusCompleted {
		eventType = domain.EventDSARCompleted
		if now.After(request.DueDate) {
			severity = domain.SeverityWarning
		}
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.dsarRepo.Update(ctx, dbTx, request); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update request: %w", err))
	}

	err = s.recorder.record(ctx, dbTx, recordInput{
		EventType:    eventType,
		Action:       domain.ActionUpdate,
		Actor:        in.Actor,
		PartyID:      &request.PartyID,
		ResourceID:   request.ID.String(),
		ResourceType: "dsar_request",
		Description:  fmt.Sprintf("request moved from %s to %s", old.Status, request.Status),
		OldValues:    old,
		NewValues:    request,
		Severity:     severity,
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record request transition: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("request_id", id.String()).
		Str("from", string(old.Status)).
		Str("to", string(request.Status)).
		Msg("request status updated")
	return request, nil
}
