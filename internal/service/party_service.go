package service

import (
	"context"
	"fmt"
	"time"

	"consenthub/internal/adapter/storage/postgres"
	"consenthub/internal/core/domain"
	"consenthub/internal/core/ports"
	"consenthub/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PartyServiceImpl implements ports.PartyService.
type PartyServiceImpl struct {
	partyRepo  ports.PartyRepository
	recorder   *recorder
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewPartyService creates a new PartyServiceImpl.
func NewPartyService(
	partyRepo ports.PartyRepository,
	auditRepo ports.AuditRepository,
	outboxRepo ports.OutboxRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *PartyServiceImpl {
	return &PartyServiceImpl{
		partyRepo:  partyRepo,
		recorder:   newRecorder(auditRepo, outboxRepo),
		transactor: transactor,
		log:        log,
	}
}

func (s *PartyServiceImpl) Create(ctx context.Context, in ports.CreatePartyInput) (*domain.Party, error) {
	if !domain.ValidPartyType(in.Type) {
		return nil, apperror.Validation(fmt.Sprintf("unknown party type: %s", in.Type))
	}

	now := time.Now().UTC()
	party := &domain.Party{
		ID:        uuid.New(),
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		Type:      in.Type,
		Status:    domain.PartyStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.partyRepo.Create(ctx, dbTx, party); err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, apperror.ErrDuplicate("party with this email")
		}
		return nil, apperror.InternalError(fmt.Errorf("create party: %w", err))
	}

	err = s.recorder.record(ctx, dbTx, recordInput{
		EventType:    domain.EventPartyCreated,
		Action:       domain.ActionCreate,
		Actor:        in.Actor,
		PartyID:      &party.ID,
		ResourceID:   party.ID.String(),
		ResourceType: "party",
		Description:  fmt.Sprintf("party %s created", party.Email),
		NewValues:    party,
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record party creation: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Str("party_id", party.ID.String()).Msg("party created")
	return party, nil
}

func (s *PartyServiceImpl) Get(ctx context.Context, id uuid.UUID) (*domain.Party, error) {
	party, err := s.partyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if party == nil {
		return nil, apperror.ErrNotFound("party")
	}
	return party, nil
}

func (s *PartyServiceImpl) List(ctx context.Context, params ports.PartyListParams) ([]domain.Party, int64, error) {
	parties, total, err := s.partyRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	return parties, total, nil
}

func (s *PartyServiceImpl) Update(ctx context.Context, id uuid.UUID, in ports.UpdatePartyInput) (*domain.Party, error) {
	party, err := s.partyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if party == nil {
		return nil, apperror.ErrNotFound("party")
	}

	old := *party
	if in.Name != nil {
		party.Name = *in.Name
	}
	if in.Phone != nil {
		party.Phone = *in.Phone
	}
	if in.Status != nil {
		if !domain.ValidPartyStatus(*in.Status) {
			return nil, apperror.Validation(fmt.Sprintf("unknown party status: %s", *in.Status))
		}
		party.Status = *in.Status
	}
	party.UpdatedAt = time.Now().UTC()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.partyRepo.Update(ctx, dbTx, party); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update party: %w", err))
	}

	err = s.recorder.record(ctx, dbTx, recordInput{
		EventType:    domain.EventPartyUpdated,
		Action:       domain.ActionUpdate,
		Actor:        in.Actor,
		PartyID:      &party.ID,
		ResourceID:   party.ID.String(),
		ResourceType: "party",
		Description:  "party profile updated",
		OldValues:    old,
		NewValues:    party,
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record party update: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return party, nil
}

// Deactivate marks the party inactive. The row stays so consents and
// requests keep a valid reference.
func (s *PartyServiceImpl) Deactivate(ctx context.Context, id uuid.UUID, actor ports.Actor) error {
	party, err := s.partyRepo.GetByID(ctx, id)
	if err != nil {
		return apperror.InternalError(err)
	}
	if party == nil {
		return apperror.ErrNotFound("party")
	}

	old := *party
	party.Status = domain.PartyStatusInactive
	party.UpdatedAt = time.Now().UTC()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.partyRepo.Update(ctx, dbTx, party); err != nil {
		return apperror.InternalError(fmt.Errorf("deactivate party: %w", err))
	}

	err = s.recorder.record(ctx, dbTx, recordInput{
		EventType:    domain.EventPartyDeleted,
		Action:       domain.ActionDelete,
		Actor:        actor,
		PartyID:      &party.ID,
		ResourceID:   party.ID.String(),
		ResourceType: "party",
		Description:  "party deactivated",
		OldValues:    old,
		NewValues:    party,
		Severity:     domain.SeverityWarning,
	})
	if err != nil {
		return apperror.InternalError(fmt.Errorf("record party deactivation: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Str("party_id", id.String()).Msg("party deactivated")
	return nil
}
