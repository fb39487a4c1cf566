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

// PreferenceServiceImpl implements ports.PreferenceService.
type PreferenceServiceImpl struct {
	prefRepo   ports.PreferenceRepository
	partyRepo  ports.PartyRepository
	recorder   *recorder
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewPreferenceService creates a new PreferenceServiceImpl.
func NewPreferenceService(
	prefRepo ports.PreferenceRepository,
	partyRepo ports.PartyRepository,
	auditRepo ports.AuditRepository,
	outboxRepo ports.OutboxRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *PreferenceServiceImpl {
	return &PreferenceServiceImpl{
		prefRepo:   prefRepo,
		partyRepo:  partyRepo,
		recorder:   newRecorder(auditRepo, outboxRepo),
		transactor: transactor,
		log:        log,
	}
}

func (s *PreferenceServiceImpl) Create(ctx context.Context, in ports.CreatePreferenceInput) (*domain.PreferenceRecord, error) {
	if !domain.ValidPreferenceChannel(in.Channel) {
		return nil, apperror.Validation(fmt.Sprintf("unknown channel: %s", in.Channel))
	}
	if !domain.ValidPreferenceFrequency(in.Frequency) {
		return nil, apperror.Validation(fmt.Sprintf("unknown frequency: %s", in.Frequency))
	}

	exists, err := s.partyRepo.Exists(ctx, in.PartyID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if !exists {
		return nil, apperror.ErrPartyNotFound()
	}

	now := time.Now().UTC()
	pref := &domain.PreferenceRecord{
		ID:             uuid.New(),
		PartyID:        in.PartyID,
		PreferenceType: in.PreferenceType,
		Channel:        in.Channel,
		Enabled:        in.Enabled,
		Frequency:      in.Frequency,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.prefRepo.Create(ctx, dbTx, pref); err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, apperror.ErrDuplicate("preference for this party, type and channel")
		}
		return nil, apperror.InternalError(fmt.Errorf("create preference: %w", err))
	}

	err = s.recorder.record(ctx, dbTx, recordInput{
		EventType:    domain.EventPreferenceCreated,
		Action:       domain.ActionCreate,
		Actor:        in.Actor,
		PartyID:      &pref.PartyID,
		ResourceID:   pref.ID.String(),
		ResourceType: "preference",
		Description:  fmt.Sprintf("%s preference set on %s", pref.PreferenceType, pref.Channel),
		NewValues:    pref,
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record preference creation: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return pref, nil
}

func (s *PreferenceServiceImpl) Get(ctx context.Context, id uuid.UUID) (*domain.PreferenceRecord, error) {
	pref, err := s.prefRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if pref == nil {
		return nil, apperror.ErrNotFound("preference")
	}
	return pref, nil
}

func (s *PreferenceServiceImpl) List(ctx context.Context, params ports.PreferenceListParams) ([]domain.PreferenceRecord, int64, error) {
	prefs, total, err := s.prefRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	return prefs, total, nil
}

func (s *PreferenceServiceImpl) ListByParty(ctx context.Context, partyID uuid.UUID) ([]domain.PreferenceRecord, error) {
	prefs, err := s.prefRepo.ListByParty(ctx, partyID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return prefs, nil
}

func (s *PreferenceServiceImpl) Update(ctx context.Context, id uuid.UUID, in ports.UpdatePreferenceInput) (*domain.PreferenceRecord, error) {
	pref, err := s.prefRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if pref == nil {
		return nil, apperror.ErrNotFound("preference")
	}

	old := *pref
	if in.Enabled != nil {
		pref.Enabled = *in.Enabled
	}
	if in.Frequency != nil {
		if !domain.ValidPreferenceFrequency(*in.Frequency) {
			return nil, apperror.Validation(fmt.Sprintf("unknown frequency: %s", *in.Frequency))
		}
		pref.Frequency = *in.Frequency
	}
	pref.UpdatedAt = time.Now().UTC()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.prefRepo.Update(ctx, dbTx, pref); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update preference: %w", err))
	}

	err = s.recorder.record(ctx, dbTx, recordInput{
		EventType:    domain.EventPreferenceUpdated,
		Action:       domain.ActionUpdate,
		Actor:        in.Actor,
		PartyID:      &pref.PartyID,
		ResourceID:   pref.ID.String(),
		ResourceType: "preference",
		Description:  fmt.Sprintf("%s preference updated on %s", pref.PreferenceType, pref.Channel),
		OldValues:    old,
		NewValues:    pref,
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record preference update: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return pref, nil
}

func (s *PreferenceServiceImpl) Delete(ctx context.Context, id uuid.UUID, actor ports.Actor) error {
	pref, err := s.prefRepo.GetByID(ctx, id)
	if err != nil {
		return apperror.InternalError(err)
	}
	if pref == nil {
		return apperror.ErrNotFound("preference")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.prefRepo.Delete(ctx, dbTx, id); err != nil {
		return apperror.InternalError(fmt.Errorf("delete preference: %w", err))
	}

	err = s.recorder.record(ctx, dbTx, recordInput{
		EventType:    domain.EventPreferenceDeleted,
		Action:       domain.ActionDelete,
		Actor:        actor,
		PartyID:      &pref.PartyID,
		ResourceID:   pref.ID.String(),
		ResourceType: "preference",
		Description:  fmt.Sprintf("%s preference removed from %s", pref.PreferenceType, pref.Channel),
		OldValues:    pref,
	})
	if err != nil {
		return apperror.InternalError(fmt.Errorf("record preference deletion: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}
