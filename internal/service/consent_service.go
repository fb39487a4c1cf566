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

// ConsentServiceImpl implements ports.ConsentService.
type ConsentServiceImpl struct {
	consentRepo ports.ConsentRepository
	partyRepo   ports.PartyRepository
	recorder    *recorder
	transactor  ports.DBTransactor
	log         zerolog.Logger
}

// NewConsentService creates a new ConsentServiceImpl.
func NewConsentService(
	consentRepo ports.ConsentRepository,
	partyRepo ports.PartyRepository,
	auditRepo ports.AuditRepository,
	outboxRepo ports.OutboxRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *ConsentServiceImpl {
	return &ConsentServiceImpl{
		consentRepo: consentRepo,
		partyRepo:   partyRepo,
		recorder:    newRecorder(auditRepo, outboxRepo),
		transactor:  transactor,
		log:         log,
	}
}

func (s *ConsentServiceImpl) Create(ctx context.Context, in ports.CreateConsentInput) (*domain.ConsentRecord, error) {
	if !domain.ValidConsentType(in.ConsentType) {
		return nil, apperror.Validation(fmt.Sprintf("unknown consent type: %s", in.ConsentType))
	}
	if !domain.ValidLegalBasis(in.LegalBasis) {
		return nil, apperror.Validation(fmt.Sprintf("unknown legal basis: %s", in.LegalBasis))
	}
	if in.ExpiresAt != nil && !in.ExpiresAt.After(time.Now()) {
		return nil, apperror.Validation("expires_at must be in the future")
	}

	exists, err := s.partyRepo.Exists(ctx, in.PartyID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if !exists {
		return nil, apperror.ErrPartyNotFound()
	}

	now := time.Now().UTC()
	consent := &domain.ConsentRecord{
		ID:           uuid.New(),
		PartyID:      in.PartyID,
		ConsentType:  in.ConsentType,
		Purpose:      in.Purpose,
		Status:       domain.ConsentStatusPending,
		Channel:      in.Channel,
		LegalBasis:   in.LegalBasis,
		Category:     in.Category,
		Jurisdiction: in.Jurisdiction,
		ExpiresAt:    in.ExpiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	eventType := domain.EventConsentCreated
	action := domain.ActionCreate
	if in.Granted {
		// Captured consent: the subject accepted at collection time.
		consent.Status = domain.ConsentStatusGranted
		consent.GrantedAt = &now
		eventType = domain.EventConsentGranted
		action = domain.ActionGrant
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.consentRepo.Create(ctx, dbTx, consent); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create consent: %w", err))
	}

	err = s.recorder.record(ctx, dbTx, recordInput{
		EventType:    eventType,
		Action:       action,
		Actor:        in.Actor,
		PartyID:      &consent.PartyID,
		ResourceID:   consent.ID.String(),
		ResourceType: "consent",
		Description:  fmt.Sprintf("%s consent recorded for purpose %q", consent.ConsentType, consent.Purpose),
		NewValues:    consent,
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record consent creation: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("consent_id", consent.ID.String()).
		Str("party_id", consent.PartyID.String()).
		Str("status", string(consent.Status)).
		Msg("consent created")
	return consent, nil
}

func (s *ConsentServiceImpl) Get(ctx context.Context, id uuid.UUID) (*domain.ConsentRecord, error) {
	consent, err := s.consentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if consent == nil {
		return nil, apperror.ErrNotFound("consent")
	}
	return consent, nil
}

func (s *ConsentServiceImpl) List(ctx context.Context, params ports.ConsentListParams) ([]domain.ConsentRecord, int64, error) {
	consents, total, err := s.consentRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	return consents, total, nil
}

func (s *ConsentServiceImpl) ListByParty(ctx context.Context, partyID uuid.UUID) ([]domain.ConsentRecord, error) {
	consents, err := s.consentRepo.ListByParty(ctx, partyID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return consents, nil
}

// Grant moves a pending consent to granted and stamps GrantedAt.
func (s *ConsentServiceImpl) Grant(ctx context.Context, id uuid.UUID, expiresAt *time.Time, actor ports.Actor) (*domain.ConsentRecord, error) {
	consent, err := s.consentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if consent == nil {
		return nil, apperror.ErrNotFound("consent")
	}
	if !consent.CanTransition(domain.ConsentStatusGranted) {
		return nil, apperror.ErrConsentNotPending()
	}
	if expiresAt != nil && !expiresAt.After(time.Now()) {
		return nil, apperror.Validation("expires_at must be in the future")
	}

	old := *consent
	now := time.Now().UTC()
	consent.Status = domain.ConsentStatusGranted
	consent.GrantedAt = &now
	if expiresAt != nil {
		consent.ExpiresAt = expiresAt
	}
	consent.UpdatedAt = now

	if err := s.applyTransition(ctx, consent, &old, recordInput{
		EventType:    domain.EventConsentGranted,
		Action:       domain.ActionGrant,
		Actor:        actor,
		Description:  fmt.Sprintf("%s consent granted", consent.ConsentType),
	}); err != nil {
		return nil, err
	}

	s.log.Info().Str("consent_id", id.String()).Msg("consent granted")
	return consent, nil
}

// Revoke moves a granted consent to revoked and stamps RevokedAt. Revocation
// is terminal.
func (s *ConsentServiceImpl) Revoke(ctx context.Context, id uuid.UUID, actor ports.Actor) (*domain.ConsentRecord, error) {
	consent, err := s.consentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if consent == nil {
		return nil, apperror.ErrNotFound("consent")
	}
	if !consent.CanTransition(domain.ConsentStatusRevoked) {
		return nil, apperror.ErrInvalidConsentTransition(string(consent.Status), string(domain.ConsentStatusRevoked))
	}

	old := *consent
	now := time.Now().UTC()
	consent.Status = domain.ConsentStatusRevoked
	consent.RevokedAt = &now
	consent.UpdatedAt = now

	if err := s.applyTransition(ctx, consent, &old, recordInput{
		EventType:    domain.EventConsentRevoked,
		Action:       domain.ActionRevoke,
		Actor:        actor,
		Description:  fmt.Sprintf("%s consent revoked", consent.ConsentType),
		Severity:     domain.SeverityWarning,
	}); err != nil {
		return nil, err
	}

	s.log.Info().Str("consent_id", id.String()).Msg("consent revoked")
	return consent, nil
}

func (s *ConsentServiceImpl) applyTransition(ctx context.Context, consent *domain.ConsentRecord, old *domain.ConsentRecord, rec recordInput) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.consentRepo.Update(ctx, dbTx, consent); err != nil {
		return apperror.InternalError(fmt.Errorf("update consent: %w", err))
	}

	rec.PartyID = &consent.PartyID
	rec.ResourceID = consent.ID.String()
	rec.ResourceType = "consent"
	rec.OldValues = old
	rec.NewValues = consent
	if err := s.recorder.record(ctx, dbTx, rec); err != nil {
		return apperror.InternalError(fmt.Errorf("record consent transition: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}
