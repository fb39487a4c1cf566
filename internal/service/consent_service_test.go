package service

import (
	"context"
	"testing"
	"time"

	"consenthub/internal/core/domain"
	"consenthub/internal/core/ports"
	"consenthub/internal/core/ports/mocks"
	"consenthub/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type consentTestDeps struct {
	svc         *ConsentServiceImpl
	consentRepo *mocks.MockConsentRepository
	partyRepo   *mocks.MockPartyRepository
	auditRepo   *mocks.MockAuditRepository
	outboxRepo  *mocks.MockOutboxRepository
	transactor  *mocks.MockDBTransactor
	ctrl        *gomock.Controller
}

func setupConsentService(t *testing.T) *consentTestDeps {
	ctrl := gomock.NewController(t)
	d := &consentTestDeps{
		consentRepo: mocks.NewMockConsentRepository(ctrl),
		partyRepo:   mocks.NewMockPartyRepository(ctrl),
		auditRepo:   mocks.NewMockAuditRepository(ctrl),
		outboxRepo:  mocks.NewMockOutboxRepository(ctrl),
		transactor:  mocks.NewMockDBTransactor(ctrl),
		ctrl:        ctrl,
	}
	d.svc = NewConsentService(
		d.consentRepo, d.partyRepo, d.auditRepo, d.outboxRepo,
		d.transactor, zerolog.Nop(),
	)
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

func testActor() ports.Actor {
	return ports.Actor{
		ID:        "csr-17",
		Type:      domain.ActorUser,
		IPAddress: "10.0.0.4",
		UserAgent: "curl/8.0",
		Source:    domain.SourceWeb,
	}
}

// ==================== Create Tests ====================

func TestConsentService_Create_Success(t *testing.T) {
	d := setupConsentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	partyID := uuid.New()
	tx := &mockTx{}

	d.partyRepo.EXPECT().Exists(ctx, partyID).Return(true, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.consentRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.auditRepo.EXPECT().Append(ctx, tx, gomock.Any()).Return(nil)
	d.outboxRepo.EXPECT().Insert(ctx, tx, gomock.Any()).Return(nil)

	consent, err := d.svc.Create(ctx, ports.CreateConsentInput{
		PartyID:     partyID,
		ConsentType: domain.ConsentTypeMarketing,
		Purpose:     "email campaigns",
		LegalBasis:  domain.LegalBasisConsent,
		Actor:       testActor(),
	})
	require.NoError(t, err)
	require.NotNil(t, consent)
	assert.Equal(t, domain.ConsentStatusPending, consent.Status)
	assert.Nil(t, consent.GrantedAt)
	assert.Equal(t, partyID, consent.PartyID)
}

func TestConsentService_Create_GrantedAtCapture(t *testing.T) {
	d := setupConsentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	partyID := uuid.New()
	tx := &mockTx{}

	d.partyRepo.EXPECT().Exists(ctx, partyID).Return(true, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.consentRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.auditRepo.EXPECT().Append(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, e *domain.AuditEntry) error {
			assert.Equal(t, domain.EventConsentGranted, e.EventType)
			assert.Equal(t, domain.ActionGrant, e.Action)
			return nil
		})
	d.outboxRepo.EXPECT().Insert(ctx, tx, gomock.Any()).Return(nil)

	consent, err := d.svc.Create(ctx, ports.CreateConsentInput{
		PartyID:     partyID,
		ConsentType: domain.ConsentTypeCookies,
		Purpose:     "cookie banner",
		LegalBasis:  domain.LegalBasisConsent,
		Granted:     true,
		Actor:       testActor(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ConsentStatusGranted, consent.Status)
	require.NotNil(t, consent.GrantedAt)
}

func TestConsentService_Create_UnknownType(t *testing.T) {
	d := setupConsentService(t)
	defer d.ctrl.Finish()

	consent, err := d.svc.Create(context.Background(), ports.CreateConsentInput{
		PartyID:     uuid.New(),
		ConsentType: "telepathy",
		LegalBasis:  domain.LegalBasisConsent,
		Actor:       testActor(),
	})
	assert.Nil(t, consent)
	assertAppError(t, err, "VAL_001")
}

func TestConsentService_Create_PartyMissing(t *testing.T) {
	d := setupConsentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	partyID := uuid.New()

	d.partyRepo.EXPECT().Exists(ctx, partyID).Return(false, nil)

	consent, err := d.svc.Create(ctx, ports.CreateConsentInput{
		PartyID:     partyID,
		ConsentType: domain.ConsentTypeAnalytics,
		LegalBasis:  domain.LegalBasisConsent,
		Actor:       testActor(),
	})
	assert.Nil(t, consent)
	assertAppError(t, err, "RES_002")
}

func TestConsentService_Create_ExpiryInPast(t *testing.T) {
	d := setupConsentService(t)
	defer d.ctrl.Finish()

	past := time.Now().Add(-time.Hour)
	consent, err := d.svc.Create(context.Background(), ports.CreateConsentInput{
		PartyID:     uuid.New(),
		ConsentType: domain.ConsentTypeMarketing,
		LegalBasis:  domain.LegalBasisConsent,
		ExpiresAt:   &past,
		Actor:       testActor(),
	})
	assert.Nil(t, consent)
	assertAppError(t, err, "VAL_001")
}

// ==================== Grant Tests ====================

func TestConsentService_Grant_Success(t *testing.T) {
	d := setupConsentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()
	tx := &mockTx{}
	pending := &domain.ConsentRecord{
		ID:          id,
		PartyID:     uuid.New(),
		ConsentType: domain.ConsentTypeMarketing,
		Status:      domain.ConsentStatusPending,
	}

	d.consentRepo.EXPECT().GetByID(ctx, id).Return(pending, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.consentRepo.EXPECT().Update(ctx, tx, gomock.Any()).Return(nil)
	d.auditRepo.EXPECT().Append(ctx, tx, gomock.Any()).Return(nil)
	d.outboxRepo.EXPECT().Insert(ctx, tx, gomock.Any()).Return(nil)

	consent, err := d.svc.Grant(ctx, id, nil, testActor())
	require.NoError(t, err)
	assert.Equal(t, domain.ConsentStatusGranted, consent.Status)
	require.NotNil(t, consent.GrantedAt)
}

func TestConsentService_Grant_NotPending(t *testing.T) {
	d := setupConsentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()

	d.consentRepo.EXPECT().GetByID(ctx, id).Return(&domain.ConsentRecord{
		ID:     id,
		Status: domain.ConsentStatusRevoked,
	}, nil)

	consent, err := d.svc.Grant(ctx, id, nil, testActor())
	assert.Nil(t, consent)
	assertAppError(t, err, "CONS_002")
}

func TestConsentService_Grant_NotFound(t *testing.T) {
	d := setupConsentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()

	d.consentRepo.EXPECT().GetByID(ctx, id).Return(nil, nil)

	consent, err := d.svc.Grant(ctx, id, nil, testActor())
	assert.Nil(t, consent)
	assertAppError(t, err, "RES_001")
}

// ==================== Revoke Tests ====================

func TestConsentService_Revoke_Success(t *testing.T) {
	d := setupConsentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()
	tx := &mockTx{}
	grantedAt := time.Now().UTC().Add(-24 * time.Hour)
	granted := &domain.ConsentRecord{
		ID:          id,
		PartyID:     uuid.New(),
		ConsentType: domain.ConsentTypeDataSharing,
		Status:      domain.ConsentStatusGranted,
		GrantedAt:   &grantedAt,
	}

	d.consentRepo.EXPECT().GetByID(ctx, id).Return(granted, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.consentRepo.EXPECT().Update(ctx, tx, gomock.Any()).Return(nil)
	d.auditRepo.EXPECT().Append(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, e *domain.AuditEntry) error {
			assert.Equal(t, domain.SeverityWarning, e.Severity)
			return nil
		})
	d.outboxRepo.EXPECT().Insert(ctx, tx, gomock.Any()).Return(nil)

	consent, err := d.svc.Revoke(ctx, id, testActor())
	require.NoError(t, err)
	assert.Equal(t, domain.ConsentStatusRevoked, consent.Status)
	require.NotNil(t, consent.RevokedAt)
}

func TestConsentService_Revoke_AlreadyRevoked(t *testing.T) {
	d := setupConsentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()

	d.consentRepo.EXPECT().GetByID(ctx, id).Return(&domain.ConsentRecord{
		ID:     id,
		Status: domain.ConsentStatusRevoked,
	}, nil)

	consent, err := d.svc.Revoke(ctx, id, testActor())
	assert.Nil(t, consent)
	assertAppError(t, err, "CONS_001")
}

// Pending consents can be revoked directly: the subject declined.
func TestConsentService_Revoke_FromPending(t *testing.T) {
	d := setupConsentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()
	tx := &mockTx{}

	d.consentRepo.EXPECT().GetByID(ctx, id).Return(&domain.ConsentRecord{
		ID:          id,
		PartyID:     uuid.New(),
		ConsentType: domain.ConsentTypeMarketing,
		Status:      domain.ConsentStatusPending,
	}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.consentRepo.EXPECT().Update(ctx, tx, gomock.Any()).Return(nil)
	d.auditRepo.EXPECT().Append(ctx, tx, gomock.Any()).Return(nil)
	d.outboxRepo.EXPECT().Insert(ctx, tx, gomock.Any()).Return(nil)

	consent, err := d.svc.Revoke(ctx, id, testActor())
	require.NoError(t, err)
	assert.Equal(t, domain.ConsentStatusRevoked, consent.Status)
}

// ==================== Get Tests ====================

func TestConsentService_Get_NotFound(t *testing.T) {
	d := setupConsentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()

	d.consentRepo.EXPECT().GetByID(ctx, id).Return(nil, nil)

	consent, err := d.svc.Get(ctx, id)
	assert.Nil(t, consent)
	assertAppError(t, err, "RES_001")
}

// ==================== Helper ====================

func assertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, expectedCode, appErr.Code)
}
