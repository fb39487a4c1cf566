package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"consenthub/internal/adapter/http/dto"
	"consenthub/internal/adapter/http/middleware"
	"consenthub/internal/core/domain"
	"consenthub/internal/core/ports"
	"consenthub/internal/core/ports/mocks"
	"consenthub/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testContext builds a recorder-backed gin context authenticated as the
// given role.
func testContext(t *testing.T, method, target string, body any, role, partyID string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.CtxUID, "user-1")
	c.Set(middleware.CtxRole, role)
	if partyID != "" {
		c.Set(middleware.CtxPartyID, partyID)
	}
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// --- Party handler ---

func TestPartyCreate_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockPartyService(ctrl)
	h := NewPartyHandler(svc)

	partyID := uuid.New()
	svc.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, in ports.CreatePartyInput) (*domain.Party, error) {
			assert.Equal(t, "Ada Lovelace", in.Name)
			assert.Equal(t, "ada@example.com", in.Email)
			assert.Equal(t, domain.PartyTypeIndividual, in.Type)
			return &domain.Party{ID: partyID, Name: in.Name, Email: in.Email}, nil
		})

	c, w := testContext(t, http.MethodPost, "/api/v1/parties", dto.CreatePartyRequest{
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
		Type:  "individual",
	}, middleware.RoleCSR, "")

	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := decodeEnvelope(t, w)
	data := resp["data"].(map[string]any)
	assert.Equal(t, partyID.String(), data["id"])
}

func TestPartyCreate_BindingError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewPartyHandler(mocks.NewMockPartyService(ctrl))

	c, w := testContext(t, http.MethodPost, "/api/v1/parties", gin.H{
		"name": "No Email",
		"type": "individual",
	}, middleware.RoleCSR, "")

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeEnvelope(t, w)
	assert.Equal(t, "VAL_001", resp["error_code"])
}

func TestPartyGet_CustomerOwnParty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockPartyService(ctrl)
	h := NewPartyHandler(svc)

	partyID := uuid.New()
	svc.EXPECT().Get(gomock.Any(), partyID).Return(&domain.Party{ID: partyID}, nil)

	c, w := testContext(t, http.MethodGet, "/api/v1/parties/"+partyID.String(), nil,
		middleware.RoleCustomer, partyID.String())
	c.Params = gin.Params{{Key: "id", Value: partyID.String()}}

	h.Get(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPartyGet_CustomerOtherPartyForbidden(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Service must not be reached.
	h := NewPartyHandler(mocks.NewMockPartyService(ctrl))

	partyID := uuid.New()
	c, w := testContext(t, http.MethodGet, "/api/v1/parties/"+partyID.String(), nil,
		middleware.RoleCustomer, uuid.NewString())
	c.Params = gin.Params{{Key: "id", Value: partyID.String()}}

	h.Get(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
	resp := decodeEnvelope(t, w)
	assert.Equal(t, "AUTH_002", resp["error_code"])
}

func TestPartyGet_InvalidID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewPartyHandler(mocks.NewMockPartyService(ctrl))

	c, w := testContext(t, http.MethodGet, "/api/v1/parties/not-a-uuid", nil, middleware.RoleAdmin, "")
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

	h.Get(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPartyList_FiltersAndPagination(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockPartyService(ctrl)
	h := NewPartyHandler(svc)

	svc.EXPECT().List(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, params ports.PartyListParams) ([]domain.Party, int64, error) {
			require.NotNil(t, params.Status)
			assert.Equal(t, domain.PartyStatusActive, *params.Status)
			assert.Equal(t, 25, params.Limit)
			assert.Equal(t, 50, params.Offset)
			return []domain.Party{{ID: uuid.New()}}, 51, nil
		})

	c, w := testContext(t, http.MethodGet,
		"/api/v1/parties?status=active&limit=25&offset=50", nil, middleware.RoleCSR, "")

	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w)
	data := resp["data"].(map[string]any)
	assert.Equal(t, float64(51), data["total"])
}

func TestPartyList_LimitClamped(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockPartyService(ctrl)
	h := NewPartyHandler(svc)

	svc.EXPECT().List(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, params ports.PartyListParams) ([]domain.Party, int64, error) {
			assert.Equal(t, maxPageLimit, params.Limit)
			return nil, 0, nil
		})

	c, w := testContext(t, http.MethodGet, "/api/v1/parties?limit=10000", nil, middleware.RoleCSR, "")

	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

// --- Consent handler ---

func TestConsentGet_CustomerScopedByRecordParty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockConsentService(ctrl)
	h := NewConsentHandler(svc)

	consentID := uuid.New()
	recordParty := uuid.New()
	svc.EXPECT().Get(gomock.Any(), consentID).Return(&domain.ConsentRecord{
		ID:      consentID,
		PartyID: recordParty,
	}, nil)

	// Authenticated customer belongs to a different party.
	c, w := testContext(t, http.MethodGet, "/api/v1/consents/"+consentID.String(), nil,
		middleware.RoleCustomer, uuid.NewString())
	c.Params = gin.Params{{Key: "id", Value: consentID.String()}}

	h.Get(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestConsentGet_ExpiryComputedOnRead(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockConsentService(ctrl)
	h := NewConsentHandler(svc)

	consentID := uuid.New()
	granted := time.Now().UTC().Add(-48 * time.Hour)
	expired := time.Now().UTC().Add(-time.Hour)
	// Stored status stays granted; expiry is applied when serving the read.
	svc.EXPECT().Get(gomock.Any(), consentID).Return(&domain.ConsentRecord{
		ID:        consentID,
		PartyID:   uuid.New(),
		Status:    domain.ConsentStatusGranted,
		GrantedAt: &granted,
		ExpiresAt: &expired,
	}, nil)

	c, w := testContext(t, http.MethodGet, "/api/v1/consents/"+consentID.String(), nil,
		middleware.RoleCSR, "")
	c.Params = gin.Params{{Key: "id", Value: consentID.String()}}

	h.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]any)
	assert.Equal(t, "expired", data["status"])
	assert.Equal(t, false, data["is_valid"])
}

func TestConsentListByParty_ComputedValidity(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockConsentService(ctrl)
	h := NewConsentHandler(svc)

	partyID := uuid.New()
	granted := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(24 * time.Hour)
	svc.EXPECT().ListByParty(gomock.Any(), partyID).Return([]domain.ConsentRecord{
		{ID: uuid.New(), PartyID: partyID, Status: domain.ConsentStatusGranted, GrantedAt: &granted, ExpiresAt: &future},
		{ID: uuid.New(), PartyID: partyID, Status: domain.ConsentStatusRevoked},
	}, nil)

	c, w := testContext(t, http.MethodGet, "/api/v1/consents/party/"+partyID.String(), nil,
		middleware.RoleCSR, "")
	c.Params = gin.Params{{Key: "partyId", Value: partyID.String()}}

	h.ListByParty(c)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]any)
	consents := data["consents"].([]any)
	require.Len(t, consents, 2)
	assert.Equal(t, true, consents[0].(map[string]any)["is_valid"])
	assert.Equal(t, false, consents[1].(map[string]any)["is_valid"])
}

func TestConsentGrant_EmptyBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockConsentService(ctrl)
	h := NewConsentHandler(svc)

	consentID := uuid.New()
	svc.EXPECT().Grant(gomock.Any(), consentID, nil, gomock.Any()).Return(&domain.ConsentRecord{
		ID:     consentID,
		Status: domain.ConsentStatusGranted,
	}, nil)

	c, w := testContext(t, http.MethodPost, "/api/v1/consents/"+consentID.String()+"/grant", nil,
		middleware.RoleCSR, "")
	c.Params = gin.Params{{Key: "id", Value: consentID.String()}}

	h.Grant(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestConsentGrant_WithExpiry(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockConsentService(ctrl)
	h := NewConsentHandler(svc)

	consentID := uuid.New()
	expiry := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	svc.EXPECT().Grant(gomock.Any(), consentID, gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, id uuid.UUID, expiresAt *time.Time, _ ports.Actor) (*domain.ConsentRecord, error) {
			require.NotNil(t, expiresAt)
			assert.True(t, expiresAt.Equal(expiry))
			return &domain.ConsentRecord{ID: id, Status: domain.ConsentStatusGranted}, nil
		})

	c, w := testContext(t, http.MethodPost, "/api/v1/consents/"+consentID.String()+"/grant",
		dto.GrantConsentRequest{ExpiresAt: &expiry}, middleware.RoleCSR, "")
	c.Params = gin.Params{{Key: "id", Value: consentID.String()}}

	h.Grant(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestConsentRevoke_ServiceError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockConsentService(ctrl)
	h := NewConsentHandler(svc)

	consentID := uuid.New()
	svc.EXPECT().Revoke(gomock.Any(), consentID, gomock.Any()).
		Return(nil, errors.New("connection reset"))

	c, w := testContext(t, http.MethodPost, "/api/v1/consents/"+consentID.String()+"/revoke", nil,
		middleware.RoleCSR, "")
	c.Params = gin.Params{{Key: "id", Value: consentID.String()}}

	h.Revoke(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeEnvelope(t, w)
	assert.Equal(t, "SYS_000", resp["error_code"])
}

// --- DSAR handler ---

func TestDSARSubmit_CustomerOwnParty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockDSARService(ctrl)
	h := NewDSARHandler(svc)

	partyID := uuid.New()
	svc.EXPECT().Submit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, in ports.SubmitDSARInput) (*domain.DSARRequest, error) {
			assert.Equal(t, partyID, in.PartyID)
			assert.Equal(t, domain.DSARTypeAccess, in.RequestType)
			return &domain.DSARRequest{ID: uuid.New(), PartyID: partyID, Status: domain.DSARStatusPending}, nil
		})

	c, w := testContext(t, http.MethodPost, "/api/v1/dsar", dto.SubmitDSARRequest{
		PartyID:     partyID,
		RequestType: "access",
	}, middleware.RoleCustomer, partyID.String())

	h.Submit(c)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestDSARSubmit_CustomerOtherPartyForbidden(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewDSARHandler(mocks.NewMockDSARService(ctrl))

	c, w := testContext(t, http.MethodPost, "/api/v1/dsar", dto.SubmitDSARRequest{
		PartyID:     uuid.New(),
		RequestType: "erasure",
	}, middleware.RoleCustomer, uuid.NewString())

	h.Submit(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDSARUpdateStatus_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockDSARService(ctrl)
	h := NewDSARHandler(svc)

	requestID := uuid.New()
	svc.EXPECT().UpdateStatus(gomock.Any(), requestID, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ uuid.UUID, in ports.DSARStatusInput) (*domain.DSARRequest, error) {
			assert.Equal(t, domain.DSARStatusInProgress, in.Status)
			assert.Equal(t, "identity verified", in.ProcessingNotes)
			return &domain.DSARRequest{ID: requestID, Status: in.Status}, nil
		})

	c, w := testContext(t, http.MethodPut, "/api/v1/dsar/"+requestID.String()+"/status",
		dto.UpdateDSARStatusRequest{Status: "in_progress", ProcessingNotes: "identity verified"},
		middleware.RoleCSR, "")
	c.Params = gin.Params{{Key: "id", Value: requestID.String()}}

	h.UpdateStatus(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

// --- Audit handler ---

func TestAuditQuery_PassesFilters(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockAuditService(ctrl)
	h := NewAuditHandler(svc)

	svc.EXPECT().Query(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, params ports.AuditQueryParams) ([]domain.AuditEntry, int64, error) {
			require.NotNil(t, params.Severity)
			assert.Equal(t, domain.SeverityWarning, *params.Severity)
			require.NotNil(t, params.From)
			assert.Equal(t, 2025, params.From.Year())
			return []domain.AuditEntry{}, 0, nil
		})

	c, w := testContext(t, http.MethodGet,
		"/api/v1/audit?severity=warning&from=2025-01-01", nil, middleware.RoleAdmin, "")

	h.Query(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuditExport_AttachmentHeaders(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockAuditService(ctrl)
	h := NewAuditHandler(svc)

	svc.EXPECT().Export(gomock.Any(), gomock.Any(), "csv", gomock.Any()).Return(&ports.AuditExport{
		ContentType: "text/csv",
		Filename:    "audit-export-20250101.csv",
		Body:        []byte("id,event_type\n"),
	}, nil)

	c, w := testContext(t, http.MethodGet, "/api/v1/audit/export?format=csv", nil, middleware.RoleAdmin, "")

	h.Export(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "audit-export-20250101.csv")
	assert.Equal(t, "id,event_type\n", w.Body.String())
}

func TestAuditExport_UnsupportedFormat(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockAuditService(ctrl)
	h := NewAuditHandler(svc)

	svc.EXPECT().Export(gomock.Any(), gomock.Any(), "xml", gomock.Any()).
		Return(nil, apperror.ErrUnsupportedExportFormat("xml"))

	c, w := testContext(t, http.MethodGet, "/api/v1/audit/export?format=xml", nil, middleware.RoleAdmin, "")

	h.Export(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeEnvelope(t, w)
	assert.Equal(t, "EXP_001", resp["error_code"])
}

// --- Analytics handler ---

func TestRecompute_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockAnalyticsService(ctrl)
	h := NewAnalyticsHandler(svc)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	svc.EXPECT().Recompute(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, in ports.RecomputeInput) error {
			assert.Equal(t, domain.PeriodMonthly, in.PeriodType)
			assert.True(t, in.Start.Equal(start))
			assert.Equal(t, "EU", in.Dimensions.Jurisdiction)
			return nil
		})

	c, w := testContext(t, http.MethodPost, "/api/v1/analytics/recompute", dto.RecomputeRequest{
		PeriodType:   "monthly",
		Start:        start,
		Jurisdiction: "EU",
	}, middleware.RoleAdmin, "")

	h.Recompute(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListConsentAnalytics_PeriodFilter(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockAnalyticsService(ctrl)
	h := NewAnalyticsHandler(svc)

	svc.EXPECT().ListConsentAnalytics(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, params ports.SnapshotListParams) ([]domain.ConsentAnalytics, int64, error) {
			require.NotNil(t, params.PeriodType)
			assert.Equal(t, domain.PeriodWeekly, *params.PeriodType)
			return nil, 0, nil
		})

	c, w := testContext(t, http.MethodGet, "/api/v1/analytics/consents?period_type=weekly", nil,
		middleware.RoleAdmin, "")

	h.ListConsents(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

// --- Health handler ---

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Ping(context.Context) error { return s.err }
func (s stubChecker) Name() string               { return s.name }

func TestHealthCheck_AllHealthy(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(stubChecker{name: "postgres"}, stubChecker{name: "redis"})(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "consenthub", resp["service"])
	checks := resp["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["postgres"])
	assert.Equal(t, "healthy", checks["redis"])
}

func TestHealthCheck_DependencyDown(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(
		stubChecker{name: "postgres"},
		stubChecker{name: "redis", err: errors.New("refused")},
	)(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
}
