package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"consenthub/internal/core/ports"
	"consenthub/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type complianceTestDeps struct {
	svc          *ComplianceServiceImpl
	consentRepo  *mocks.MockConsentRepository
	dsarRepo     *mocks.MockDSARRepository
	auditRepo    *mocks.MockAuditRepository
	snapshotRepo *mocks.MockSnapshotRepository
	ctrl         *gomock.Controller
}

func setupComplianceService(t *testing.T) *complianceTestDeps {
	ctrl := gomock.NewController(t)
	d := &complianceTestDeps{
		consentRepo:  mocks.NewMockConsentRepository(ctrl),
		dsarRepo:     mocks.NewMockDSARRepository(ctrl),
		auditRepo:    mocks.NewMockAuditRepository(ctrl),
		snapshotRepo: mocks.NewMockSnapshotRepository(ctrl),
		ctrl:         ctrl,
	}
	d.svc = NewComplianceService(
		d.consentRepo, d.dsarRepo, d.auditRepo, d.snapshotRepo, zerolog.Nop(),
	)
	return d
}

func TestComplianceService_Generate_Success(t *testing.T) {
	d := setupComplianceService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	manual := json.RawMessage(`{"training_completion":0.92}`)

	d.dsarRepo.EXPECT().AggregateStats(ctx, from, to).Return(&ports.DSARAggregates{
		Total:           60,
		Completed:       50,
		Overdue:         4,
		CompletedOnTime: 45,
	}, nil)
	d.consentRepo.EXPECT().AggregateStats(ctx, ports.ConsentStatsParams{From: from, To: to}).
		Return(&ports.ConsentAggregates{
			Total:   500,
			Granted: 420,
			Revoked: 60,
			Expired: 20,
		}, nil)
	d.consentRepo.EXPECT().CountAnomalies(ctx).Return(int64(2), nil)
	d.auditRepo.EXPECT().CountBySeverity(ctx, from, to).Return(map[string]int64{
		"info":    900,
		"warning": 80,
		"error":   5,
	}, nil)
	d.snapshotRepo.EXPECT().InsertComplianceReport(ctx, gomock.Any()).Return(nil)

	report, err := d.svc.Generate(ctx, ports.GenerateReportInput{
		Title:       "Q1 2025 privacy review",
		PeriodStart: from,
		PeriodEnd:   to,
		Manual:      manual,
		Actor:       testActor(),
	})
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.InDelta(t, 0.9, report.DSAR.OnTimeRate, 1e-9)
	assert.Equal(t, int64(4), report.DSAR.Overdue)
	assert.Equal(t, int64(2), report.Consents.Anomalies)
	assert.Equal(t, int64(420), report.Consents.Valid)
	assert.Equal(t, int64(985), report.AuditTrail.Total)
	assert.Equal(t, manual, report.Manual)
	assert.Equal(t, "csr-17", report.GeneratedBy)
}

func TestComplianceService_Generate_InvertedPeriod(t *testing.T) {
	d := setupComplianceService(t)
	defer d.ctrl.Finish()

	now := time.Now()
	report, err := d.svc.Generate(context.Background(), ports.GenerateReportInput{
		Title:       "broken window",
		PeriodStart: now,
		PeriodEnd:   now.Add(-time.Hour),
		Actor:       testActor(),
	})
	assert.Nil(t, report)
	assertAppError(t, err, "VAL_001")
}

func TestComplianceService_Get_NotFound(t *testing.T) {
	d := setupComplianceService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()

	d.snapshotRepo.EXPECT().GetComplianceReport(ctx, id).Return(nil, nil)

	report, err := d.svc.Get(ctx, id)
	assert.Nil(t, report)
	assertAppError(t, err, "RES_001")
}
