package postgres

import (
	"context"
	"testing"
	"time"

	"consenthub/internal/core/domain"
	"consenthub/internal/core/ports"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDSAR() *domain.DSARRequest {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.DSARRequest{
		ID:                 uuid.New(),
		PartyID:            uuid.New(),
		RequestType:        domain.DSARTypeAccess,
		Status:             domain.DSARStatusPending,
		Description:        "export my data",
		SubmittedAt:        now,
		DueDate:            now.AddDate(0, 0, domain.DSARDueDays),
		VerificationStatus: domain.VerificationUnverified,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func dsarCols() []string {
	return []string{
		"id", "party_id", "request_type", "status", "description", "submitted_at",
		"due_date", "completed_at", "verification_status", "processing_notes", "created_at", "updated_at",
	}
}

func dsarRow(req *domain.DSARRequest) *pgxmock.Rows {
	return pgxmock.NewRows(dsarCols()).AddRow(
		req.ID, req.PartyID, req.RequestType, req.Status, req.Description, req.SubmittedAt,
		req.DueDate, req.CompletedAt, req.VerificationStatus, req.ProcessingNotes, req.CreatedAt, req.UpdatedAt,
	)
}

func TestDSARRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDSARRepo(mock)
	req := newTestDSAR()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO dsar_requests").
		WithArgs(req.ID, req.PartyID, req.RequestType, req.Status, req.Description, req.SubmittedAt,
			req.DueDate, req.CompletedAt, req.VerificationStatus, req.ProcessingNotes, req.CreatedAt, req.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), dbTx, req)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDSARRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDSARRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM dsar_requests WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(dsarCols()))

	result, err := repo.GetByID(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDSARRepo_Update_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDSARRepo(mock)
	req := newTestDSAR()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE dsar_requests SET").
		WithArgs(req.Status, req.CompletedAt, req.VerificationStatus, req.ProcessingNotes, req.UpdatedAt, req.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Update(context.Background(), dbTx, req)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDSARRepo_List_Filters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDSARRepo(mock)
	req := newTestDSAR()
	status := domain.DSARStatusPending

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM dsar_requests WHERE party_id .+ AND status").
		WithArgs(req.PartyID, status).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT .+ FROM dsar_requests WHERE party_id .+ ORDER BY submitted_at DESC").
		WithArgs(req.PartyID, status, 20, 0).
		WillReturnRows(dsarRow(req))

	reqs, total, err := repo.List(context.Background(), ports.DSARListParams{
		PartyID: &req.PartyID,
		Status:  &status,
		Limit:   20,
		Offset:  0,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, reqs, 1)
	assert.Equal(t, req.ID, reqs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDSARRepo_ListOverdue(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDSARRepo(mock)
	req := newTestDSAR()
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT .+ FROM dsar_requests\\s+WHERE due_date < .+ ORDER BY due_date ASC").
		WithArgs(now, 100).
		WillReturnRows(dsarRow(req))

	reqs, err := repo.ListOverdue(context.Background(), now, 100)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDSARRepo_AggregateStats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDSARRepo(mock)
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	mock.ExpectQuery("SELECT\\s+COUNT\\(\\*\\) AS total").
		WithArgs(from, to).
		WillReturnRows(pgxmock.NewRows([]string{
			"total", "completed", "rejected", "cancelled", "overdue", "avg_completion_days", "completed_on_time",
		}).AddRow(int64(10), int64(7), int64(1), int64(0), int64(2), 12.5, int64(6)))

	agg, err := repo.AggregateStats(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(10), agg.Total)
	assert.Equal(t, int64(7), agg.Completed)
	assert.InDelta(t, 12.5, agg.AvgCompletionDays, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}
