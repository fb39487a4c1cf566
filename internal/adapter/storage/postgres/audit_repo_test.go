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

func newTestAuditEntry(partyID uuid.UUID) *domain.AuditEntry {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.AuditEntry{
		ID:           uuid.New(),
		EventType:    domain.EventConsentGranted,
		ActorID:      "user-42",
		ActorType:    domain.ActorUser,
		PartyID:      &partyID,
		ResourceID:   uuid.NewString(),
		ResourceType: "consent",
		Action:       domain.ActionGrant,
		Description:  "consent granted for marketing",
		IPAddress:    "10.0.0.1",
		UserAgent:    "test-agent",
		Source:       domain.SourceWeb,
		Severity:     domain.SeverityInfo,
		Timestamp:    now,
	}
}

func auditCols() []string {
	return []string{"id", "event_type", "actor_id", "actor_type", "party_id", "resource_id",
		"resource_type", "action", "description", "details", "old_values", "new_values",
		"ip_address", "user_agent", "source", "severity", "timestamp"}
}

func auditRow(e *domain.AuditEntry) *pgxmock.Rows {
	return pgxmock.NewRows(auditCols()).AddRow(
		e.ID, e.EventType, e.ActorID, e.ActorType, e.PartyID, e.ResourceID,
		e.ResourceType, e.Action, e.Description, e.Details, e.OldValues, e.NewValues,
		e.IPAddress, e.UserAgent, e.Source, e.Severity, e.Timestamp,
	)
}

func TestAuditRepo_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepo(mock)
	e := newTestAuditEntry(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO audit_entries").
		WithArgs(
			e.ID, e.EventType, e.ActorID, e.ActorType, e.PartyID, e.ResourceID,
			e.ResourceType, e.Action, e.Description, e.Details, e.OldValues, e.NewValues,
			e.IPAddress, e.UserAgent, e.Source, e.Severity, e.Timestamp,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Append(context.Background(), dbTx, e)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_Query(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepo(mock)
	partyID := uuid.New()
	e := newTestAuditEntry(partyID)
	eventType := domain.EventConsentGranted

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM audit_entries WHERE event_type").
		WithArgs(eventType, partyID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT .+ FROM audit_entries WHERE event_type .+ ORDER BY timestamp DESC").
		WithArgs(eventType, partyID, 50, 0).
		WillReturnRows(auditRow(e))

	entries, total, err := repo.Query(context.Background(), ports.AuditQueryParams{
		EventType: &eventType,
		PartyID:   &partyID,
		Limit:     50,
		Offset:    0,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.Equal(t, e.ID, entries[0].ID)
	assert.Equal(t, e.EventType, entries[0].EventType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_Query_Search(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepo(mock)
	e := newTestAuditEntry(uuid.New())

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM audit_entries WHERE \\(event_type ILIKE").
		WithArgs("%marketing%").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT .+ FROM audit_entries WHERE \\(event_type ILIKE").
		WithArgs("%marketing%", 50, 0).
		WillReturnRows(auditRow(e))

	entries, total, err := repo.Query(context.Background(), ports.AuditQueryParams{
		Search: "marketing",
		Limit:  50,
		Offset: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_Export_OldestFirst(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepo(mock)
	e := newTestAuditEntry(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM audit_entries .+ ORDER BY timestamp ASC LIMIT").
		WithArgs(10000).
		WillReturnRows(auditRow(e))

	entries, err := repo.Export(context.Background(), ports.AuditQueryParams{}, 10000)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_Statistics(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepo(mock)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM audit_entries").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(42)))
	mock.ExpectQuery("SELECT event_type, COUNT\\(\\*\\) FROM audit_entries").
		WillReturnRows(pgxmock.NewRows([]string{"event_type", "count"}).
			AddRow("consent_granted", int64(30)).
			AddRow("consent_revoked", int64(12)))
	mock.ExpectQuery("SELECT action, COUNT\\(\\*\\) FROM audit_entries").
		WillReturnRows(pgxmock.NewRows([]string{"action", "count"}).
			AddRow("grant", int64(30)).
			AddRow("revoke", int64(12)))
	mock.ExpectQuery("SELECT resource_type, COUNT\\(\\*\\) FROM audit_entries").
		WillReturnRows(pgxmock.NewRows([]string{"resource_type", "count"}).
			AddRow("consent", int64(42)))
	mock.ExpectQuery("SELECT actor_type, COUNT\\(\\*\\) FROM audit_entries").
		WillReturnRows(pgxmock.NewRows([]string{"actor_type", "count"}).
			AddRow("user", int64(40)).
			AddRow("system", int64(2)))
	mock.ExpectQuery("SELECT to_char").
		WillReturnRows(pgxmock.NewRows([]string{"day", "count"}).
			AddRow("2026-08-28", int64(20)).
			AddRow("2026-08-29", int64(22)))

	stats, err := repo.Statistics(context.Background(), ports.AuditStatsParams{})
	require.NoError(t, err)
	assert.Equal(t, int64(42), stats.Total)
	assert.Equal(t, int64(30), stats.ByEventType["consent_granted"])
	assert.Equal(t, int64(12), stats.ByAction["revoke"])
	assert.Equal(t, int64(42), stats.ByResourceType["consent"])
	assert.Equal(t, int64(2), stats.ByActorType["system"])
	require.Len(t, stats.Daily, 2)
	assert.Equal(t, "2026-08-29", stats.Daily[1].Date)
	assert.Equal(t, int64(22), stats.Daily[1].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_CountBySeverity(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepo(mock)
	from := time.Now().Add(-24 * time.Hour)
	to := time.Now()

	mock.ExpectQuery("SELECT severity, COUNT\\(\\*\\) FROM audit_entries").
		WithArgs(from, to).
		WillReturnRows(pgxmock.NewRows([]string{"severity", "count"}).
			AddRow("info", int64(100)).
			AddRow("warning", int64(3)))

	counts, err := repo.CountBySeverity(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(100), counts["info"])
	assert.Equal(t, int64(3), counts["warning"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_ArchiveExpired(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepo(mock)
	cutoff := time.Now().Add(-2 * 365 * 24 * time.Hour)

	mock.ExpectExec("INSERT INTO audit_entries_archive").
		WithArgs(cutoff, 500).
		WillReturnResult(pgxmock.NewResult("INSERT", 500))

	moved, err := repo.ArchiveExpired(context.Background(), cutoff, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(500), moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}
