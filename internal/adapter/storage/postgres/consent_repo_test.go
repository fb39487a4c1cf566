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

func newTestConsent(partyID uuid.UUID) *domain.ConsentRecord {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.ConsentRecord{
		ID:           uuid.New(),
		PartyID:      partyID,
		ConsentType:  domain.ConsentTypeMarketing,
		Purpose:      "email campaigns",
		Status:       domain.ConsentStatusGranted,
		Channel:      "web",
		LegalBasis:   domain.LegalBasisConsent,
		Jurisdiction: "EU",
		GrantedAt:    &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func consentCols() []string {
	return []string{"id", "party_id", "consent_type", "purpose", "status", "channel", "legal_basis",
		"category", "jurisdiction", "granted_at", "revoked_at", "expires_at", "created_at", "updated_at"}
}

func consentRow(c *domain.ConsentRecord) *pgxmock.Rows {
	return pgxmock.NewRows(consentCols()).AddRow(
		c.ID, c.PartyID, c.ConsentType, c.Purpose, c.Status, c.Channel, c.LegalBasis,
		c.Category, c.Jurisdiction, c.GrantedAt, c.RevokedAt, c.ExpiresAt, c.CreatedAt, c.UpdatedAt,
	)
}

func TestConsentRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewConsentRepo(mock)
	c := newTestConsent(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO consents").
		WithArgs(
			c.ID, c.PartyID, c.ConsentType, c.Purpose, c.Status, c.Channel, c.LegalBasis,
			c.Category, c.Jurisdiction, c.GrantedAt, c.RevokedAt, c.ExpiresAt, c.CreatedAt, c.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), dbTx, c)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsentRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewConsentRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM consents WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(consentCols()))

	result, err := repo.GetByID(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsentRepo_ListByParty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewConsentRepo(mock)
	partyID := uuid.New()
	c := newTestConsent(partyID)

	mock.ExpectQuery("SELECT .+ FROM consents WHERE party_id .+ ORDER BY created_at DESC").
		WithArgs(partyID).
		WillReturnRows(consentRow(c))

	consents, err := repo.ListByParty(context.Background(), partyID)
	require.NoError(t, err)
	require.Len(t, consents, 1)
	assert.Equal(t, c.ID, consents[0].ID)
	assert.Equal(t, partyID, consents[0].PartyID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsentRepo_AggregateStats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewConsentRepo(mock)
	to := time.Now().UTC()
	from := to.Add(-24 * time.Hour)

	mock.ExpectQuery("SELECT\\s+COUNT\\(\\*\\) AS total").
		WithArgs(from, to, "EU").
		WillReturnRows(pgxmock.NewRows([]string{"total", "granted", "revoked", "expired", "pending"}).
			AddRow(int64(100), int64(70), int64(15), int64(10), int64(5)))
	mock.ExpectQuery("SELECT consent_type, COUNT\\(\\*\\) FROM consents").
		WithArgs(from, to, "EU").
		WillReturnRows(pgxmock.NewRows([]string{"consent_type", "count"}).
			AddRow("marketing", int64(60)).
			AddRow("analytics", int64(40)))

	agg, err := repo.AggregateStats(context.Background(), ports.ConsentStatsParams{
		From:       from,
		To:         to,
		Dimensions: domain.Dimensions{Jurisdiction: "EU"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100), agg.Total)
	assert.Equal(t, int64(70), agg.Granted)
	assert.Equal(t, int64(10), agg.Expired)
	assert.Equal(t, int64(60), agg.ByType["marketing"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsentRepo_CountAnomalies(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewConsentRepo(mock)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM consents").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))

	count, err := repo.CountAnomalies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
