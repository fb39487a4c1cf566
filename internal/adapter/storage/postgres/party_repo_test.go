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

func newTestParty() *domain.Party {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Party{
		ID:        uuid.New(),
		Name:      "Ada Lovelace",
		Email:     "ada@example.com",
		Phone:     "+44 20 7946 0000",
		Type:      domain.PartyTypeIndividual,
		Status:    domain.PartyStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func partyCols() []string {
	return []string{"id", "name", "email", "phone", "type", "status", "created_at", "updated_at"}
}

func partyRow(p *domain.Party) *pgxmock.Rows {
	return pgxmock.NewRows(partyCols()).AddRow(
		p.ID, p.Name, p.Email, p.Phone, p.Type, p.Status, p.CreatedAt, p.UpdatedAt,
	)
}

func TestPartyRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPartyRepo(mock)
	p := newTestParty()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO parties").
		WithArgs(p.ID, p.Name, p.Email, p.Phone, p.Type, p.Status, p.CreatedAt, p.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), dbTx, p)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPartyRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPartyRepo(mock)
	p := newTestParty()

	mock.ExpectQuery("SELECT .+ FROM parties WHERE id").
		WithArgs(p.ID).
		WillReturnRows(partyRow(p))

	result, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, p.ID, result.ID)
	assert.Equal(t, p.Email, result.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPartyRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPartyRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM parties WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(partyCols()))

	result, err := repo.GetByID(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPartyRepo_Exists(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPartyRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.Exists(context.Background(), id)
	assert.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPartyRepo_Update_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPartyRepo(mock)
	p := newTestParty()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE parties SET").
		WithArgs(p.Name, p.Phone, p.Status, p.UpdatedAt, p.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Update(context.Background(), dbTx, p)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPartyRepo_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPartyRepo(mock)
	p := newTestParty()
	status := domain.PartyStatusActive

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM parties WHERE status").
		WithArgs(status).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT .+ FROM parties WHERE status .+ ORDER BY created_at DESC").
		WithArgs(status, 20, 0).
		WillReturnRows(partyRow(p))

	parties, total, err := repo.List(context.Background(), ports.PartyListParams{
		Status: &status,
		Limit:  20,
		Offset: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, parties, 1)
	assert.Equal(t, p.ID, parties[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPartyRepo_List_Search(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPartyRepo(mock)
	p := newTestParty()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM parties WHERE \\(name ILIKE").
		WithArgs("%ada%").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT .+ FROM parties WHERE \\(name ILIKE").
		WithArgs("%ada%", 20, 0).
		WillReturnRows(partyRow(p))

	parties, total, err := repo.List(context.Background(), ports.PartyListParams{
		Search: "ada",
		Limit:  20,
		Offset: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, parties, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
