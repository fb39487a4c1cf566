package integration

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"consenthub/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentConsentCapture fires many concurrent consent creations
// against the same party and verifies every write produced both an audit
// entry and an outbox event, with nothing lost.
func TestConcurrentConsentCapture(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	csr := signToken(t, "csr-1", "csr", "")

	resp, body := app.do(t, http.MethodPost, "/api/v1/parties", csr, map[string]any{
		"name":  "Busy Party",
		"email": "busy@example.com",
		"type":  "individual",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	partyID := body["data"].(map[string]any)["id"].(string)

	concurrency := 50
	var wg sync.WaitGroup
	var successCount atomic.Int64

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			r, _ := app.do(t, http.MethodPost, "/api/v1/consents", csr, map[string]any{
				"party_id":     partyID,
				"consent_type": "marketing",
				"purpose":      fmt.Sprintf("campaign %d", idx),
				"legal_basis":  "consent",
				"granted":      true,
			})
			if r.StatusCode == http.StatusCreated {
				successCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(concurrency), successCount.Load())

	records, err := app.consentRepo.ListByParty(context.Background(), mustUUID(t, partyID))
	require.NoError(t, err)
	assert.Len(t, records, concurrency)

	// One entry per write, plus the party creation.
	_, total, err := app.auditRepo.Query(context.Background(), ports.AuditQueryParams{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(concurrency+1), total)

	pending, err := app.outboxRepo.CountPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(concurrency+1), pending)
}

// TestConcurrentDuplicateEmail races identical party registrations; the
// unique email constraint lets exactly one through.
func TestConcurrentDuplicateEmail(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	csr := signToken(t, "csr-1", "csr", "")

	concurrency := 20
	var wg sync.WaitGroup
	var created, conflicted atomic.Int64

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, _ := app.do(t, http.MethodPost, "/api/v1/parties", csr, map[string]any{
				"name":  "Race Winner",
				"email": "race@example.com",
				"type":  "individual",
			})
			switch r.StatusCode {
			case http.StatusCreated:
				created.Add(1)
			case http.StatusConflict:
				conflicted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), created.Load())
	assert.Equal(t, int64(concurrency-1), conflicted.Load())
}

// TestConcurrentPreferenceDuplicate races identical preference creations;
// the party/type/channel uniqueness admits exactly one.
func TestConcurrentPreferenceDuplicate(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	csr := signToken(t, "csr-1", "csr", "")

	resp, body := app.do(t, http.MethodPost, "/api/v1/parties", csr, map[string]any{
		"name":  "Pref Racer",
		"email": "prefracer@example.com",
		"type":  "individual",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	partyID := body["data"].(map[string]any)["id"].(string)

	concurrency := 20
	var wg sync.WaitGroup
	var created atomic.Int64

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, _ := app.do(t, http.MethodPost, "/api/v1/preferences", csr, map[string]any{
				"party_id":        partyID,
				"preference_type": "newsletter",
				"channel":         "email",
				"enabled":         true,
				"frequency":       "weekly",
			})
			if r.StatusCode == http.StatusCreated {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), created.Load())
}
