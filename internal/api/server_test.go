package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kleinvault/kleinvault/internal/config"
	apperrors "github.com/kleinvault/kleinvault/internal/errors"
	"github.com/kleinvault/kleinvault/internal/models"
	"github.com/kleinvault/kleinvault/internal/store"
)

// stubProvisioner answers Submit/Status from canned data so server
// tests exercise only the HTTP boundary.
type stubProvisioner struct {
	nextID  int64
	jobs    map[int64]*models.LoginJob
	lastReq [4]string
}

func newStubProvisioner() *stubProvisioner {
	return &stubProvisioner{jobs: make(map[int64]*models.LoginJob)}
}

func (p *stubProvisioner) Submit(ctx context.Context, email, password, proxy, device string) (int64, error) {
	if email == "" {
		return 0, &apperrors.ErrValidation{Field: "email", Reason: "must not be empty"}
	}
	if password == "" {
		return 0, &apperrors.ErrValidation{Field: "password", Reason: "must not be empty"}
	}
	p.lastReq = [4]string{email, password, proxy, device}
	p.nextID++
	p.jobs[p.nextID] = &models.LoginJob{
		ID:        p.nextID,
		Email:     email,
		Proxy:     proxy,
		Device:    device,
		Status:    models.StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	return p.nextID, nil
}

func (p *stubProvisioner) Status(ctx context.Context, id int64) (*models.LoginJob, error) {
	job, ok := p.jobs[id]
	if !ok {
		return nil, &apperrors.ErrJobNotFound{ID: id}
	}
	return job, nil
}

func newTestServer(t *testing.T, apiCfg config.APIConfig) (*Server, store.Store, *stubProvisioner) {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "accounts.db"), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	p := newStubProvisioner()
	srv := NewServer(config.ServerConfig{Host: "localhost", HTTPPort: 8511}, apiCfg, s, p)
	return srv, s, p
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestSubmitLoginAccepted(t *testing.T) {
	srv, _, p := newTestServer(t, config.APIConfig{})

	w := doJSON(t, srv, http.MethodPost, "/api/login", LoginRequest{
		Email:    "anna.k@example.com",
		Password: "secret",
		Proxy:    "socks5://127.0.0.1:9050",
		Device:   "iPhone 12",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.JobID)
	assert.Equal(t, "running", resp.Status)
	assert.Equal(t, [4]string{"anna.k@example.com", "secret", "socks5://127.0.0.1:9050", "iPhone 12"}, p.lastReq)
}

func TestSubmitLoginRejectsBlankFields(t *testing.T) {
	srv, _, _ := newTestServer(t, config.APIConfig{})

	for _, body := range []LoginRequest{
		{Email: "", Password: "secret"},
		{Email: "anna.k@example.com", Password: ""},
	} {
		w := doJSON(t, srv, http.MethodPost, "/api/login", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid")
	}
}

func TestGetJob(t *testing.T) {
	srv, _, p := newTestServer(t, config.APIConfig{})

	doJSON(t, srv, http.MethodPost, "/api/login", LoginRequest{Email: "a@example.com", Password: "s"})

	w := doJSON(t, srv, http.MethodGet, "/api/jobs/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var job models.LoginJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.Equal(t, models.StatusRunning, job.Status)
	assert.Equal(t, "a@example.com", job.Email)
	assert.NotContains(t, w.Body.String(), "password", "password must never leave the API")

	w = doJSON(t, srv, http.MethodGet, "/api/jobs/42", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/jobs/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_ = p
}

func TestListJobsEmpty(t *testing.T) {
	srv, _, _ := newTestServer(t, config.APIConfig{})

	w := doJSON(t, srv, http.MethodGet, "/api/jobs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestListAccountsDerivesAge(t *testing.T) {
	srv, s, _ := newTestServer(t, config.APIConfig{})

	created := time.Now().UTC().AddDate(0, 0, -220)
	_, err := s.CreateAccount(&models.Account{
		Name:      "Account A",
		Email:     "account.a@example.com",
		Password:  "secret",
		AgeDays:   5, // stale; recomputed from created_at
		CreatedAt: &created,
	})
	require.NoError(t, err)

	w := doJSON(t, srv, http.MethodGet, "/api/accounts", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var accounts []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accounts))
	require.Len(t, accounts, 1)
	assert.InDelta(t, 220, accounts[0]["age_days"], 1)
	assert.NotContains(t, w.Body.String(), "secret")
}

func TestMessages(t *testing.T) {
	srv, s, _ := newTestServer(t, config.APIConfig{})

	w := doJSON(t, srv, http.MethodPost, "/api/messages", AppendMessageRequest{
		AccountID: 99,
		Text:      "Ist das noch verfügbar?",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	id, err := s.CreateAccount(&models.Account{Name: "Account A", Email: "a@example.com", Password: "x"})
	require.NoError(t, err)

	w = doJSON(t, srv, http.MethodPost, "/api/messages", AppendMessageRequest{
		AccountID:    id,
		ListingTitle: "iPhone 11, 64GB",
		Text:         "Ist das noch verfügbar?",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var msg models.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.Equal(t, models.SenderOperator, msg.Sender, "posted messages are operator replies")
	assert.NotZero(t, msg.ID)

	w = doJSON(t, srv, http.MethodGet, "/api/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []*models.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "iPhone 11, 64GB", list[0].ListingTitle)
	assert.Equal(t, models.SenderOperator, list[0].Sender)
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, config.APIConfig{})

	w := doJSON(t, srv, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, config.APIConfig{})

	doJSON(t, srv, http.MethodGet, "/api/jobs", nil)

	w := doJSON(t, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "kleinvault_http_requests_total")
}

func TestAPIKeyAuthEnabled(t *testing.T) {
	srv, _, _ := newTestServer(t, config.APIConfig{
		Auth: config.AuthConfig{
			Enabled: true,
			APIKeys: []string{"test-key-12345"},
		},
	})

	w := doJSON(t, srv, http.MethodGet, "/api/jobs", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	req.Header.Set(DefaultAPIKeyHeader, "wrong")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	req.Header.Set(DefaultAPIKeyHeader, "test-key-12345")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health and metrics stay open.
	w = doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter(t *testing.T) {
	limiter := newIPRateLimiter(time.Minute, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.allow("10.0.0.1"), fmt.Sprintf("request %d within burst", i))
	}
	assert.False(t, limiter.allow("10.0.0.1"))
	assert.True(t, limiter.allow("10.0.0.2"), "limits are per IP")
}

func TestMaskAPIKeys(t *testing.T) {
	masked := MaskAPIKeys([]string{"abc", "secretkey"})
	assert.Equal(t, []string{"***", "secr*****"}, masked)
}

func TestShutdownDrainsHandlersBeforeClosingStore(t *testing.T) {
	srv, st, _ := newTestServer(t, config.APIConfig{})

	entered := make(chan struct{})
	release := make(chan struct{})
	srv.Router().GET("/slow", func(c *gin.Context) {
		close(entered)
		<-release
		jobs, err := st.ListJobs()
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"jobs": len(jobs)})
	})

	ts := httptest.NewServer(srv.Router())
	srv.httpServer = ts.Config

	reqDone := make(chan int, 1)
	go func() {
		resp, err := http.Get(ts.URL + "/slow")
		if err != nil {
			reqDone <- 0
			return
		}
		resp.Body.Close()
		reqDone <- resp.StatusCode
	}()

	<-entered

	shutdownDone := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownDone <- srv.Shutdown(ctx)
	}()

	// Shutdown must stay parked in the drain while the handler is in flight.
	select {
	case err := <-shutdownDone:
		t.Fatalf("shutdown returned %v before the in-flight request finished", err)
	case <-time.After(100 * time.Millisecond):
	}

	close(release)

	code := <-reqDone
	assert.Equal(t, http.StatusOK, code, "a draining handler must still reach the store")
	require.NoError(t, <-shutdownDone)
}
