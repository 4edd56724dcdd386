package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"elizabeth/agent/internal/config"
	"elizabeth/agent/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(config.BackendConfig{
		BaseURL:  server.URL,
		Email:    "user@example.com",
		Password: "secret",
		Timeout:  5,
	})
}

func TestLoginInstallsAuthToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user@example.com", body["email"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(AuthResponse{
			Tokens: Tokens{Access: "access-token", Refresh: "refresh-token"},
			User:   User{ID: 7, Email: "user@example.com"},
		})
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Profile{ID: 7, Email: "user@example.com"})
	})

	c := newTestClient(t, mux)
	auth, err := c.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), auth.User.ID)

	profile, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", profile.Email)
}

func TestLoginRejected(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.Login(context.Background())
	assert.Error(t, err)
}

func TestArmtekCredentialsNoContent(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	creds, err := c.ArmtekCredentials(context.Background())
	require.NoError(t, err)
	assert.Nil(t, creds, "204 means nothing stored, not an error")
}

func TestBulkSearchSendsQueryLines(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /search/bulk", func(w http.ResponseWriter, r *http.Request) {
		var body map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"332101_KYB", "C1062_LUZAR"}, body["queries"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(SearchResponse{
			Request:  SearchRequestInfo{ID: 12, Status: "done"},
			Products: []SearchProduct{{ID: 1, ArtID: "AT332101", Brand: "KYB", Pin: "332101"}},
		})
	})

	c := newTestClient(t, mux)
	resp, err := c.BulkSearch(context.Background(), []domain.SearchQuery{
		{Pin: "332101", Brand: "KYB"},
		{Pin: "C1062", Brand: "LUZAR"},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(12), resp.Request.ID)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "KYB:AT332101", resp.Products[0].ToDomain().Identity())
}

func TestPostDetailsCarriesCorrelationToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /products/42/details", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "req-9", r.Header.Get("X-Details-Token"))
		assert.Equal(t, "req-9", r.URL.Query().Get("request_id"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, 350.0, payload["weight"])
		assert.NotContains(t, payload, "image_url", "unresolved fields stay absent")

		w.WriteHeader(http.StatusOK)
	})

	c := newTestClient(t, mux)
	err := c.PostDetails(context.Background(), "42", "req-9", map[string]any{"weight": 350.0})
	require.NoError(t, err)
}

func TestRequestDetailsAndJobs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /products/details/request", func(w http.ResponseWriter, r *http.Request) {
		var body map[string][]int64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []int64{1, 2}, body["product_ids"])
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]CreatedJob{{ProductID: 1, CorrelationID: "req-1", Status: "pending"}})
	})
	mux.HandleFunc("GET /products/details/jobs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]domain.DetailJob{
			{ProductID: 1, CorrelationID: "req-1", OpenURL: "https://supplier/artinfo/index/X?request_id=req-1&elizabeth_product_id=1"},
		})
	})

	c := newTestClient(t, mux)

	created, err := c.RequestDetails(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "req-1", created[0].CorrelationID)

	jobs, err := c.DetailJobs(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, int64(1), jobs[0].ProductID)
}

func TestSearchProductToDomainDefaultsToIdle(t *testing.T) {
	p := SearchProduct{ID: 1, ArtID: "A", Brand: "B"}
	assert.Equal(t, domain.StatusIdle, p.ToDomain().DetailsStatus)

	p.DetailsStatus = string(domain.StatusSuccess)
	p.RequestID = "req-1"
	mapped := p.ToDomain()
	assert.Equal(t, domain.StatusSuccess, mapped.DetailsStatus)
	assert.Equal(t, "req-1", mapped.CorrelationID)
}
