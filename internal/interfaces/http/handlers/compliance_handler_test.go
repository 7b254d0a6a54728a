package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcompliance "github.com/fileready/fileready/internal/application/compliance"
	"github.com/fileready/fileready/internal/application/jobs"
	"github.com/fileready/fileready/internal/config"
	domcompliance "github.com/fileready/fileready/internal/domain/compliance"
	"github.com/fileready/fileready/internal/infrastructure/database/redis"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/internal/infrastructure/queue"
	"github.com/fileready/fileready/internal/interfaces/http/middleware"
	"github.com/fileready/fileready/pkg/errors"
	"github.com/fileready/fileready/pkg/types/common"
)

type fakeScoreRepo struct {
	scores map[common.ID]*domcompliance.Score
}

func (f *fakeScoreRepo) Upsert(_ context.Context, score *domcompliance.Score) error {
	f.scores[score.ClientID] = score
	return nil
}

func (f *fakeScoreRepo) Get(_ context.Context, _ common.TenantID, clientID common.ID) (*domcompliance.Score, error) {
	s, ok := f.scores[clientID]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeScoreNotFound, "no score for client %s", clientID)
	}
	return s, nil
}

func (f *fakeScoreRepo) ListByTenant(_ context.Context, _ common.TenantID) ([]*domcompliance.Score, error) {
	out := make([]*domcompliance.Score, 0, len(f.scores))
	for _, s := range f.scores {
		out = append(out, s)
	}
	return out, nil
}

func newComplianceFixture(t *testing.T) (*ComplianceHandler, *fakeScoreRepo, *queue.Queue) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClientFromUniversal(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), logging.NewNopLogger())
	q := queue.NewQueue("compliance", client, config.QueueConfig{Concurrency: 1, MaxAttempts: 1, RetryBackoff: time.Second}, logging.NewNopLogger(), nil)

	repo := &fakeScoreRepo{scores: map[common.ID]*domcompliance.Score{}}
	summary := appcompliance.NewSummaryService(repo, nil, logging.NewNopLogger(), nil)
	h := NewComplianceHandler(repo, summary, q, logging.NewNopLogger())
	return h, repo, q
}

// serve routes the request through chi with a tenant already in context.
func serve(t *testing.T, register func(chi.Router), method, target string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	register(r)

	req := httptest.NewRequest(method, target, nil)
	req.Header.Set(middleware.TenantHeader, "t1")
	req.Header.Set(middleware.UserHeader, "u1")
	w := httptest.NewRecorder()
	middleware.RequireTenant(logging.NewNopLogger())(r).ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) common.APIResponse[json.RawMessage] {
	t.Helper()
	var resp common.APIResponse[json.RawMessage]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetScoreFound(t *testing.T) {
	h, repo, _ := newComplianceFixture(t)
	repo.scores["c1"] = &domcompliance.Score{
		TenantID: "t1", ClientID: "c1", ScoreValue: 88, Level: domcompliance.LevelGreen,
	}

	w := serve(t, func(r chi.Router) { r.Get("/clients/{clientID}/score", h.GetScore) },
		http.MethodGet, "/clients/c1/score")

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w)
	require.True(t, resp.Success)

	var score domcompliance.Score
	require.NoError(t, json.Unmarshal(resp.Data, &score))
	assert.Equal(t, 88, score.ScoreValue)
	assert.Equal(t, domcompliance.LevelGreen, score.Level)
}

func TestGetScoreNotFound(t *testing.T) {
	h, _, _ := newComplianceFixture(t)

	w := serve(t, func(r chi.Router) { r.Get("/clients/{clientID}/score", h.GetScore) },
		http.MethodGet, "/clients/missing/score")

	require.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeEnvelope(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, "CMP_005", resp.Error.Code)
}

func TestGetDashboard(t *testing.T) {
	h, repo, _ := newComplianceFixture(t)
	now := time.Now()
	repo.scores["c1"] = &domcompliance.Score{TenantID: "t1", ClientID: "c1", ScoreValue: 90, Level: domcompliance.LevelGreen, LastCalculatedAt: now}
	repo.scores["c2"] = &domcompliance.Score{TenantID: "t1", ClientID: "c2", ScoreValue: 40, Level: domcompliance.LevelRed, LastCalculatedAt: now}

	w := serve(t, func(r chi.Router) { r.Get("/dashboard", h.GetDashboard) },
		http.MethodGet, "/dashboard")

	require.Equal(t, http.StatusOK, w.Code)
	var dashboard appcompliance.Dashboard
	resp := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(resp.Data, &dashboard))
	assert.Equal(t, 2, dashboard.TotalClients)
	assert.Equal(t, 65.0, dashboard.AverageScore)
	assert.Equal(t, 1, dashboard.ByLevel[domcompliance.LevelRed])
}

func TestTriggerRefreshEnqueues(t *testing.T) {
	h, _, q := newComplianceFixture(t)

	w := serve(t, func(r chi.Router) { r.Post("/refresh", h.TriggerRefresh) },
		http.MethodPost, "/refresh")

	require.Equal(t, http.StatusAccepted, w.Code)
	resp := decodeEnvelope(t, w)
	var accepted refreshAccepted
	require.NoError(t, json.Unmarshal(resp.Data, &accepted))
	assert.Equal(t, "compliance", accepted.Queue)
	assert.Equal(t, "waiting", accepted.State)

	job, err := q.GetJob(context.Background(), accepted.JobID)
	require.NoError(t, err)
	assert.Equal(t, jobs.JobComplianceRefresh, job.Name)
	assert.Equal(t, jobs.TriggerAPI, job.TriggeredBy)
}

func TestTriggerRefreshAcceptedWhilePaused(t *testing.T) {
	// Pausing stops dequeueing only; triggers still land in waiting.
	h, _, q := newComplianceFixture(t)
	require.NoError(t, q.Pause(context.Background()))

	w := serve(t, func(r chi.Router) { r.Post("/refresh", h.TriggerRefresh) },
		http.MethodPost, "/refresh")

	require.Equal(t, http.StatusAccepted, w.Code)
	counts, err := q.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Waiting)
	assert.True(t, counts.Paused)
}
