package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Tenderflow/internal/domain"
	"github.com/shaiso/Tenderflow/internal/idempotency"
	"github.com/shaiso/Tenderflow/internal/telemetry"
	"github.com/shaiso/Tenderflow/internal/workflow"
)

type testServer struct {
	svc   *fakeService
	users *fakeUsers
	mux   *http.ServeMux
}

func newTestServer(t *testing.T, idem IdempotencyStore) *testServer {
	t.Helper()

	ts := &testServer{
		svc:   newFakeService(),
		users: &fakeUsers{users: make(map[uuid.UUID]domain.User)},
		mux:   http.NewServeMux(),
	}
	h := NewHandler(Config{
		Tenders:     ts.svc,
		Users:       ts.users,
		Idempotency: idem,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	h.RegisterRoutes(ts.mux)
	return ts
}

func (ts *testServer) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, v))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) ErrorCode {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error.Code
}

func TestCreateTender(t *testing.T) {
	ts := newTestServer(t, nil)
	actor := uuid.New()

	rec := ts.do(http.MethodPost, "/api/v1/tenders",
		`{"title":"Travaux de voirie","amount":500000,"metadata":{"lot":2}}`,
		map[string]string{HeaderActorID: actor.String()})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Travaux de voirie", ts.svc.lastCreate.Title)
	assert.Equal(t, actor, ts.svc.lastCreate.CreatedBy)
	assert.EqualValues(t, 2, ts.svc.lastCreate.Metadata["lot"])

	var resp TenderResponse
	decodeData(t, rec, &resp)
	assert.Equal(t, "AO-2026-000001", resp.Reference)
	assert.Equal(t, "Expression du besoin", resp.StepTitle)
	assert.Equal(t, domain.RoleTechnicalService, resp.Role)
}

func TestCreateTender_RequiresActorHeader(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodPost, "/api/v1/tenders", `{"title":"x"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/tenders", `{"title":"x"}`, map[string]string{HeaderActorID: "bob"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, ts.svc.calls)
}

func TestTransitions(t *testing.T) {
	ts := newTestServer(t, nil)
	actor := uuid.New()
	id := uuid.New()

	for _, action := range []string{"approve", "reject", "cancel"} {
		t.Run(action, func(t *testing.T) {
			rec := ts.do(http.MethodPost, fmt.Sprintf("/api/v1/tenders/%s/%s", id, action),
				`{"comments":"ok"}`,
				map[string]string{HeaderActorID: actor.String()})

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, id, ts.svc.lastTransition.TenderID)
			assert.Equal(t, actor, ts.svc.lastTransition.ActorID)
			assert.Equal(t, "ok", ts.svc.lastTransition.Comments)
		})
	}
}

func TestTransition_EmptyBody(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodPost, "/api/v1/tenders/"+uuid.NewString()+"/approve", "",
		map[string]string{HeaderActorID: uuid.NewString()})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleError_StatusCodes(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   ErrorCode
	}{
		{workflow.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
		{workflow.ErrActorNotFound, http.StatusNotFound, ErrCodeNotFound},
		{workflow.ErrInvalidState, http.StatusUnprocessableEntity, ErrCodeInvalidState},
		{workflow.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
		{workflow.ErrValidation, http.StatusBadRequest, ErrCodeBadRequest},
		{workflow.ErrConflict, http.StatusConflict, ErrCodeConflict},
		{fmt.Errorf("%w: step 9.1", workflow.ErrInternalInconsistency), http.StatusInternalServerError, ErrCodeInternalError},
		{errors.New("db down"), http.StatusInternalServerError, ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			ts := newTestServer(t, nil)
			ts.svc.err = tt.err

			rec := ts.do(http.MethodPost, "/api/v1/tenders/"+uuid.NewString()+"/approve", "",
				map[string]string{HeaderActorID: uuid.NewString()})

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestInternalErrorHidesDetails(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.svc.err = fmt.Errorf("%w: position 9.1", workflow.ErrInternalInconsistency)

	rec := ts.do(http.MethodGet, "/api/v1/tenders/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "9.1")
}

func TestListTenders_Params(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, "/api/v1/tenders?status=active&limit=10&offset=20", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, workflow.ListFilter{Status: domain.TenderStatusActive, Limit: 10, Offset: 20}, ts.svc.lastFilter)

	rec = ts.do(http.MethodGet, "/api/v1/tenders", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultListLimit, ts.svc.lastFilter.Limit)

	rec = ts.do(http.MethodGet, "/api/v1/tenders?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/tenders?limit=100000", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTasks(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.svc.tasks = []domain.Task{{TenderID: uuid.New(), Reference: "AO-2026-000007"}}

	rec := ts.do(http.MethodGet, "/api/v1/tasks/markets_service", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "markets_service", ts.svc.lastAssignee)

	var list struct {
		Data  []domain.Task `json:"data"`
		Total int           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, "AO-2026-000007", list.Data[0].Reference)

	actor := uuid.New()
	rec = ts.do(http.MethodGet, "/api/v1/tasks", "", map[string]string{HeaderActorID: actor.String()})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, actor.String(), ts.svc.lastAssignee)
}

func TestCatalogEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, "/api/v1/catalog", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cat CatalogResponse
	decodeData(t, rec, &cat)
	assert.Equal(t, 38, cat.TotalSteps)
	require.Len(t, cat.Phases, 3)
	assert.Len(t, cat.Phases[0].Steps, 23)

	rec = ts.do(http.MethodGet, "/api/v1/catalog/phases/2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var phase PhaseResponse
	decodeData(t, rec, &phase)
	assert.Equal(t, 2, phase.Phase)
	assert.Len(t, phase.Steps, 8)

	rec = ts.do(http.MethodGet, "/api/v1/catalog/phases/7", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/catalog/phases/x", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUsers(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodPost, "/api/v1/users",
		`{"name":"Amina","email":"amina@example.org","role":"treasurer"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var user domain.User
	decodeData(t, rec, &user)
	assert.Equal(t, domain.RoleTreasurer, user.Role)
	assert.True(t, user.IsActive)

	rec = ts.do(http.MethodPost, "/api/v1/users",
		`{"name":"Amina","email":"amina@example.org","role":"treasurer"}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/users", `{"name":"X","email":"x@example.org","role":"boss"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/users/"+user.ID.String(), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/users/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/users?role=treasurer", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "amina@example.org")
}

func TestIdempotency_ReplaysResponse(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ts := newTestServer(t, idempotency.NewWithClient(rdb, idempotency.Config{}))
	headers := map[string]string{
		HeaderActorID:        uuid.NewString(),
		HeaderIdempotencyKey: "req-1",
	}
	path := "/api/v1/tenders/" + uuid.NewString() + "/approve"

	first := ts.do(http.MethodPost, path, "", headers)
	require.Equal(t, http.StatusOK, first.Code)

	second := ts.do(http.MethodPost, path, "", headers)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "true", second.Header().Get(HeaderIdempotentReplay))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, ts.svc.calls)

	headers[HeaderIdempotencyKey] = "req-2"
	ts.do(http.MethodPost, path, "", headers)
	assert.Equal(t, 2, ts.svc.calls)
}

func TestIdempotency_ServerErrorsAreNotCached(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ts := newTestServer(t, idempotency.NewWithClient(rdb, idempotency.Config{}))
	ts.svc.err = errors.New("db down")
	headers := map[string]string{
		HeaderActorID:        uuid.NewString(),
		HeaderIdempotencyKey: "req-3",
	}
	path := "/api/v1/tenders/" + uuid.NewString() + "/reject"

	rec := ts.do(http.MethodPost, path, "", headers)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	ts.svc.err = nil
	rec = ts.do(http.MethodPost, path, "", headers)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(HeaderIdempotentReplay))
	assert.Equal(t, 2, ts.svc.calls)
}

func TestIdempotency_PanicReleasesKey(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ts := newTestServer(t, idempotency.NewWithClient(rdb, idempotency.Config{}))
	ts.svc.panicWith = "nil map write"
	headers := map[string]string{
		HeaderActorID:        uuid.NewString(),
		HeaderIdempotencyKey: "req-4",
	}
	path := "/api/v1/tenders/" + uuid.NewString() + "/approve"

	rec := ts.do(http.MethodPost, path, "", headers)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	ts.svc.panicWith = nil
	rec = ts.do(http.MethodPost, path, "", headers)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(HeaderIdempotentReplay))
	assert.Equal(t, 2, ts.svc.calls)
}

func TestLogging_PutsRequestLoggerInContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	actorID := uuid.NewString()

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		telemetry.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tenders", nil)
	req.Header.Set(HeaderActorID, actorID)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var inside map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &inside))
	assert.Equal(t, "inside handler", inside["msg"])
	assert.Equal(t, actorID, inside["actor_id"])
	assert.Equal(t, "/api/v1/tenders", inside["path"])

	var done map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &done))
	assert.Equal(t, "http request", done["msg"])
	assert.Equal(t, float64(http.StatusNoContent), done["status"])
}
