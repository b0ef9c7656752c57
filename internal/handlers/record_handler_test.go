package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/taproot/pkg/middleware"
	"github.com/Ramsey-B/taproot/pkg/ownership"
	"github.com/Ramsey-B/taproot/pkg/record"
	"github.com/Ramsey-B/taproot/pkg/schema"
)

type stubRepo struct {
	getRec    *record.Record
	getErr    error
	saved     bool
	saveErr   error
	found     []*record.Record
	foundErr  error
	deleteErr error
}

func (s *stubRepo) Get(ctx context.Context, typeName string, id any) (*record.Record, error) {
	return s.getRec, s.getErr
}

func (s *stubRepo) Save(ctx context.Context, rec *record.Record) (bool, error) {
	return s.saved, s.saveErr
}

func (s *stubRepo) Delete(ctx context.Context, typeName string, id any) error {
	return s.deleteErr
}

func (s *stubRepo) FindOwned(ctx context.Context, typeName string, opts ownership.FilterOptions) ([]*record.Record, error) {
	return s.found, s.foundErr
}

func (s *stubRepo) FindNonOwned(ctx context.Context, typeName string) ([]*record.Record, error) {
	return s.found, s.foundErr
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// passThroughRegistry holds a single type outside every ownership chain, so
// engine calls resolve without touching a data store.
func passThroughRegistry() *schema.Registry {
	return schema.NewRegistry().MustRegister(
		schema.NewType("accounts", "accounts",
			[]string{"id", "name", "email"}, []string{"id"}))
}

func newTestServer(repo *stubRepo, types *schema.Registry) *echo.Echo {
	logger := testLogger()
	engine := ownership.NewEngine(types, nil, logger)

	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(logger)
	NewRecordHandler(repo, engine, types, logger).RegisterRoutes(e.Group("/api/v1"))
	return e
}

func doRequest(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRecordHandler_ListOwned(t *testing.T) {
	types := passThroughRegistry()
	accounts, _ := types.Get("accounts")

	repo := &stubRepo{found: []*record.Record{
		record.Hydrate(accounts, map[string]any{"id": float64(9), "name": "ada"}),
	}}
	e := newTestServer(repo, types)

	rec := doRequest(e, http.MethodGet, "/api/v1/records/accounts", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RecordListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "ada", resp.Items[0]["name"])
}

func TestRecordHandler_GetOwner(t *testing.T) {
	types := passThroughRegistry()
	accounts, _ := types.Get("accounts")

	t.Run("AbsentOwnerIsFalseOnTheWire", func(t *testing.T) {
		repo := &stubRepo{getRec: record.Hydrate(accounts, map[string]any{"id": float64(9)})}
		e := newTestServer(repo, types)

		rec := doRequest(e, http.MethodGet, "/api/v1/records/accounts/9/owner", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "accounts", resp["record_type"])
		assert.Equal(t, false, resp["owner_id"])
	})

	t.Run("MissingRecordIs404", func(t *testing.T) {
		repo := &stubRepo{}
		e := newTestServer(repo, types)

		rec := doRequest(e, http.MethodGet, "/api/v1/records/accounts/404/owner", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRecordHandler_Verify(t *testing.T) {
	types := passThroughRegistry()
	accounts, _ := types.Get("accounts")

	repo := &stubRepo{getRec: record.Hydrate(accounts, map[string]any{"id": float64(9)})}
	e := newTestServer(repo, types)

	rec := doRequest(e, http.MethodPost, "/api/v1/records/accounts/9/verify", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp VerifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Consistent)
}

func TestRecordHandler_Create(t *testing.T) {
	types := passThroughRegistry()

	t.Run("Admitted", func(t *testing.T) {
		repo := &stubRepo{saved: true}
		e := newTestServer(repo, types)

		body := `{"fields": {"name": "ada", "email": "ada@example.com"}}`
		rec := doRequest(e, http.MethodPost, "/api/v1/records/accounts", body)
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp SaveResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Saved)
		assert.Equal(t, "ada", resp.Fields["name"])
	})

	t.Run("VetoedIsConflictNotError", func(t *testing.T) {
		repo := &stubRepo{saved: false}
		e := newTestServer(repo, types)

		body := `{"fields": {"name": "ada"}}`
		rec := doRequest(e, http.MethodPost, "/api/v1/records/accounts", body)
		require.Equal(t, http.StatusConflict, rec.Code)

		var resp SaveResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Saved)
	})

	t.Run("UnknownTypeIs404", func(t *testing.T) {
		repo := &stubRepo{}
		e := newTestServer(repo, types)

		rec := doRequest(e, http.MethodPost, "/api/v1/records/ghosts", `{"fields": {"name": "x"}}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("MissingFieldsIs400", func(t *testing.T) {
		repo := &stubRepo{}
		e := newTestServer(repo, types)

		rec := doRequest(e, http.MethodPost, "/api/v1/records/accounts", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRecordHandler_Delete(t *testing.T) {
	types := passThroughRegistry()

	t.Run("DeletedIsNoContent", func(t *testing.T) {
		repo := &stubRepo{}
		e := newTestServer(repo, types)

		rec := doRequest(e, http.MethodDelete, "/api/v1/records/accounts/9", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("MissingRecordIs404", func(t *testing.T) {
		repo := &stubRepo{deleteErr: httperror.NewHTTPError(http.StatusNotFound, "record not found")}
		e := newTestServer(repo, types)

		rec := doRequest(e, http.MethodDelete, "/api/v1/records/accounts/404", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
