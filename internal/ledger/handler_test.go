package ledger

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/rinde/rinde/internal/rbac"
)

func newTestRouter(t *testing.T, role rbac.Role) (http.Handler, *memRepo) {
	t.Helper()
	svc, repo, _ := newTestService(t)
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, rbac.Middleware{})
	r := chi.NewRouter()
	r.Route("/api/locations/{locationID}", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				p := rbac.Principal{UserID: 1, LocationID: 10, Role: role}
				next.ServeHTTP(w, req.WithContext(rbac.ContextWithPrincipal(req.Context(), p)))
			})
		})
		h.MountRoutes(r)
	})
	return r, repo
}

func TestHandlerCreateMovementThenLedger(t *testing.T) {
	router, _ := newTestRouter(t, rbac.RoleOperator)

	req := httptest.NewRequest(http.MethodPost, "/api/locations/10/movements",
		strings.NewReader(`{"date":"2024-01-10","actionId":4,"amount":"1.234,5"}`))
	req.Header.Set(IdempotencyHeader, "abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/locations/10/ledger?scope=week&date=2024-01-10", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body ledgerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "2024-01-07", *body.Start)
	require.Equal(t, "2024-01-14", *body.End)
	require.Equal(t, "1234.50", body.Summary.TotalEntries)
	require.Equal(t, "1234.50", body.Summary.NetResult)
	require.Equal(t, "2024-01-10", *body.LastMovementDate)
	require.Len(t, body.Days, 1)
	require.Equal(t, "1234.50", body.Days[0].Movements[0].Amount)
}

func TestHandlerReaderCannotWrite(t *testing.T) {
	router, repo := newTestRouter(t, rbac.RoleReader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/locations/10/movements",
		strings.NewReader(`{"date":"2024-01-10","actionId":4,"amount":"10"}`)))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Zero(t, repo.count())
}

func TestHandlerPartnerMovementRejectedForAdmin(t *testing.T) {
	router, repo := newTestRouter(t, rbac.RoleAdmin)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/locations/10/movements",
		strings.NewReader(`{"date":"2024-01-10","actionId":7,"amount":"10"}`)))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), `"code":"PARTNER_DISABLED"`)
	require.Zero(t, repo.count())
}

func TestHandlerDayEditorRoundTrip(t *testing.T) {
	router, _ := newTestRouter(t, rbac.RoleOperator)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/locations/10/day",
		strings.NewReader(`{"date":"2024-01-10","values":{"4":"2.500","6":0}}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.JSONEq(t, `{"created":1,"updated":0}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/locations/10/day?date=2024-01-10", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"date":"2024-01-10","values":{"4":"2500.00"}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/locations/10/day", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"code":"DATE_REQUIRED"`)
}

func TestHandlerExportLatin1(t *testing.T) {
	router, _ := newTestRouter(t, rbac.RoleReader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/locations/10/ledger/export.csv?scope=all&encoding=latin1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv; charset=iso-8859-1", rec.Header().Get("Content-Type"))
}
