package ledger

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rinde/rinde/internal/actions"
	"github.com/rinde/rinde/internal/calendar"
	"github.com/rinde/rinde/internal/money"
	"github.com/rinde/rinde/internal/platform/httpx"
	"github.com/rinde/rinde/internal/rbac"
	"github.com/rinde/rinde/internal/shared"
)

// IdempotencyHeader carries the optional client key for movement creation.
const IdempotencyHeader = "Idempotency-Key"

// Handler exposes ledger endpoints under a location-bound router.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbacMW}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermMovementsRead))
		r.Get("/ledger", h.showLedger)
		r.Get("/ledger/export.csv", h.exportLedger)
		r.Get("/day", h.showDay)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermMovementsWrite))
		r.Post("/movements", h.createMovement)
		r.Put("/day", h.saveDay)
	})
}

type summaryDTO struct {
	TotalEntries  string `json:"totalEntries"`
	TotalExits    string `json:"totalExits"`
	NetResult     string `json:"netResult"`
	TotalImpacted string `json:"totalImpacted"`
	MovementCount int    `json:"movementCount"`
}

func toSummary(t calendar.Totals) summaryDTO {
	return summaryDTO{
		TotalEntries:  money.Format(t.Entries),
		TotalExits:    money.Format(t.Exits),
		NetResult:     money.Format(t.Net),
		TotalImpacted: money.Format(t.Impacted),
		MovementCount: t.Count,
	}
}

type movementDTO struct {
	ID         int64                `json:"id"`
	Date       string               `json:"date"`
	ActionID   int64                `json:"actionId"`
	ActionName string               `json:"actionName"`
	Type       actions.MovementType `json:"type"`
	Amount     string               `json:"amount"`
	Shift      *Shift               `json:"shift"`
	Name       *string              `json:"name"`
}

type dayDTO struct {
	Date      string        `json:"date"`
	Movements []movementDTO `json:"movements"`
	Summary   summaryDTO    `json:"summary"`
}

type weekDTO struct {
	Start   string     `json:"start"`
	End     string     `json:"end"`
	Summary summaryDTO `json:"summary"`
}

type ledgerResponse struct {
	Scope            calendar.Scope `json:"scope"`
	Start            *string        `json:"start,omitempty"`
	End              *string        `json:"end,omitempty"`
	Days             []dayDTO       `json:"days"`
	Weeks            []weekDTO      `json:"weeks,omitempty"`
	Summary          summaryDTO     `json:"summary"`
	LastMovementDate *string        `json:"lastMovementDate"`
}

func toLedgerResponse(v View) ledgerResponse {
	resp := ledgerResponse{
		Scope:   v.Scope,
		Days:    make([]dayDTO, 0, len(v.Days)),
		Summary: toSummary(v.Totals),
	}
	if v.Bounds != nil {
		start, end := calendar.FormatDate(v.Bounds.Start), calendar.FormatDate(v.Bounds.End)
		resp.Start, resp.End = &start, &end
	}
	for _, d := range v.Days {
		day := dayDTO{Date: calendar.FormatDate(d.Date), Movements: make([]movementDTO, 0, len(d.Movements)), Summary: toSummary(d.Totals)}
		for _, m := range d.Movements {
			day.Movements = append(day.Movements, movementDTO{
				ID:         m.ID,
				Date:       calendar.FormatDate(m.Date),
				ActionID:   m.ActionID,
				ActionName: m.ActionName,
				Type:       m.Type,
				Amount:     money.Format(m.Amount),
				Shift:      m.Shift,
				Name:       m.PersonName,
			})
		}
		resp.Days = append(resp.Days, day)
	}
	for _, w := range v.Weeks {
		resp.Weeks = append(resp.Weeks, weekDTO{
			Start:   calendar.FormatDate(w.Start),
			End:     calendar.FormatDate(w.End),
			Summary: toSummary(w.Totals),
		})
	}
	if v.LastMovementDate != nil {
		last := calendar.FormatDate(*v.LastMovementDate)
		resp.LastMovementDate = &last
	}
	return resp
}

func (h *Handler) showLedger(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	q := r.URL.Query()
	view, err := h.service.View(r.Context(), p.LocationID, q.Get("scope"), q.Get("date"))
	if err != nil {
		h.fail(w, "load ledger", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toLedgerResponse(view))
}

func (h *Handler) exportLedger(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	q := r.URL.Query()
	enc, err := ParseEncoding(q.Get("encoding"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	view, err := h.service.View(r.Context(), p.LocationID, q.Get("scope"), q.Get("date"))
	if err != nil {
		h.fail(w, "export ledger", err)
		return
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, view, enc); err != nil {
		h.fail(w, "write ledger csv", err)
		return
	}
	charset := "utf-8"
	if enc == EncodingLatin1 {
		charset = "iso-8859-1"
	}
	w.Header().Set("Content-Type", "text/csv; charset="+charset)
	w.Header().Set("Content-Disposition", `attachment; filename="ledger-`+strconv.FormatInt(p.LocationID, 10)+`-`+string(view.Scope)+`.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) createMovement(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	var in CreateMovementInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := h.service.CreateMovement(r.Context(), p.LocationID, p.UserID, in, r.Header.Get(IdempotencyHeader))
	if err != nil {
		h.fail(w, "create movement", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]int64{"id": id})
}

type daySlotsResponse struct {
	Date   string            `json:"date"`
	Values map[string]string `json:"values"`
}

func (h *Handler) showDay(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	slots, err := h.service.DaySlots(r.Context(), p.LocationID, r.URL.Query().Get("date"))
	if err != nil {
		h.fail(w, "load day slots", err)
		return
	}
	resp := daySlotsResponse{Date: calendar.FormatDate(slots.Date), Values: make(map[string]string, len(slots.Values))}
	for id, amount := range slots.Values {
		resp.Values[strconv.FormatInt(id, 10)] = money.Format(amount)
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) saveDay(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	var in SaveDayInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.SaveDaySlots(r.Context(), p.LocationID, p.UserID, in)
	if err != nil {
		h.fail(w, "save day slots", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if httpx.CodeOf(err) == "" {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
