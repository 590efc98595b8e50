package settlement

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rinde/rinde/internal/calendar"
	"github.com/rinde/rinde/internal/money"
	"github.com/rinde/rinde/internal/platform/httpx"
	"github.com/rinde/rinde/internal/rbac"
	"github.com/rinde/rinde/internal/shared"
)

// Handler exposes the settlement dashboard and partner share configuration.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbacMW}
}

// MountRoutes registers settlement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermMovementsRead))
		r.Get("/dashboard", h.showDashboard)
		r.Get("/partner-share", h.showShare)
	})
	r.With(h.rbac.RequireAll(shared.PermConfigWrite)).Put("/partner-share", h.saveShare)
}

type rowDTO struct {
	Start                string `json:"start"`
	End                  string `json:"end"`
	Entries              string `json:"entries"`
	Exits                string `json:"exits"`
	NetResult            string `json:"netResult"`
	MovementCount        int    `json:"movementCount"`
	CarryBefore          string `json:"carryBefore"`
	BalanceBeforeSplit   string `json:"balanceBeforeSplit"`
	CarryAfter           string `json:"carryAfter"`
	Divisible            string `json:"divisible"`
	PartnerShareFraction string `json:"partnerShareFraction"`
	PartnerPart          string `json:"partnerPart"`
	OwnerPart            string `json:"ownerPart"`
}

type dashboardResponse struct {
	Mode                 calendar.Mode `json:"mode"`
	AnchorDate           string        `json:"anchorDate"`
	PartnerShareFraction string        `json:"partnerShareFraction"`
	Series               []rowDTO      `json:"series"`
}

func toDashboardResponse(d Dashboard) dashboardResponse {
	resp := dashboardResponse{
		Mode:                 d.Mode,
		AnchorDate:           calendar.FormatDate(d.AnchorDate),
		PartnerShareFraction: d.PartnerShareFraction.StringFixed(4),
		Series:               make([]rowDTO, 0, len(d.Series)),
	}
	for _, r := range d.Series {
		resp.Series = append(resp.Series, rowDTO{
			Start:                calendar.FormatDate(r.Start),
			End:                  calendar.FormatDate(r.End),
			Entries:              money.Format(r.Entries),
			Exits:                money.Format(r.Exits),
			NetResult:            money.Format(r.NetResult),
			MovementCount:        r.MovementCount,
			CarryBefore:          money.Format(r.CarryBefore),
			BalanceBeforeSplit:   money.Format(r.Balance),
			CarryAfter:           money.Format(r.CarryAfter),
			Divisible:            money.Format(r.Divisible),
			PartnerShareFraction: r.PartnerShareFraction.StringFixed(4),
			PartnerPart:          money.Format(r.PartnerPart),
			OwnerPart:            money.Format(r.OwnerPart),
		})
	}
	return resp
}

func (h *Handler) showDashboard(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	q := r.URL.Query()
	dash, err := h.service.Dashboard(r.Context(), p.LocationID, q.Get("mode"), q.Get("count"))
	if err != nil {
		h.fail(w, "build dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDashboardResponse(dash))
}

type shareResponse struct {
	IsEnabled  bool `json:"isEnabled"`
	Percentage int  `json:"percentage"`
}

func (h *Handler) showShare(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	cfg, err := h.service.Share(r.Context(), p.LocationID)
	if err != nil {
		h.fail(w, "load partner share", err)
		return
	}
	httpx.JSON(w, http.StatusOK, shareResponse{IsEnabled: cfg.IsEnabled, Percentage: cfg.Percentage()})
}

func (h *Handler) saveShare(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	var in ShareInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	cfg, err := h.service.SaveShare(r.Context(), p.LocationID, in)
	if err != nil {
		h.fail(w, "save partner share", err)
		return
	}
	httpx.JSON(w, http.StatusOK, shareResponse{IsEnabled: cfg.IsEnabled, Percentage: cfg.Percentage()})
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if httpx.CodeOf(err) == "" {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
