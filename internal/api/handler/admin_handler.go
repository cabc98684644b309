package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ankunstudio/backoffice/internal/core/domain"
	"github.com/ankunstudio/backoffice/internal/core/ports"
)

const defaultEventLimit = 50

// AdminHandler serves manager-only views.
type AdminHandler struct {
	svc    ports.CredentialService
	events ports.AuthEventReader
}

// NewAdminHandler creates an AdminHandler. events may be nil when no audit
// sink is configured.
func NewAdminHandler(svc ports.CredentialService, events ports.AuthEventReader) *AdminHandler {
	return &AdminHandler{svc: svc, events: events}
}

type adminStatusResponse struct {
	Status     domain.Status `json:"status"`
	CheckedBy  string        `json:"checkedBy"`
	AuditTrail bool          `json:"auditTrail"`
}

// Status returns backend reachability for managers.
//
// @Summary      Admin status
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  adminStatusResponse
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /admin/status [get]
func (h *AdminHandler) Status(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, adminStatusResponse{
		Status:     h.svc.Status(),
		CheckedBy:  claims.Username,
		AuditTrail: h.events != nil,
	})
}

// Events lists the newest authentication events.
//
// @Summary      Recent authentication events
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        username  query     string  false  "Filter by username"
// @Param        limit     query     int     false  "Maximum events"  default(50)
// @Success      200       {array}   domain.AuthEvent
// @Failure      400       {object}  map[string]string
// @Failure      503       {object}  map[string]string
// @Router       /admin/events [get]
func (h *AdminHandler) Events(c echo.Context) error {
	if h.events == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "audit trail disabled")
	}

	limit := defaultEventLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}

	events, err := h.events.Recent(c.Request().Context(), c.QueryParam("username"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, events)
}
