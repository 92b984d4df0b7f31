package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"travelcms/internal/middleware"
	"travelcms/internal/model"
	"travelcms/internal/rbac"
	"travelcms/internal/repository"
	"travelcms/internal/service"
	"travelcms/internal/web"
	"travelcms/pkg/pagination"
	"travelcms/pkg/validation"
)

// LogStream upgrades a request to the live audit feed
type LogStream interface {
	ServeWs(c *gin.Context)
}

type AuditHandler struct {
	auditService service.AuditService
	stream       LogStream
	gate         *middleware.Gate
	log          *zap.Logger
}

func NewAuditHandler(auditService service.AuditService, stream LogStream, gate *middleware.Gate, log *zap.Logger) *AuditHandler {
	return &AuditHandler{auditService: auditService, stream: stream, gate: gate, log: log}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	logs := router.Group("/logs")
	logs.Use(h.gate.Require(rbac.ViewLogs)...)
	{
		logs.GET("", h.ListLogs)
		logs.GET("/filter", h.FilterPage)
		logs.POST("/filter", h.FilterLogs)
	}

	ws := router.Group("/ws")
	ws.Use(h.gate.Require(rbac.ViewLogs)...)
	{
		ws.GET("/logs", h.stream.ServeWs)
	}
}

// ListLogs renders the audit trail, newest first
// @Summary      List audit logs
// @Description  Without page or limit every entry is returned
// @Tags         audit
// @Produce      html,json
// @Param        page   query     int  false  "Page number"
// @Param        limit  query     int  false  "Entries per page (max 100)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      403    {object}  response.Response
// @Router       /logs [get]
func (h *AuditHandler) ListLogs(c *gin.Context) {
	data := gin.H{}
	var page *pagination.Params
	if p, ok := pagination.ParseOptional(c); ok {
		page = &p
	}

	logs, total, err := h.auditService.ListLogs(c.Request.Context(), page)
	if err != nil {
		renderFailure(c, h.log, err)
		return
	}
	data["Logs"] = logs
	if page != nil {
		data["Meta"] = pagination.NewMeta(*page, total)
	}
	web.Render(c, http.StatusOK, web.Page{Template: "logs.html", Title: "Logs", Data: data})
}

// FilterPage renders the empty filter form
// @Summary      Log filter form
// @Tags         audit
// @Produce      html,json
// @Success      200  {object}  response.Response{data=object}
// @Router       /logs/filter [get]
func (h *AuditHandler) FilterPage(c *gin.Context) {
	h.renderFilter(c, http.StatusOK, []model.Log{}, nil)
}

// FilterLogs searches the audit trail. Blank fields impose no constraint and
// the date range only applies when both ends are given.
// @Summary      Filter audit logs
// @Tags         audit
// @Accept       x-www-form-urlencoded
// @Produce      html,json
// @Param        user_id     formData  int     false  "Acting user ID"
// @Param        category    formData  string  false  "content_update, user_management or security"
// @Param        start_date  formData  string  false  "First day, YYYY-MM-DD"
// @Param        end_date    formData  string  false  "Last day, YYYY-MM-DD, inclusive"
// @Success      200  {object}  response.Response{data=object}
// @Failure      422  {object}  response.Response
// @Router       /logs/filter [post]
func (h *AuditHandler) FilterLogs(c *gin.Context) {
	form, ok := submitted(c)
	if !ok {
		return
	}
	if errs := logFilterForm.Validate(form); !errs.Empty() {
		h.renderFilter(c, http.StatusUnprocessableEntity, []model.Log{}, errs)
		return
	}

	filter := repository.LogFilter{
		UserID:   optionalUint(form, "user_id"),
		Category: model.LogCategory(strings.TrimSpace(form.Get("category"))),
		Start:    optionalDate(form, "start_date"),
		End:      optionalDate(form, "end_date"),
	}
	logs, err := h.auditService.FilterLogs(c.Request.Context(), filter)
	if errors.Is(err, service.ErrInvalidInput) {
		errs := validation.Errors{}
		errs.Add("category", "Not a valid choice.")
		h.renderFilter(c, http.StatusUnprocessableEntity, []model.Log{}, errs)
		return
	}
	if err != nil {
		renderFailure(c, h.log, err)
		return
	}
	h.renderFilter(c, http.StatusOK, logs, nil)
}

func (h *AuditHandler) renderFilter(c *gin.Context, status int, logs []model.Log, errs validation.Errors) {
	web.Render(c, status, web.Page{
		Template: "filter_logs.html",
		Title:    "Filter Logs",
		Data:     gin.H{"Logs": logs, "Categories": model.AllLogCategories},
		Errors:   errs,
	})
}
