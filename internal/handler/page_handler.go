package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"travelcms/internal/middleware"
	"travelcms/internal/model"
	"travelcms/internal/service"
	"travelcms/internal/web"
)

type dashboardView struct {
	template string
	title    string
}

// dashboardViews has an entry for every RoleKind
var dashboardViews = map[model.RoleKind]dashboardView{
	model.RoleSuperadmin:   {template: "roles/superadmin.html", title: "Superadmin Dashboard"},
	model.RoleContentAdmin: {template: "roles/content_admin.html", title: "Content Admin Dashboard"},
	model.RoleUserAdmin:    {template: "roles/user_admin.html", title: "User Admin Dashboard"},
	model.RoleAuditor:      {template: "roles/auditor.html", title: "Auditor Dashboard"},
	model.RoleUser:         {template: "dashboard_user.html", title: "Dashboard"},
}

type PageHandler struct {
	dashboardService service.DashboardService
	gate             *middleware.Gate
	log              *zap.Logger
}

func NewPageHandler(dashboardService service.DashboardService, gate *middleware.Gate, log *zap.Logger) *PageHandler {
	return &PageHandler{dashboardService: dashboardService, gate: gate, log: log}
}

func (h *PageHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/", h.Index)
	router.GET("/dashboard", h.gate.Login(), h.Dashboard)
}

// Index renders the landing page
// @Summary      Landing page
// @Tags         pages
// @Produce      html,json
// @Success      200 {object} response.Response
// @Router       / [get]
func (h *PageHandler) Index(c *gin.Context) {
	web.Render(c, http.StatusOK, web.Page{Template: "index.html", Title: "Travel CMS"})
}

// Dashboard renders the dashboard of the actor's role
// @Summary      Role dashboard
// @Tags         pages
// @Produce      html,json
// @Success      200 {object} response.Response{data=service.DashboardSummary}
// @Failure      401 {object} response.Response
// @Router       /dashboard [get]
func (h *PageHandler) Dashboard(c *gin.Context) {
	actor := middleware.MustActor(c)
	view, ok := dashboardViews[actor.Role]
	if !ok {
		renderFailure(c, h.log, fmt.Errorf("no dashboard view for role %q", actor.Role))
		return
	}

	summary, err := h.dashboardService.Summary(c.Request.Context(), actor)
	if err != nil {
		renderFailure(c, h.log, err)
		return
	}
	web.Render(c, http.StatusOK, web.Page{
		Template: view.template,
		Title:    view.title,
		Data:     gin.H{"Summary": summary},
	})
}

// NotFound is the fallback for unknown paths
func (h *PageHandler) NotFound(c *gin.Context) {
	web.RenderError(c, http.StatusNotFound)
}
