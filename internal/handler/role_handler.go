package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"travelcms/internal/middleware"
	"travelcms/internal/model"
	"travelcms/internal/rbac"
	"travelcms/internal/service"
	"travelcms/pkg/response"
)

// RoleView is a stored role together with what it grants
type RoleView struct {
	model.Role
	Kind         model.RoleKind    `json:"kind"`
	Capabilities []rbac.Capability `json:"capabilities"`
}

type RoleHandler struct {
	roleService service.RoleService
	gate        *middleware.Gate
	log         *zap.Logger
}

func NewRoleHandler(roleService service.RoleService, gate *middleware.Gate, log *zap.Logger) *RoleHandler {
	return &RoleHandler{roleService: roleService, gate: gate, log: log}
}

func (h *RoleHandler) RegisterRoutes(router *gin.RouterGroup) {
	roles := router.Group("/api/roles")
	roles.Use(h.gate.Require(rbac.ManageUsers)...)
	{
		roles.GET("", h.ListRoles)
	}
}

// ListRoles returns all roles with the capabilities each one grants
// @Summary      List roles
// @Tags         users
// @Produce      json
// @Success      200  {object}  response.Response{data=[]RoleView}
// @Failure      403  {object}  response.Response
// @Router       /api/roles [get]
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.roleService.ListRoles(c.Request.Context())
	if err != nil {
		h.log.Error("failed to list roles", zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to list roles"))
		return
	}

	views := make([]RoleView, len(roles))
	for i, role := range roles {
		views[i] = RoleView{Role: role, Kind: role.Kind(), Capabilities: rbac.CapabilitiesOf(role.Kind())}
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, views))
}
