package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"travelcms/internal/middleware"
	"travelcms/internal/rbac"
	"travelcms/internal/service"
	"travelcms/internal/web"
	"travelcms/pkg/validation"
)

type UserHandler struct {
	userService service.UserService
	roleService service.RoleService
	gate        *middleware.Gate
	log         *zap.Logger
}

func NewUserHandler(userService service.UserService, roleService service.RoleService, gate *middleware.Gate, log *zap.Logger) *UserHandler {
	return &UserHandler{userService: userService, roleService: roleService, gate: gate, log: log}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/manage_users")
	users.Use(h.gate.Require(rbac.ManageUsers)...)
	{
		users.GET("", h.ListUsers)
		users.POST("", h.ChangeRole)
	}
}

// ListUsers renders every account with a role selector
// @Summary      List users
// @Tags         users
// @Produce      html,json
// @Success      200  {object}  response.Response{data=object}
// @Failure      403  {object}  response.Response
// @Router       /manage_users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	h.renderUsers(c, http.StatusOK, nil)
}

// ChangeRole moves a user to another role
// @Summary      Change a user's role
// @Tags         users
// @Accept       x-www-form-urlencoded
// @Produce      html,json
// @Param        user_id  formData  int  true  "User ID"
// @Param        role_id  formData  int  true  "New role ID"
// @Success      302  "Redirect to /manage_users"
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /manage_users [post]
func (h *UserHandler) ChangeRole(c *gin.Context) {
	form, ok := submitted(c)
	if !ok {
		return
	}
	if errs := changeRoleForm.Validate(form); !errs.Empty() {
		h.renderUsers(c, http.StatusUnprocessableEntity, errs)
		return
	}

	actor := middleware.MustActor(c)
	user, err := h.userService.ChangeRole(c.Request.Context(), actor, formUint(form, "user_id"), formUint(form, "role_id"))
	if err != nil {
		if errors.Is(err, service.ErrRoleNotFound) {
			errs := validation.Errors{}
			errs.Add("role_id", "Not a valid choice.")
			h.renderUsers(c, http.StatusUnprocessableEntity, errs)
			return
		}
		renderFailure(c, h.log, err)
		return
	}

	roleName := ""
	if user.Role != nil {
		roleName = user.Role.Name
	}
	web.AddFlash(c, web.FlashSuccess, fmt.Sprintf("Role of %s set to %s.", user.Username, roleName))
	c.Redirect(http.StatusFound, "/manage_users")
}

func (h *UserHandler) renderUsers(c *gin.Context, status int, errs validation.Errors) {
	ctx := c.Request.Context()
	users, err := h.userService.ListUsers(ctx)
	if err != nil {
		renderFailure(c, h.log, err)
		return
	}
	roles, err := h.roleService.ListRoles(ctx)
	if err != nil {
		renderFailure(c, h.log, err)
		return
	}
	web.Render(c, status, web.Page{
		Template: "manage_users.html",
		Title:    "Manage Users",
		Data:     gin.H{"Users": users, "Roles": roles},
		Errors:   errs,
	})
}
