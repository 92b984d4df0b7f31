package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"travelcms/internal/middleware"
	"travelcms/internal/model"
	"travelcms/internal/service"
	"travelcms/internal/web"
	"travelcms/pkg/validation"
)

type AuthHandler struct {
	userService service.UserService
	roleService service.RoleService
	sessions    *middleware.SessionManager
	gate        *middleware.Gate
	log         *zap.Logger
}

func NewAuthHandler(
	userService service.UserService,
	roleService service.RoleService,
	sessions *middleware.SessionManager,
	gate *middleware.Gate,
	log *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		roleService: roleService,
		sessions:    sessions,
		gate:        gate,
		log:         log,
	}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/login", h.LoginPage)
	router.POST("/login", h.Login)
	router.GET("/register", h.RegisterPage)
	router.POST("/register", h.Register)
	router.GET("/logout", h.gate.Login(), h.Logout)
}

// LoginPage renders the login form
// @Summary      Login form
// @Tags         auth
// @Produce      html,json
// @Success      200 {object} response.Response
// @Router       /login [get]
func (h *AuthHandler) LoginPage(c *gin.Context) {
	web.Render(c, http.StatusOK, loginPage(c.Query("next"), nil))
}

// Login verifies the credentials and opens a session
// @Summary      Login
// @Tags         auth
// @Accept       x-www-form-urlencoded
// @Produce      html,json
// @Param        username formData string true "Username"
// @Param        password formData string true "Password"
// @Param        next query string false "Local path to continue to"
// @Success      302 "Redirect to the dashboard or next"
// @Failure      401 {object} response.Response
// @Failure      422 {object} response.Response
// @Router       /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	form, ok := submitted(c)
	if !ok {
		return
	}
	next := c.Query("next")
	if errs := loginForm.Validate(form); !errs.Empty() {
		web.Render(c, http.StatusUnprocessableEntity, loginPage(next, errs))
		return
	}

	actor, err := h.userService.Authenticate(c.Request.Context(), strings.TrimSpace(form.Get("username")), form.Get("password"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			web.AddFlash(c, web.FlashDanger, "Invalid username or password.")
			web.Render(c, http.StatusUnauthorized, loginPage(next, nil))
			return
		}
		renderFailure(c, h.log, err)
		return
	}

	token, err := h.sessions.Issue(actor.UserID)
	if err != nil {
		renderFailure(c, h.log, err)
		return
	}
	h.sessions.SetCookie(c, token)
	web.AddFlash(c, web.FlashSuccess, "Logged in successfully.")
	c.Redirect(http.StatusFound, safeNext(next))
}

// RegisterPage renders the sign-up form with the roles open to registration
// @Summary      Registration form
// @Tags         auth
// @Produce      html,json
// @Success      200 {object} response.Response{data=[]model.Role}
// @Router       /register [get]
func (h *AuthHandler) RegisterPage(c *gin.Context) {
	h.renderRegister(c, http.StatusOK, nil)
}

// Register creates an account and sends the user to the login page
// @Summary      Register
// @Tags         auth
// @Accept       x-www-form-urlencoded
// @Produce      html,json
// @Param        username formData string true "Username, 4 to 50 characters"
// @Param        password formData string true "Password, at least 6 characters"
// @Param        confirm_password formData string true "Password again"
// @Param        role formData int true "Role ID"
// @Success      302 "Redirect to /login"
// @Failure      409 {object} response.Response
// @Failure      422 {object} response.Response
// @Router       /register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	form, ok := submitted(c)
	if !ok {
		return
	}
	if errs := registerForm.Validate(form); !errs.Empty() {
		h.renderRegister(c, http.StatusUnprocessableEntity, errs)
		return
	}

	_, err := h.userService.Register(c.Request.Context(), service.RegisterRequest{
		Username: strings.TrimSpace(form.Get("username")),
		Password: form.Get("password"),
		RoleID:   formUint(form, "role"),
	})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrUsernameTaken):
		web.AddFlash(c, web.FlashDanger, "Username already exists.")
		h.renderRegister(c, http.StatusConflict, nil)
		return
	case errors.Is(err, service.ErrRoleNotFound), errors.Is(err, service.ErrRoleNotAllowed):
		errs := validation.Errors{}
		errs.Add("role", "Not a valid choice.")
		h.renderRegister(c, http.StatusUnprocessableEntity, errs)
		return
	default:
		renderFailure(c, h.log, err)
		return
	}

	web.AddFlash(c, web.FlashSuccess, "Registration successful. Please log in.")
	c.Redirect(http.StatusFound, "/login")
}

// Logout ends the session
// @Summary      Logout
// @Tags         auth
// @Success      302 "Redirect to /"
// @Router       /logout [get]
func (h *AuthHandler) Logout(c *gin.Context) {
	actor := middleware.MustActor(c)
	if err := h.userService.Logout(c.Request.Context(), actor); err != nil {
		h.log.Error("failed to record logout", zap.Uint("user_id", actor.UserID), zap.Error(err))
	}
	h.sessions.ClearCookie(c)
	web.AddFlash(c, web.FlashInfo, "Logged out successfully.")
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) renderRegister(c *gin.Context, status int, errs validation.Errors) {
	roles, err := h.roleService.ListRoles(c.Request.Context())
	if err != nil {
		renderFailure(c, h.log, err)
		return
	}
	choices := make([]model.Role, 0, len(roles))
	for _, r := range roles {
		if r.OpenToRegistration() {
			choices = append(choices, r)
		}
	}
	web.Render(c, status, web.Page{
		Template: "register.html",
		Title:    "Register",
		Data:     gin.H{"Roles": choices},
		Errors:   errs,
	})
}

func loginPage(next string, errs validation.Errors) web.Page {
	return web.Page{
		Template: "login.html",
		Title:    "Login",
		Data:     gin.H{"Next": next},
		Errors:   errs,
	}
}

// safeNext only follows local absolute paths so login cannot redirect off-site
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/dashboard"
	}
	return next
}
