package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"travelcms/internal/middleware"
	"travelcms/internal/rbac"
	"travelcms/internal/service"
	"travelcms/internal/web"
	"travelcms/pkg/validation"
)

type ContentHandler struct {
	contentService service.ContentService
	gate           *middleware.Gate
	log            *zap.Logger
}

func NewContentHandler(contentService service.ContentService, gate *middleware.Gate, log *zap.Logger) *ContentHandler {
	return &ContentHandler{contentService: contentService, gate: gate, log: log}
}

func (h *ContentHandler) RegisterRoutes(router *gin.RouterGroup) {
	places := router.Group("/manage_places")
	places.Use(h.gate.Require(rbac.ManageContent)...)
	{
		places.GET("", h.ListPlaces)
		places.POST("", h.CreatePlace)
	}

	manage := router.Group("/manage_routes")
	manage.Use(h.gate.Require(rbac.ManageContent)...)
	{
		manage.GET("", h.ListRoutes)
		manage.POST("", h.CreateRoute)
	}

	routes := router.Group("/routes")
	routes.Use(h.gate.Login())
	{
		routes.GET("/:id", h.GetRoute)
		routes.POST("/:id/comments", h.AddComment)
	}
}

// ListPlaces renders the place catalog with the creation form
// @Summary      List places
// @Tags         content
// @Produce      html,json
// @Success      200  {object}  response.Response{data=object}
// @Failure      403  {object}  response.Response
// @Router       /manage_places [get]
func (h *ContentHandler) ListPlaces(c *gin.Context) {
	h.renderPlaces(c, http.StatusOK, nil)
}

// CreatePlace adds a place to the catalog
// @Summary      Create place
// @Tags         content
// @Accept       x-www-form-urlencoded
// @Produce      html,json
// @Param        name                   formData  string  true   "Name"
// @Param        description            formData  string  true   "Description"
// @Param        category               formData  string  false  "Category"
// @Param        rating                 formData  number  false  "Rating from 0 to 5"
// @Param        geographical_location  formData  string  false  "Location"
// @Success      302  "Redirect to /manage_places"
// @Failure      403  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /manage_places [post]
func (h *ContentHandler) CreatePlace(c *gin.Context) {
	form, ok := submitted(c)
	if !ok {
		return
	}
	if errs := placeForm.Validate(form); !errs.Empty() {
		h.renderPlaces(c, http.StatusUnprocessableEntity, errs)
		return
	}

	actor := middleware.MustActor(c)
	place, err := h.contentService.CreatePlace(c.Request.Context(), actor, service.CreatePlaceRequest{
		Name:        strings.TrimSpace(form.Get("name")),
		Description: strings.TrimSpace(form.Get("description")),
		Category:    strings.TrimSpace(form.Get("category")),
		Rating:      formRating(form),
		Location:    strings.TrimSpace(form.Get("geographical_location")),
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			errs := validation.Errors{}
			errs.Add("rating", "Rating must be a number between 0 and 5.")
			h.renderPlaces(c, http.StatusUnprocessableEntity, errs)
			return
		}
		renderFailure(c, h.log, err)
		return
	}

	web.AddFlash(c, web.FlashSuccess, fmt.Sprintf("Place %q created.", place.Name))
	c.Redirect(http.StatusFound, "/manage_places")
}

// ListRoutes renders the route catalog with the creation form
// @Summary      List routes
// @Tags         content
// @Produce      html,json
// @Success      200  {object}  response.Response{data=object}
// @Failure      403  {object}  response.Response
// @Router       /manage_routes [get]
func (h *ContentHandler) ListRoutes(c *gin.Context) {
	h.renderRoutes(c, http.StatusOK, nil)
}

// CreateRoute adds a route, optionally anchored to a place
// @Summary      Create route
// @Tags         content
// @Accept       x-www-form-urlencoded
// @Produce      html,json
// @Param        name              formData  string  true   "Name"
// @Param        duration          formData  string  true   "Duration as H:MM or H:MM:SS"
// @Param        difficulty        formData  int     true   "Difficulty from 1 to 5"
// @Param        age_restrictions  formData  int     false  "Minimum age"
// @Param        place_id          formData  int     false  "Place ID"
// @Success      302  "Redirect to /manage_routes"
// @Failure      403  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /manage_routes [post]
func (h *ContentHandler) CreateRoute(c *gin.Context) {
	form, ok := submitted(c)
	if !ok {
		return
	}
	if errs := routeForm.Validate(form); !errs.Empty() {
		h.renderRoutes(c, http.StatusUnprocessableEntity, errs)
		return
	}

	duration, _ := service.ParseDuration(form.Get("duration"))
	actor := middleware.MustActor(c)
	route, err := h.contentService.CreateRoute(c.Request.Context(), actor, service.CreateRouteRequest{
		Name:           strings.TrimSpace(form.Get("name")),
		Duration:       duration,
		Difficulty:     formInt(form, "difficulty"),
		AgeRestriction: optionalInt(form, "age_restrictions"),
		PlaceID:        optionalUint(form, "place_id"),
	})
	if err != nil {
		errs := validation.Errors{}
		switch {
		case errors.Is(err, service.ErrPlaceNotFound):
			errs.Add("place_id", "Not a valid choice.")
		case errors.Is(err, service.ErrInvalidInput):
			errs.Add("duration", "Duration must be longer than zero.")
		default:
			renderFailure(c, h.log, err)
			return
		}
		h.renderRoutes(c, http.StatusUnprocessableEntity, errs)
		return
	}

	web.AddFlash(c, web.FlashSuccess, fmt.Sprintf("Route %q created.", route.Name))
	c.Redirect(http.StatusFound, "/manage_routes")
}

// GetRoute renders a route with its place and comments
// @Summary      Route detail
// @Tags         content
// @Produce      html,json
// @Param        id   path      int  true  "Route ID"
// @Success      200  {object}  response.Response{data=object}
// @Failure      404  {object}  response.Response
// @Router       /routes/{id} [get]
func (h *ContentHandler) GetRoute(c *gin.Context) {
	id, ok := routeID(c)
	if !ok {
		return
	}
	h.renderRoute(c, http.StatusOK, id, nil)
}

// AddComment posts a comment on a route
// @Summary      Comment on route
// @Tags         content
// @Accept       x-www-form-urlencoded
// @Produce      html,json
// @Param        id       path      int     true  "Route ID"
// @Param        message  formData  string  true  "Comment, at most 500 characters"
// @Success      302  "Redirect to /routes/{id}"
// @Failure      404  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /routes/{id}/comments [post]
func (h *ContentHandler) AddComment(c *gin.Context) {
	id, ok := routeID(c)
	if !ok {
		return
	}
	form, ok := submitted(c)
	if !ok {
		return
	}
	if errs := commentForm.Validate(form); !errs.Empty() {
		h.renderRoute(c, http.StatusUnprocessableEntity, id, errs)
		return
	}

	actor := middleware.MustActor(c)
	if _, err := h.contentService.AddComment(c.Request.Context(), actor, id, strings.TrimSpace(form.Get("message"))); err != nil {
		renderFailure(c, h.log, err)
		return
	}

	web.AddFlash(c, web.FlashSuccess, "Comment added.")
	c.Redirect(http.StatusFound, fmt.Sprintf("/routes/%d", id))
}

func (h *ContentHandler) renderPlaces(c *gin.Context, status int, errs validation.Errors) {
	places, err := h.contentService.ListPlaces(c.Request.Context())
	if err != nil {
		renderFailure(c, h.log, err)
		return
	}
	web.Render(c, status, web.Page{
		Template: "manage_places.html",
		Title:    "Manage Places",
		Data:     gin.H{"Places": places},
		Errors:   errs,
	})
}

func (h *ContentHandler) renderRoutes(c *gin.Context, status int, errs validation.Errors) {
	ctx := c.Request.Context()
	routes, err := h.contentService.ListRoutes(ctx)
	if err != nil {
		renderFailure(c, h.log, err)
		return
	}
	places, err := h.contentService.ListPlaces(ctx)
	if err != nil {
		renderFailure(c, h.log, err)
		return
	}
	web.Render(c, status, web.Page{
		Template: "manage_routes.html",
		Title:    "Manage Routes",
		Data:     gin.H{"Routes": routes, "Places": places},
		Errors:   errs,
	})
}

func (h *ContentHandler) renderRoute(c *gin.Context, status int, id uint, errs validation.Errors) {
	route, err := h.contentService.GetRoute(c.Request.Context(), id)
	if err != nil {
		renderFailure(c, h.log, err)
		return
	}
	web.Render(c, status, web.Page{
		Template: "route_detail.html",
		Title:    route.Name,
		Data:     gin.H{"Route": route},
		Errors:   errs,
	})
}

// routeID reads the :id path parameter. Anything but a positive integer is a 404.
func routeID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		web.RenderError(c, http.StatusNotFound)
		return 0, false
	}
	return uint(id), true
}
