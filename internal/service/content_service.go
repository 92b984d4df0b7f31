package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"travelcms/internal/model"
	"travelcms/internal/rbac"
	"travelcms/internal/repository"
)

type CreatePlaceRequest struct {
	Name        string
	Description string
	Category    string
	Rating      decimal.Decimal
	Location    string
}

type CreateRouteRequest struct {
	Name           string
	Duration       time.Duration
	Difficulty     int
	AgeRestriction *int
	PlaceID        *uint
}

// ContentService manages places, routes and comments
type ContentService interface {
	ListPlaces(ctx context.Context) ([]model.Place, error)
	CreatePlace(ctx context.Context, actor rbac.Actor, req CreatePlaceRequest) (*model.Place, error)
	ListRoutes(ctx context.Context) ([]model.Route, error)
	CreateRoute(ctx context.Context, actor rbac.Actor, req CreateRouteRequest) (*model.Route, error)
	GetRoute(ctx context.Context, id uint) (*model.Route, error)
	AddComment(ctx context.Context, actor rbac.Actor, routeID uint, message string) (*model.Comment, error)
}

type contentService struct {
	txManager   repository.TransactionManager
	placeRepo   repository.PlaceRepository
	routeRepo   repository.RouteRepository
	commentRepo repository.CommentRepository
	audit       AuditService
}

func NewContentService(
	txManager repository.TransactionManager,
	placeRepo repository.PlaceRepository,
	routeRepo repository.RouteRepository,
	commentRepo repository.CommentRepository,
	audit AuditService,
) ContentService {
	return &contentService{
		txManager:   txManager,
		placeRepo:   placeRepo,
		routeRepo:   routeRepo,
		commentRepo: commentRepo,
		audit:       audit,
	}
}

// maxDurationHours caps the hour field so the total fits a time.Duration
const maxDurationHours = 99999

// ParseDuration reads a route duration written as H:MM or H:MM:SS
func ParseDuration(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: duration %q is not H:MM[:SS]", ErrInvalidInput, s)
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || (i > 0 && (len(p) != 2 || n > 59)) {
			return 0, fmt.Errorf("%w: duration %q is not H:MM[:SS]", ErrInvalidInput, s)
		}
		nums[i] = n
	}
	if nums[0] > maxDurationHours {
		return 0, fmt.Errorf("%w: duration may not exceed %d hours", ErrInvalidInput, maxDurationHours)
	}

	d := time.Duration(nums[0])*time.Hour + time.Duration(nums[1])*time.Minute + time.Duration(nums[2])*time.Second
	if d <= 0 {
		return 0, fmt.Errorf("%w: duration must be positive", ErrInvalidInput)
	}
	return d, nil
}

func (s *contentService) ListPlaces(ctx context.Context) ([]model.Place, error) {
	places, err := s.placeRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list places: %w", err)
	}
	return places, nil
}

func (s *contentService) CreatePlace(ctx context.Context, actor rbac.Actor, req CreatePlaceRequest) (*model.Place, error) {
	if err := rbac.Authorize(actor, rbac.ManageContent); err != nil {
		return nil, err
	}
	if req.Rating.LessThan(model.MinRating) || req.Rating.GreaterThan(model.MaxRating) {
		return nil, fmt.Errorf("%w: rating %s outside %s..%s", ErrInvalidInput, req.Rating, model.MinRating, model.MaxRating)
	}

	place := &model.Place{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Rating:      req.Rating.Round(2),
		Location:    req.Location,
	}
	var event LogEvent
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.placeRepo.Create(txCtx, place); err != nil {
			return fmt.Errorf("failed to create place: %w", err)
		}
		var err error
		event, err = s.audit.Record(txCtx, AuditEntry{
			UserID:   actor.UserID,
			Username: actor.Username,
			Category: model.CategoryContentUpdate,
			Action:   model.ActionPlaceCreated,
			Details:  map[string]interface{}{"place_id": place.ID, "name": place.Name},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.Announce(event)
	return place, nil
}

func (s *contentService) ListRoutes(ctx context.Context) ([]model.Route, error) {
	routes, err := s.routeRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	return routes, nil
}

func (s *contentService) CreateRoute(ctx context.Context, actor rbac.Actor, req CreateRouteRequest) (*model.Route, error) {
	if err := rbac.Authorize(actor, rbac.ManageContent); err != nil {
		return nil, err
	}
	if req.Difficulty < model.MinDifficulty || req.Difficulty > model.MaxDifficulty {
		return nil, fmt.Errorf("%w: difficulty %d outside %d..%d", ErrInvalidInput, req.Difficulty, model.MinDifficulty, model.MaxDifficulty)
	}
	if req.Duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrInvalidInput)
	}

	route := &model.Route{
		Name:            req.Name,
		DurationSeconds: int(req.Duration / time.Second),
		Difficulty:      req.Difficulty,
		AgeRestriction:  req.AgeRestriction,
		PlaceID:         req.PlaceID,
	}
	var event LogEvent
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if req.PlaceID != nil {
			place, err := s.placeRepo.FindByID(txCtx, *req.PlaceID)
			if err != nil {
				if isNotFound(err) {
					return ErrPlaceNotFound
				}
				return fmt.Errorf("failed to load place: %w", err)
			}
			route.Place = place
		}

		// The place was loaded above; keep gorm from upserting it again
		place := route.Place
		route.Place = nil
		if err := s.routeRepo.Create(txCtx, route); err != nil {
			if errors.Is(err, repository.ErrForeignKey) {
				return ErrPlaceNotFound
			}
			return fmt.Errorf("failed to create route: %w", err)
		}
		route.Place = place

		details := map[string]interface{}{"route_id": route.ID, "name": route.Name, "difficulty": route.Difficulty}
		if route.PlaceID != nil {
			details["place_id"] = *route.PlaceID
		}
		var err error
		event, err = s.audit.Record(txCtx, AuditEntry{
			UserID:   actor.UserID,
			Username: actor.Username,
			Category: model.CategoryContentUpdate,
			Action:   model.ActionRouteCreated,
			Details:  details,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.Announce(event)
	return route, nil
}

func (s *contentService) GetRoute(ctx context.Context, id uint) (*model.Route, error) {
	route, err := s.routeRepo.FindWithComments(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load route: %w", err)
	}
	return route, nil
}

func (s *contentService) AddComment(ctx context.Context, actor rbac.Actor, routeID uint, message string) (*model.Comment, error) {
	if _, err := s.routeRepo.FindByID(ctx, routeID); err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load route: %w", err)
	}

	comment := &model.Comment{Message: message, UserID: actor.UserID, RouteID: &routeID}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		if errors.Is(err, repository.ErrForeignKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return comment, nil
}
