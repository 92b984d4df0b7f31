package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"travelcms/internal/metrics"
	"travelcms/internal/model"
	"travelcms/internal/rbac"
	"travelcms/internal/repository"
)

// RegisterRequest carries an already validated registration form
type RegisterRequest struct {
	Username string
	Password string
	RoleID   uint
}

// UserService defines the interface for business logic related to User
type UserService interface {
	Register(ctx context.Context, req RegisterRequest) (*model.User, error)
	Authenticate(ctx context.Context, username, password string) (rbac.Actor, error)
	Logout(ctx context.Context, actor rbac.Actor) error
	GetActor(ctx context.Context, userID uint) (rbac.Actor, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	ChangeRole(ctx context.Context, actor rbac.Actor, userID, roleID uint) (*model.User, error)
	EnsureSuperadmin(ctx context.Context, username, password string) error
}

// FeedRevoker closes a user's open live feed connections so they must
// reconnect through the capability check
type FeedRevoker interface {
	Disconnect(userID uint)
}

type userService struct {
	txManager repository.TransactionManager
	userRepo  repository.UserRepository
	roleRepo  repository.RoleRepository
	audit     AuditService
	feed      FeedRevoker
	metrics   *metrics.Metrics
	log       *zap.Logger
	cost      int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewUserService returns a new instance of UserService. cost is the bcrypt work factor.
func NewUserService(
	txManager repository.TransactionManager,
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	audit AuditService,
	feed FeedRevoker,
	m *metrics.Metrics,
	log *zap.Logger,
	cost int,
) UserService {
	return &userService{
		txManager: txManager,
		userRepo:  userRepo,
		roleRepo:  roleRepo,
		audit:     audit,
		feed:      feed,
		metrics:   m,
		log:       log,
		cost:      cost,
	}
}

// Register creates the account with one insert. Concurrent registrations of the
// same username are settled by the unique index. Only roles open to
// registration may be chosen.
func (s *userService) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	return s.create(ctx, req, false)
}

func (s *userService) create(ctx context.Context, req RegisterRequest, privileged bool) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{Username: req.Username, PasswordHash: string(hash), RoleID: req.RoleID}
	var event LogEvent
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		role, err := s.roleRepo.FindByID(txCtx, req.RoleID)
		if err != nil {
			if isNotFound(err) {
				return ErrRoleNotFound
			}
			return fmt.Errorf("failed to load role: %w", err)
		}
		if !privileged && !role.OpenToRegistration() {
			return ErrRoleNotAllowed
		}

		if err := s.userRepo.Create(txCtx, user); err != nil {
			switch {
			case errors.Is(err, repository.ErrDuplicateKey):
				return ErrUsernameTaken
			case errors.Is(err, repository.ErrForeignKey):
				return ErrRoleNotFound
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		user.Role = role

		event, err = s.audit.Record(txCtx, AuditEntry{
			UserID:   user.ID,
			Username: user.Username,
			Category: model.CategoryUserManagement,
			Action:   model.ActionUserRegistered,
			Details:  map[string]interface{}{"role": role.Name},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.Announce(event)
	return user, nil
}

// Authenticate checks the password and reports ErrInvalidCredentials for both
// an unknown username and a wrong password.
func (s *userService) Authenticate(ctx context.Context, username, password string) (rbac.Actor, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if !isNotFound(err) {
			return rbac.Actor{}, fmt.Errorf("failed to load user: %w", err)
		}
		// Spend the same bcrypt time as a real comparison
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		s.metrics.LoginAttempts.WithLabelValues("unknown_user").Inc()
		s.log.Info("login failed for unknown user", zap.String("username", username))
		return rbac.Actor{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.metrics.LoginAttempts.WithLabelValues("wrong_password").Inc()
		event, auditErr := s.audit.Record(ctx, AuditEntry{
			UserID:   user.ID,
			Username: user.Username,
			Category: model.CategorySecurity,
			Action:   model.ActionLoginFailed,
		})
		if auditErr != nil {
			s.log.Error("failed to audit failed login", zap.Uint("user_id", user.ID), zap.Error(auditErr))
		} else {
			s.audit.Announce(event)
		}
		return rbac.Actor{}, ErrInvalidCredentials
	}

	event, err := s.audit.Record(ctx, AuditEntry{
		UserID:   user.ID,
		Username: user.Username,
		Category: model.CategorySecurity,
		Action:   model.ActionLogin,
	})
	if err != nil {
		return rbac.Actor{}, err
	}
	s.metrics.LoginAttempts.WithLabelValues("success").Inc()
	s.audit.Announce(event)

	return rbac.ActorFromUser(user), nil
}

func (s *userService) Logout(ctx context.Context, actor rbac.Actor) error {
	event, err := s.audit.Record(ctx, AuditEntry{
		UserID:   actor.UserID,
		Username: actor.Username,
		Category: model.CategorySecurity,
		Action:   model.ActionLogout,
	})
	if err != nil {
		return err
	}
	s.audit.Announce(event)
	return nil
}

// GetActor reloads the user and role on every call so role changes apply to the next request
func (s *userService) GetActor(ctx context.Context, userID uint) (rbac.Actor, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return rbac.Actor{}, ErrNotFound
		}
		return rbac.Actor{}, fmt.Errorf("failed to load user: %w", err)
	}
	return rbac.ActorFromUser(user), nil
}

func (s *userService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// ChangeRole moves a user to another role. Only superadmins may grant or revoke superadmin.
func (s *userService) ChangeRole(ctx context.Context, actor rbac.Actor, userID, roleID uint) (*model.User, error) {
	if err := rbac.Authorize(actor, rbac.ManageUsers); err != nil {
		return nil, err
	}

	var (
		user  *model.User
		event LogEvent
		noop  bool
	)
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if user, err = s.userRepo.GetByID(txCtx, userID); err != nil {
			if isNotFound(err) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load user: %w", err)
		}
		role, err := s.roleRepo.FindByID(txCtx, roleID)
		if err != nil {
			if isNotFound(err) {
				return ErrRoleNotFound
			}
			return fmt.Errorf("failed to load role: %w", err)
		}

		from := user.RoleKind()
		if !rbac.CanAssignRole(actor, from, role.Kind()) {
			return fmt.Errorf("%w: cannot move %s to %s", rbac.ErrAccessDenied, from, role.Name)
		}
		if user.RoleID == role.ID {
			noop = true
			return nil
		}

		if err := s.userRepo.UpdateRole(txCtx, user.ID, role.ID); err != nil {
			return fmt.Errorf("failed to update role: %w", err)
		}
		fromName := ""
		if user.Role != nil {
			fromName = user.Role.Name
		}
		user.RoleID, user.Role = role.ID, role

		event, err = s.audit.Record(txCtx, AuditEntry{
			UserID:   actor.UserID,
			Username: actor.Username,
			Category: model.CategoryUserManagement,
			Action:   model.ActionRoleChanged,
			Details: map[string]interface{}{
				"user_id":  user.ID,
				"username": user.Username,
				"from":     fromName,
				"to":       role.Name,
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if !noop {
		s.audit.Announce(event)
		// The feed was authorized under the old role
		s.feed.Disconnect(user.ID)
	}
	return user, nil
}

// EnsureSuperadmin creates the bootstrap account unless the username already exists
func (s *userService) EnsureSuperadmin(ctx context.Context, username, password string) error {
	if _, err := s.userRepo.GetByUsername(ctx, username); err == nil {
		return nil
	} else if !isNotFound(err) {
		return fmt.Errorf("failed to look up bootstrap user: %w", err)
	}

	role, err := s.roleRepo.FindByName(ctx, string(model.RoleSuperadmin))
	if err != nil {
		return fmt.Errorf("superadmin role missing, seed roles first: %w", err)
	}

	_, err = s.create(ctx, RegisterRequest{Username: username, Password: password, RoleID: role.ID}, true)
	if errors.Is(err, ErrUsernameTaken) {
		return nil
	}
	return err
}

func (s *userService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("timing-equalizer"), s.cost)
	})
	return s.dummyHash
}
