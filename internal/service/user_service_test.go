package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelcms/internal/model"
	"travelcms/internal/rbac"
)

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := newFixture()

		user, err := f.userSvc.Register(ctx, RegisterRequest{Username: "traveller", Password: "secret1", RoleID: 5})

		require.NoError(t, err)
		assert.Equal(t, 1, f.users.created)
		assert.Equal(t, model.RoleUser, user.RoleKind())
		assert.NotEqual(t, "secret1", f.users.users[user.ID].PasswordHash)
		assert.Equal(t, []string{model.ActionUserRegistered}, f.logs.actions())
		assert.Equal(t, []bool{true}, f.logs.inTx, "audit row must be written in the registration transaction")
		require.Len(t, f.publisher.events, 1)
		assert.Equal(t, "traveller", f.publisher.events[0].Username)
		assert.JSONEq(t, `{"role":"user"}`, string(f.publisher.events[0].Details))
	})

	t.Run("duplicate username leaves users unchanged", func(t *testing.T) {
		f := newFixture()
		f.users.add(t, "traveller", "secret1", model.RoleUser)

		_, err := f.userSvc.Register(ctx, RegisterRequest{Username: "traveller", Password: "other12", RoleID: 5})

		assert.ErrorIs(t, err, ErrUsernameTaken)
		assert.Len(t, f.users.users, 1)
		assert.Empty(t, f.logs.entries)
		assert.Empty(t, f.publisher.events)
	})

	t.Run("unknown role", func(t *testing.T) {
		f := newFixture()

		_, err := f.userSvc.Register(ctx, RegisterRequest{Username: "traveller", Password: "secret1", RoleID: 99})

		assert.ErrorIs(t, err, ErrRoleNotFound)
		assert.Empty(t, f.users.users)
	})

	t.Run("privileged roles are not self-assignable", func(t *testing.T) {
		for _, kind := range []model.RoleKind{model.RoleSuperadmin, model.RoleContentAdmin, model.RoleUserAdmin, model.RoleAuditor} {
			f := newFixture()
			role := f.roles.byName(string(kind))

			_, err := f.userSvc.Register(ctx, RegisterRequest{Username: "climber", Password: "secret1", RoleID: role.ID})

			assert.ErrorIs(t, err, ErrRoleNotAllowed, kind)
			assert.Empty(t, f.users.users, kind)
			assert.Empty(t, f.logs.entries, kind)
		}
	})

	t.Run("storage failure", func(t *testing.T) {
		f := newFixture()
		f.users.err = errors.New("connection refused")

		_, err := f.userSvc.Register(ctx, RegisterRequest{Username: "traveller", Password: "secret1", RoleID: 5})

		assert.ErrorContains(t, err, "failed to create user")
		assert.NotErrorIs(t, err, ErrUsernameTaken)
	})
}

func TestUserService_Authenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	admin := f.users.add(t, "auditor1", "correct-horse", model.RoleAuditor)

	t.Run("success", func(t *testing.T) {
		actor, err := f.userSvc.Authenticate(ctx, "auditor1", "correct-horse")

		require.NoError(t, err)
		assert.Equal(t, rbac.Actor{UserID: admin.ID, Username: "auditor1", Role: model.RoleAuditor}, actor)
		assert.Equal(t, model.ActionLogin, f.logs.entries[len(f.logs.entries)-1].Action)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LoginAttempts.WithLabelValues("success")))
	})

	t.Run("wrong password and unknown user fail the same way", func(t *testing.T) {
		before := len(f.logs.entries)

		_, wrongPassword := f.userSvc.Authenticate(ctx, "auditor1", "nope")
		_, unknownUser := f.userSvc.Authenticate(ctx, "ghost", "nope")

		assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
		assert.ErrorIs(t, unknownUser, ErrInvalidCredentials)
		assert.Equal(t, wrongPassword.Error(), unknownUser.Error())

		// Only the existing account gets a login_failed entry
		require.Len(t, f.logs.entries, before+1)
		last := f.logs.entries[before]
		assert.Equal(t, model.ActionLoginFailed, last.Action)
		assert.Equal(t, model.CategorySecurity, last.Category)
		assert.Equal(t, admin.ID, last.UserID)
	})

	t.Run("storage failure is not a credential failure", func(t *testing.T) {
		broken := newFixture()
		broken.users.err = errors.New("connection refused")

		_, err := broken.userSvc.Authenticate(ctx, "auditor1", "correct-horse")

		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestUserService_Logout(t *testing.T) {
	f := newFixture()
	u := f.users.add(t, "anna", "secret1", model.RoleUser)

	require.NoError(t, f.userSvc.Logout(context.Background(), rbac.Actor{UserID: u.ID, Username: "anna", Role: model.RoleUser}))

	assert.Equal(t, []string{model.ActionLogout}, f.logs.actions())
	assert.Len(t, f.publisher.events, 1)
}

func TestUserService_GetActor(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	u := f.users.add(t, "anna", "secret1", model.RoleUser)

	actor, err := f.userSvc.GetActor(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, actor.Role)

	// A role change applies to the very next lookup
	require.NoError(t, f.users.UpdateRole(ctx, u.ID, f.roles.byName("content_admin").ID))
	actor, err = f.userSvc.GetActor(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleContentAdmin, actor.Role)

	_, err = f.userSvc.GetActor(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserService_ChangeRole(t *testing.T) {
	tests := []struct {
		name       string
		actorRole  model.RoleKind
		targetRole model.RoleKind
		newRole    string
		wantErr    error
		wantAudit  bool
	}{
		{name: "user admin promotes to auditor", actorRole: model.RoleUserAdmin, targetRole: model.RoleUser, newRole: "auditor", wantAudit: true},
		{name: "superadmin grants superadmin", actorRole: model.RoleSuperadmin, targetRole: model.RoleUser, newRole: "superadmin", wantAudit: true},
		{name: "user admin cannot grant superadmin", actorRole: model.RoleUserAdmin, targetRole: model.RoleUser, newRole: "superadmin", wantErr: rbac.ErrAccessDenied},
		{name: "user admin cannot demote superadmin", actorRole: model.RoleUserAdmin, targetRole: model.RoleSuperadmin, newRole: "user", wantErr: rbac.ErrAccessDenied},
		{name: "auditor cannot manage users", actorRole: model.RoleAuditor, targetRole: model.RoleUser, newRole: "auditor", wantErr: rbac.ErrAccessDenied},
		{name: "same role is a no-op", actorRole: model.RoleSuperadmin, targetRole: model.RoleUser, newRole: "user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			admin := f.users.add(t, "admin", "secret1", tt.actorRole)
			target := f.users.add(t, "target", "secret1", tt.targetRole)
			actor := rbac.Actor{UserID: admin.ID, Username: "admin", Role: tt.actorRole}
			newRole := f.roles.byName(tt.newRole)

			user, err := f.userSvc.ChangeRole(context.Background(), actor, target.ID, newRole.ID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.targetRole, f.roles.byID(f.users.users[target.ID].RoleID).Kind())
				assert.Empty(t, f.logs.entries)
				assert.Empty(t, f.publisher.disconnected)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, newRole.ID, user.RoleID)
			assert.Equal(t, newRole.ID, f.users.users[target.ID].RoleID)
			if tt.wantAudit {
				require.Len(t, f.logs.entries, 1)
				entry := f.logs.entries[0]
				assert.Equal(t, model.ActionRoleChanged, entry.Action)
				assert.Equal(t, model.CategoryUserManagement, entry.Category)
				assert.Equal(t, admin.ID, entry.UserID)
				assert.True(t, f.logs.inTx[0])
				assert.Len(t, f.publisher.events, 1)
				assert.Equal(t, []uint{target.ID}, f.publisher.disconnected, "live feed must be re-authorized under the new role")
			} else {
				assert.Empty(t, f.logs.entries)
				assert.Empty(t, f.publisher.events)
				assert.Empty(t, f.publisher.disconnected)
			}
		})
	}
}

func TestUserService_ChangeRole_Missing(t *testing.T) {
	f := newFixture()
	admin := f.users.add(t, "admin", "secret1", model.RoleSuperadmin)
	actor := rbac.ActorFromUser(f.users.withRole(*admin))

	_, err := f.userSvc.ChangeRole(context.Background(), actor, 999, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.userSvc.ChangeRole(context.Background(), actor, admin.ID, 999)
	assert.ErrorIs(t, err, ErrRoleNotFound)
}

func TestUserService_EnsureSuperadmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	require.NoError(t, f.userSvc.EnsureSuperadmin(ctx, "root", "bootstrap-pass"))
	require.NoError(t, f.userSvc.EnsureSuperadmin(ctx, "root", "bootstrap-pass"))

	assert.Equal(t, 1, f.users.created)
	actor, err := f.userSvc.Authenticate(ctx, "root", "bootstrap-pass")
	require.NoError(t, err)
	assert.Equal(t, model.RoleSuperadmin, actor.Role)
}

func TestUserService_ListUsers(t *testing.T) {
	f := newFixture()
	f.users.add(t, "b", "secret1", model.RoleUser)
	f.users.add(t, "a", "secret1", model.RoleAuditor)

	users, err := f.userSvc.ListUsers(context.Background())

	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "b", users[0].Username)
	require.NotNil(t, users[1].Role)
	assert.Equal(t, "auditor", users[1].Role.Name)
}
