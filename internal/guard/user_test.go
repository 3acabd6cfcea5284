package guard_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tenantadmin/tenantadmin/internal/audit"
	"github.com/tenantadmin/tenantadmin/internal/auth"
	"github.com/tenantadmin/tenantadmin/internal/db/models"
	"github.com/tenantadmin/tenantadmin/internal/guard"
	"github.com/tenantadmin/tenantadmin/internal/notify"
	"github.com/tenantadmin/tenantadmin/internal/token"
)

func TestCentralSuperadminIsSingleton(t *testing.T) {
	f := newFixture(t)

	_, err := f.users.CreateOrUpdateUser(f.ctx, f.root.ID, nil, guard.UserInput{
		Name: "B", Email: "b@example.com", RoleID: f.centralSuper.ID, Password: "long-enough",
	})
	require.ErrorIs(t, err, guard.ErrCentralSuperadminAlreadyAssigned)

	assert.EqualValues(t, 0, f.count(&models.User{}, "email = ?", "b@example.com"))
	assert.EqualValues(t, 1, f.count(&models.UserRole{}, "role_id = ?", f.centralSuper.ID))
}

func TestTenantSuperadminIsSingletonPerTenant(t *testing.T) {
	f := newFixture(t)
	a, b := &f.tenantA.ID, &f.tenantB.ID

	owner := f.createUser(a, f.tenantSuper(f.tenantA.ID).ID, "owner@acme.test")
	assert.EqualValues(t, 1, f.count(&models.UserTenant{}, "user_id = ? AND is_owner = ?", owner.ID, true))

	_, err := f.users.CreateOrUpdateUser(f.ctx, f.root.ID, a, guard.UserInput{
		Name: "Second", Email: "second@acme.test", RoleID: f.tenantSuper(f.tenantA.ID).ID, Password: "long-enough",
	})
	require.ErrorIs(t, err, guard.ErrTenantSuperadminAlreadyAssigned)
	assert.EqualValues(t, 0, f.count(&models.User{}, "email = ?", "second@acme.test"))

	f.createUser(b, f.tenantSuper(f.tenantB.ID).ID, "owner@globex.test")
}

func TestOneRolePerContext(t *testing.T) {
	f := newFixture(t)
	a := &f.tenantA.ID

	viewer := f.tenantRole(a, "viewer", auth.PermUsersView)
	editor := f.tenantRole(a, "editor", auth.PermUsersView, auth.PermUsersUpdate)

	u := f.createUser(a, viewer.ID, "u@acme.test")

	perms, err := f.svc.GetPermissions(f.ctx, u.ID, a)
	require.NoError(t, err)
	assert.False(t, perms.Has(auth.PermUsersUpdate))

	res, err := f.users.CreateOrUpdateUser(f.ctx, f.root.ID, a, guard.UserInput{
		ID: u.ID, Name: "Renamed", Email: u.Email, RoleID: editor.ID,
	})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "Renamed", res.User.Name)
	assert.Equal(t, editor.ID, res.Role.ID)

	assert.EqualValues(t, 1, f.count(&models.UserRole{}, "user_id = ? AND context_key = ?", u.ID, f.tenantA.ID))
	assert.EqualValues(t, 1, f.count(&models.UserRole{}, "user_id = ? AND role_id = ?", u.ID, editor.ID))

	perms, err = f.svc.GetPermissions(f.ctx, u.ID, a)
	require.NoError(t, err)
	assert.True(t, perms.Has(auth.PermUsersUpdate), "role change invalidates the cached set")

	// not a member of the other tenant
	_, err = f.users.CreateOrUpdateUser(f.ctx, f.root.ID, &f.tenantB.ID, guard.UserInput{
		ID: u.ID, Name: "Renamed", Email: u.Email, RoleID: f.tenantRole(&f.tenantB.ID, "viewer").ID,
	})
	require.ErrorIs(t, err, guard.ErrUserNotFound)
}

func TestCreateOrUpdateUserValidation(t *testing.T) {
	f := newFixture(t)
	a := &f.tenantA.ID
	viewer := f.tenantRole(a, "viewer")

	tests := []struct {
		name  string
		in    guard.UserInput
		field string
	}{
		{"missing name", guard.UserInput{Email: "x@acme.test", RoleID: viewer.ID, Password: "long-enough"}, "Name"},
		{"bad email", guard.UserInput{Name: "x", Email: "nope", RoleID: viewer.ID, Password: "long-enough"}, "Email"},
		{"missing role", guard.UserInput{Name: "x", Email: "x@acme.test", Password: "long-enough"}, "RoleID"},
		{"short password", guard.UserInput{Name: "x", Email: "x@acme.test", RoleID: viewer.ID, Password: "short"}, "Password"},
		{"missing password", guard.UserInput{Name: "x", Email: "x@acme.test", RoleID: viewer.ID}, "Password"},
		{"bad avatar", guard.UserInput{Name: "x", Email: "x@acme.test", RoleID: viewer.ID, Password: "long-enough", AvatarURL: "::"}, "AvatarURL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.users.CreateOrUpdateUser(f.ctx, f.root.ID, a, tt.in)
			require.ErrorIs(t, err, guard.ErrValidation)

			var verr *guard.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Fields, tt.field)
		})
	}

	_, err := f.users.CreateOrUpdateUser(f.ctx, f.root.ID, a, guard.UserInput{
		Name: "x", Email: "x@acme.test", RoleID: "missing", Password: "long-enough",
	})
	require.ErrorIs(t, err, guard.ErrRoleNotFound)
}

func TestCreateOrUpdateUserAuthorization(t *testing.T) {
	f := newFixture(t)
	a, b := &f.tenantA.ID, &f.tenantB.ID

	viewer := f.tenantRole(a, "viewer", auth.PermUsersView)
	managerA := f.tenantRole(a, "manager", auth.PermManageUsers)
	managerB := f.tenantRole(b, "manager", auth.PermManageUsers)

	lurker := f.createUser(a, viewer.ID, "lurker@acme.test")
	manager := f.createUser(a, managerA.ID, "manager@acme.test")
	outsider := f.createUser(b, managerB.ID, "outsider@globex.test")

	in := func(email string) guard.UserInput {
		return guard.UserInput{Name: email, Email: email, RoleID: viewer.ID, Password: "long-enough"}
	}

	_, err := f.users.CreateOrUpdateUser(f.ctx, "", a, in("anon@acme.test"))
	require.ErrorIs(t, err, auth.ErrUnauthorized)

	_, err = f.users.CreateOrUpdateUser(f.ctx, lurker.ID, a, in("l@acme.test"))
	require.ErrorIs(t, err, auth.ErrForbiddenInsufficientPermissions)

	_, err = f.users.CreateOrUpdateUser(f.ctx, outsider.ID, a, in("o@acme.test"))
	require.ErrorIs(t, err, auth.ErrForbiddenInsufficientPermissions)

	_, err = f.users.CreateOrUpdateUser(f.ctx, manager.ID, nil, guard.UserInput{
		Name: "c", Email: "c@example.com", RoleID: f.centralSuper.ID, Password: "long-enough",
	})
	require.ErrorIs(t, err, auth.ErrForbiddenCentralAccess)
	assert.EqualValues(t, 1, f.auditCount(audit.TypeForbidden))

	// manage_users implies users.create
	res, err := f.users.CreateOrUpdateUser(f.ctx, manager.ID, a, in("new@acme.test"))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.EqualValues(t, 1, f.count(&models.UserTenant{}, "user_id = ? AND tenant_id = ?", res.User.ID, f.tenantA.ID))
}

func TestCreateOrUpdateUserRoleContext(t *testing.T) {
	f := newFixture(t)
	a, b := &f.tenantA.ID, &f.tenantB.ID
	foreign := f.tenantRole(b, "viewer")

	central, err := f.roles.UpsertRole(f.ctx, guard.RoleInput{Key: "support", Name: "Support"})
	require.NoError(t, err)

	tests := []struct {
		name      string
		tenantID  *string
		roleID    string
		wantErr   error
		auditType string
	}{
		{"central role in tenant", a, central.ID, guard.ErrRoleScopeMismatch, audit.TypeScopeMismatch},
		{"central superadmin in tenant", a, f.centralSuper.ID, guard.ErrRoleScopeMismatch, audit.TypeScopeMismatch},
		{"tenant role in central", nil, foreign.ID, guard.ErrRoleScopeMismatch, audit.TypeScopeMismatch},
		{"role of another tenant", a, foreign.ID, guard.ErrRoleTenantMismatch, audit.TypeTenantMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := f.auditCount(tt.auditType)

			_, err := f.users.CreateOrUpdateUser(f.ctx, f.root.ID, tt.tenantID, guard.UserInput{
				Name: "x", Email: "x@example.com", RoleID: tt.roleID, Password: "long-enough",
			})
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before+1, f.auditCount(tt.auditType))
		})
	}

	assert.EqualValues(t, 0, f.count(&models.User{}, "email = ?", "x@example.com"))
}

func TestCreateUserEmailInUse(t *testing.T) {
	f := newFixture(t)
	a := &f.tenantA.ID
	viewer := f.tenantRole(a, "viewer")

	first := f.createUser(a, viewer.ID, "dup@acme.test")

	_, err := f.users.CreateOrUpdateUser(f.ctx, f.root.ID, a, guard.UserInput{
		Name: "Dup", Email: " DUP@acme.test ", RoleID: viewer.ID, Password: "long-enough",
	})
	require.ErrorIs(t, err, guard.ErrEmailInUse)

	other := f.createUser(a, viewer.ID, "other@acme.test")
	_, err = f.users.CreateOrUpdateUser(f.ctx, f.root.ID, a, guard.UserInput{
		ID: other.ID, Name: "Other", Email: first.Email, RoleID: viewer.ID,
	})
	require.ErrorIs(t, err, guard.ErrEmailInUse)
}

func TestCreateUserWithSetupLink(t *testing.T) {
	f := newFixture(t)
	a := &f.tenantA.ID
	viewer := f.tenantRole(a, "viewer")

	res, err := f.users.CreateOrUpdateUser(f.ctx, f.root.ID, a, guard.UserInput{
		Name: "Linked", Email: "linked@acme.test", RoleID: viewer.ID, SendSetupLink: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.SetupToken)
	assert.Empty(t, res.User.Password)

	msg := f.notifier.last()
	assert.Equal(t, notify.KindCreated, msg.Kind)
	assert.Equal(t, res.User.ID, msg.UserID)
	assert.Equal(t, res.SetupToken, msg.SetupToken)
	assert.Equal(t, a, msg.TenantID)

	userID, err := f.tokens.Consume(f.ctx, res.SetupToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, userID)

	_, err = f.tokens.Consume(f.ctx, res.SetupToken)
	require.ErrorIs(t, err, token.ErrTokenInvalid)
}

func TestNotifierFailureKeepsUser(t *testing.T) {
	f := newFixture(t)
	a := &f.tenantA.ID
	f.notifier.err = errNotifierDown

	u := f.createUser(a, f.tenantRole(a, "viewer").ID, "quiet@acme.test")

	assert.EqualValues(t, 1, f.count(&models.User{}, "id = ?", u.ID))
	assert.Equal(t, notify.KindCreated, f.notifier.last().Kind)
}

func TestTenantSuperadminHandover(t *testing.T) {
	f := newFixture(t)
	a := &f.tenantA.ID
	super := f.tenantSuper(f.tenantA.ID)
	viewer := f.tenantRole(a, "viewer")

	owner := f.createUser(a, super.ID, "owner@acme.test")
	member := f.createUser(a, viewer.ID, "member@acme.test")

	_, err := f.users.CreateOrUpdateUser(f.ctx, f.root.ID, a, guard.UserInput{
		ID: member.ID, Name: member.Name, Email: member.Email, RoleID: super.ID,
	})
	require.ErrorIs(t, err, guard.ErrTenantSuperadminAlreadyAssigned)

	// keeping the role while editing the profile is fine
	_, err = f.users.CreateOrUpdateUser(f.ctx, f.root.ID, a, guard.UserInput{
		ID: owner.ID, Name: "Owner", Email: owner.Email, RoleID: super.ID,
	})
	require.NoError(t, err)

	_, err = f.users.CreateOrUpdateUser(f.ctx, f.root.ID, a, guard.UserInput{
		ID: owner.ID, Name: "Owner", Email: owner.Email, RoleID: viewer.ID,
	})
	require.NoError(t, err)

	_, err = f.users.CreateOrUpdateUser(f.ctx, f.root.ID, a, guard.UserInput{
		ID: member.ID, Name: member.Name, Email: member.Email, RoleID: super.ID,
	})
	require.NoError(t, err)

	assert.EqualValues(t, 1, f.count(&models.UserRole{}, "role_id = ?", super.ID))
	assert.EqualValues(t, 1, f.count(&models.UserRole{}, "role_id = ? AND user_id = ?", super.ID, member.ID))

	// the former owner is an ordinary member now
	require.NoError(t, f.users.ToggleActive(f.ctx, f.root.ID, owner.ID, false, a))
}

func TestCannotDemoteCentralSuperadmin(t *testing.T) {
	f := newFixture(t)

	support, err := f.roles.UpsertRole(f.ctx, guard.RoleInput{Key: "support", Name: "Support"})
	require.NoError(t, err)

	_, err = f.users.CreateOrUpdateUser(f.ctx, f.root.ID, nil, guard.UserInput{
		ID: f.root.ID, Name: f.root.Name, Email: f.root.Email, RoleID: support.ID,
	})
	require.ErrorIs(t, err, guard.ErrCannotDemoteLastSuperadmin)
	assert.EqualValues(t, 1, f.count(&models.UserRole{}, "user_id = ? AND role_id = ?", f.root.ID, f.centralSuper.ID))
}

func TestCannotChangeOwnRole(t *testing.T) {
	f := newFixture(t)
	a := &f.tenantA.ID

	helpdesk := f.tenantRole(a, "helpdesk", auth.PermUsersUpdate)
	admin := f.tenantRole(a, "tenant_admin", auth.PermManageUsers, auth.PermManageRoles)
	u := f.createUser(a, helpdesk.ID, "helpdesk@acme.test")

	before := f.auditCount(audit.TypePrivilegeEscalation)

	_, err := f.users.CreateOrUpdateUser(f.ctx, u.ID, a, guard.UserInput{
		ID: u.ID, Name: u.Name, Email: u.Email, RoleID: admin.ID,
	})
	require.ErrorIs(t, err, guard.ErrCannotChangeOwnRole)
	assert.Equal(t, before+1, f.auditCount(audit.TypePrivilegeEscalation))

	perms, err := f.svc.GetPermissions(f.ctx, u.ID, a)
	require.NoError(t, err)
	assert.Equal(t, []string{auth.PermUsersUpdate}, perms.Keys())

	// editing the own profile without touching the role is fine
	res, err := f.users.CreateOrUpdateUser(f.ctx, u.ID, a, guard.UserInput{
		ID: u.ID, Name: "Help Desk", Email: u.Email, RoleID: helpdesk.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Help Desk", res.User.Name)
}

func TestSuperadminAccountCannotBeTakenOver(t *testing.T) {
	f := newFixture(t)
	a := &f.tenantA.ID
	super := f.tenantSuper(f.tenantA.ID)

	owner := f.createUser(a, super.ID, "owner@acme.test")
	helpdesk := f.createUser(a, f.tenantRole(a, "helpdesk", auth.PermUsersUpdate).ID, "helpdesk@acme.test")
	sent := len(f.notifier.msgs)

	_, err := f.users.CreateOrUpdateUser(f.ctx, helpdesk.ID, a, guard.UserInput{
		ID: owner.ID, Name: owner.Name, Email: "attacker@evil.test", RoleID: super.ID, SendSetupLink: true,
	})
	require.ErrorIs(t, err, guard.ErrSetupLinkWithEmailChange)

	before := f.auditCount(audit.TypeProtectedRole)

	_, err = f.users.CreateOrUpdateUser(f.ctx, helpdesk.ID, a, guard.UserInput{
		ID: owner.ID, Name: owner.Name, Email: "attacker@evil.test", RoleID: super.ID,
	})
	require.ErrorIs(t, err, guard.ErrProtectedUserEdit)
	assert.Equal(t, before+1, f.auditCount(audit.TypeProtectedRole))

	_, err = f.users.CreateOrUpdateUser(f.ctx, helpdesk.ID, a, guard.UserInput{
		ID: owner.ID, Name: owner.Name, Email: owner.Email, RoleID: super.ID, SendSetupLink: true,
	})
	require.ErrorIs(t, err, guard.ErrProtectedUserEdit)

	// the central superadmin may not combine the two either
	_, err = f.users.CreateOrUpdateUser(f.ctx, f.root.ID, a, guard.UserInput{
		ID: owner.ID, Name: owner.Name, Email: "new@acme.test", RoleID: super.ID, SendSetupLink: true,
	})
	require.ErrorIs(t, err, guard.ErrSetupLinkWithEmailChange)

	assert.EqualValues(t, 1, f.count(&models.User{}, "id = ? AND email = ?", owner.ID, "owner@acme.test"))
	assert.EqualValues(t, 0, f.count(&models.PasswordSetupToken{}, "user_id = ?", owner.ID))
	assert.Len(t, f.notifier.msgs, sent)

	// a re-issued link goes to the address on file
	res, err := f.users.CreateOrUpdateUser(f.ctx, f.root.ID, a, guard.UserInput{
		ID: owner.ID, Name: owner.Name, Email: owner.Email, RoleID: super.ID, SendSetupLink: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.SetupToken)

	msg := f.notifier.last()
	assert.Equal(t, "owner@acme.test", msg.Email)
	assert.Equal(t, res.SetupToken, msg.SetupToken)

	// the owner edits the own profile
	_, err = f.users.CreateOrUpdateUser(f.ctx, owner.ID, a, guard.UserInput{
		ID: owner.ID, Name: "The Owner", Email: "boss@acme.test", RoleID: super.ID,
	})
	require.NoError(t, err)
}

func TestDeleteUser(t *testing.T) {
	t.Run("self", func(t *testing.T) {
		f := newFixture(t)
		require.ErrorIs(t, f.users.DeleteUser(f.ctx, f.root.ID, f.root.ID, nil), guard.ErrCannotDeleteSelf)
	})

	t.Run("sole member", func(t *testing.T) {
		f := newFixture(t)
		a := &f.tenantA.ID
		u := f.createUser(a, f.tenantRole(a, "viewer").ID, "only@acme.test")

		require.ErrorIs(t, f.users.DeleteUser(f.ctx, f.root.ID, u.ID, a), guard.ErrCannotDeleteLastUser)
		assert.EqualValues(t, 1, f.count(&models.User{}, "id = ?", u.ID))
		assert.EqualValues(t, 1, f.count(&models.UserTenant{}, "user_id = ? AND tenant_id = ?", u.ID, f.tenantA.ID))
	})

	t.Run("tenant superadmin", func(t *testing.T) {
		f := newFixture(t)
		a := &f.tenantA.ID
		owner := f.createUser(a, f.tenantSuper(f.tenantA.ID).ID, "owner@acme.test")
		manager := f.createUser(a, f.tenantRole(a, "manager", auth.PermManageUsers).ID, "manager@acme.test")

		require.ErrorIs(t, f.users.DeleteUser(f.ctx, manager.ID, owner.ID, a), guard.ErrCannotDeleteLastUser)
		assert.EqualValues(t, 1, f.count(&models.UserTenant{}, "user_id = ?", owner.ID))

		require.NoError(t, f.users.DeleteUser(f.ctx, f.root.ID, owner.ID, a))
		assert.EqualValues(t, 0, f.count(&models.User{}, "id = ?", owner.ID))
	})

	t.Run("tenant superadmin from the central context", func(t *testing.T) {
		f := newFixture(t)
		a := &f.tenantA.ID
		owner := f.createUser(a, f.tenantSuper(f.tenantA.ID).ID, "owner@acme.test")

		require.NoError(t, f.users.DeleteUser(f.ctx, f.root.ID, owner.ID, nil))
		assert.EqualValues(t, 0, f.count(&models.User{}, "id = ?", owner.ID))
		assert.EqualValues(t, 0, f.count(&models.UserRole{}, "user_id = ?", owner.ID))
	})

	t.Run("removes account without other contexts", func(t *testing.T) {
		f := newFixture(t)
		a := &f.tenantA.ID
		viewer := f.tenantRole(a, "viewer")
		f.createUser(a, f.tenantSuper(f.tenantA.ID).ID, "owner@acme.test")
		u := f.createUser(a, viewer.ID, "leaving@acme.test")

		require.NoError(t, f.users.DeleteUser(f.ctx, f.root.ID, u.ID, a))
		assert.EqualValues(t, 0, f.count(&models.User{}, "id = ?", u.ID))
		assert.EqualValues(t, 0, f.count(&models.UserTenant{}, "user_id = ?", u.ID))
		assert.EqualValues(t, 0, f.count(&models.UserRole{}, "user_id = ?", u.ID))

		require.ErrorIs(t, f.users.DeleteUser(f.ctx, f.root.ID, u.ID, a), guard.ErrUserNotFound)
	})

	t.Run("keeps account with a central role", func(t *testing.T) {
		f := newFixture(t)
		a := &f.tenantA.ID
		viewer := f.tenantRole(a, "viewer")
		f.createUser(a, f.tenantSuper(f.tenantA.ID).ID, "owner@acme.test")

		support, err := f.roles.UpsertRole(f.ctx, guard.RoleInput{Key: "support", Name: "Support"})
		require.NoError(t, err)

		u := f.createUser(nil, support.ID, "support@example.com")
		require.NoError(t, f.db.Create(&models.UserTenant{UserID: u.ID, TenantID: f.tenantA.ID}).Error)
		ur := models.NewUserRole(u.ID, viewer, a)
		require.NoError(t, f.db.Create(&ur).Error)

		require.NoError(t, f.users.DeleteUser(f.ctx, f.root.ID, u.ID, a))
		assert.EqualValues(t, 1, f.count(&models.User{}, "id = ?", u.ID))
		assert.EqualValues(t, 0, f.count(&models.UserTenant{}, "user_id = ?", u.ID))
		assert.EqualValues(t, 1, f.count(&models.UserRole{}, "user_id = ?", u.ID))

		require.NoError(t, f.users.DeleteUser(f.ctx, f.root.ID, u.ID, nil))
		assert.EqualValues(t, 0, f.count(&models.User{}, "id = ?", u.ID))
		assert.EqualValues(t, 0, f.count(&models.UserRole{}, "user_id = ?", u.ID))
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newFixture(t)
		require.ErrorIs(t, f.users.DeleteUser(f.ctx, f.root.ID, "missing", nil), guard.ErrUserNotFound)
	})
}

func TestToggleActive(t *testing.T) {
	f := newFixture(t)
	a := &f.tenantA.ID

	owner := f.createUser(a, f.tenantSuper(f.tenantA.ID).ID, "owner@acme.test")
	u := f.createUser(a, f.tenantRole(a, "viewer", auth.PermUsersView).ID, "u@acme.test")

	require.ErrorIs(t, f.users.ToggleActive(f.ctx, f.root.ID, f.root.ID, false, nil), guard.ErrCannotDeactivateSelf)
	require.ErrorIs(t, f.users.ToggleActive(f.ctx, f.root.ID, owner.ID, false, a), guard.ErrCannotDeactivateLastUser)

	perms, err := f.svc.GetPermissions(f.ctx, u.ID, a)
	require.NoError(t, err)
	require.True(t, perms.Has(auth.PermUsersView))

	require.NoError(t, f.users.ToggleActive(f.ctx, owner.ID, u.ID, false, a))
	assert.Equal(t, notify.KindDeactivated, f.notifier.last().Kind)

	perms, err = f.svc.GetPermissions(f.ctx, u.ID, a)
	require.NoError(t, err)
	assert.Empty(t, perms.Keys())

	require.NoError(t, f.users.ToggleActive(f.ctx, owner.ID, u.ID, true, a))
	assert.Equal(t, notify.KindUpdated, f.notifier.last().Kind)

	perms, err = f.svc.GetPermissions(f.ctx, u.ID, a)
	require.NoError(t, err)
	assert.True(t, perms.Has(auth.PermUsersView))
}

func TestConcurrentSuperadminAssignmentHitsUniqueIndex(t *testing.T) {
	f := newFixture(t)
	a := &f.tenantA.ID
	super := f.tenantSuper(f.tenantA.ID)

	rival := models.User{Name: "Rival", Email: "rival@acme.test", Active: true}
	require.NoError(t, f.db.Create(&rival).Error)

	// another request assigns the role after the holder check passed but before the insert
	inserted := false
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:rival_holder", func(tx *gorm.DB) {
		ur, ok := tx.Statement.Dest.(*models.UserRole)
		if !ok || ur.SingletonKey == nil || inserted {
			return
		}

		inserted = true
		rivalRole := models.NewUserRole(rival.ID, &super, a)

		if err := tx.Session(&gorm.Session{NewDB: true}).Create(&rivalRole).Error; err != nil {
			_ = tx.AddError(err)
		}
	}))

	_, err := f.users.CreateOrUpdateUser(f.ctx, f.root.ID, a, guard.UserInput{
		Name: "Owner", Email: "owner@acme.test", RoleID: super.ID, Password: "long-enough",
	})
	require.ErrorIs(t, err, guard.ErrTenantSuperadminAlreadyAssigned)
	assert.True(t, inserted)

	assert.EqualValues(t, 0, f.count(&models.User{}, "email = ?", "owner@acme.test"))
	assert.LessOrEqual(t, f.count(&models.UserRole{}, "role_id = ?", super.ID), int64(1))
}
