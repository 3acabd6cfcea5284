package guard_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tenantadmin/tenantadmin/internal/audit"
	"github.com/tenantadmin/tenantadmin/internal/auth"
	"github.com/tenantadmin/tenantadmin/internal/db"
	"github.com/tenantadmin/tenantadmin/internal/db/models"
	"github.com/tenantadmin/tenantadmin/internal/guard"
	"github.com/tenantadmin/tenantadmin/internal/notify"
	"github.com/tenantadmin/tenantadmin/internal/tenant"
	"github.com/tenantadmin/tenantadmin/internal/token"
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.msgs = append(n.msgs, msg)

	return n.err
}

func (n *recordingNotifier) last() notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.msgs) == 0 {
		return notify.Message{}
	}

	return n.msgs[len(n.msgs)-1]
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	db       *gorm.DB
	svc      *auth.Service
	roles    *guard.RoleGuard
	users    *guard.UserGuard
	tokens   *token.Store
	notifier *recordingNotifier
	audit    *audit.Recorder

	centralSuper models.Role
	root         models.User
	tenantA      *models.Tenant
	tenantB      *models.Tenant
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	database, err := db.OpenMemory()
	require.NoError(t, err)

	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		db:       database,
		notifier: &recordingNotifier{},
		audit:    audit.New(database),
	}

	policy := auth.NewKeyPolicy()

	for _, e := range auth.Catalog {
		require.NoError(t, database.Create(&models.Permission{Key: e.Key, Name: e.Name}).Error)
	}

	f.centralSuper = models.Role{Key: models.RoleCentralSuperadmin, Name: "Central Superadmin"}
	require.NoError(t, database.Create(&f.centralSuper).Error)

	var globals []models.Permission
	require.NoError(t, database.Find(&globals).Error)

	for _, p := range globals {
		require.NoError(t, database.Create(&models.RolePermission{RoleID: f.centralSuper.ID, PermissionID: p.ID}).Error)
	}

	f.root = models.User{Name: "Root", Email: "root@example.com", Active: true}
	require.NoError(t, database.Create(&f.root).Error)

	ur := models.NewUserRole(f.root.ID, &f.centralSuper, nil)
	require.NoError(t, database.Create(&ur).Error)

	prov := tenant.NewProvisioner(database, policy, "central")
	f.tenantA, err = prov.Create(f.ctx, "acme", "Acme", "acme.example.com")
	require.NoError(t, err)
	f.tenantB, err = prov.Create(f.ctx, "globex", "Globex", "globex.example.com")
	require.NoError(t, err)

	f.svc = auth.NewService(database, auth.WithCache(64, time.Minute))
	f.tokens = token.NewStore(database, time.Hour)
	f.roles = guard.NewRoleGuard(database, f.svc, policy, f.audit)
	f.users = guard.NewUserGuard(database, f.svc, auth.NewLocalProvider(database), f.tokens, f.notifier, f.audit)

	return f
}

func (f *fixture) perm(key string) models.Permission {
	f.t.Helper()

	var p models.Permission
	require.NoError(f.t, f.db.Where("permission_key = ? AND scope_key = ?", key, models.CentralKey).First(&p).Error)

	return p
}

func (f *fixture) tenantSuper(tenantID string) models.Role {
	f.t.Helper()

	var r models.Role
	require.NoError(f.t, f.db.Where("role_key = ? AND tenant_id = ?", models.RoleTenantSuperadmin, tenantID).First(&r).Error)

	return r
}

func (f *fixture) tenantRole(tenantID *string, key string, perms ...string) *models.Role {
	f.t.Helper()

	ids := make([]string, 0, len(perms))
	for _, k := range perms {
		ids = append(ids, f.perm(k).ID)
	}

	r, err := f.roles.UpsertRole(f.ctx, guard.RoleInput{Key: key, Name: key, TenantID: tenantID, PermissionIDs: ids})
	require.NoError(f.t, err)

	return r
}

// createUser creates a user as root with a password.
func (f *fixture) createUser(tenantID *string, roleID, email string) *models.User {
	f.t.Helper()

	res, err := f.users.CreateOrUpdateUser(f.ctx, f.root.ID, tenantID, guard.UserInput{
		Name:     email,
		Email:    email,
		RoleID:   roleID,
		Password: "long-enough",
	})
	require.NoError(f.t, err)

	return res.User
}

func (f *fixture) count(model any, query string, args ...any) int64 {
	f.t.Helper()

	var n int64
	require.NoError(f.t, f.db.Model(model).Where(query, args...).Count(&n).Error)

	return n
}

func (f *fixture) auditCount(typ string) int64 {
	return f.count(&models.AuditEvent{}, "type = ?", typ)
}

var errNotifierDown = errors.New("smtp down")
