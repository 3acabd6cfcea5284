package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tenantadmin/tenantadmin/internal/db/models"
)

// Service aggregates the effective permissions of users.
type Service struct {
	db    *gorm.DB
	cache *expirable.LRU[string, PermissionSet]

	// mu orders cache writes against invalidations. A set loaded before an invalidation
	// finished is returned but not cached.
	mu         sync.Mutex
	generation uint64
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCache enables the permission set cache. A ttl or size of zero leaves it disabled.
func WithCache(size int, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if size <= 0 || ttl <= 0 {
			return
		}

		s.cache = expirable.NewLRU[string, PermissionSet](size, nil, ttl)
	}
}

// NewService creates a new auth service.
func NewService(db *gorm.DB, opts ...ServiceOption) *Service {
	s := &Service{db: db}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func cacheKey(userID string, tenantID *string) string {
	return userID + "|" + models.ContextKeyOf(tenantID)
}

// GetPermissions returns every permission key the user holds in the given context.
//
// Central roles apply in every context, tenant roles only in their own tenant. Unknown and
// inactive users get an empty set.
func (s *Service) GetPermissions(ctx context.Context, userID string, tenantID *string) (PermissionSet, error) {
	if userID == "" {
		return PermissionSet{}, nil
	}

	key := cacheKey(userID, tenantID)
	if s.cache != nil {
		if set, ok := s.cache.Get(key); ok {
			return set.clone(), nil
		}
	}

	started := s.currentGeneration()

	set, err := s.load(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.mu.Lock()
		if s.generation == started {
			s.cache.Add(key, set.clone())
		}
		s.mu.Unlock()
	}

	return set, nil
}

func (s *Service) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.generation
}

func (s *Service) load(ctx context.Context, userID string, tenantID *string) (PermissionSet, error) {
	db := s.db.WithContext(ctx)

	var user models.User

	err := db.Select("id", "active").Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PermissionSet{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !user.Active {
		return PermissionSet{}, nil
	}

	var assignments []models.UserRole
	if err = db.Preload("Role").Where("user_id = ?", userID).Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to load role assignments: %w", err)
	}

	roleIDs := make([]string, 0, len(assignments))

	for _, a := range assignments {
		if a.Role == nil {
			continue
		}

		switch a.Role.Scope {
		case models.ScopeCentral:
			roleIDs = append(roleIDs, a.Role.ID)
		case models.ScopeTenant:
			if tenantID != nil && models.SameTenant(a.Role.TenantID, tenantID) {
				roleIDs = append(roleIDs, a.Role.ID)
			}
		}
	}

	if len(roleIDs) == 0 {
		return PermissionSet{}, nil
	}

	var keys []string

	err = db.Model(&models.Permission{}).
		Distinct("permissions.permission_key").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id IN ?", roleIDs).
		Pluck("permissions.permission_key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load permissions: %w", err)
	}

	return NewPermissionSet(keys...), nil
}

// HoldsRole reports whether the active user holds the role key in the given context.
func (s *Service) HoldsRole(ctx context.Context, userID, roleKey string, tenantID *string) (bool, error) {
	return HoldsRole(s.db.WithContext(ctx), userID, roleKey, tenantID)
}

// HoldsRole is the transaction friendly form of Service.HoldsRole.
func HoldsRole(db *gorm.DB, userID, roleKey string, tenantID *string) (bool, error) {
	if userID == "" {
		return false, nil
	}

	var count int64

	err := db.Model(&models.UserRole{}).
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Joins("JOIN users ON users.id = user_roles.user_id").
		Where("user_roles.user_id = ? AND user_roles.context_key = ? AND roles.role_key = ? AND users.active = ?",
			userID, models.ContextKeyOf(tenantID), roleKey, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check role %s: %w", roleKey, err)
	}

	return count > 0, nil
}

// CanEnter reports whether the active user holds a role in the context. Central roles count
// in every context.
func (s *Service) CanEnter(ctx context.Context, userID string, tenantID *string) (bool, error) {
	if userID == "" {
		return false, nil
	}

	var count int64

	err := s.db.WithContext(ctx).Model(&models.UserRole{}).
		Joins("JOIN users ON users.id = user_roles.user_id").
		Where("user_roles.user_id = ? AND user_roles.context_key IN ? AND users.active = ?",
			userID, []string{models.ContextKeyOf(tenantID), models.CentralKey}, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check access: %w", err)
	}

	return count > 0, nil
}

// Invalidate drops every cached permission set of the user.
func (s *Service) Invalidate(userID string) {
	if s.cache == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++

	prefix := userID + "|"
	for _, k := range s.cache.Keys() {
		if strings.HasPrefix(k, prefix) {
			s.cache.Remove(k)
		}
	}
}

// InvalidateAll drops the whole cache.
func (s *Service) InvalidateAll() {
	if s.cache == nil {
		return
	}

	s.mu.Lock()
	s.generation++
	s.cache.Purge()
	s.mu.Unlock()

	log.Debug().Msg("permission cache purged")
}
