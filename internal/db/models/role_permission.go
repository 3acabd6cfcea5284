package models

// RolePermission is the junction between roles and permissions. The composite key rules out
// duplicate grants.
type RolePermission struct {
	// RoleID is the ID of the role in this mapping.
	RoleID string `gorm:"primaryKey;size:36;column:role_id"`
	// PermissionID is the ID of the permission in this mapping.
	PermissionID string `gorm:"primaryKey;size:36;column:permission_id;index"`
}

// TableName specifies the database table name for the RolePermission model.
func (RolePermission) TableName() string {
	return "role_permissions"
}
