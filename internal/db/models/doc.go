// Package models contains the gorm models of the tenant, identity and RBAC schema.
//
// Ids are UUID strings. A nil tenant id denotes the central (platform operator) context.
// Columns named *ScopeKey / ContextKey carry the non-null form of that tenant id so that
// unique indexes also cover the central context.
package models
