// Package guard performs every role, permission and user mutation of the RBAC core.
//
// Each operation validates its input, then re-checks the invariants inside the transaction that
// writes. Join table rows (role permissions, user roles) are replaced by delete then insert on a
// unitOfWork, so a failure leaves the previous set intact. Unique indexes on user_roles back the
// in-transaction singleton checks.
//
// Rejected scope and escalation attempts are written to the audit trail after the rollback.
package guard
