// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

/*
Package authz provides role-based authorization using Casbin.

The model (model.conf) is a plain RBAC model with wildcard objects and
actions. The default policy (policy.csv) is embedded and defines a role
hierarchy:

	admin > technician > user

Subjects are lower-case role names (models.Role.PolicyName). Objects are API
resources ("records", "machines", "findings", "files", "users", "tags") and
actions are verbs ("read", "write", "delete", "create", "update_status").

Both files can be replaced at runtime through CASBIN_MODEL_PATH and
CASBIN_POLICY_PATH.

Usage:

	enforcer, err := authz.NewEnforcer(&cfg.Security.Casbin)
	mw := authz.NewMiddleware(enforcer)
	r.With(mw.Authorize("machines", "update_status")).Put("/machines/{id}/status", h.SetMachineStatus)

Decisions are cached per (role, object, action) for CacheTTL.
*/
package authz
