// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package authz

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/tomtom215/machinelog/internal/config"
	"github.com/tomtom215/machinelog/internal/logging"
	"github.com/tomtom215/machinelog/internal/metrics"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// CacheTTL is how long enforcement decisions are cached.
const CacheTTL = 5 * time.Minute

// Enforcer wraps the Casbin enforcer with a decision cache.
type Enforcer struct {
	enforcer    *casbin.SyncedEnforcer
	cache       *enforcementCache
	defaultRole string
}

// NewEnforcer loads the model and policy from cfg, falling back to the
// embedded defaults for empty or missing paths.
func NewEnforcer(cfg *config.CasbinConfig) (*Enforcer, error) {
	var m model.Model
	var err error

	if cfg.ModelPath != "" && fileExists(cfg.ModelPath) {
		m, err = model.NewModelFromFile(cfg.ModelPath)
	} else {
		m, err = model.NewModelFromString(embeddedModel)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	if cfg.PolicyPath != "" && fileExists(cfg.PolicyPath) {
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(cfg.PolicyPath))
		logging.Info().Str("path", cfg.PolicyPath).Msg("Loaded casbin policy file")
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadEmbeddedPolicy(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	defaultRole := strings.ToLower(cfg.DefaultRole)
	if defaultRole == "" {
		defaultRole = "user"
	}

	return &Enforcer{
		enforcer:    enforcer,
		cache:       newEnforcementCache(CacheTTL),
		defaultRole: defaultRole,
	}, nil
}

// loadEmbeddedPolicy parses and loads policy CSV text.
func loadEmbeddedPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) < 3 {
			continue
		}

		ptype, rule := parts[0], parts[1:]
		switch ptype {
		case "p":
			if len(rule) < 3 {
				return fmt.Errorf("policy rule %v needs subject, object and action", rule)
			}
			if _, err := enforcer.AddPolicy(rule[0], rule[1], rule[2]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", rule, err)
			}
		case "g":
			if _, err := enforcer.AddGroupingPolicy(rule[0], rule[1]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", rule, err)
			}
		}
	}
	return nil
}

// Enforce checks whether role may perform action on object. An empty role
// uses the default role.
func (e *Enforcer) Enforce(role, object, action string) (bool, error) {
	role = strings.ToLower(role)
	if role == "" {
		role = e.defaultRole
	}

	if allowed, ok := e.cache.get(role, object, action); ok {
		return allowed, nil
	}

	allowed, err := e.enforcer.Enforce(role, object, action)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	e.cache.set(role, object, action, allowed)

	result := "deny"
	if allowed {
		result = "allow"
	}
	metrics.AuthzDecisions.WithLabelValues(object, action, result).Inc()
	return allowed, nil
}

// Roles returns every role the policy mentions, including inherited ones.
func (e *Enforcer) Roles() []string {
	//nolint:errcheck // GetAllSubjects only fails if the model is missing
	subjects, _ := e.enforcer.GetAllSubjects()
	return subjects
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
