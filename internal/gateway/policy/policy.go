// Package policy decides whether a principal may perform an action.
package policy

import (
	"context"
	"fmt"
	"log/slog"

	"observe/internal/domain"
	"observe/internal/gateway"
	"observe/internal/platform/telemetry"
)

// Denial is a rejected access decision.
type Denial struct {
	Action domain.Action
	Reason string
}

func (d *Denial) Error() string {
	return fmt.Sprintf("%s denied: %s", d.Action, d.Reason)
}

func (d *Denial) Unwrap() error {
	return domain.ErrForbidden
}

// Evaluator applies the access rules to principals.
type Evaluator struct {
	allow          gateway.AllowList
	legacyIdentity string
	metrics        *telemetry.GatewayMetrics
}

// NewEvaluator creates an evaluator. legacyIdentity names the account that is
// only trusted from allow-listed origins. The metrics parameter is optional.
func NewEvaluator(allow gateway.AllowList, legacyIdentity string, m *telemetry.GatewayMetrics) *Evaluator {
	return &Evaluator{allow: allow, legacyIdentity: legacyIdentity, metrics: m}
}

// Authorize returns nil when p may perform action, and a *Denial otherwise.
func (e *Evaluator) Authorize(ctx context.Context, p domain.Principal, action domain.Action, req domain.AccessRequest) error {
	err := e.evaluate(ctx, p, action, req)
	if e.metrics != nil {
		result := "allowed"
		if err != nil {
			result = "denied"
		}
		e.metrics.RecordPolicyDecision(ctx, action.String(), result)
	}
	if err != nil {
		slog.Debug("access denied", "principal_id", p.ID, "action", action.String(), "reason", err.Error())
	}
	return err
}

func (e *Evaluator) evaluate(ctx context.Context, p domain.Principal, action domain.Action, req domain.AccessRequest) error {
	if p.Disabled() {
		return deny(action, "account is disabled")
	}

	legacy := e.legacyIdentity != "" && p.ID == e.legacyIdentity
	if legacy {
		ok, err := e.allow.Allowed(ctx, req.RemoteAddr)
		if err != nil {
			slog.Error("allow-list lookup failed", "origin", req.RemoteAddr, "error", err)
			return deny(action, "origin could not be verified")
		}
		if !ok {
			return deny(action, "origin is not allow-listed")
		}
	}

	switch action {
	case domain.ActionInfo, domain.ActionUserList, domain.ActionUserRead:
		return nil

	case domain.ActionExecute, domain.ActionUserDelete:
		if !p.HasAnyRole(domain.RoleAdmin, domain.RoleControl) {
			return deny(action, "requires admin or control")
		}
		return nil

	case domain.ActionUserCreate:
		if !p.HasRole(domain.RoleAdmin) {
			return deny(action, "requires admin")
		}
		return nil

	case domain.ActionProfileUpdate:
		if p.ID != req.TargetLogin && !p.HasRole(domain.RoleAdmin) {
			return deny(action, "cannot modify another user")
		}
		return nil

	case domain.ActionUserRoleChange:
		if legacy && e.delegable(req) {
			return nil
		}
		if !p.HasRole(domain.RoleAdmin) {
			return deny(action, "only admin can change permissions")
		}
		return nil

	default:
		return deny(action, "unknown action")
	}
}

// delegable reports whether the legacy identity may apply req. It never
// grants admin and never touches the admin or legacy accounts.
func (e *Evaluator) delegable(req domain.AccessRequest) bool {
	if req.TargetLogin == domain.ReservedAdmin || req.TargetLogin == e.legacyIdentity {
		return false
	}
	return domain.Role(req.NewPermission) != domain.RoleAdmin
}

func deny(action domain.Action, reason string) error {
	return &Denial{Action: action, Reason: reason}
}
