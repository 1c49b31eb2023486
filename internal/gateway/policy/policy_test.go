package policy_test

import (
	"context"
	"errors"
	"testing"

	"observe/internal/domain"
	"observe/internal/gateway/policy"
)

type allowFunc func(ctx context.Context, origin string) (bool, error)

func (f allowFunc) Allowed(ctx context.Context, origin string) (bool, error) {
	return f(ctx, origin)
}

func allowOnly(addrs ...string) allowFunc {
	return func(_ context.Context, origin string) (bool, error) {
		for _, a := range addrs {
			if a == origin {
				return true, nil
			}
		}
		return false, nil
	}
}

func principal(id string, roles ...domain.Role) domain.Principal {
	return domain.Principal{ID: id, Roles: roles}
}

func TestAuthorize(t *testing.T) {
	ev := policy.NewEvaluator(allowOnly("10.0.0.5"), "tcsuser", nil)

	tests := []struct {
		name    string
		p       domain.Principal
		action  domain.Action
		req     domain.AccessRequest
		allowed bool
	}{
		{"none cannot read info", principal("ghost", domain.RoleNone), domain.ActionInfo, domain.AccessRequest{}, false},
		{"no roles cannot read info", principal("ghost"), domain.ActionInfo, domain.AccessRequest{}, false},
		{"none cannot update own profile", principal("ghost", domain.RoleNone), domain.ActionProfileUpdate, domain.AccessRequest{TargetLogin: "ghost"}, false},
		{"user reads info", principal("jdoe", domain.RoleUser), domain.ActionInfo, domain.AccessRequest{}, true},
		{"user cannot execute", principal("jdoe", domain.RoleUser), domain.ActionExecute, domain.AccessRequest{}, false},
		{"control executes", principal("op", domain.RoleControl), domain.ActionExecute, domain.AccessRequest{}, true},
		{"admin executes", principal("admin", domain.RoleAdmin), domain.ActionExecute, domain.AccessRequest{}, true},
		{"user cannot delete", principal("jdoe", domain.RoleUser), domain.ActionUserDelete, domain.AccessRequest{TargetLogin: "x"}, false},
		{"control deletes", principal("op", domain.RoleControl), domain.ActionUserDelete, domain.AccessRequest{TargetLogin: "x"}, true},
		{"user updates own profile", principal("jdoe", domain.RoleUser), domain.ActionProfileUpdate, domain.AccessRequest{TargetLogin: "jdoe"}, true},
		{"user cannot update other profile", principal("jdoe", domain.RoleUser), domain.ActionProfileUpdate, domain.AccessRequest{TargetLogin: "other"}, false},
		{"control cannot update other profile", principal("op", domain.RoleControl), domain.ActionProfileUpdate, domain.AccessRequest{TargetLogin: "other"}, false},
		{"admin updates other profile", principal("admin", domain.RoleAdmin), domain.ActionProfileUpdate, domain.AccessRequest{TargetLogin: "other"}, true},
		{"user cannot raise own permission", principal("jdoe", domain.RoleUser), domain.ActionUserRoleChange, domain.AccessRequest{TargetLogin: "jdoe", NewPermission: "admin"}, false},
		{"control cannot change roles", principal("op", domain.RoleControl), domain.ActionUserRoleChange, domain.AccessRequest{TargetLogin: "jdoe", NewPermission: "user"}, false},
		{"admin changes roles", principal("admin", domain.RoleAdmin), domain.ActionUserRoleChange, domain.AccessRequest{TargetLogin: "jdoe", NewPermission: "control"}, true},
		{"user cannot create", principal("jdoe", domain.RoleUser), domain.ActionUserCreate, domain.AccessRequest{TargetLogin: "new"}, false},
		{"admin creates", principal("admin", domain.RoleAdmin), domain.ActionUserCreate, domain.AccessRequest{TargetLogin: "new"}, true},
		{"user lists users", principal("jdoe", domain.RoleUser), domain.ActionUserList, domain.AccessRequest{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ev.Authorize(context.Background(), tt.p, tt.action, tt.req)
			if tt.allowed && err != nil {
				t.Errorf("expected allow, got %v", err)
			}
			if !tt.allowed {
				if err == nil {
					t.Fatal("expected denial")
				}
				if !errors.Is(err, domain.ErrForbidden) {
					t.Errorf("denial should wrap ErrForbidden, got %v", err)
				}
				var d *policy.Denial
				if !errors.As(err, &d) || d.Reason == "" {
					t.Errorf("expected *policy.Denial with a reason, got %v", err)
				}
			}
		})
	}
}

func TestAuthorizeLegacyIdentity(t *testing.T) {
	ev := policy.NewEvaluator(allowOnly("10.0.0.5"), "tcsuser", nil)
	tcs := principal("tcsuser", domain.RoleUser)

	if err := ev.Authorize(context.Background(), tcs, domain.ActionInfo, domain.AccessRequest{RemoteAddr: "10.0.0.5"}); err != nil {
		t.Errorf("allow-listed origin should pass, got %v", err)
	}
	err := ev.Authorize(context.Background(), tcs, domain.ActionInfo, domain.AccessRequest{RemoteAddr: "10.0.0.6"})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("unlisted origin should be forbidden, got %v", err)
	}

	// Other identities never consult the allow list.
	if err := ev.Authorize(context.Background(), principal("jdoe", domain.RoleUser), domain.ActionInfo, domain.AccessRequest{RemoteAddr: "10.0.0.6"}); err != nil {
		t.Errorf("regular user should pass from any origin, got %v", err)
	}
}

func TestAuthorizeLegacyDelegation(t *testing.T) {
	ev := policy.NewEvaluator(allowOnly("10.0.0.5"), "tcsuser", nil)
	tcs := principal("tcsuser", domain.RoleUser)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     domain.AccessRequest
		allowed bool
	}{
		{"grant user", domain.AccessRequest{RemoteAddr: "10.0.0.5", TargetLogin: "jdoe", NewPermission: "user"}, true},
		{"revoke to none", domain.AccessRequest{RemoteAddr: "10.0.0.5", TargetLogin: "jdoe", NewPermission: "none"}, true},
		{"bulk update", domain.AccessRequest{RemoteAddr: "10.0.0.5", TargetLogin: "all", NewPermission: "control"}, true},
		{"never grant admin", domain.AccessRequest{RemoteAddr: "10.0.0.5", TargetLogin: "jdoe", NewPermission: "admin"}, false},
		{"never touch admin", domain.AccessRequest{RemoteAddr: "10.0.0.5", TargetLogin: "admin", NewPermission: "user"}, false},
		{"never touch itself", domain.AccessRequest{RemoteAddr: "10.0.0.5", TargetLogin: "tcsuser", NewPermission: "control"}, false},
		{"unlisted origin", domain.AccessRequest{RemoteAddr: "10.9.9.9", TargetLogin: "jdoe", NewPermission: "user"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ev.Authorize(ctx, tcs, domain.ActionUserRoleChange, tt.req)
			if (err == nil) != tt.allowed {
				t.Errorf("allowed=%v, got err=%v", tt.allowed, err)
			}
		})
	}
}

func TestAuthorizeAllowListFailureDenies(t *testing.T) {
	failing := allowFunc(func(context.Context, string) (bool, error) {
		return false, errors.New("connection refused")
	})
	ev := policy.NewEvaluator(failing, "tcsuser", nil)

	err := ev.Authorize(context.Background(), principal("tcsuser", domain.RoleAdmin), domain.ActionInfo, domain.AccessRequest{RemoteAddr: "10.0.0.5"})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("lookup failure should deny, got %v", err)
	}
}

func TestAuthorizeWithoutLegacyIdentity(t *testing.T) {
	failing := allowFunc(func(context.Context, string) (bool, error) {
		t.Error("allow list should not be consulted")
		return false, nil
	})
	ev := policy.NewEvaluator(failing, "", nil)
	if err := ev.Authorize(context.Background(), principal("tcsuser", domain.RoleUser), domain.ActionInfo, domain.AccessRequest{}); err != nil {
		t.Errorf("unexpected denial: %v", err)
	}
}
