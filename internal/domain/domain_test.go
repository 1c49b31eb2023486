package domain_test

import (
	"encoding/xml"
	"errors"
	"strings"
	"testing"

	"observe/internal/domain"
)

func TestRoleFromPermission(t *testing.T) {
	tests := []struct {
		permission string
		want       domain.Role
	}{
		{"admin", domain.RoleAdmin},
		{"control", domain.RoleControl},
		{"user", domain.RoleUser},
		{"none", domain.RoleNone},
		{"", domain.RoleNone},
		{"ADMIN", domain.RoleNone},
		{"observer", domain.RoleNone},
	}
	for _, tt := range tests {
		t.Run(tt.permission, func(t *testing.T) {
			if got := domain.RoleFromPermission(tt.permission); got != tt.want {
				t.Errorf("RoleFromPermission(%q) = %q, want %q", tt.permission, got, tt.want)
			}
		})
	}
}

func TestPrincipalHasRole(t *testing.T) {
	p := domain.Principal{ID: "jdoe", Roles: []domain.Role{domain.RoleUser, domain.RoleControl}}

	if !p.HasRole(domain.RoleUser) {
		t.Error("expected role user")
	}
	if p.HasRole(domain.RoleAdmin) {
		t.Error("expected principal to NOT have role admin")
	}
	if !p.HasAnyRole(domain.RoleAdmin, domain.RoleControl) {
		t.Error("expected admin or control to match")
	}
	if p.HasAnyRole() {
		t.Error("empty role list should never match")
	}
}

func TestPrincipalDisabled(t *testing.T) {
	tests := []struct {
		name  string
		roles []domain.Role
		want  bool
	}{
		{"no roles", nil, true},
		{"none", []domain.Role{domain.RoleNone}, true},
		{"none wins over user", []domain.Role{domain.RoleUser, domain.RoleNone}, true},
		{"user", []domain.Role{domain.RoleUser}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := domain.Principal{ID: "x", Roles: tt.roles}
			if got := p.Disabled(); got != tt.want {
				t.Errorf("Disabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserRole(t *testing.T) {
	u := domain.User{Login: "jdoe", Permission: "control"}
	if u.Role() != domain.RoleControl {
		t.Errorf("expected control, got %q", u.Role())
	}
}

func TestErrorRefinements(t *testing.T) {
	if !errors.Is(domain.ErrPasswordMismatch, domain.ErrBadRequest) {
		t.Error("ErrPasswordMismatch should be a bad request")
	}
	if !errors.Is(domain.ErrInvalidToken, domain.ErrBadRequest) {
		t.Error("ErrInvalidToken should be a bad request")
	}
	if errors.Is(domain.ErrInvalidCredentials, domain.ErrUnauthorized) {
		t.Error("ErrInvalidCredentials should not be ErrUnauthorized (they are separate sentinels)")
	}
}

func TestErrorResponseXML(t *testing.T) {
	out, err := xml.Marshal(domain.ErrorResponse{Code: "forbidden", Message: "no"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := "<error><code>forbidden</code><message>no</message></error>"
	if string(out) != want {
		t.Errorf("got %s, want %s", out, want)
	}
}

func TestInstrumentEndpointString(t *testing.T) {
	e := domain.InstrumentEndpoint{Host: "tcs.local", Port: 9999}
	if e.String() != "tcs.local:9999" {
		t.Errorf("unexpected endpoint string %q", e.String())
	}
}

func TestExpectMap(t *testing.T) {
	m, err := domain.ExpectMap(domain.Map{"ut": "12:00"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["ut"] != "12:00" {
		t.Errorf("unexpected map %v", m)
	}

	if _, err := domain.ExpectMap(domain.Scalar("OK")); !errors.Is(err, domain.ErrInternal) {
		t.Errorf("scalar where map expected: want ErrInternal, got %v", err)
	}

	fault := domain.Fault{Reason: domain.ErrServiceUnavailable}
	if _, err := domain.ExpectMap(fault); !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Errorf("fault: want ErrServiceUnavailable, got %v", err)
	}
}

func TestExpectScalar(t *testing.T) {
	s, err := domain.ExpectScalar(domain.Scalar("OK"))
	if err != nil || s != "OK" {
		t.Fatalf("got (%q, %v)", s, err)
	}

	_, err = domain.ExpectScalar(domain.Map{})
	if !errors.Is(err, domain.ErrInternal) {
		t.Errorf("map where scalar expected: want ErrInternal, got %v", err)
	}
	if !strings.Contains(err.Error(), "expected string result") {
		t.Errorf("unexpected message %q", err.Error())
	}

	if _, err := domain.ExpectScalar(domain.Fault{}); !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Errorf("empty fault should default to ErrServiceUnavailable, got %v", err)
	}
}

func TestActionString(t *testing.T) {
	if domain.ActionExecute.String() != "execute" {
		t.Errorf("expected 'execute', got %q", domain.ActionExecute.String())
	}
	if domain.Action(99).String() != "unknown" {
		t.Errorf("expected 'unknown', got %q", domain.Action(99).String())
	}
}
