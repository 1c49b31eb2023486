package middleware

import "testing"

func TestRouteLabel(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/telescope", "/telescope"},
		{"/users", "/users"},
		{"/users/", "/users/"},
		{"/users/jdoe", "/users/{login}"},
		{"/users/jdoe/change_password", "/users/{login}/change_password"},
		{"/users/jdoe/6f1c2a7e-93b4-4d2a-9c11-0e5d8f7a3b21", "/users/{login}/{token}"},
		{"/users/jdoe/a/b", "/users/other"},
	}
	for _, tt := range tests {
		if got := routeLabel(tt.path); got != tt.want {
			t.Errorf("routeLabel(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestRedactPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/ccd700", "/ccd700"},
		{"/users/jdoe", "/users/jdoe"},
		{"/users/jdoe/", "/users/jdoe/"},
		{"/users/jdoe/change_password", "/users/jdoe/change_password"},
		{"/users/jdoe/secret-token", "/users/jdoe/[redacted]"},
	}
	for _, tt := range tests {
		if got := redactPath(tt.path); got != tt.want {
			t.Errorf("redactPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
