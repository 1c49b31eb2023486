package middleware

import "strings"

const usersPrefix = "/users/"

// routeLabel collapses per-user paths into their route so metric label
// cardinality stays bounded and reset tokens never become label values.
func routeLabel(path string) string {
	rest, ok := strings.CutPrefix(path, usersPrefix)
	if !ok || rest == "" {
		return path
	}
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1:
		return "/users/{login}"
	case len(parts) == 2 && parts[1] == "change_password":
		return "/users/{login}/change_password"
	case len(parts) == 2:
		return "/users/{login}/{token}"
	default:
		return "/users/other"
	}
}

// redactPath replaces the reset token segment of a path for logging.
func redactPath(path string) string {
	rest, ok := strings.CutPrefix(path, usersPrefix)
	if !ok {
		return path
	}
	login, token, found := strings.Cut(rest, "/")
	if !found || token == "" || token == "change_password" {
		return path
	}
	return usersPrefix + login + "/[redacted]"
}
