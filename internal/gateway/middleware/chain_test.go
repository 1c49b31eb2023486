package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"observe/internal/gateway/middleware"
)

func tracer(name string, trace *[]string) middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*trace = append(*trace, name+">")
			next.ServeHTTP(w, r)
			*trace = append(*trace, "<"+name)
		})
	}
}

func TestChain(t *testing.T) {
	tests := []struct {
		name  string
		build func(trace *[]string) []middleware.Middleware
		want  []string
	}{
		{
			name: "first wraps outermost",
			build: func(trace *[]string) []middleware.Middleware {
				return []middleware.Middleware{tracer("requestid", trace), tracer("auth", trace)}
			},
			want: []string{"requestid>", "auth>", "handler", "<auth", "<requestid"},
		},
		{
			name:  "no middleware",
			build: func(*[]string) []middleware.Middleware { return nil },
			want:  []string{"handler"},
		},
		{
			name: "disabled layer is skipped",
			build: func(trace *[]string) []middleware.Middleware {
				return []middleware.Middleware{
					tracer("logging", trace),
					middleware.When(false, tracer("ratelimit", trace)),
					middleware.When(true, tracer("auth", trace)),
				}
			},
			want: []string{"logging>", "auth>", "handler", "<auth", "<logging"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var trace []string
			h := middleware.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				trace = append(trace, "handler")
			}), tt.build(&trace)...)

			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/telescope", nil))

			if !slices.Equal(trace, tt.want) {
				t.Errorf("trace = %v, want %v", trace, tt.want)
			}
		})
	}
}
