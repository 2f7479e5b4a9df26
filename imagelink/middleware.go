package imagelink

import (
	"context"
	"net/http"

	"github.com/golang/groupcache"
)

// ContextKey is the cache key to use.
type ContextKey string

// WithRenderGroup sets the shared cache of the rendered images.
func WithRenderGroup(h http.Handler, group *groupcache.Group) http.Handler {
	return withValue(h, ContextKey("renders"), group)
}

// WithConfig sets the imagelink server configuration.
func WithConfig(h http.Handler, config *Config) http.Handler {
	return withValue(h, ContextKey("config"), config)
}

// WithService sets the forward path.
func WithService(h http.Handler, service *Service) http.Handler {
	return withValue(h, ContextKey("service"), service)
}

func withValue(h http.Handler, key ContextKey, value interface{}) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), key, value)
		r = r.WithContext(ctx)
		h.ServeHTTP(w, r)
	})
}
