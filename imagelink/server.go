package imagelink

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang/groupcache"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	d "github.com/tj/go-debug"
)

var debug = d.Debug("imagelink")

// DefaultGroup names the render group when the configuration does not.
const DefaultGroup = "renders"

// MakeRouter construct the basic router (no middlewares)
func MakeRouter() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/_link", LinkHandler)
	router.HandleFunc("/_info/{path:.*}", InfoHandler)
	router.Handle("/metrics", promhttp.Handler())
	router.HandleFunc("/{path:.*}", ImageHandler)

	return router
}

// SetGroupCache shares the rendered images between the peers. Keys carry
// the source modification time so a changed source is rendered again.
func SetGroupCache(router http.Handler, service *Service, name string, size int64) http.Handler {
	if name == "" {
		name = DefaultGroup
	}

	renders := groupcache.NewGroup(name, size, groupcache.GetterFunc(
		func(ctx context.Context, key string, dest groupcache.Sink) error {
			source, _, err := splitRenderKey(key)
			if err != nil {
				return err
			}

			r, err := service.Request(source)
			if err != nil {
				return err
			}

			rendered, err := service.Serve(ctx, r)
			if err != nil {
				return err
			}

			debug("Caching %s (%v)", key, rendered.ModTime)
			return dest.SetBytes(rendered.Buffer)
		},
	))

	return WithRenderGroup(router, renders)
}

// renderKey is the group key of r whose source changed at modTime.
func renderKey(r *Request, modTime int64) string {
	return fmt.Sprintf("%s@%d", r.Link(), modTime)
}

func splitRenderKey(key string) (string, int64, error) {
	i := strings.LastIndex(key, "@")
	if i < 0 {
		return "", 0, fmt.Errorf("%w: render key %#v", ErrMissingSource, key)
	}

	modTime, err := strconv.ParseInt(key[i+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: render key %#v", ErrMissingSource, key)
	}
	return key[:i], modTime, nil
}
