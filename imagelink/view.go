package imagelink

import (
	"bytes"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/golang/groupcache"
	"github.com/gorilla/mux"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"
)

var errMissingService = errors.New("no service in the request context")

// the query parameters of the link endpoint mapped onto Options.
var linkParameters = []string{
	optionWidth,
	optionHeight,
	optionQuality,
	optionRotation,
	optionStyle,
	optionAlign,
}

// ImageHandler responds with the transformed image.
func ImageHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	source := vars["path"]

	ctx := r.Context()
	config, _ := ctx.Value(ContextKey("config")).(*Config)
	service, _ := ctx.Value(ContextKey("service")).(*Service)
	renders, _ := ctx.Value(ContextKey("renders")).(*groupcache.Group)

	if service == nil {
		writeError(w, r, errMissingService)
		return
	}

	var maxAge int64
	if config != nil {
		maxAge = config.Cache.HTTP
	}

	req, err := service.Request(source)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var rendered *Rendered
	if renders != nil {
		rendered, err = serveFromGroup(r, service, renders, req)
	} else {
		rendered, err = service.Serve(ctx, req)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	header := w.Header()
	header.Set("Content-Type", rendered.ContentType)
	header.Set("ETag", getETag(fmt.Sprintf("%s@%d", req.Link(), rendered.ModTime.UnixNano())))
	header.Set("Cache-Control", fmt.Sprintf("max-age=%v, public", maxAge))
	http.ServeContent(w, r, req.Filename(), rendered.ModTime, bytes.NewReader(rendered.Buffer))
}

func serveFromGroup(r *http.Request, service *Service, renders *groupcache.Group, req *Request) (*Rendered, error) {
	modTime, err := service.Renderer.ModTime(req)
	if err != nil {
		return nil, err
	}

	var data []byte
	key := renderKey(req, modTime.UnixNano())
	if err := renders.Get(r.Context(), key, groupcache.AllocatingByteSliceSink(&data)); err != nil {
		return nil, err
	}

	return &Rendered{
		Buffer:      data,
		ContentType: req.ContentType(),
		ModTime:     modTime,
	}, nil
}

// LinkHandler responds with the link to a transformed image.
func LinkHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	input := make(map[string]interface{})
	for _, key := range linkParameters {
		if value := query.Get(key); value != "" {
			input[key] = value
		}
	}

	var o Options
	if err := mapstructure.WeakDecode(input, &o); err != nil {
		writeError(w, r, HTTPError{http.StatusBadRequest, err.Error()})
		return
	}

	link, err := CreateLink(query.Get("src"), o)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, &LinkResponse{Link: link})
}

// InfoHandler responds with the source image dimensions.
func InfoHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	source := vars["path"]

	service, _ := r.Context().Value(ContextKey("service")).(*Service)
	if service == nil {
		writeError(w, r, errMissingService)
		return
	}

	req, err := NewRequest(source)
	if err != nil {
		writeError(w, r, err)
		return
	}

	size, _, err := service.Renderer.Dimensions(req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, &Info{
		Source: req.Source(),
		Width:  size.Width,
		Height: size.Height,
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, p interface{}) {
	buffer, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		writeError(w, r, err)
		return
	}

	header := w.Header()
	header.Set("Content-Type", "application/json")
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
	w.Write(buffer)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := NewHTTPError(err)

	event := log.Debug()
	if e.StatusCode >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).Str("path", r.URL.Path).Int("status", e.StatusCode).Msg("request failed")

	http.Error(w, e.Error(), e.StatusCode)
}

func getETag(str string) string {
	return fmt.Sprintf("\"%x\"", sha1.Sum([]byte(str)))
}
