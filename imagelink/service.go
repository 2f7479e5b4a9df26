package imagelink

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/greut/imagelink/raster"
)

// Service is the forward path: a source reference goes in, an encoded image
// comes out of the disk cache or the renderer.
type Service struct {
	Renderer  *Renderer
	Cache     *DiskCache
	Watermark Watermark
}

// NewService wires the renderer and the disk cache from the configuration.
// An empty cache path disables the disk cache.
func NewService(config *Config, backend raster.Backend) *Service {
	s := &Service{
		Renderer:  NewRenderer(config.Images, backend),
		Watermark: config.Watermark,
	}
	s.Renderer.Limits = Limits{
		MaxWidth:  config.MaxWidth,
		MaxHeight: config.MaxHeight,
		MaxArea:   config.MaxArea,
	}
	if config.Cache.Path != "" {
		s.Cache = NewDiskCache(config.Cache.Path, config.Images)
	}
	return s
}

// Request parses the source reference and applies the configured watermark.
func (s *Service) Request(source string) (*Request, error) {
	r, err := NewRequest(source)
	if err != nil {
		return nil, err
	}
	return r.WithWatermark(s.Watermark), nil
}

// Serve returns the transformed image, rendering it on a cache miss. Only
// successful renders are written to the cache.
func (s *Service) Serve(ctx context.Context, r *Request) (*Rendered, error) {
	if s.Cache != nil {
		data, ok, err := s.Cache.Get(r)
		if err != nil {
			log.Warn().Err(err).Str("filename", r.Filename()).Msg("cannot read cache entry")
		} else if ok {
			cacheHits.Inc()
			return &Rendered{
				Buffer:      data,
				ContentType: r.ContentType(),
				ModTime:     s.Cache.ModTime(r),
			}, nil
		}
		cacheMisses.Inc()
	}

	start := time.Now()
	rendered, err := s.Renderer.Render(ctx, r)
	recordRender(time.Since(start).Seconds(), err)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		if err := s.Cache.Put(r, rendered.Buffer); err != nil {
			log.Error().Err(err).Str("filename", r.Filename()).Msg("cannot write cache entry")
		}
	}

	return rendered, nil
}
