package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"code.cloudfoundry.org/bytefmt"
	"github.com/BurntSushi/toml"
	"github.com/golang/groupcache"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/greut/imagelink/imagelink"
	"github.com/greut/imagelink/raster"
)

func main() {
	// Configuration
	var configFile = flag.String("config", "config.toml", "Define the configuration file to use.")
	flag.Parse()

	if flag.NArg() > 0 {
		*configFile = flag.Arg(0)
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var config imagelink.Config
	log.Info().Str("file", *configFile).Msg("reading configuration")
	if _, err := toml.DecodeFile(*configFile, &config); err != nil {
		log.Fatal().Err(err).Msg("could not read configuration")
	}

	level, err := zerolog.ParseLevel(config.Log.Level)
	if err != nil || config.Log.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	backend, err := raster.New(config.Backend)
	if err != nil {
		log.Fatal().Err(err).Msg("could not load the raster backend")
	}

	service := imagelink.NewService(&config, backend)
	handler := imagelink.WithService(imagelink.WithConfig(imagelink.MakeRouter(), &config), service)

	if config.Cache.Renders != "" {
		size, err := bytefmt.ToBytes(config.Cache.Renders)
		if err != nil {
			log.Fatal().Err(err).Str("renders", config.Cache.Renders).Msg("invalid render cache size")
		}
		config.Cache.RendersSize = int64(size)

		// the pool registers itself on the default mux
		if len(config.Peers) > 0 {
			pool := groupcache.NewHTTPPool(config.Peers[0])
			pool.Set(config.Peers...)
		}

		handler = imagelink.SetGroupCache(handler, service, config.Cache.Group, config.Cache.RendersSize)
	}

	http.Handle("/", handler)

	// Serving
	listen := fmt.Sprintf("%v:%v", config.Host, config.Port)

	log.Info().Str("listen", listen).Str("backend", config.Backend).Msg("server running")
	if err := http.ListenAndServe(listen, nil); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
