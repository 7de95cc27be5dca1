package main

import (
	"flag"
	"net/http"

	"github.com/openbidder/bidserver/config"
	"github.com/openbidder/bidserver/router"
	"github.com/openbidder/bidserver/server"

	"github.com/golang/glog"
	"github.com/spf13/viper"
)

// Rev holds binary revision string
// Set manually at build time using:
//    go build -ldflags "-X main.Rev=`git rev-parse --short HEAD`"
var Rev string

// Version holds the release the binary was built from, set the same way as Rev.
var Version string

func main() {
	flag.Parse() // required for glog flags and testing package flags

	cfg, err := loadConfig()
	if err != nil {
		glog.Exitf("Configuration could not be loaded or did not pass validation: %v", err)
	}

	err = serve(Version, Rev, cfg)
	if err != nil {
		glog.Exitf("bidserver failed: %v", err)
	}
}

const configFileName = "bidserver"

func loadConfig() (*config.Configuration, error) {
	v := viper.New()
	config.SetupViper(v, configFileName)
	return config.New(v)
}

func serve(version, revision string, cfg *config.Configuration) error {
	r, err := router.New(cfg)
	if err != nil {
		return err
	}
	defer r.Shutdown()

	var handler http.Handler = r
	if cfg.CORS.Enabled {
		handler = router.SupportCORS(handler)
	}

	return server.Listen(cfg, router.NoCache{Handler: handler}, router.NewAdminRouter(cfg, version, revision, r.MetricsEngine), r.MetricsEngine)
}
