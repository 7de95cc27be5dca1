package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
	"github.com/openbidder/bidserver/adapters"
	"github.com/openbidder/bidserver/api"
	"github.com/openbidder/bidserver/config"
	"github.com/openbidder/bidserver/endpoints"
	"github.com/openbidder/bidserver/exchange"
	"github.com/openbidder/bidserver/interceptors"
	metricsConf "github.com/openbidder/bidserver/metrics/config"
	"github.com/openbidder/bidserver/storage"
	storageConf "github.com/openbidder/bidserver/storage/config"
	"github.com/openbidder/bidserver/transport"
	"github.com/rs/cors"
)

// Phase routes.
const (
	BidPath        = "/bid"
	ImpressionPath = "/impression"
	ClickPath      = "/click"
	MatchPath      = "/match"
)

type Router struct {
	*httprouter.Router
	MetricsEngine *metricsConf.DetailedMetricsEngine
	Adapter       adapters.Adapter
	Store         storage.Store
	Shutdown      func()

	// allowed holds the methods of every registered path.
	allowed map[string][]string
}

// New builds the collaborators named in cfg and registers the receivers of every phase the exchange supports.
func New(cfg *config.Configuration) (r *Router, err error) {
	r = &Router{
		Router:  httprouter.New(),
		allowed: make(map[string][]string),
	}
	clk := clock.New()

	r.MetricsEngine = metricsConf.NewMetricsEngine(cfg)

	r.Adapter, err = exchange.BuildAdapter(cfg.Exchange)
	if err != nil {
		return nil, fmt.Errorf("failed to build the exchange adapter: %v", err)
	}
	info, err := adapters.ParseExchangeInfo(cfg.Exchange.InfoDir, r.Adapter.Exchange())
	if err != nil {
		return nil, err
	}

	r.Store, err = storageConf.NewStore(cfg.Storage, r.MetricsEngine, clk)
	if err != nil {
		return nil, fmt.Errorf("failed to build the store: %v", err)
	}
	r.Shutdown = func() {
		if err := r.Store.Close(); err != nil {
			glog.Errorf("Failed to close the store: %v", err)
		}
	}

	controllers, err := interceptors.NewRepository().Build(cfg.Interceptors, interceptors.Deps{
		Store:   r.Store,
		Metrics: r.MetricsEngine,
		Clock:   clk,
	})
	if err != nil {
		r.Shutdown()
		return nil, err
	}

	r.register(cfg, info, endpoints.Dependencies{
		Adapter:     r.Adapter,
		Controllers: controllers,
		Metrics:     r.MetricsEngine,
		Clock:       clk,
	})
	return r, nil
}

func (r *Router) register(cfg *config.Configuration, info adapters.ExchangeInfo, deps endpoints.Dependencies) {
	routes := []struct {
		phase    api.Phase
		path     string
		method   string
		receiver transport.Receiver
	}{
		{api.PhaseBid, BidPath, http.MethodPost, endpoints.NewBidReceiver(deps)},
		{api.PhaseImpression, ImpressionPath, http.MethodGet, endpoints.NewImpressionReceiver(deps)},
		{api.PhaseClick, ClickPath, http.MethodGet, endpoints.NewClickReceiver(deps)},
		{api.PhaseMatch, MatchPath, http.MethodGet, endpoints.NewMatchReceiver(deps)},
	}

	timeout := cfg.RequestTimeout()
	for _, route := range routes {
		if !info.Supports(route.phase) {
			glog.Infof("Exchange %s does not send %s requests. Not serving %s", deps.Adapter.Exchange(), route.phase, route.path)
			continue
		}
		allowed := []string{route.method, http.MethodOptions}
		r.allowed[route.path] = allowed
		r.Handle(route.method, route.path, NewHandle(route.receiver, timeout, cfg.MaxRequestSize, allowed))
		r.Handle(http.MethodOptions, route.path, NewHandle(transport.OptionsReceiver, timeout, transport.IgnoreBody, allowed))
	}

	r.NotFound = r.statusHandler(transport.StatusReceiver(http.StatusNotFound))
	r.MethodNotAllowed = r.statusHandler(transport.StatusReceiver(http.StatusMethodNotAllowed))
}

// statusHandler answers with receiver outside of any route. The Allow header computed by httprouter is
// replaced with the methods registered for the path.
func (r *Router) statusHandler(receiver transport.Receiver) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Del("Allow")
		handle := NewHandle(receiver, 0, transport.IgnoreBody, r.allowed[req.URL.Path])
		handle(w, req, nil)
	})
}

// AllowedMethods returns the methods registered for path, as answered to OPTIONS requests.
func (r *Router) AllowedMethods(path string) string {
	return strings.Join(r.allowed[path], " ")
}

// NewAdminRouter serves health checks, the build version and, when go-metrics is enabled, a JSON
// snapshot of the registry.
func NewAdminRouter(cfg *config.Configuration, version, revision string, me *metricsConf.DetailedMetricsEngine) *httprouter.Router {
	admin := httprouter.New()
	admin.GET("/status", endpoints.NewStatusEndpoint(cfg.StatusResponse))
	admin.GET("/version", endpoints.NewVersionEndpoint(version, revision))
	if me != nil {
		if registry := me.GoMetricsRegistry(); registry != nil {
			admin.GET("/metrics", endpoints.NewMetricsEndpoint(registry))
		}
	}
	return admin
}

// SupportCORS allows cross-origin requests from any origin, with credentials.
//
// The origin is reflected rather than answered with "*", which browsers refuse alongside credentials.
func SupportCORS(handler http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowCredentials: true,
		AllowOriginFunc: func(string) bool {
			return true
		},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept"}})
	return c.Handler(handler)
}
