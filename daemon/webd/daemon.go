package webd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/gorilla/mux"
	"github.com/olahol/melody"
	"github.com/rotblauer/catmotion/app"
	"github.com/rotblauer/catmotion/geo/roi"
	"github.com/rotblauer/catmotion/metrics/influxdb"
	"github.com/rotblauer/catmotion/params"
	"github.com/rotblauer/catmotion/state"
)

// WebDaemon takes location samples over HTTP and serves the activities estimated from them.
// Countdowns follow the wall clock.
type WebDaemon struct {
	Config         *params.WebDaemonConfig
	logger         *slog.Logger
	started        time.Time
	app            *app.App
	store          *state.Store
	influx         *influxdb.Writer
	melodyInstance *melody.Melody
	feedSubs       *event.SubscriptionScope
}

func NewWebDaemon(config *params.WebDaemonConfig) (*WebDaemon, error) {
	if config == nil {
		config = params.DefaultWebDaemonConfig()
	}
	store, err := state.Open(filepath.Join(config.DataDir, params.StateDBName), false)
	if err != nil {
		return nil, err
	}
	s := &WebDaemon{
		Config:  config,
		logger:  slog.With("d", "web"),
		started: time.Now(),
		store:   store,
	}
	appConfig := app.Config{
		Estimator: config.Estimator,
		Store:     store,
	}
	if config.Influx != nil {
		s.influx = influxdb.NewWriter(config.Influx)
		appConfig.Influx = s.influx
	}
	s.app, err = app.New(appConfig)
	if err != nil {
		_ = s.closeBackends()
		return nil, err
	}
	if config.RegionsPath != "" {
		stations, airports, err := roi.LoadGeoJSONFile(config.RegionsPath)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("load regions: %w", err)
		}
		s.app.SetRegions(stations, airports)
	}
	return s, nil
}

// Run serves until ctx is done, then shuts the server down and flushes every cat.
func (s *WebDaemon) Run(ctx context.Context) error {
	network := s.Config.Network
	if network == "" {
		network = "tcp"
	}
	listener, err := net.Listen(network, s.Config.Address)
	if err != nil {
		return err
	}
	server := &http.Server{
		Handler:           s.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting web daemon", "network", network, "address", listener.Addr().String())

	errs := make(chan error, 1)
	go func() {
		errs <- server.Serve(listener)
	}()

	select {
	case err = <-errs:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err = server.Shutdown(shutdownCtx)
		<-errs
	}
	if closeErr := s.Close(); err == nil {
		err = closeErr
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close flushes every cat, then closes the websocket hub and the databases.
func (s *WebDaemon) Close() error {
	s.app.Close()
	if s.feedSubs != nil {
		s.feedSubs.Close()
	}
	if s.melodyInstance != nil && !s.melodyInstance.IsClosed() {
		_ = s.melodyInstance.Close()
	}
	return s.closeBackends()
}

func (s *WebDaemon) closeBackends() error {
	if s.influx != nil {
		s.influx.Close()
	}
	return s.store.Close()
}

func (s *WebDaemon) NewRouter() *mux.Router {
	s.initMelody()

	router := mux.NewRouter().StrictSlash(false)
	router.Use(loggingMiddleware)

	router.Path("/socket").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = s.melodyInstance.HandleRequest(w, r)
	})

	apiRoutes := router.NewRoute().Subrouter()
	apiRoutes.Use(permissiveCorsMiddleware)

	// /ping is a simple server healthcheck endpoint
	apiRoutes.Path("/ping").HandlerFunc(pingPong)

	apiJSONRoutes := apiRoutes.NewRoute().Subrouter()
	apiJSONRoutes.Use(contentTypeMiddlewareFunc("application/json"))

	apiJSONRoutes.Path("/status").HandlerFunc(s.statusReport).Methods(http.MethodGet)
	apiJSONRoutes.Path("/cats").HandlerFunc(s.handleCats).Methods(http.MethodGet)
	apiJSONRoutes.Path("/regions").HandlerFunc(s.handleGetRegions).Methods(http.MethodGet)
	apiJSONRoutes.Path("/{cat}/activities").HandlerFunc(s.handleActivities).Methods(http.MethodGet)
	apiJSONRoutes.Path("/{cat}/scores").HandlerFunc(s.handleScores).Methods(http.MethodGet)

	authenticatedAPIRoutes := apiJSONRoutes.NewRoute().Subrouter()
	authenticatedAPIRoutes.Use(tokenAuthenticationMiddleware)

	authenticatedAPIRoutes.Path("/locations").HandlerFunc(s.handleLocations).Methods(http.MethodPost)
	authenticatedAPIRoutes.Path("/regions").HandlerFunc(s.handlePutRegions).Methods(http.MethodPut)

	return router
}
