package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/USA-RedDragon/itinerary-server/internal/config"
	"github.com/USA-RedDragon/itinerary-server/internal/itinerary"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	defTimeout      = 120 * time.Second
	shutdownTimeout = 240 * time.Second
)

type listener struct {
	name    string
	network string
	server  *http.Server
}

// Server owns the API listeners and, when enabled, the metrics listeners.
// Each is bound on both IPv4 and IPv6.
type Server struct {
	listeners []listener
	stopped   atomic.Bool
}

// cleanPathHandler drops trailing slashes before routing so /v1/trips/ and
// /v1/trips reach the same handler without a redirect.
type cleanPathHandler struct {
	engine *gin.Engine
}

func (h cleanPathHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if len(req.URL.Path) > 1 && strings.HasSuffix(req.URL.Path, "/") {
		req.URL.Path = path.Clean(req.URL.Path)
	}
	h.engine.ServeHTTP(w, req)
}

// NewRouter builds the API engine without binding any listener.
func NewRouter(config *config.Config, db *gorm.DB, svc *itinerary.Service) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if config.HTTP.PProf.Enabled {
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	if config.HTTP.PProf.Enabled {
		pprof.Register(r)
	}

	applyMiddleware(r, config, "api")
	applyAPIMiddleware(r, config, db, svc)
	applyRoutes(r, config)
	return r
}

func newMetricsRouter(config *config.Config) *gin.Engine {
	r := gin.New()
	applyMiddleware(r, config, "metrics")
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func dualStack(name, ipv4Host, ipv6Host string, port uint16, handler http.Handler) []listener {
	newServer := func(addr string) *http.Server {
		return &http.Server{
			Addr:              addr,
			ReadHeaderTimeout: defTimeout,
			WriteTimeout:      defTimeout,
			Handler:           handler,
		}
	}
	return []listener{
		{name: name, network: "tcp4", server: newServer(fmt.Sprintf("%s:%d", ipv4Host, port))},
		{name: name, network: "tcp6", server: newServer(fmt.Sprintf("[%s]:%d", ipv6Host, port))},
	}
}

func NewServer(config *config.Config, db *gorm.DB, svc *itinerary.Service) *Server {
	api := cleanPathHandler{engine: NewRouter(config, db, svc)}
	s := &Server{
		listeners: dualStack("api", config.HTTP.IPV4Host, config.HTTP.IPV6Host, config.HTTP.Port, api),
	}
	if config.HTTP.Metrics.Enabled {
		metrics := config.HTTP.Metrics
		s.listeners = append(s.listeners, dualStack("metrics", metrics.IPV4Host, metrics.IPV6Host, metrics.Port, newMetricsRouter(config))...)
	}
	return s
}

// Start binds every listener and serves in the background. A bind failure
// is returned before any request is served on the remaining listeners.
func (s *Server) Start() error {
	bound := make([]net.Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ln, err := net.Listen(l.network, l.server.Addr)
		if err != nil {
			for _, b := range bound {
				_ = b.Close()
			}
			return fmt.Errorf("failed to listen on %s (%s): %w", l.server.Addr, l.name, err)
		}
		bound = append(bound, ln)
	}

	errGrp := errgroup.Group{}
	for i, l := range s.listeners {
		ln := bound[i]
		errGrp.Go(func() error {
			if err := l.server.Serve(ln); err != nil && !s.stopped.Load() {
				slog.Error("HTTP server error", "listener", l.name, "network", l.network, "error", err.Error())
			}
			return nil
		})
		slog.Info("HTTP listener started", "listener", l.name, "address", ln.Addr().String())
	}

	go func() {
		_ = errGrp.Wait()
		slog.Info("HTTP listeners closed")
	}()
	return nil
}

func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.stopped.Store(true)

	errGrp := errgroup.Group{}
	for _, l := range s.listeners {
		errGrp.Go(func() error {
			return l.server.Shutdown(ctx)
		})
	}
	return errGrp.Wait()
}
