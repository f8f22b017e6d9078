package server

import (
	"log/slog"

	"github.com/USA-RedDragon/itinerary-server/internal/config"
	"github.com/USA-RedDragon/itinerary-server/internal/itinerary"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// applyMiddleware installs what every listener shares: panic recovery,
// tracing and the access log.
func applyMiddleware(r *gin.Engine, config *config.Config, otelComponent string) {
	r.Use(gin.Recovery())

	if config.HTTP.Tracing.Enabled {
		r.Use(otelgin.Middleware(otelComponent))
		r.Use(tripSpanAttributes())
	}

	r.Use(sloggin.NewWithConfig(slog.Default(), sloggin.Config{
		WithSpanID:       config.HTTP.Tracing.Enabled,
		WithTraceID:      config.HTTP.Tracing.Enabled,
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
		Filters:          []sloggin.Filter{sloggin.IgnorePath("/health")},
	}))
}

func applyAPIMiddleware(r *gin.Engine, config *config.Config, db *gorm.DB, svc *itinerary.Service) {
	r.TrustedPlatform = "X-Real-IP"
	if err := r.SetTrustedProxies(config.HTTP.TrustedProxies); err != nil {
		slog.Error("Failed to set trusted proxies", "error", err.Error())
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "authorization")
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowCredentials = true
	corsConfig.AllowWildcard = true
	if len(config.HTTP.CORSHosts) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = config.HTTP.CORSHosts
	}
	r.Use(cors.New(corsConfig))

	r.Use(inject(map[string]any{
		"config":    config,
		"db":        db,
		"itinerary": svc,
	}))
}

// inject makes shared dependencies available to handlers through c.MustGet.
func inject(values map[string]any) gin.HandlerFunc {
	return func(c *gin.Context) {
		for k, v := range values {
			c.Set(k, v)
		}
		c.Next()
	}
}

func tripSpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			span.SetAttributes(attribute.String("http.route", c.FullPath()))
			if tripID := c.Param("trip_id"); tripID != "" {
				span.SetAttributes(attribute.String("itinerary.trip_id", tripID))
			}
		}
		c.Next()
	}
}
