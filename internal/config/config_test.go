package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/USA-RedDragon/itinerary-server/cmd"
	"github.com/USA-RedDragon/itinerary-server/internal/config"
)

//nolint:golint,gochecknoglobals
var requiredFlags = []string{
	"--jwt.secret", "changeme",
}

func TestExampleConfig(t *testing.T) {
	t.Parallel()
	cmd := cmd.NewCommand("testing", "deadbeef")
	cmd.SetContext(context.Background())
	err := cmd.ParseFlags([]string{"--config", "../../config.example.yaml"})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	testConfig, err := config.LoadConfig(cmd)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := testConfig.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if testConfig.Geocoding.Timeout != 10*time.Second {
		t.Errorf("unexpected geocoding timeout: %s", testConfig.Geocoding.Timeout)
	}
	if testConfig.HTTP.Port != 3000 {
		t.Errorf("unexpected HTTP port: %d", testConfig.HTTP.Port)
	}
}

func TestDefaults(t *testing.T) {
	t.Parallel()
	cmd := cmd.NewCommand("testing", "deadbeef")
	cmd.SetContext(context.Background())
	err := cmd.ParseFlags(append([]string{"--config", ""}, requiredFlags...))
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	testConfig, err := config.LoadConfig(cmd)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := testConfig.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if testConfig.Geocoding.Provider != config.GeocodingProviderNominatim {
		t.Errorf("unexpected geocoding provider: %s", testConfig.Geocoding.Provider)
	}
	if testConfig.Geocoding.BaseURL != config.DefaultGeocodingNominatimURL {
		t.Errorf("unexpected geocoding base URL: %s", testConfig.Geocoding.BaseURL)
	}
	if testConfig.Persistence.Database.Driver != config.DatabaseDriverSQLite {
		t.Errorf("unexpected database driver: %s", testConfig.Persistence.Database.Driver)
	}
	if testConfig.Persistence.Archive.Driver != config.ArchiveDriverFilesystem {
		t.Errorf("unexpected archive driver: %s", testConfig.Persistence.Archive.Driver)
	}
}

func TestMissingOTLPEndpoint(t *testing.T) {
	t.Parallel()

	baseCmd := cmd.NewCommand("testing", "deadbeef")
	baseCmd.SetContext(context.Background())
	err := baseCmd.ParseFlags(append([]string{"--http.tracing.enabled", "true"}, requiredFlags...))
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	testConfig, err := config.LoadConfig(baseCmd)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := testConfig.Validate(); !errors.Is(err, config.ErrOTLPEndpointRequired) {
		t.Errorf("unexpected error: %v", err)
	}

	baseCmd = cmd.NewCommand("testing", "deadbeef")
	baseCmd.SetContext(context.Background())
	err = baseCmd.ParseFlags(append([]string{"--http.tracing.enabled", "true", "--http.tracing.otlp_endpoint", "dummy"}, requiredFlags...))
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	testConfig, err = config.LoadConfig(baseCmd)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := testConfig.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMissingJWTSecret(t *testing.T) {
	t.Parallel()
	cmd := cmd.NewCommand("testing", "deadbeef")
	cmd.SetContext(context.Background())
	err := cmd.ParseFlags([]string{"--config", ""})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	testConfig, err := config.LoadConfig(cmd)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := testConfig.Validate(); !errors.Is(err, config.ErrJWTSecretRequired) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMapboxGeocoder(t *testing.T) {
	t.Parallel()
	baseCmd := cmd.NewCommand("testing", "deadbeef")
	baseCmd.SetContext(context.Background())
	err := baseCmd.ParseFlags(append([]string{"--geocoding.provider", "Mapbox"}, requiredFlags...))
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	testConfig, err := config.LoadConfig(baseCmd)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := testConfig.Validate(); !errors.Is(err, config.ErrMapboxSecretTokenRequired) {
		t.Errorf("unexpected error: %v", err)
	}
	if testConfig.Geocoding.BaseURL != config.DefaultGeocodingMapboxURL {
		t.Errorf("unexpected geocoding base URL: %s", testConfig.Geocoding.BaseURL)
	}

	baseCmd = cmd.NewCommand("testing", "deadbeef")
	baseCmd.SetContext(context.Background())
	err = baseCmd.ParseFlags(append([]string{"--geocoding.provider", "mapbox", "--geocoding.mapbox.secret_token", "dummy"}, requiredFlags...))
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	testConfig, err = config.LoadConfig(baseCmd)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := testConfig.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestUnknownDrivers(t *testing.T) {
	t.Parallel()
	baseCmd := cmd.NewCommand("testing", "deadbeef")
	baseCmd.SetContext(context.Background())
	err := baseCmd.ParseFlags(append([]string{"--geocoding.provider", "carrier-pigeon"}, requiredFlags...))
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	testConfig, err := config.LoadConfig(baseCmd)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := testConfig.Validate(); !errors.Is(err, config.ErrUnknownGeocodingProvider) {
		t.Errorf("unexpected error: %v", err)
	}

	baseCmd = cmd.NewCommand("testing", "deadbeef")
	baseCmd.SetContext(context.Background())
	err = baseCmd.ParseFlags(append([]string{"--persistence.archive.driver", "s3"}, requiredFlags...))
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	testConfig, err = config.LoadConfig(baseCmd)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := testConfig.Validate(); !errors.Is(err, config.ErrS3BucketRequired) {
		t.Errorf("unexpected error: %v", err)
	}

	baseCmd = cmd.NewCommand("testing", "deadbeef")
	baseCmd.SetContext(context.Background())
	err = baseCmd.ParseFlags(append([]string{"--persistence.database.driver", "postgres"}, requiredFlags...))
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	testConfig, err = config.LoadConfig(baseCmd)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := testConfig.Validate(); !errors.Is(err, config.ErrDBHostRequired) {
		t.Errorf("unexpected error: %v", err)
	}
}

// Parallel tests are not allowed with t.Setenv
//
//nolint:golint,paralleltest
func TestEnvConfig(t *testing.T) {
	cmd := cmd.NewCommand("testing", "deadbeef")
	cmd.SetContext(context.Background())
	if err := cmd.ParseFlags([]string{"--config", ""}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	t.Setenv("HTTP__PORT", "8087")
	t.Setenv("HTTP__METRICS__PORT", "8088")
	t.Setenv("HTTP__METRICS__IPV4_HOST", "0.0.0.0")
	t.Setenv("HTTP__METRICS__IPV6_HOST", "::0")
	t.Setenv("HTTP__IPV4_HOST", "127.0.0.1")
	t.Setenv("HTTP__IPV6_HOST", "::1")
	t.Setenv("HTTP__PPROF__ENABLED", "true")
	t.Setenv("HTTP__TRUSTED_PROXIES", "127.0.0.1,127.0.0.2")
	t.Setenv("HTTP__METRICS__ENABLED", "true")
	t.Setenv("HTTP__TRACING__ENABLED", "true")
	t.Setenv("HTTP__TRACING__OTLP_ENDPOINT", "http://localhost:4317")
	t.Setenv("HTTP__CORS_HOSTS", "http://localhost:8080,http://localhost:8081")
	t.Setenv("PERSISTENCE__DATABASE__DRIVER", "postgres")
	t.Setenv("PERSISTENCE__DATABASE__DATABASE", "itinerary")
	t.Setenv("PERSISTENCE__DATABASE__HOST", "host")
	t.Setenv("PERSISTENCE__DATABASE__PORT", "5432")
	t.Setenv("PERSISTENCE__DATABASE__USERNAME", "user")
	t.Setenv("PERSISTENCE__DATABASE__PASSWORD", "password")
	t.Setenv("PERSISTENCE__DATABASE__EXTRA_PARAMETERS", "sslmode=require")
	t.Setenv("PERSISTENCE__ARCHIVE__DRIVER", "s3")
	t.Setenv("PERSISTENCE__ARCHIVE__S3__BUCKET", "plans")
	t.Setenv("PERSISTENCE__ARCHIVE__S3__REGION", "us-east-1")
	t.Setenv("PERSISTENCE__ARCHIVE__S3__ENDPOINT", "http://localhost:9000")
	t.Setenv("JWT__SECRET", "changeme")
	t.Setenv("GEOCODING__PROVIDER", "nominatim")
	t.Setenv("GEOCODING__BASE_URL", "http://localhost:7070")
	t.Setenv("GEOCODING__USER_AGENT", "itinerary-tests")
	t.Setenv("GEOCODING__TIMEOUT", "2s")
	t.Setenv("REDIS__ENABLED", "true")
	t.Setenv("REDIS__ADDRESS", "localhost:6380")
	t.Setenv("REDIS__USERNAME", "user123")
	t.Setenv("REDIS__PASSWORD", "password")
	t.Setenv("REDIS__DATABASE", "2")
	t.Setenv("NATS__ENABLED", "true")
	t.Setenv("NATS__URL", "nats://nats:4222")
	t.Setenv("NATS__SUBJECT", "trips")

	config, err := config.LoadConfig(cmd)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if config.HTTP.Port != 8087 {
		t.Errorf("unexpected HTTP port: %d", config.HTTP.Port)
	}
	if config.HTTP.Metrics.Port != 8088 {
		t.Errorf("unexpected HTTP metrics port: %d", config.HTTP.Metrics.Port)
	}
	if config.HTTP.Metrics.IPV4Host != "0.0.0.0" {
		t.Errorf("unexpected HTTP metrics IPv4 host: %s", config.HTTP.Metrics.IPV4Host)
	}
	if config.HTTP.Metrics.IPV6Host != "::0" {
		t.Errorf("unexpected HTTP metrics IPv6 host: %s", config.HTTP.Metrics.IPV6Host)
	}
	if config.HTTP.IPV4Host != "127.0.0.1" {
		t.Errorf("unexpected HTTP IPv4 host: %s", config.HTTP.IPV4Host)
	}
	if config.HTTP.IPV6Host != "::1" {
		t.Errorf("unexpected HTTP IPv6 host: %s", config.HTTP.IPV6Host)
	}
	if !config.HTTP.PProf.Enabled {
		t.Error("unexpected HTTP pprof enabled")
	}
	if len(config.HTTP.TrustedProxies) != 2 {
		t.Errorf("unexpected HTTP trusted proxies: %v", config.HTTP.TrustedProxies)
	}
	if !config.HTTP.Metrics.Enabled {
		t.Error("unexpected HTTP metrics enabled")
	}
	if !config.HTTP.Tracing.Enabled {
		t.Error("unexpected HTTP tracing enabled")
	}
	if config.HTTP.Tracing.OTLPEndpoint != "http://localhost:4317" {
		t.Errorf("unexpected HTTP tracing OTLP endpoint: %s", config.HTTP.Tracing.OTLPEndpoint)
	}
	if len(config.HTTP.CORSHosts) != 2 {
		t.Errorf("unexpected HTTP CORS hosts: %v", config.HTTP.CORSHosts)
	}
	if config.Persistence.Database.Database != "itinerary" {
		t.Errorf("unexpected persistence database: %s", config.Persistence.Database.Database)
	}
	if config.Persistence.Database.Driver != "postgres" {
		t.Errorf("unexpected persistence driver: %s", config.Persistence.Database.Driver)
	}
	if config.Persistence.Database.Host != "host" {
		t.Errorf("unexpected persistence host: %s", config.Persistence.Database.Host)
	}
	if config.Persistence.Database.Port != 5432 {
		t.Errorf("unexpected persistence port: %d", config.Persistence.Database.Port)
	}
	if config.Persistence.Database.Username != "user" {
		t.Errorf("unexpected persistence username: %s", config.Persistence.Database.Username)
	}
	if config.Persistence.Database.Password != "password" {
		t.Errorf("unexpected persistence password: %s", config.Persistence.Database.Password)
	}
	if config.Persistence.Database.ExtraParameters != "sslmode=require" {
		t.Errorf("unexpected persistence extra parameters: %s", config.Persistence.Database.ExtraParameters)
	}
	if config.Persistence.Archive.Driver != "s3" {
		t.Errorf("unexpected archive driver: %s", config.Persistence.Archive.Driver)
	}
	if config.Persistence.Archive.S3.Bucket != "plans" {
		t.Errorf("unexpected archive bucket: %s", config.Persistence.Archive.S3.Bucket)
	}
	if config.Persistence.Archive.S3.Region != "us-east-1" {
		t.Errorf("unexpected archive region: %s", config.Persistence.Archive.S3.Region)
	}
	if config.Persistence.Archive.S3.Endpoint != "http://localhost:9000" {
		t.Errorf("unexpected archive endpoint: %s", config.Persistence.Archive.S3.Endpoint)
	}
	if config.JWT.Secret != "changeme" {
		t.Errorf("unexpected JWT secret: %s", config.JWT.Secret)
	}
	if config.Geocoding.BaseURL != "http://localhost:7070" {
		t.Errorf("unexpected geocoding base URL: %s", config.Geocoding.BaseURL)
	}
	if config.Geocoding.UserAgent != "itinerary-tests" {
		t.Errorf("unexpected geocoding user agent: %s", config.Geocoding.UserAgent)
	}
	if config.Geocoding.Timeout != 2*time.Second {
		t.Errorf("unexpected geocoding timeout: %s", config.Geocoding.Timeout)
	}
	if !config.Redis.Enabled {
		t.Error("unexpected Redis enabled")
	}
	if config.Redis.Address != "localhost:6380" {
		t.Errorf("unexpected Redis address: %s", config.Redis.Address)
	}
	if config.Redis.Username != "user123" {
		t.Errorf("unexpected Redis username: %s", config.Redis.Username)
	}
	if config.Redis.Password != "password" {
		t.Errorf("unexpected Redis password: %s", config.Redis.Password)
	}
	if config.Redis.Database != 2 {
		t.Errorf("unexpected Redis database: %d", config.Redis.Database)
	}
	if !config.NATS.Enabled {
		t.Error("unexpected NATS enabled")
	}
	if config.NATS.URL != "nats://nats:4222" {
		t.Errorf("unexpected NATS URL: %s", config.NATS.URL)
	}
	if config.NATS.Subject != "trips" {
		t.Errorf("unexpected NATS subject: %s", config.NATS.Subject)
	}
}

func TestFlagsOverrideFile(t *testing.T) {
	t.Parallel()
	cmd := cmd.NewCommand("testing", "deadbeef")
	cmd.SetContext(context.Background())
	err := cmd.ParseFlags([]string{
		"--config", "../../config.example.yaml",
		"--http.port", "3100",
		"--persistence.archive.driver", "FileSystem",
	})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	testConfig, err := config.LoadConfig(cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if testConfig.HTTP.Port != 3100 {
		t.Errorf("expected the flag to win over the file, got port %d", testConfig.HTTP.Port)
	}
	if testConfig.Persistence.Archive.Driver != config.ArchiveDriverFilesystem {
		t.Errorf("expected driver names to be case-insensitive, got %s", testConfig.Persistence.Archive.Driver)
	}
	if testConfig.Geocoding.Timeout != 10*time.Second {
		t.Errorf("expected untouched settings to come from the file, got %s", testConfig.Geocoding.Timeout)
	}
}
