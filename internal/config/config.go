package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-errors/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP        HTTP        `json:"http"`
	Persistence Persistence `json:"persistence"`
	JWT         JWT         `json:"jwt"`
	Geocoding   Geocoding   `json:"geocoding"`
	Redis       Redis       `json:"redis"`
	NATS        NATS        `json:"nats"`
}

type JWT struct {
	Secret string `json:"secret"`
}

type GeocodingProvider string

const (
	GeocodingProviderNominatim GeocodingProvider = "nominatim"
	GeocodingProviderMapbox    GeocodingProvider = "mapbox"
)

type Geocoding struct {
	Provider  GeocodingProvider `json:"provider"`
	BaseURL   string            `json:"base_url" yaml:"base_url"`
	UserAgent string            `json:"user_agent" yaml:"user_agent"`
	Timeout   time.Duration     `json:"timeout"`
	Mapbox    Mapbox            `json:"mapbox"`
}

type Mapbox struct {
	SecretToken string `json:"secret_token" yaml:"secret_token"`
}

type Redis struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Username string `json:"username"`
	Password string `json:"password"`
	Database int    `json:"database"`
}

type NATS struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Subject string `json:"subject"`
}

type Persistence struct {
	Database Database `json:"database"`
	Archive  Archive  `json:"archive"`
}

type DatabaseDriver string

const (
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
	DatabaseDriverMySQL    DatabaseDriver = "mysql"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
)

type Database struct {
	Driver          DatabaseDriver `json:"driver"`
	Database        string         `json:"database"`
	Username        string         `json:"username"`
	Password        string         `json:"password"`
	Host            string         `json:"host"`
	Port            uint16         `json:"port"`
	ExtraParameters string         `json:"extra_parameters" yaml:"extra_parameters"`
}

type ArchiveDriver string

const (
	ArchiveDriverFilesystem ArchiveDriver = "filesystem"
	ArchiveDriverS3         ArchiveDriver = "s3"
)

type Archive struct {
	Driver    ArchiveDriver `json:"driver"`
	Directory string        `json:"directory"`
	S3        S3Options     `json:"s3"`
}

type S3Options struct {
	Region   string `json:"region"`
	Bucket   string `json:"bucket"`
	Endpoint string `json:"endpoint"`
}

type HTTPListener struct {
	IPV4Host string `json:"ipv4_host" yaml:"ipv4_host"`
	IPV6Host string `json:"ipv6_host" yaml:"ipv6_host"`
	Port     uint16 `json:"port"`
}

type Tracing struct {
	Enabled      bool   `json:"enabled"`
	OTLPEndpoint string `json:"otlp_endpoint" yaml:"otlp_endpoint"`
}

type PProf struct {
	Enabled bool `json:"enabled"`
}

type Metrics struct {
	HTTPListener `yaml:",inline"`
	Enabled      bool `json:"enabled"`
}

type HTTP struct {
	HTTPListener   `yaml:",inline"`
	Tracing        Tracing  `json:"tracing"`
	PProf          PProf    `json:"pprof"`
	TrustedProxies []string `json:"trusted_proxies" yaml:"trusted_proxies"`
	Metrics        Metrics  `json:"metrics"`
	CORSHosts      []string `json:"cors_hosts" yaml:"cors_hosts"`
}

//nolint:golint,gochecknoglobals
var (
	ConfigFileKey                         = "config"
	HTTPIPV4HostKey                       = "http.ipv4_host"
	HTTPIPV6HostKey                       = "http.ipv6_host"
	HTTPPortKey                           = "http.port"
	HTTPTracingEnabledKey                 = "http.tracing.enabled"
	HTTPTracingOTLPEndKey                 = "http.tracing.otlp_endpoint"
	HTTPPProfEnabledKey                   = "http.pprof.enabled"
	HTTPTrustedProxiesKey                 = "http.trusted_proxies"
	HTTPMetricsEnabledKey                 = "http.metrics.enabled"
	HTTPMetricsIPV4HostKey                = "http.metrics.ipv4_host"
	HTTPMetricsIPV6HostKey                = "http.metrics.ipv6_host"
	HTTPMetricsPortKey                    = "http.metrics.port"
	HTTPCORSHostsKey                      = "http.cors_hosts"
	PersistenceDatabaseDriverKey          = "persistence.database.driver"
	PersistenceDatabaseDatabaseKey        = "persistence.database.database"
	PersistenceDatabaseUsernameKey        = "persistence.database.username"
	PersistenceDatabasePasswordKey        = "persistence.database.password"
	PersistenceDatabaseHostKey            = "persistence.database.host"
	PersistenceDatabasePortKey            = "persistence.database.port"
	PersistenceDatabaseExtraParametersKey = "persistence.database.extra_parameters"
	PersistenceArchiveDriverKey           = "persistence.archive.driver"
	PersistenceArchiveDirectoryKey        = "persistence.archive.directory"
	PersistenceArchiveS3RegionKey         = "persistence.archive.s3.region"
	PersistenceArchiveS3BucketKey         = "persistence.archive.s3.bucket"
	PersistenceArchiveS3EndpointKey       = "persistence.archive.s3.endpoint"
	JWTSecretKey                          = "jwt.secret"
	GeocodingProviderKey                  = "geocoding.provider"
	GeocodingBaseURLKey                   = "geocoding.base_url"
	GeocodingUserAgentKey                 = "geocoding.user_agent"
	GeocodingTimeoutKey                   = "geocoding.timeout"
	//nolint:golint,gosec
	GeocodingMapboxSecretTokenKey = "geocoding.mapbox.secret_token"
	RedisEnabledKey               = "redis.enabled"
	RedisAddressKey               = "redis.address"
	RedisUsernameKey              = "redis.username"
	RedisPasswordKey              = "redis.password"
	RedisDatabaseKey              = "redis.database"
	NATSEnabledKey                = "nats.enabled"
	NATSURLKey                    = "nats.url"
	NATSSubjectKey                = "nats.subject"
)

const (
	DefaultConfigPath                  = "config.yaml"
	DefaultHTTPIPV4Host                = "0.0.0.0"
	DefaultHTTPIPV6Host                = "::"
	DefaultHTTPPort                    = 8080
	DefaultHTTPMetricsIPV4Host         = "127.0.0.1"
	DefaultHTTPMetricsIPV6Host         = "::1"
	DefaultHTTPMetricsPort             = 8081
	DefaultPersistenceDatabaseDriver   = DatabaseDriverSQLite
	DefaultPersistenceDatabaseDatabase = "itinerary.db"
	DefaultPersistenceArchiveDriver    = ArchiveDriverFilesystem
	DefaultPersistenceArchiveDirectory = "archive/"
	DefaultGeocodingProvider           = GeocodingProviderNominatim
	DefaultGeocodingNominatimURL       = "https://nominatim.openstreetmap.org"
	DefaultGeocodingMapboxURL          = "https://api.mapbox.com"
	DefaultGeocodingUserAgent          = "itinerary-server"
	DefaultGeocodingTimeout            = 5 * time.Second
	DefaultRedisAddress                = "localhost:6379"
	DefaultNATSURL                     = "nats://127.0.0.1:4222"
	DefaultNATSSubject                 = "itinerary.events"
)

func RegisterFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP(ConfigFileKey, "c", DefaultConfigPath, "Config file path")
	cmd.Flags().String(HTTPIPV4HostKey, DefaultHTTPIPV4Host, "HTTP server IPv4 host")
	cmd.Flags().String(HTTPIPV6HostKey, DefaultHTTPIPV6Host, "HTTP server IPv6 host")
	cmd.Flags().Uint16(HTTPPortKey, DefaultHTTPPort, "HTTP server port")
	cmd.Flags().Bool(HTTPTracingEnabledKey, false, "Enable Open Telemetry tracing")
	cmd.Flags().String(HTTPTracingOTLPEndKey, "", "Open Telemetry endpoint")
	cmd.Flags().Bool(HTTPPProfEnabledKey, false, "Enable pprof")
	cmd.Flags().StringSlice(HTTPTrustedProxiesKey, []string{}, "Comma-separated list of trusted proxies")
	cmd.Flags().Bool(HTTPMetricsEnabledKey, false, "Enable metrics server")
	cmd.Flags().String(HTTPMetricsIPV4HostKey, DefaultHTTPMetricsIPV4Host, "Metrics server IPv4 host")
	cmd.Flags().String(HTTPMetricsIPV6HostKey, DefaultHTTPMetricsIPV6Host, "Metrics server IPv6 host")
	cmd.Flags().Uint16(HTTPMetricsPortKey, DefaultHTTPMetricsPort, "Metrics server port")
	cmd.Flags().StringSlice(HTTPCORSHostsKey, []string{}, "Comma-separated list of CORS hosts")
	cmd.PersistentFlags().String(PersistenceDatabaseDriverKey, string(DefaultPersistenceDatabaseDriver), "Database driver")
	cmd.PersistentFlags().String(PersistenceDatabaseDatabaseKey, DefaultPersistenceDatabaseDatabase, "Database name or path")
	cmd.PersistentFlags().String(PersistenceDatabaseUsernameKey, "", "Database username")
	cmd.PersistentFlags().String(PersistenceDatabasePasswordKey, "", "Database password")
	cmd.PersistentFlags().String(PersistenceDatabaseHostKey, "", "Database host")
	cmd.PersistentFlags().Uint16(PersistenceDatabasePortKey, 0, "Database port")
	cmd.PersistentFlags().String(PersistenceDatabaseExtraParametersKey, "", "Database extra parameters")
	cmd.Flags().String(PersistenceArchiveDriverKey, string(DefaultPersistenceArchiveDriver), "Plan archive driver (filesystem or s3)")
	cmd.Flags().String(PersistenceArchiveDirectoryKey, DefaultPersistenceArchiveDirectory, "Plan archive directory")
	cmd.Flags().String(PersistenceArchiveS3RegionKey, "", "Plan archive S3 region")
	cmd.Flags().String(PersistenceArchiveS3BucketKey, "", "Plan archive S3 bucket")
	cmd.Flags().String(PersistenceArchiveS3EndpointKey, "", "Plan archive S3 endpoint override")
	cmd.PersistentFlags().String(JWTSecretKey, "", "JWT signing secret")
	cmd.Flags().String(GeocodingProviderKey, string(DefaultGeocodingProvider), "Geocoding provider (nominatim or mapbox)")
	cmd.Flags().String(GeocodingBaseURLKey, "", "Geocoding provider base URL")
	cmd.Flags().String(GeocodingUserAgentKey, DefaultGeocodingUserAgent, "User-Agent sent to the geocoding provider")
	cmd.Flags().Duration(GeocodingTimeoutKey, DefaultGeocodingTimeout, "Geocoding request timeout")
	cmd.Flags().String(GeocodingMapboxSecretTokenKey, "", "Mapbox secret token")
	cmd.Flags().Bool(RedisEnabledKey, false, "Use Redis for per-trip write locks")
	cmd.Flags().String(RedisAddressKey, DefaultRedisAddress, "Redis address")
	cmd.Flags().String(RedisUsernameKey, "", "Redis username")
	cmd.Flags().String(RedisPasswordKey, "", "Redis password")
	cmd.Flags().Int(RedisDatabaseKey, 0, "Redis database")
	cmd.Flags().Bool(NATSEnabledKey, false, "Publish itinerary events to NATS")
	cmd.Flags().String(NATSURLKey, DefaultNATSURL, "NATS server URL")
	cmd.Flags().String(NATSSubjectKey, DefaultNATSSubject, "NATS subject prefix for itinerary events")
}

var (
	ErrJWTSecretRequired         = errors.New("JWT secret is required")
	ErrOTLPEndpointRequired      = errors.New("OTLP endpoint is required when tracing is enabled")
	ErrMapboxSecretTokenRequired = errors.New("Mapbox secret token is required when the mapbox geocoder is selected")
	ErrUnknownGeocodingProvider  = errors.New("Unknown geocoding provider")
	ErrDBHostRequired            = errors.New("Database host is required")
	ErrDBDatabaseRequired        = errors.New("Database name is required")
	ErrDatabaseDriverRequired    = errors.New("Database driver is required")
	ErrUnknownArchiveDriver      = errors.New("Unknown archive driver")
	ErrS3BucketRequired          = errors.New("S3 bucket is required when the s3 archive driver is selected")
	ErrRedisAddressRequired      = errors.New("Redis address is required when redis is enabled")
	ErrNATSURLRequired           = errors.New("NATS URL is required when nats is enabled")
)

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return ErrJWTSecretRequired
	}
	if c.HTTP.Tracing.Enabled && c.HTTP.Tracing.OTLPEndpoint == "" {
		return ErrOTLPEndpointRequired
	}
	switch c.Geocoding.Provider {
	case GeocodingProviderNominatim:
	case GeocodingProviderMapbox:
		if c.Geocoding.Mapbox.SecretToken == "" {
			return ErrMapboxSecretTokenRequired
		}
	default:
		return ErrUnknownGeocodingProvider
	}
	if c.Persistence.Database.Driver == "" {
		return ErrDatabaseDriverRequired
	}
	if c.Persistence.Database.Driver != DatabaseDriverSQLite && c.Persistence.Database.Host == "" {
		return ErrDBHostRequired
	}
	if c.Persistence.Database.Database == "" {
		return ErrDBDatabaseRequired
	}
	switch c.Persistence.Archive.Driver {
	case ArchiveDriverFilesystem:
	case ArchiveDriverS3:
		if c.Persistence.Archive.S3.Bucket == "" {
			return ErrS3BucketRequired
		}
	default:
		return ErrUnknownArchiveDriver
	}
	if c.Redis.Enabled && c.Redis.Address == "" {
		return ErrRedisAddressRequired
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		return ErrNATSURLRequired
	}

	return nil
}

func LoadConfig(cmd *cobra.Command) (*Config, error) {
	var config Config

	// Load flags from envs
	ctx, cancel := context.WithCancelCause(cmd.Context())
	defer cancel(nil)
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if ctx.Err() != nil {
			return
		}
		optName := strings.ReplaceAll(strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_"), ".", "__")
		if val, ok := os.LookupEnv(optName); !f.Changed && ok {
			if err := f.Value.Set(val); err != nil {
				cancel(err)
			}
			f.Changed = true
		}
	})
	if ctx.Err() != nil {
		return &config, fmt.Errorf("failed to load env: %w", context.Cause(ctx))
	}

	configPath, err := cmd.Flags().GetString(ConfigFileKey)
	if err != nil {
		return &config, fmt.Errorf("failed to get config path: %w", err)
	}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return &config, fmt.Errorf("failed to read config: %w", err)
		} else if err == nil {
			if err := yaml.Unmarshal(data, &config); err != nil {
				return &config, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		}
	}

	if err := overrideFlags(&config, cmd.Flags()); err != nil {
		return &config, fmt.Errorf("failed to override flags: %w", err)
	}

	applyDefaults(&config)
	return &config, nil
}

func applyDefaults(config *Config) {
	setDefault(&config.HTTP.IPV4Host, DefaultHTTPIPV4Host)
	setDefault(&config.HTTP.IPV6Host, DefaultHTTPIPV6Host)
	setDefault(&config.HTTP.Port, DefaultHTTPPort)
	setDefault(&config.HTTP.Metrics.IPV4Host, DefaultHTTPMetricsIPV4Host)
	setDefault(&config.HTTP.Metrics.IPV6Host, DefaultHTTPMetricsIPV6Host)
	setDefault(&config.HTTP.Metrics.Port, DefaultHTTPMetricsPort)
	setDefault(&config.Persistence.Database.Driver, DefaultPersistenceDatabaseDriver)
	setDefault(&config.Persistence.Database.Database, DefaultPersistenceDatabaseDatabase)
	setDefault(&config.Persistence.Archive.Driver, DefaultPersistenceArchiveDriver)
	setDefault(&config.Persistence.Archive.Directory, DefaultPersistenceArchiveDirectory)
	setDefault(&config.Geocoding.Provider, DefaultGeocodingProvider)
	if config.Geocoding.Provider == GeocodingProviderMapbox {
		setDefault(&config.Geocoding.BaseURL, DefaultGeocodingMapboxURL)
	}
	setDefault(&config.Geocoding.BaseURL, DefaultGeocodingNominatimURL)
	setDefault(&config.Geocoding.UserAgent, DefaultGeocodingUserAgent)
	setDefault(&config.Geocoding.Timeout, DefaultGeocodingTimeout)
	setDefault(&config.Redis.Address, DefaultRedisAddress)
	setDefault(&config.NATS.URL, DefaultNATSURL)
	setDefault(&config.NATS.Subject, DefaultNATSSubject)
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

// flagBinding copies one explicitly set flag into the loaded config, so flags
// take precedence over the config file.
type flagBinding struct {
	key   string
	apply func(flags *pflag.FlagSet, config *Config) error
}

func bind[T any](key string, get func(*pflag.FlagSet, string) (T, error), field func(*Config) *T) flagBinding {
	return flagBinding{key: key, apply: func(flags *pflag.FlagSet, config *Config) error {
		v, err := get(flags, key)
		if err != nil {
			return err
		}
		*field(config) = v
		return nil
	}}
}

// bindLower is bind for enum-like string settings, which are case-insensitive.
func bindLower[T ~string](key string, field func(*Config) *T) flagBinding {
	return flagBinding{key: key, apply: func(flags *pflag.FlagSet, config *Config) error {
		v, err := flags.GetString(key)
		if err != nil {
			return err
		}
		*field(config) = T(strings.ToLower(v))
		return nil
	}}
}

func flagBindings() []flagBinding {
	str := (*pflag.FlagSet).GetString
	strs := (*pflag.FlagSet).GetStringSlice
	boolean := (*pflag.FlagSet).GetBool
	port := (*pflag.FlagSet).GetUint16

	return []flagBinding{
		bind(HTTPIPV4HostKey, str, func(c *Config) *string { return &c.HTTP.IPV4Host }),
		bind(HTTPIPV6HostKey, str, func(c *Config) *string { return &c.HTTP.IPV6Host }),
		bind(HTTPPortKey, port, func(c *Config) *uint16 { return &c.HTTP.Port }),
		bind(HTTPPProfEnabledKey, boolean, func(c *Config) *bool { return &c.HTTP.PProf.Enabled }),
		bind(HTTPTrustedProxiesKey, strs, func(c *Config) *[]string { return &c.HTTP.TrustedProxies }),
		bind(HTTPMetricsEnabledKey, boolean, func(c *Config) *bool { return &c.HTTP.Metrics.Enabled }),
		bind(HTTPMetricsIPV4HostKey, str, func(c *Config) *string { return &c.HTTP.Metrics.IPV4Host }),
		bind(HTTPMetricsIPV6HostKey, str, func(c *Config) *string { return &c.HTTP.Metrics.IPV6Host }),
		bind(HTTPMetricsPortKey, port, func(c *Config) *uint16 { return &c.HTTP.Metrics.Port }),
		bind(HTTPTracingEnabledKey, boolean, func(c *Config) *bool { return &c.HTTP.Tracing.Enabled }),
		bind(HTTPTracingOTLPEndKey, str, func(c *Config) *string { return &c.HTTP.Tracing.OTLPEndpoint }),
		bind(HTTPCORSHostsKey, strs, func(c *Config) *[]string { return &c.HTTP.CORSHosts }),

		bindLower(PersistenceDatabaseDriverKey, func(c *Config) *DatabaseDriver { return &c.Persistence.Database.Driver }),
		bind(PersistenceDatabaseDatabaseKey, str, func(c *Config) *string { return &c.Persistence.Database.Database }),
		bind(PersistenceDatabaseUsernameKey, str, func(c *Config) *string { return &c.Persistence.Database.Username }),
		bind(PersistenceDatabasePasswordKey, str, func(c *Config) *string { return &c.Persistence.Database.Password }),
		bind(PersistenceDatabaseHostKey, str, func(c *Config) *string { return &c.Persistence.Database.Host }),
		bind(PersistenceDatabasePortKey, port, func(c *Config) *uint16 { return &c.Persistence.Database.Port }),
		bind(PersistenceDatabaseExtraParametersKey, str, func(c *Config) *string { return &c.Persistence.Database.ExtraParameters }),

		bindLower(PersistenceArchiveDriverKey, func(c *Config) *ArchiveDriver { return &c.Persistence.Archive.Driver }),
		bind(PersistenceArchiveDirectoryKey, str, func(c *Config) *string { return &c.Persistence.Archive.Directory }),
		bind(PersistenceArchiveS3RegionKey, str, func(c *Config) *string { return &c.Persistence.Archive.S3.Region }),
		bind(PersistenceArchiveS3BucketKey, str, func(c *Config) *string { return &c.Persistence.Archive.S3.Bucket }),
		bind(PersistenceArchiveS3EndpointKey, str, func(c *Config) *string { return &c.Persistence.Archive.S3.Endpoint }),

		bind(JWTSecretKey, str, func(c *Config) *string { return &c.JWT.Secret }),

		bindLower(GeocodingProviderKey, func(c *Config) *GeocodingProvider { return &c.Geocoding.Provider }),
		bind(GeocodingBaseURLKey, str, func(c *Config) *string { return &c.Geocoding.BaseURL }),
		bind(GeocodingUserAgentKey, str, func(c *Config) *string { return &c.Geocoding.UserAgent }),
		bind(GeocodingTimeoutKey, (*pflag.FlagSet).GetDuration, func(c *Config) *time.Duration { return &c.Geocoding.Timeout }),
		bind(GeocodingMapboxSecretTokenKey, str, func(c *Config) *string { return &c.Geocoding.Mapbox.SecretToken }),

		bind(RedisEnabledKey, boolean, func(c *Config) *bool { return &c.Redis.Enabled }),
		bind(RedisAddressKey, str, func(c *Config) *string { return &c.Redis.Address }),
		bind(RedisUsernameKey, str, func(c *Config) *string { return &c.Redis.Username }),
		bind(RedisPasswordKey, str, func(c *Config) *string { return &c.Redis.Password }),
		bind(RedisDatabaseKey, (*pflag.FlagSet).GetInt, func(c *Config) *int { return &c.Redis.Database }),

		bind(NATSEnabledKey, boolean, func(c *Config) *bool { return &c.NATS.Enabled }),
		bind(NATSURLKey, str, func(c *Config) *string { return &c.NATS.URL }),
		bind(NATSSubjectKey, str, func(c *Config) *string { return &c.NATS.Subject }),
	}
}

func overrideFlags(config *Config, flags *pflag.FlagSet) error {
	for _, b := range flagBindings() {
		if !flags.Changed(b.key) {
			continue
		}
		if err := b.apply(flags, config); err != nil {
			return fmt.Errorf("failed to get %s: %w", b.key, err)
		}
	}
	return nil
}
