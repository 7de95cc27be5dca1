package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/golang/glog"
	"github.com/openbidder/bidserver/errortypes"
	"github.com/spf13/viper"
)

// Configuration specifies the static application config.
type Configuration struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	AdminPort int    `mapstructure:"admin_port"`
	// StatusResponse is the body answered by the admin /status endpoint.
	StatusResponse string `mapstructure:"status_response"`
	EnableGzip     bool   `mapstructure:"enable_gzip"`
	// MaxRequestSize limits request bodies, in bytes. 0 disables the limit.
	MaxRequestSize int64 `mapstructure:"max_request_size"`
	// RequestTimeoutMillis is the time a phase receiver has to answer before the default 503 is sent.
	RequestTimeoutMillis int `mapstructure:"request_timeout_ms"`

	Exchange     Exchange     `mapstructure:"exchange"`
	Interceptors Interceptors `mapstructure:"interceptors"`
	Storage      Storage      `mapstructure:"storage"`
	Metrics      Metrics      `mapstructure:"metrics"`
	CORS         CORS         `mapstructure:"cors"`
}

// Exchange selects the single exchange this server bids on, and holds its key material.
type Exchange struct {
	Name string `mapstructure:"name"`
	// AllowNoExchange permits the test-only "none" exchange. Never set in production.
	AllowNoExchange bool   `mapstructure:"allow_no_exchange"`
	InfoDir         string `mapstructure:"info_dir"`
	EncryptionKey   string `mapstructure:"encryption_key"`
	IntegrityKey    string `mapstructure:"integrity_key"`
	PriceParam      string `mapstructure:"price_param"`
	// BindingParams names the impression parameters whose values are bound into the price signature.
	BindingParams    []string `mapstructure:"binding_params"`
	MatchRedirectURL string   `mapstructure:"match_redirect_url"`
	MatchNID         string   `mapstructure:"match_nid"`
}

// Interceptors lists, per phase, the interceptors to run in order.
type Interceptors struct {
	Bid        []InterceptorConfig `mapstructure:"bid"`
	Impression []InterceptorConfig `mapstructure:"impression"`
	Click      []InterceptorConfig `mapstructure:"click"`
	Match      []InterceptorConfig `mapstructure:"match"`
}

type InterceptorConfig struct {
	Name   string                 `mapstructure:"name"`
	Config map[string]interface{} `mapstructure:"config"`
}

// Storage configures the key-value store business interceptors read from.
type Storage struct {
	Type          StorageType   `mapstructure:"type"`
	TimeoutMillis int           `mapstructure:"timeout_ms"`
	Memory        MemoryStore   `mapstructure:"memory"`
	Postgres      PostgresStore `mapstructure:"postgres"`
	Redis         RedisStore    `mapstructure:"redis"`
	Memcache      MemcacheStore `mapstructure:"memcache"`
}

type StorageType string

const (
	StorageNone     StorageType = "none"
	StorageMemory   StorageType = "memory"
	StoragePostgres StorageType = "postgres"
	StorageRedis    StorageType = "redis"
	StorageMemcache StorageType = "memcache"
)

type MemoryStore struct {
	SizeBytes  int `mapstructure:"size_bytes"`
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

type PostgresStore struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Database   string `mapstructure:"dbname"`
	Username   string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Table      string `mapstructure:"table"`
	CacheSize  int    `mapstructure:"cache_size"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

type RedisStore struct {
	Addr       string `mapstructure:"addr"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	KeyPrefix  string `mapstructure:"key_prefix"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

type MemcacheStore struct {
	Servers       []string `mapstructure:"servers"`
	KeyPrefix     string   `mapstructure:"key_prefix"`
	TTLSeconds    int      `mapstructure:"ttl_seconds"`
	TimeoutMillis int      `mapstructure:"timeout_ms"`
}

type Metrics struct {
	Prometheus PrometheusMetrics `mapstructure:"prometheus"`
	GoMetrics  GoMetrics         `mapstructure:"gometrics"`
	Influxdb   InfluxMetrics     `mapstructure:"influxdb"`
}

// InfluxMetrics reports the go-metrics registry to InfluxDB when Host is set.
type InfluxMetrics struct {
	Host     string `mapstructure:"host"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// MetricSendInterval is the reporting period, in seconds.
	MetricSendInterval int `mapstructure:"metric_send_interval"`
}

type PrometheusMetrics struct {
	Port             int    `mapstructure:"port"`
	Namespace        string `mapstructure:"namespace"`
	Subsystem        string `mapstructure:"subsystem"`
	TimeoutMillisRaw int    `mapstructure:"timeout_ms"`
}

func (cfg *PrometheusMetrics) Timeout() time.Duration {
	return time.Duration(cfg.TimeoutMillisRaw) * time.Millisecond
}

type GoMetrics struct {
	Enabled bool   `mapstructure:"enabled"`
	Prefix  string `mapstructure:"prefix"`
}

type CORS struct {
	Enabled bool `mapstructure:"enabled"`
}

// RequestTimeout returns the answer deadline of phase receivers.
func (cfg *Configuration) RequestTimeout() time.Duration {
	return time.Duration(cfg.RequestTimeoutMillis) * time.Millisecond
}

// Timeout returns the bound put on every storage lookup.
func (cfg *Storage) Timeout() time.Duration {
	return time.Duration(cfg.TimeoutMillis) * time.Millisecond
}

// New uses viper to get our server configurations.
func New(v *viper.Viper) (*Configuration, error) {
	var c Configuration
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("viper failed to unmarshal app config: %v", err)
	}
	c.Exchange.Name = strings.ToLower(strings.TrimSpace(c.Exchange.Name))

	glog.Infof("Resolved configuration: exchange=%s storage=%s port=%d admin_port=%d request_timeout_ms=%d",
		c.Exchange.Name, c.Storage.Type, c.Port, c.AdminPort, c.RequestTimeoutMillis)
	if errs := c.validate(); len(errs) > 0 {
		return &c, errortypes.NewAggregateError("validation errors", errs)
	}
	return &c, nil
}

func (cfg *Configuration) validate() []error {
	var errs []error
	if cfg.MaxRequestSize < 0 {
		errs = append(errs, fmt.Errorf("cfg.max_request_size must be >= 0. Got %d", cfg.MaxRequestSize))
	}
	if cfg.RequestTimeoutMillis <= 0 {
		errs = append(errs, fmt.Errorf("cfg.request_timeout_ms must be positive. Got %d", cfg.RequestTimeoutMillis))
	}
	errs = cfg.Exchange.validate(errs)
	errs = cfg.Interceptors.validate(errs)
	errs = cfg.Storage.validate(errs)
	errs = cfg.Metrics.validate(errs)
	return errs
}

func (cfg *Exchange) validate(errs []error) []error {
	switch cfg.Name {
	case "":
		errs = append(errs, errors.New("exchange.name is required"))
	case "none":
		if !cfg.AllowNoExchange {
			errs = append(errs, errors.New("exchange.name none is only allowed with exchange.allow_no_exchange"))
		}
	default:
		if cfg.EncryptionKey == "" || cfg.IntegrityKey == "" {
			errs = append(errs, fmt.Errorf("exchange.encryption_key and exchange.integrity_key are required for exchange %s", cfg.Name))
		}
	}
	if cfg.MatchRedirectURL != "" && !govalidator.IsRequestURL(cfg.MatchRedirectURL) {
		errs = append(errs, fmt.Errorf("exchange.match_redirect_url must be an absolute url. Got %s", cfg.MatchRedirectURL))
	}
	return errs
}

func (cfg *Interceptors) validate(errs []error) []error {
	for _, phase := range []struct {
		name string
		list []InterceptorConfig
	}{
		{"bid", cfg.Bid},
		{"impression", cfg.Impression},
		{"click", cfg.Click},
		{"match", cfg.Match},
	} {
		for i, ic := range phase.list {
			if ic.Name == "" {
				errs = append(errs, fmt.Errorf("interceptors.%s[%d].name is required", phase.name, i))
			}
		}
	}
	return errs
}

func (cfg *Storage) validate(errs []error) []error {
	switch cfg.Type {
	case StorageNone, StorageMemory:
	case StoragePostgres:
		if cfg.Postgres.Database == "" {
			errs = append(errs, errors.New("storage.postgres.dbname is required"))
		}
	case StorageRedis:
		if cfg.Redis.Addr == "" {
			errs = append(errs, errors.New("storage.redis.addr is required"))
		}
	case StorageMemcache:
		if len(cfg.Memcache.Servers) == 0 {
			errs = append(errs, errors.New("storage.memcache.servers is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.type must be one of none, memory, postgres, redis, memcache. Got %s", cfg.Type))
	}
	if cfg.TimeoutMillis <= 0 {
		errs = append(errs, fmt.Errorf("storage.timeout_ms must be positive. Got %d", cfg.TimeoutMillis))
	}
	return errs
}

func (cfg *Metrics) validate(errs []error) []error {
	if cfg.Prometheus.Port > 0 && cfg.Prometheus.TimeoutMillisRaw <= 0 {
		errs = append(errs, fmt.Errorf("metrics.prometheus.timeout_ms must be positive if metrics.prometheus.port is defined. Got timeout=%d and port=%d", cfg.Prometheus.TimeoutMillisRaw, cfg.Prometheus.Port))
	}
	if cfg.Influxdb.Host != "" && cfg.Influxdb.MetricSendInterval <= 0 {
		errs = append(errs, fmt.Errorf("metrics.influxdb.metric_send_interval must be positive if metrics.influxdb.host is defined. Got %d", cfg.Influxdb.MetricSendInterval))
	}
	return errs
}

// SetupViper sets defaults and the config sources: an optional {filename}.yaml in . or /etc/config,
// and BIDSERVER_ prefixed environment variables.
func SetupViper(v *viper.Viper, filename string) {
	if filename != "" {
		v.SetConfigName(filename)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/config")
	}

	v.SetDefault("host", "")
	v.SetDefault("port", 8000)
	v.SetDefault("admin_port", 6060)
	v.SetDefault("status_response", "ok")
	v.SetDefault("enable_gzip", false)
	v.SetDefault("max_request_size", 1024*256)
	v.SetDefault("request_timeout_ms", 80)

	v.SetDefault("exchange.name", "doubleclick")
	v.SetDefault("exchange.allow_no_exchange", false)
	v.SetDefault("exchange.info_dir", "./static/exchange-info")
	v.SetDefault("exchange.encryption_key", "")
	v.SetDefault("exchange.integrity_key", "")
	v.SetDefault("exchange.price_param", "price")
	v.SetDefault("exchange.binding_params", []string{})
	v.SetDefault("exchange.match_redirect_url", "")
	v.SetDefault("exchange.match_nid", "")

	v.SetDefault("interceptors.bid", []InterceptorConfig{})
	v.SetDefault("interceptors.impression", []InterceptorConfig{})
	v.SetDefault("interceptors.click", []InterceptorConfig{})
	v.SetDefault("interceptors.match", []InterceptorConfig{})

	v.SetDefault("storage.type", string(StorageNone))
	v.SetDefault("storage.timeout_ms", 10)
	v.SetDefault("storage.memory.size_bytes", 10*1024*1024)
	v.SetDefault("storage.memory.ttl_seconds", 0)
	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.port", 5432)
	v.SetDefault("storage.postgres.dbname", "")
	v.SetDefault("storage.postgres.user", "")
	v.SetDefault("storage.postgres.password", "")
	v.SetDefault("storage.postgres.table", "bidder_store")
	v.SetDefault("storage.postgres.cache_size", 10*1024*1024)
	v.SetDefault("storage.postgres.ttl_seconds", 300)
	v.SetDefault("storage.redis.addr", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.key_prefix", "bidserver:")
	v.SetDefault("storage.redis.ttl_seconds", 0)
	v.SetDefault("storage.memcache.servers", []string{})
	v.SetDefault("storage.memcache.key_prefix", "bidserver:")
	v.SetDefault("storage.memcache.ttl_seconds", 0)
	v.SetDefault("storage.memcache.timeout_ms", 100)

	v.SetDefault("metrics.prometheus.port", 0)
	v.SetDefault("metrics.prometheus.namespace", "")
	v.SetDefault("metrics.prometheus.subsystem", "")
	v.SetDefault("metrics.prometheus.timeout_ms", 10000)
	v.SetDefault("metrics.gometrics.enabled", true)
	v.SetDefault("metrics.gometrics.prefix", "bidserver")
	v.SetDefault("metrics.influxdb.host", "")
	v.SetDefault("metrics.influxdb.database", "")
	v.SetDefault("metrics.influxdb.username", "")
	v.SetDefault("metrics.influxdb.password", "")
	v.SetDefault("metrics.influxdb.metric_send_interval", 20)

	v.SetDefault("cors.enabled", false)

	v.SetEnvPrefix("BIDSERVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if filename != "" {
		if err := v.ReadInConfig(); err != nil {
			glog.Warningf("Failed to read the %s config file: %v", filename, err)
		}
	}
}
