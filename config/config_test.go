package config

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/openbidder/bidserver/errortypes"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fullConfig = []byte(`
host: bidder.example.com
port: 1234
admin_port: 5678
status_response: "up"
enable_gzip: true
max_request_size: 2048
request_timeout_ms: 60
exchange:
  name: DoubleClick
  encryption_key: "skU7Ax_NL5pPAFyKdkfZjZz2-VhIN8bjj1rVFOaJ_5o="
  integrity_key: "arO23ykdNqUQ5LEoQ0FVmPkBd7xB5CO89PDZlSjpFxo="
  price_param: winprice
  binding_params: ["auction_id", "imp_id"]
  match_redirect_url: "https://cm.example.com/pixel"
  match_nid: bidder
interceptors:
  bid:
    - name: logging
    - name: stored_bid
      config:
        seat: seat-1
  impression:
    - name: win_price
  click:
    - name: click_redirect
  match:
    - name: cookie_match
storage:
  type: postgres
  timeout_ms: 5
  postgres:
    host: db.example.com
    port: 6543
    dbname: bidder
    user: bidder-user
    password: secret
    table: campaigns
    cache_size: 1000
    ttl_seconds: 60
metrics:
  prometheus:
    port: 8001
    namespace: bidder
    subsystem: server
    timeout_ms: 500
  gometrics:
    enabled: false
  influxdb:
    host: "http://influx.example.com:8086"
    database: bidder
    metric_send_interval: 30
cors:
  enabled: true
`)

func cmpStrings(t *testing.T, key string, a string, b string) {
	t.Helper()
	assert.Equal(t, a, b, "%s: %s != %s", key, a, b)
}

func cmpInts(t *testing.T, key string, a int, b int) {
	t.Helper()
	assert.Equal(t, a, b, "%s: %d != %d", key, a, b)
}

func cmpBools(t *testing.T, key string, a bool, b bool) {
	t.Helper()
	assert.Equal(t, a, b, "%s: %t != %t", key, a, b)
}

func TestDefaults(t *testing.T) {
	cfg, _ := newDefaultConfig(t)

	cmpInts(t, "port", cfg.Port, 8000)
	cmpInts(t, "admin_port", cfg.AdminPort, 6060)
	cmpStrings(t, "status_response", cfg.StatusResponse, "ok")
	cmpInts(t, "request_timeout_ms", cfg.RequestTimeoutMillis, 80)
	cmpInts(t, "max_request_size", int(cfg.MaxRequestSize), 1024*256)
	cmpStrings(t, "exchange.name", cfg.Exchange.Name, "doubleclick")
	cmpStrings(t, "exchange.price_param", cfg.Exchange.PriceParam, "price")
	cmpStrings(t, "exchange.info_dir", cfg.Exchange.InfoDir, "./static/exchange-info")
	assert.Empty(t, cfg.Exchange.BindingParams)
	cmpStrings(t, "storage.type", string(cfg.Storage.Type), "none")
	cmpInts(t, "storage.timeout_ms", cfg.Storage.TimeoutMillis, 10)
	cmpStrings(t, "storage.redis.key_prefix", cfg.Storage.Redis.KeyPrefix, "bidserver:")
	cmpInts(t, "storage.memcache.timeout_ms", cfg.Storage.Memcache.TimeoutMillis, 100)
	cmpBools(t, "metrics.gometrics.enabled", cfg.Metrics.GoMetrics.Enabled, true)
	cmpBools(t, "cors.enabled", cfg.CORS.Enabled, false)
	assert.Empty(t, cfg.Interceptors.Bid)
}

func TestFullConfig(t *testing.T) {
	v := viper.New()
	SetupViper(v, "")
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBuffer(fullConfig)))
	cfg, err := New(v)
	require.NoError(t, err, "Setting up config should work but it doesn't")

	cmpStrings(t, "host", cfg.Host, "bidder.example.com")
	cmpInts(t, "port", cfg.Port, 1234)
	cmpInts(t, "admin_port", cfg.AdminPort, 5678)
	cmpStrings(t, "status_response", cfg.StatusResponse, "up")
	cmpBools(t, "enable_gzip", cfg.EnableGzip, true)
	cmpInts(t, "max_request_size", int(cfg.MaxRequestSize), 2048)
	cmpInts(t, "request_timeout_ms", cfg.RequestTimeoutMillis, 60)
	cmpStrings(t, "exchange.name", cfg.Exchange.Name, "doubleclick")
	cmpStrings(t, "exchange.price_param", cfg.Exchange.PriceParam, "winprice")
	assert.Equal(t, []string{"auction_id", "imp_id"}, cfg.Exchange.BindingParams)
	cmpStrings(t, "exchange.match_redirect_url", cfg.Exchange.MatchRedirectURL, "https://cm.example.com/pixel")
	cmpStrings(t, "exchange.match_nid", cfg.Exchange.MatchNID, "bidder")

	require.Len(t, cfg.Interceptors.Bid, 2)
	cmpStrings(t, "interceptors.bid[0]", cfg.Interceptors.Bid[0].Name, "logging")
	cmpStrings(t, "interceptors.bid[1]", cfg.Interceptors.Bid[1].Name, "stored_bid")
	assert.Equal(t, "seat-1", cfg.Interceptors.Bid[1].Config["seat"])
	cmpStrings(t, "interceptors.impression[0]", cfg.Interceptors.Impression[0].Name, "win_price")
	cmpStrings(t, "interceptors.click[0]", cfg.Interceptors.Click[0].Name, "click_redirect")
	cmpStrings(t, "interceptors.match[0]", cfg.Interceptors.Match[0].Name, "cookie_match")

	cmpStrings(t, "storage.type", string(cfg.Storage.Type), "postgres")
	cmpInts(t, "storage.timeout_ms", cfg.Storage.TimeoutMillis, 5)
	cmpStrings(t, "storage.postgres.host", cfg.Storage.Postgres.Host, "db.example.com")
	cmpInts(t, "storage.postgres.port", cfg.Storage.Postgres.Port, 6543)
	cmpStrings(t, "storage.postgres.dbname", cfg.Storage.Postgres.Database, "bidder")
	cmpStrings(t, "storage.postgres.user", cfg.Storage.Postgres.Username, "bidder-user")
	cmpStrings(t, "storage.postgres.table", cfg.Storage.Postgres.Table, "campaigns")
	cmpInts(t, "storage.postgres.cache_size", cfg.Storage.Postgres.CacheSize, 1000)

	cmpInts(t, "metrics.prometheus.port", cfg.Metrics.Prometheus.Port, 8001)
	cmpStrings(t, "metrics.prometheus.namespace", cfg.Metrics.Prometheus.Namespace, "bidder")
	cmpInts(t, "metrics.prometheus.timeout_ms", cfg.Metrics.Prometheus.TimeoutMillisRaw, 500)
	cmpBools(t, "metrics.gometrics.enabled", cfg.Metrics.GoMetrics.Enabled, false)
	cmpStrings(t, "metrics.influxdb.host", cfg.Metrics.Influxdb.Host, "http://influx.example.com:8086")
	cmpInts(t, "metrics.influxdb.metric_send_interval", cfg.Metrics.Influxdb.MetricSendInterval, 30)
	cmpBools(t, "cors.enabled", cfg.CORS.Enabled, true)
}

func TestEnvOverride(t *testing.T) {
	os.Setenv("BIDSERVER_EXCHANGE_MATCH_NID", "from-env")
	defer os.Unsetenv("BIDSERVER_EXCHANGE_MATCH_NID")

	cfg, _ := newDefaultConfig(t)
	cmpStrings(t, "exchange.match_nid", cfg.Exchange.MatchNID, "from-env")
}

func TestValidation(t *testing.T) {
	testCases := []struct {
		description string
		mutate      func(cfg *Configuration)
		expected    string
	}{
		{
			description: "negative-request-size",
			mutate:      func(cfg *Configuration) { cfg.MaxRequestSize = -1 },
			expected:    "cfg.max_request_size must be >= 0. Got -1",
		},
		{
			description: "zero-request-timeout",
			mutate:      func(cfg *Configuration) { cfg.RequestTimeoutMillis = 0 },
			expected:    "cfg.request_timeout_ms must be positive. Got 0",
		},
		{
			description: "missing-exchange",
			mutate:      func(cfg *Configuration) { cfg.Exchange.Name = "" },
			expected:    "exchange.name is required",
		},
		{
			description: "no-exchange-not-allowed",
			mutate:      func(cfg *Configuration) { cfg.Exchange.Name = "none" },
			expected:    "exchange.name none is only allowed with exchange.allow_no_exchange",
		},
		{
			description: "missing-keys",
			mutate:      func(cfg *Configuration) { cfg.Exchange.IntegrityKey = "" },
			expected:    "exchange.encryption_key and exchange.integrity_key are required for exchange doubleclick",
		},
		{
			description: "relative-match-redirect",
			mutate:      func(cfg *Configuration) { cfg.Exchange.MatchRedirectURL = "/pixel" },
			expected:    "exchange.match_redirect_url must be an absolute url. Got /pixel",
		},
		{
			description: "unnamed-interceptor",
			mutate: func(cfg *Configuration) {
				cfg.Interceptors.Click = []InterceptorConfig{{Name: "click_redirect"}, {}}
			},
			expected: "interceptors.click[1].name is required",
		},
		{
			description: "unknown-storage",
			mutate:      func(cfg *Configuration) { cfg.Storage.Type = "cassandra" },
			expected:    "storage.type must be one of none, memory, postgres, redis, memcache. Got cassandra",
		},
		{
			description: "postgres-without-db",
			mutate:      func(cfg *Configuration) { cfg.Storage.Type = StoragePostgres },
			expected:    "storage.postgres.dbname is required",
		},
		{
			description: "redis-without-addr",
			mutate:      func(cfg *Configuration) { cfg.Storage.Type = StorageRedis },
			expected:    "storage.redis.addr is required",
		},
		{
			description: "memcache-without-servers",
			mutate:      func(cfg *Configuration) { cfg.Storage.Type = StorageMemcache },
			expected:    "storage.memcache.servers is required",
		},
		{
			description: "zero-storage-timeout",
			mutate:      func(cfg *Configuration) { cfg.Storage.TimeoutMillis = 0 },
			expected:    "storage.timeout_ms must be positive. Got 0",
		},
		{
			description: "prometheus-without-timeout",
			mutate: func(cfg *Configuration) {
				cfg.Metrics.Prometheus.Port = 8001
				cfg.Metrics.Prometheus.TimeoutMillisRaw = 0
			},
			expected: "metrics.prometheus.timeout_ms must be positive if metrics.prometheus.port is defined. Got timeout=0 and port=8001",
		},
		{
			description: "influx-without-interval",
			mutate: func(cfg *Configuration) {
				cfg.Metrics.Influxdb.Host = "http://influx.example.com:8086"
				cfg.Metrics.Influxdb.MetricSendInterval = 0
			},
			expected: "metrics.influxdb.metric_send_interval must be positive if metrics.influxdb.host is defined. Got 0",
		},
	}

	for _, test := range testCases {
		cfg, _ := newDefaultConfig(t)
		test.mutate(cfg)
		errs := cfg.validate()
		if assert.Len(t, errs, 1, test.description) {
			assert.EqualError(t, errs[0], test.expected, test.description)
		}
	}
}

func TestNoExchangeAllowed(t *testing.T) {
	v := viper.New()
	SetupViper(v, "")
	v.Set("exchange.name", "none")
	v.Set("exchange.allow_no_exchange", true)

	cfg, err := New(v)
	require.NoError(t, err)
	cmpStrings(t, "exchange.name", cfg.Exchange.Name, "none")
}

func TestNewReturnsAggregateError(t *testing.T) {
	v := viper.New()
	SetupViper(v, "")
	v.Set("request_timeout_ms", 0)

	cfg, err := New(v)

	assert.NotNil(t, cfg)
	var aggregate errortypes.AggregateError
	require.True(t, errors.As(err, &aggregate))
	assert.Len(t, aggregate.Errors, 2)
}

func newDefaultConfig(t *testing.T) (*Configuration, *viper.Viper) {
	v := viper.New()
	SetupViper(v, "")
	v.Set("exchange.encryption_key", "ZW5j")
	v.Set("exchange.integrity_key", "aW50")
	v.SetConfigType("yaml")
	cfg, err := New(v)
	assert.NoError(t, err, "Setting up config should work but it doesn't")
	return cfg, v
}
