package config

import "time"

// Config is the root application configuration.
type Config struct {
	Catalog  CatalogConfig  `yaml:"catalog"`
	Sync     SyncConfig     `yaml:"sync"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
}

// CatalogConfig holds settings for the external catalog site and its
// detail API.
type CatalogConfig struct {
	BaseURL     string        `yaml:"base_url"     env:"CATALOG_BASE_URL"     env-default:"https://boardgamegeek.com"`
	APIBaseURL  string        `yaml:"api_base_url" env:"CATALOG_API_BASE_URL" env-default:"https://boardgamegeek.com/xmlapi2"`
	LoginPath   string        `yaml:"login_path"   env:"CATALOG_LOGIN_PATH"   env-default:"/login/api/v1"`
	ExportPath  string        `yaml:"export_path"  env:"CATALOG_EXPORT_PATH"  env-default:"/data_dumps/bg_ranks"`
	Username    string        `yaml:"username"     env:"CATALOG_USERNAME"     env-required:"true"`
	Password    string        `yaml:"password"     env:"CATALOG_PASSWORD"     env-required:"true"`
	HTTPTimeout time.Duration `yaml:"http_timeout" env:"CATALOG_HTTP_TIMEOUT" env-default:"60s"`
}

// SyncConfig holds pipeline tuning knobs. All of these track limits set
// by the remote side (API items-per-call, rate-limit cool-down), so they
// must stay configurable rather than hard-coded.
type SyncConfig struct {
	EnrichBatchSize    int           `yaml:"enrich_batch_size"     env:"SYNC_ENRICH_BATCH_SIZE"     env-default:"20"`
	InsertBatchSize    int           `yaml:"insert_batch_size"     env:"SYNC_INSERT_BATCH_SIZE"     env-default:"500"`
	RetryCooldown      time.Duration `yaml:"retry_cooldown"        env:"SYNC_RETRY_COOLDOWN"        env-default:"5s"`
	MaxAttempts        int           `yaml:"max_attempts"          env:"SYNC_MAX_ATTEMPTS"          env-default:"3"`
	MaxSkippedRowRatio float64       `yaml:"max_skipped_row_ratio" env:"SYNC_MAX_SKIPPED_ROW_RATIO" env-default:"0.01"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"10"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"2"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}
