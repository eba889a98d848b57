package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	URLs          URLConfig
	CORS          CORSConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Media         MediaConfig
	Checkout      CheckoutConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
	Razorpay      RazorpayConfig
	PhonePe       PhonePeConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FLASHBACK_APP_ENV" required:"true"`
	Port         string `envconfig:"FLASHBACK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"FLASHBACK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FLASHBACK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FLASHBACK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FLASHBACK_DB_DSN"`
	Driver string `envconfig:"FLASHBACK_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"FLASHBACK_DB_HOST"`
	Port     int    `envconfig:"FLASHBACK_DB_PORT" default:"5432"`
	User     string `envconfig:"FLASHBACK_DB_USER"`
	Password string `envconfig:"FLASHBACK_DB_PASSWORD"`
	Name     string `envconfig:"FLASHBACK_DB_NAME"`
	SSLMode  string `envconfig:"FLASHBACK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FLASHBACK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FLASHBACK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FLASHBACK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FLASHBACK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FLASHBACK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FLASHBACK_REDIS_ADDR"`
	Password     string        `envconfig:"FLASHBACK_REDIS_PASSWORD"`
	DB           int           `envconfig:"FLASHBACK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FLASHBACK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FLASHBACK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FLASHBACK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FLASHBACK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FLASHBACK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FLASHBACK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FLASHBACK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FLASHBACK_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// TokenTTL returns the access token lifetime.
func (j JWTConfig) TokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"FLASHBACK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FLASHBACK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FLASHBACK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FLASHBACK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FLASHBACK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"FLASHBACK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"FLASHBACK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"FLASHBACK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FLASHBACK_AUTO_MIGRATE" default:"false"`
}

// URLConfig holds the public base URLs handed to payment providers for redirects and callbacks.
type URLConfig struct {
	Frontend string `envconfig:"FLASHBACK_FRONTEND_URL" default:"http://localhost:5173"`
	Backend  string `envconfig:"FLASHBACK_BACKEND_URL" default:"http://localhost:8080"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"FLASHBACK_CORS_ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FLASHBACK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"FLASHBACK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FLASHBACK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"FLASHBACK_GCS_BUCKET_NAME"`
	PublicBaseURL string `envconfig:"FLASHBACK_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
	OrderFolder   string `envconfig:"FLASHBACK_GCS_ORDER_FOLDER" default:"flashback_frames/orders"`
}

type MediaConfig struct {
	MaxImageMB int `envconfig:"FLASHBACK_MAX_IMAGE_MB" default:"10"`
}

// MaxImageBytes converts the configured limit into bytes.
func (m MediaConfig) MaxImageBytes() int64 {
	if m.MaxImageMB <= 0 {
		return 10 << 20
	}
	return int64(m.MaxImageMB) << 20
}

type CheckoutConfig struct {
	MaxItems       int           `envconfig:"FLASHBACK_CHECKOUT_MAX_ITEMS" default:"20"`
	GatewayTimeout time.Duration `envconfig:"FLASHBACK_CHECKOUT_GATEWAY_TIMEOUT" default:"15s"`
	CartTTL        time.Duration `envconfig:"FLASHBACK_CART_TTL" default:"720h"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"FLASHBACK_PUBSUB_ORDERS_TOPIC" default:"ff-order-events"`
	OrdersSubscription string `envconfig:"FLASHBACK_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FLASHBACK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FLASHBACK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FLASHBACK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"FLASHBACK_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"FLASHBACK_CRON_INTERVAL" default:"5m"`
	ReconcileMinAge time.Duration `envconfig:"FLASHBACK_CRON_RECONCILE_MIN_AGE" default:"10m"`
	ReconcileMaxAge time.Duration `envconfig:"FLASHBACK_CRON_RECONCILE_MAX_AGE" default:"48h"`
	ReconcileBatch  int           `envconfig:"FLASHBACK_CRON_RECONCILE_BATCH" default:"100"`
}

type RazorpayConfig struct {
	KeyID     string `envconfig:"FLASHBACK_RAZORPAY_KEY_ID"`
	KeySecret string `envconfig:"FLASHBACK_RAZORPAY_KEY_SECRET"`
	BaseURL   string `envconfig:"FLASHBACK_RAZORPAY_BASE_URL" default:"https://api.razorpay.com/v1"`
	Currency  string `envconfig:"FLASHBACK_RAZORPAY_CURRENCY" default:"INR"`
}

// Enabled reports whether hosted checkout credentials are configured.
func (r RazorpayConfig) Enabled() bool {
	return r.KeyID != "" && r.KeySecret != ""
}

type PhonePeConfig struct {
	MerchantID               string `envconfig:"FLASHBACK_PHONEPE_MERCHANT_ID"`
	SaltKey                  string `envconfig:"FLASHBACK_PHONEPE_SALT_KEY"`
	SaltIndex                string `envconfig:"FLASHBACK_PHONEPE_SALT_INDEX" default:"1"`
	Env                      string `envconfig:"FLASHBACK_PHONEPE_ENV" default:"staging"`
	BaseURL                  string `envconfig:"FLASHBACK_PHONEPE_BASE_URL"`
	RequireCallbackSignature bool   `envconfig:"FLASHBACK_PHONEPE_REQUIRE_CALLBACK_SIGNATURE" default:"true"`
}

// Enabled reports whether redirect gateway credentials are configured.
func (p PhonePeConfig) Enabled() bool {
	return p.MerchantID != "" && p.SaltKey != ""
}

// Endpoint returns the provider base URL for the configured environment.
func (p PhonePeConfig) Endpoint() string {
	if p.BaseURL != "" {
		return strings.TrimRight(p.BaseURL, "/")
	}
	if strings.EqualFold(strings.TrimSpace(p.Env), "production") {
		return PhonePeProductionURL
	}
	return PhonePeStagingURL
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
