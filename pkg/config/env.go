package config

const (
	EnvPrefix = "FLASHBACK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	PhonePeStagingURL    = "https://api-preprod.phonepe.com/apis/pg-sandbox"
	PhonePeProductionURL = "https://api.phonepe.com/apis/hermes"
)

const (
	EnvAppEnv           = "FLASHBACK_APP_ENV"
	EnvPort             = "FLASHBACK_APP_PORT"
	EnvDBDSN            = "FLASHBACK_DB_DSN"
	EnvDBHost           = "FLASHBACK_DB_HOST"
	EnvDBUser           = "FLASHBACK_DB_USER"
	EnvDBName           = "FLASHBACK_DB_NAME"
	EnvDBPassword       = "FLASHBACK_DB_PASSWORD"
	EnvRedisURL         = "FLASHBACK_REDIS_URL"
	EnvJWTSecret        = "FLASHBACK_JWT_SECRET"
	EnvJWTIssuer        = "FLASHBACK_JWT_ISSUER"
	EnvJWTExpMins       = "FLASHBACK_JWT_EXPIRATION_MINUTES"
	EnvCORSOrigins      = "FLASHBACK_CORS_ALLOWED_ORIGINS"
	EnvPhonePeEnv       = "FLASHBACK_PHONEPE_ENV"
	EnvPhonePeMerchant  = "FLASHBACK_PHONEPE_MERCHANT_ID"
	EnvPhonePeSaltKey   = "FLASHBACK_PHONEPE_SALT_KEY"
	EnvRazorpayKeyID    = "FLASHBACK_RAZORPAY_KEY_ID"
	EnvRazorpaySecret   = "FLASHBACK_RAZORPAY_KEY_SECRET"
	EnvCronInterval     = "FLASHBACK_CRON_INTERVAL"
	EnvPubSubOrderTopic = "FLASHBACK_PUBSUB_ORDERS_TOPIC"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
