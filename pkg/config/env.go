package config

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvIdentityIssuer   = "STOREFRONT_IDENTITY_ISSUER"
	EnvIdentityAudience = "STOREFRONT_IDENTITY_AUDIENCE"
	EnvIdentitySecret   = "STOREFRONT_IDENTITY_SECRET"

	EnvCartRemoteTimeout = "STOREFRONT_CART_REMOTE_TIMEOUT"
	EnvCheckoutTaxRate   = "STOREFRONT_CHECKOUT_TAX_RATE"

	EnvGCPProjectID      = "STOREFRONT_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
