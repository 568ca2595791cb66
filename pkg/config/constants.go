package config

// EnvPrefix namespaces every environment variable the platform reads.
const EnvPrefix = "KASI"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "KASI_DB_DSN"
	EnvDBHost = "KASI_DB_HOST"
	EnvDBUser = "KASI_DB_USER"
	EnvDBName = "KASI_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
