package config

// EnvPrefix namespaces every environment variable this service reads.
const EnvPrefix = "questly"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "QUESTLY_DB_DSN"
	EnvDBHost = "QUESTLY_DB_HOST"
	EnvDBUser = "QUESTLY_DB_USER"
	EnvDBName = "QUESTLY_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
