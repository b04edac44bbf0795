package config

type DefaultValue struct {
	Key   string
	Value any
}

// Defaults lists every configuration key. Keys without a default here are
// invisible to environment overrides.
var Defaults = []DefaultValue{
	{Key: "production_environment", Value: false},
	{Key: "log_level", Value: "info"},
	{Key: "human_readable_output", Value: false},
	{Key: "port", Value: 8080},
	{Key: "health_port", Value: 0},

	{Key: "upload.general_prefix", Value: "uploads"},
	{Key: "upload.generated_prefix", Value: "uploads/generated"},
	{Key: "upload.allowed_mime_types", Value: []string{"image/png", "image/jpeg"}},
	{Key: "upload.max_bytes", Value: 20 << 20},

	{Key: "persistence.type", Value: "filesystem"},
	{Key: "persistence.storage_dir", Value: "data"},
	{Key: "persistence.s3.endpoint", Value: ""},
	{Key: "persistence.s3.region", Value: ""},
	{Key: "persistence.s3.bucket", Value: ""},
	{Key: "persistence.s3.key_id", Value: ""},
	{Key: "persistence.s3.access_key", Value: ""},
	{Key: "persistence.s3.timeout", Value: "30s"},
	{Key: "persistence.minio.endpoint", Value: ""},
	{Key: "persistence.minio.access_key", Value: ""},
	{Key: "persistence.minio.secret_key", Value: ""},
	{Key: "persistence.minio.bucket", Value: "map-artifacts"},
	{Key: "persistence.minio.use_ssl", Value: false},

	{Key: "database.type", Value: "mongo"},
	{Key: "database.host", Value: "localhost"},
	{Key: "database.port", Value: 5432},
	{Key: "database.username", Value: ""},
	{Key: "database.password", Value: ""},
	{Key: "database.database", Value: "map_registry"},
	{Key: "database.sslmode", Value: "disable"},
	{Key: "database.uri", Value: "mongodb://localhost:27017"},

	{Key: "preview.type", Value: "memory"},
	{Key: "preview.ttl", Value: "30m"},
	{Key: "preview.redis.addr", Value: "localhost:6379"},
	{Key: "preview.redis.password", Value: ""},
	{Key: "preview.redis.db", Value: 0},

	{Key: "auth.jwt_secret", Value: ""},
	{Key: "auth.issuer", Value: ""},
}
