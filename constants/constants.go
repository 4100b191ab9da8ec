package constants

const (
	DaemonName = "handoffd"

	// StateKey is the well-known storage key the full fulfillment
	// collection is serialized under.
	StateKey = "handoffd:fulfillments"
)

// storage engine names accepted in the config file
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)
