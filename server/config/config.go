package config

type DbConfig struct {
	Username      string
	Password      string
	Host          string
	Port          uint16
	DefaultDb     string
	MaxConn       int
	ConnTimeoutMS int
	RunMigrations bool
	SSLMode       string // disable, verify-full
	SSLCert       string
	SSLKey        string
	SSLRootCert   string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

type ServiceConfig struct {
	Port    int
	Storage string // memory, postgres, redis

	// AllowUncheckedAdvance exposes the administrative route that moves a
	// fulfillment forward without consuming the transfer token or the
	// collection secret.
	AllowUncheckedAdvance bool

	DbConfig    DbConfig
	RedisConfig RedisConfig
}
