package db

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io/ioutil"
	"time"

	"github.com/eluv-io/errors-go"
	elog "github.com/eluv-io/log-go"
	"github.com/jackc/pgx"

	"handoffd/server/config"
)

var log = elog.Get("/hd/conn")

type ConnectionManager struct {
	cfg  config.DbConfig
	pool *pgx.ConnPool
}

func NewConnectionManager(cfg config.DbConfig) (m *ConnectionManager, err error) {
	connConfig := pgx.ConnConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Database: cfg.DefaultDb,
		User:     cfg.Username,
		Password: cfg.Password,
	}

	if connConfig.TLSConfig, err = tlsConfigFor(cfg); err != nil {
		return
	}

	poolConfig := pgx.ConnPoolConfig{
		ConnConfig:     connConfig,
		MaxConnections: cfg.MaxConn,
		AcquireTimeout: time.Duration(cfg.ConnTimeoutMS) * time.Millisecond,
		AfterConnect: func(conn *pgx.Conn) (err error) {
			log.Info(fmt.Sprintf("DB connection established: %v\n", conn.RuntimeParams))
			return
		},
	}
	var pool *pgx.ConnPool
	if pool, err = pgx.NewConnPool(poolConfig); err != nil {
		return
	}
	m = &ConnectionManager{
		cfg:  cfg,
		pool: pool,
	}
	return
}

func tlsConfigFor(cfg config.DbConfig) (*tls.Config, error) {
	switch cfg.SSLMode {
	case "", "disable":
		return nil, nil
	case "verify-full":
		cert, err := tls.LoadX509KeyPair(cfg.SSLCert, cfg.SSLKey)
		if err != nil {
			return nil, err
		}
		caCert, err := ioutil.ReadFile(cfg.SSLRootCert)
		if err != nil {
			return nil, err
		}
		caCertPool := x509.NewCertPool()
		caCertPool.AppendCertsFromPEM(caCert)
		tlsConfig := &tls.Config{
			Certificates: []tls.Certificate{cert},
			RootCAs:      caCertPool,
			ServerName:   cfg.Host,
		}
		return tlsConfig, nil
	default:
		return nil, errors.E("invalid sslmode for database connection", errors.K.Invalid, "mode", cfg.SSLMode)
	}
}

func (c *ConnectionManager) Close() {
	c.pool.Close()
}

func (c *ConnectionManager) GetConn() *pgx.ConnPool {
	return c.pool
}
