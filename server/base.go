package server

import (
	elog "github.com/eluv-io/log-go"
	"github.com/gin-gonic/gin"

	"handoffd/server/config"
	"handoffd/server/db"
)

var log = elog.Get("/hd/server")

type Server struct {
	Router *gin.Engine

	Cfg               *config.ServiceConfig
	ConnectionManager *db.ConnectionManager

	HandoffService *HandoffService
}

func New(cfg *config.ServiceConfig) *Server {
	return &Server{Cfg: cfg}
}

// ConnectDb attaches the postgres connection pool; only called when the
// configured storage engine is postgres.
func ConnectDb(cfg *config.ServiceConfig) (s *Server, err error) {
	log.Info("ConnectDb", "DbConfig", cfg.DbConfig.Host)
	s = New(cfg)

	if s.ConnectionManager, err = db.NewConnectionManager(cfg.DbConfig); err != nil {
		log.Error("error connecting", err)
		return
	}

	return s, nil
}
