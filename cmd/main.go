package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/eluv-io/errors-go"
	elog "github.com/eluv-io/log-go"
	"github.com/eluv-io/log-go/handlers/console"
	"github.com/spf13/viper"

	"handoffd/constants"
	"handoffd/fulfillment"
	"handoffd/handoffd"
	"handoffd/server"
	"handoffd/server/config"
	"handoffd/storage/memory"
	"handoffd/storage/pg"
	"handoffd/storage/redisstore"
)

type ConfigState struct {
	Config     string
	LogFile    string
	LogHandler string
	Verbosity  string
}

var (
	cfgState = ConfigState{}
	log      = elog.Get("/hd")
)

func main() {
	if len(os.Args) < 3 {
		fmt.Printf("Usage: %s --config <config.toml>\n", constants.DaemonName)
		return
	}

	if _, err := startServer(os.Args[2]); err != nil {
		fmt.Println("cannot launch", "Error", err)
		os.Exit(1)
	}
}

func startServer(configFile string) (s *server.Server, err error) {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return
	}

	if s, err = buildServer(cfg); err != nil {
		return
	}

	err = handoffd.Init(s)
	if err != nil {
		return
	}

	return
}

// buildServer wires the configured storage engine into the repository and
// hangs the service off the server shell.
func buildServer(cfg *config.ServiceConfig) (s *server.Server, err error) {
	ctx := context.Background()

	var store fulfillment.Store
	switch cfg.Storage {
	case constants.StorageMemory:
		store = memory.NewStore()
	case constants.StorageRedis:
		s = server.New(cfg)
		if store, err = redisstore.NewStore(cfg.RedisConfig); err != nil {
			return nil, err
		}
	case constants.StoragePostgres:
		if s, err = server.ConnectDb(cfg); err != nil {
			return nil, err
		}
		if store, err = pg.NewStore(s.ConnectionManager, constants.StateKey, cfg.DbConfig.RunMigrations); err != nil {
			return nil, err
		}
	default:
		return nil, errors.E("invalid storage engine", errors.K.Invalid, "storage", cfg.Storage)
	}
	if s == nil {
		s = server.New(cfg)
	}

	repo := fulfillment.NewRepository(ctx, store)
	s.HandoffService = server.NewHandoffService(repo)
	return s, nil
}

func loadConfig(configFile string) (cfg *config.ServiceConfig, err error) {
	log.Debug("config", "file", configFile)
	viper.SetDefault(constants.DaemonName+".service_port", 2024)
	viper.SetDefault(constants.DaemonName+".log_file", constants.DaemonName)
	viper.SetDefault(constants.DaemonName+".log_handler", "console")
	viper.SetDefault(constants.DaemonName+".verbosity", 3)
	viper.SetDefault(constants.DaemonName+".storage", constants.StorageMemory)
	viper.SetDefault(constants.DaemonName+".allow_unchecked_advance", false)
	viper.SetDefault("redis.key", constants.StateKey)
	cfgState.Config = configFile

	cfg = &config.ServiceConfig{}
	err = getBaseConfig(cfg)
	if err != nil {
		return nil, err
	}

	var trueVal = true
	logConfig := &elog.Config{
		Level:   cfgState.Verbosity,
		Handler: cfgState.LogHandler,
		File:    &elog.LumberjackConfig{Filename: cfgState.LogFile},
		Caller:  &trueVal,
	}
	elog.SetDefault(logConfig)

	if lh, ok := log.Handler().(*console.Handler); ok {
		lh.WithTimestamps(true)
	}

	log.Debug("loadConfig", "service_port", cfg.Port, "storage", cfg.Storage)

	return cfg, nil
}

func getBaseConfig(cfg *config.ServiceConfig) (err error) {
	if err = loadConfigState(&cfgState, constants.DaemonName); err != nil {
		log.Error("error parsing", "config file", err)
		return
	}

	cfg.Port = viper.GetInt(constants.DaemonName + ".service_port")
	cfg.Storage = viper.GetString(constants.DaemonName + ".storage")
	cfg.AllowUncheckedAdvance = viper.GetBool(constants.DaemonName + ".allow_unchecked_advance")

	switch cfg.Storage {
	case constants.StoragePostgres:
		if cfg.DbConfig, err = getDbConfig(); err != nil {
			log.Error("getDbConfig error", err)
			return
		}
	case constants.StorageRedis:
		cfg.RedisConfig = getRedisConfig()
	}

	return
}

func loadConfigState(configState *ConfigState, prefix string) error {
	var filename string
	var err error

	filename = filepath.Base(configState.Config)
	viper.SetConfigName(filename[:len(filename)-len(filepath.Ext(filename))])
	viper.AddConfigPath(filepath.Dir(configState.Config))

	if err = viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file - %v", err)
	}

	configState.LogFile = viper.GetString(prefix + ".log_file")
	configState.LogHandler = viper.GetString(prefix + ".log_handler")
	configState.Verbosity = toVerbosity(viper.GetInt(prefix + ".verbosity"))

	return nil
}

func getDbConfig() (dbCfg config.DbConfig, err error) {
	dbCfg = config.DbConfig{
		Username:      viper.GetString("db.username"),
		Password:      viper.GetString("db.password"),
		Host:          viper.GetString("db.host"),
		Port:          uint16(viper.GetUint("db.port")),
		DefaultDb:     viper.GetString("db.database"),
		MaxConn:       viper.GetInt("db.max_conn"),
		ConnTimeoutMS: viper.GetInt("db.conn_timeout_ms"),
		RunMigrations: viper.GetBool("db.run_migrations"),
		SSLMode:       viper.GetString("db.ssl_mode"),
	}

	switch dbCfg.SSLMode {
	case "", "disable":
		log.Warn("disabling TLS for database")
	case "verify-full":
		dbCfg.SSLCert = viper.GetString("db.ssl_cert")
		dbCfg.SSLKey = viper.GetString("db.ssl_key")
		dbCfg.SSLRootCert = viper.GetString("db.ssl_root_cert")
	default:
		err = errors.E("invalid ssl mode for database", "mode", dbCfg.SSLMode)
		return
	}

	return
}

func getRedisConfig() config.RedisConfig {
	return config.RedisConfig{
		Addr:     viper.GetString("redis.addr"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
		Key:      viper.GetString("redis.key"),
	}
}

func toVerbosity(verbosity int) string {
	switch verbosity {
	case 0:
		return "fatal"
	case 1:
		return "error"
	case 2:
		return "warn"
	case 3:
		return "info"
	case 4:
		return "debug"
	case 5:
		return "trace"
	default:
		panic("bad verbosity level")
	}
}
