// Package app resolves the effective settings of one invocation and builds
// the engine from them.
package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"watchlist/internal/config"
	"watchlist/internal/db"
	"watchlist/internal/engine"
	"watchlist/internal/events"
	"watchlist/internal/logging"
	"watchlist/internal/store"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "WATCHLIST"

// Keys looked up in viper. Dashes become underscores in env names.
const (
	KeyWorkspace = "workspace"
	KeyConfig    = "config"
	KeyDataFile  = "datafile"
	KeyTempFile  = "tempfile"
	KeyHistory   = "history"
	KeyLogLevel  = "log-level"
	KeyServeAddr = "serve-addr"
	KeyJWTSecret = "jwt-secret"
	KeyJSON      = "json"
)

// Settings are the effective values after layering flags over env over the
// config file over built-in defaults. Paths are resolved against Workspace.
type Settings struct {
	Workspace string
	DataFile  string
	TempFile  string
	// History is the journal path; empty disables the journal.
	History   string
	LogLevel  string
	ServeAddr string
	JWTSecret string
	JSON      bool
}

// NewViper returns a viper instance reading WATCHLIST_* env vars.
func NewViper() *viper.Viper {
	v := viper.New()
	ConfigureEnv(v)
	return v
}

// ConfigureEnv makes v read WATCHLIST_* env vars.
func ConfigureEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// Resolve reads the config file (the --config path, or watchlist.yml in the
// workspace when present) and layers v's flags and env on top of it.
func Resolve(v *viper.Viper) (Settings, error) {
	workspace := v.GetString(KeyWorkspace)
	if workspace == "" {
		workspace = "."
	}
	file, err := loadFile(v.GetString(KeyConfig), workspace)
	if err != nil {
		return Settings{}, err
	}
	v.SetDefault(KeyDataFile, file.DataFile)
	v.SetDefault(KeyTempFile, file.TempFile)
	v.SetDefault(KeyHistory, file.History)
	v.SetDefault(KeyLogLevel, file.Log.Level)
	v.SetDefault(KeyServeAddr, file.Serve.Addr)
	v.SetDefault(KeyJWTSecret, file.Serve.JWTSecret)

	s := Settings{
		Workspace: workspace,
		DataFile:  resolvePath(workspace, v.GetString(KeyDataFile)),
		TempFile:  resolvePath(workspace, v.GetString(KeyTempFile)),
		LogLevel:  v.GetString(KeyLogLevel),
		ServeAddr: v.GetString(KeyServeAddr),
		JWTSecret: v.GetString(KeyJWTSecret),
		JSON:      v.GetBool(KeyJSON),
	}
	if h := v.GetString(KeyHistory); h != "" {
		s.History = resolvePath(workspace, h)
	}
	if err := s.Config().Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func loadFile(path, workspace string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.FromFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		return cfg, nil
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", config.Path(workspace), err)
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

func resolvePath(workspace, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(workspace, p)
}

// Config renders the effective settings in config file form.
func (s Settings) Config() *config.Config {
	cfg := &config.Config{
		DataFile: s.DataFile,
		TempFile: s.TempFile,
		History:  s.History,
	}
	cfg.Log.Level = s.LogLevel
	cfg.Serve.Addr = s.ServeAddr
	cfg.Serve.JWTSecret = s.JWTSecret
	return cfg
}

// Logger builds the process logger writing to w (stderr when nil).
func (s Settings) Logger(w io.Writer) *logrus.Logger {
	return logging.New(s.LogLevel, w)
}

// Store returns the record store for the resolved paths.
func (s Settings) Store(logger logrus.FieldLogger) *store.Store {
	return store.New(s.DataFile, s.TempFile, logger)
}

// OpenEngine builds the engine. With journal set and a history path
// configured the journal is opened too; the returned close func releases it.
func (s Settings) OpenEngine(ctx context.Context, logger logrus.FieldLogger, journal bool) (engine.Engine, func() error, error) {
	noop := func() error { return nil }
	st := s.Store(logger)
	if !journal || s.History == "" {
		return engine.New(st, nil, logger), noop, nil
	}
	cfg := db.Config{Path: s.History, Workspace: s.Workspace}
	j, err := events.Open(ctx, cfg)
	if err != nil {
		return engine.Engine{}, noop, fmt.Errorf("open history %s: %w", db.Path(cfg), err)
	}
	return engine.New(st, j, logger), j.Close, nil
}
