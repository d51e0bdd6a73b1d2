// Package config loads each daemon's typed configuration from a layered
// stack of YAML file, environment variables and defaults, following the
// viper wiring pattern used throughout the example codebase.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	cmerrors "github.com/cncf/clomonitor-go/internal/errors"
)

// DB holds the Postgres connection settings shared by every component.
type DB struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// GitHub holds the credential pool and REST/GraphQL client settings.
type GitHub struct {
	Tokens []string `mapstructure:"tokens"`
}

// Registrar is the Registrar daemon's configuration.
type Registrar struct {
	DB            DB            `mapstructure:"db"`
	TickInterval  time.Duration `mapstructure:"tick_interval"`
	Concurrency   int           `mapstructure:"concurrency"`
	FoundationTTL time.Duration `mapstructure:"foundation_timeout"`
}

// Tracker is the Tracker daemon's configuration.
type Tracker struct {
	DB             DB            `mapstructure:"db"`
	GitHub         GitHub        `mapstructure:"github"`
	TickInterval   time.Duration `mapstructure:"tick_interval"`
	Concurrency    int           `mapstructure:"concurrency"`
	RepositoryTTL  time.Duration `mapstructure:"repository_timeout"`
	StaleAfter     time.Duration `mapstructure:"stale_after"`
	CloneDepth     int           `mapstructure:"clone_depth"`
	ScorecardBin   string        `mapstructure:"scorecard_bin"`
}

// Archiver is the Archiver daemon's configuration.
type Archiver struct {
	DB           DB            `mapstructure:"db"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

// ViewTracker is the view-count aggregator/flusher configuration.
type ViewTracker struct {
	DB            DB            `mapstructure:"db"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	QueueCapacity int           `mapstructure:"queue_capacity"`
}

// Linter is the one-shot CLI evaluator's configuration.
type Linter struct {
	GitHub    GitHub `mapstructure:"github"`
	PassScore int    `mapstructure:"pass_score"`
}

func newViper(envPrefix, fileName string) *viper.Viper {
	v := viper.New()
	v.SetConfigName(fileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/clomonitor")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AllowEmptyEnv(true)
	return v
}

func readOptional(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); notFound {
			return nil
		}
		return cmerrors.NewFatalError("read", v.ConfigFileUsed(), err)
	}
	return nil
}

// LoadRegistrar loads the Registrar configuration from clomonitor.yaml,
// CLOMONITOR_* environment variables, and defaults.
func LoadRegistrar() (Registrar, error) {
	v := newViper("CLOMONITOR", "clomonitor")
	v.SetDefault("tick_interval", 30*time.Minute)
	v.SetDefault("concurrency", 4)
	v.SetDefault("foundation_timeout", 300*time.Second)
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", 30*time.Minute)
	if err := readOptional(v); err != nil {
		return Registrar{}, err
	}
	var cfg Registrar
	if err := v.Unmarshal(&cfg); err != nil {
		return Registrar{}, fmt.Errorf("unmarshal registrar config: %w", err)
	}
	return cfg, nil
}

// LoadTracker loads the Tracker configuration.
func LoadTracker() (Tracker, error) {
	v := newViper("CLOMONITOR", "clomonitor")
	v.SetDefault("tick_interval", 30*time.Minute)
	v.SetDefault("concurrency", 8)
	v.SetDefault("repository_timeout", 600*time.Second)
	v.SetDefault("stale_after", 24*time.Hour)
	v.SetDefault("clone_depth", 10)
	v.SetDefault("scorecard_bin", "scorecard")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", 30*time.Minute)
	if err := readOptional(v); err != nil {
		return Tracker{}, err
	}
	var cfg Tracker
	if err := v.Unmarshal(&cfg); err != nil {
		return Tracker{}, fmt.Errorf("unmarshal tracker config: %w", err)
	}
	if len(cfg.GitHub.Tokens) == 0 {
		if tok := v.GetString("github_token"); tok != "" {
			cfg.GitHub.Tokens = []string{tok}
		}
	}
	return cfg, nil
}

// LoadArchiver loads the Archiver configuration.
func LoadArchiver() (Archiver, error) {
	v := newViper("CLOMONITOR", "clomonitor")
	v.SetDefault("tick_interval", 24*time.Hour)
	v.SetDefault("db.max_open_conns", 5)
	v.SetDefault("db.max_idle_conns", 2)
	v.SetDefault("db.conn_max_lifetime", 30*time.Minute)
	if err := readOptional(v); err != nil {
		return Archiver{}, err
	}
	var cfg Archiver
	if err := v.Unmarshal(&cfg); err != nil {
		return Archiver{}, fmt.Errorf("unmarshal archiver config: %w", err)
	}
	return cfg, nil
}

// LoadViewTracker loads the View Tracker configuration.
func LoadViewTracker() (ViewTracker, error) {
	v := newViper("CLOMONITOR", "clomonitor")
	v.SetDefault("flush_interval", 300*time.Second)
	v.SetDefault("queue_capacity", 100)
	v.SetDefault("db.max_open_conns", 5)
	v.SetDefault("db.max_idle_conns", 2)
	v.SetDefault("db.conn_max_lifetime", 30*time.Minute)
	if err := readOptional(v); err != nil {
		return ViewTracker{}, err
	}
	var cfg ViewTracker
	if err := v.Unmarshal(&cfg); err != nil {
		return ViewTracker{}, fmt.Errorf("unmarshal view tracker config: %w", err)
	}
	return cfg, nil
}

// LoadLinter loads the linter CLI's configuration from an optional
// clomonitor-linter.yaml file, CLOMONITOR_* environment variables and
// defaults; flags override at the cobra layer.
func LoadLinter() (Linter, error) {
	v := newViper("CLOMONITOR", "clomonitor-linter")
	v.SetDefault("pass_score", 0)
	if err := readOptional(v); err != nil {
		return Linter{}, err
	}
	var cfg Linter
	if err := v.Unmarshal(&cfg); err != nil {
		return Linter{}, fmt.Errorf("unmarshal linter config: %w", err)
	}
	if len(cfg.GitHub.Tokens) == 0 {
		if tok := v.GetString("github_token"); tok != "" {
			cfg.GitHub.Tokens = []string{tok}
		}
	}
	return cfg, nil
}
