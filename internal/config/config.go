// Package config resolves the process configuration from defaults, an
// optional config file, a .env file and the environment, then lets the
// settings stored in the database override the runtime thresholds.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/domovra/domovra/internal/model"
	"github.com/domovra/domovra/internal/retention"
	"github.com/domovra/domovra/internal/store"
)

// Config is the resolved configuration.
type Config struct {
	DBPath          string
	Addr            string
	LogFile         string
	Retention       retention.Thresholds
	LowStockDefault bool
}

// Defaults.
const (
	DefaultDBPath = "domovra.sqlite3"
	DefaultAddr   = ":8080"
)

// Load reads the configuration. configFile may be empty; when set it must
// exist. Values from the environment win over the file. DOMOVRA_* variables
// are read, along with the unprefixed DB_PATH, WARNING_DAYS and
// CRITICAL_DAYS.
func Load(configFile string) (*Config, error) {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.SetDefault("db_path", DefaultDBPath)
	v.SetDefault("addr", DefaultAddr)
	v.SetDefault("log_file", "")
	v.SetDefault("warning_days", retention.DefaultWarningDays)
	v.SetDefault("critical_days", retention.DefaultCriticalDays)
	v.SetDefault("low_stock_default", true)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("domovra")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	legacy := map[string]string{
		"db_path":       "DB_PATH",
		"warning_days":  "WARNING_DAYS",
		"critical_days": "CRITICAL_DAYS",
	}
	for key, env := range legacy {
		if err := v.BindEnv(key, "DOMOVRA_"+strings.ToUpper(key), env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	cfg := &Config{
		DBPath:  v.GetString("db_path"),
		Addr:    v.GetString("addr"),
		LogFile: v.GetString("log_file"),
		Retention: retention.Thresholds{
			Warning:  intOr(v.Get("warning_days"), retention.DefaultWarningDays),
			Critical: intOr(v.Get("critical_days"), retention.DefaultCriticalDays),
		}.Normalize(),
		LowStockDefault: flagOr(v.Get("low_stock_default"), true),
	}
	return cfg, nil
}

// Resolve applies the stored settings on top of cfg and returns the result.
// Unparsable values are ignored.
func Resolve(cfg Config, settings map[string]string) Config {
	if s, ok := settings[store.SettingWarningDays]; ok {
		cfg.Retention.Warning = intOr(s, cfg.Retention.Warning)
	}
	if s, ok := settings[store.SettingCriticalDays]; ok {
		cfg.Retention.Critical = intOr(s, cfg.Retention.Critical)
	}
	if s, ok := settings[store.SettingLowStockDefault]; ok {
		cfg.LowStockDefault = flagOr(s, cfg.LowStockDefault)
	}
	cfg.Retention = cfg.Retention.Normalize()
	return cfg
}

func intOr(v any, def int) int {
	return model.IntOr(v, def)
}

func flagOr(v any, def bool) bool {
	if b := model.FlagOrNil(v); b != nil {
		return *b
	}
	return def
}
