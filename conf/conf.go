// Package conf loads the lakegate configuration from file and environment.
package conf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.uber.org/fx"

	"github.com/looplj/lakegate/internal/log"
	"github.com/looplj/lakegate/internal/server"
	"github.com/looplj/lakegate/internal/store"
)

// Config is the full application configuration.
type Config struct {
	Server server.Config `conf:"server" yaml:"server" json:"server"`
	DB     store.Config  `conf:"db" yaml:"db" json:"db"`
	Log    log.Config    `conf:"log" yaml:"log" json:"log"`
}

// Load reads lakegate.yml from the working directory or /etc/lakegate,
// overridden by LAKEGATE_-prefixed environment variables
// (e.g. LAKEGATE_SERVER_PORT, LAKEGATE_DB_DSN).
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("lakegate")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/lakegate")

	v.SetEnvPrefix("LAKEGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		// No file is fine: defaults plus environment.
	}

	var cfg Config
	decodeHooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))

	if err := v.Unmarshal(&cfg, decodeHooks, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "conf"
	}); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.name", "lakegate")
	v.SetDefault("server.auth.role_header", server.DefaultRoleHeader)
	v.SetDefault("server.auth.subject_header", server.DefaultSubjectHeader)
	v.SetDefault("db.dialect", "sqlite")
	v.SetDefault("db.dsn", "file:lakegate.db")
	v.SetDefault("log.name", "lakegate")
	v.SetDefault("log.level", "info")
}

// Module provides the loaded config and its sections.
var Module = fx.Options(
	fx.Provide(Load),
	fx.Provide(func(cfg Config) server.Config { return cfg.Server }),
	fx.Provide(func(cfg Config) store.Config { return cfg.DB }),
	fx.Provide(func(cfg Config) log.Config { return cfg.Log }),
)
