package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Geo      GeoConfig      `yaml:"geo" mapstructure:"geo"`
	Resolver ResolverConfig `yaml:"resolver" mapstructure:"resolver"`
	Rules    RulesConfig    `yaml:"rules" mapstructure:"rules"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// GeoConfig points at the static geometry sources. Both layers accept either
// a GeoJSON feature collection or an ESRI shapefile, detected by extension.
type GeoConfig struct {
	ZonesPath   string `yaml:"zones_path" mapstructure:"zones_path"`
	StreetsPath string `yaml:"streets_path" mapstructure:"streets_path"`
}

// ResolverConfig configures the spatial resolver.
type ResolverConfig struct {
	StreetMaxDistanceM float64 `yaml:"street_max_distance_m" mapstructure:"street_max_distance_m"`
}

// RulesConfig configures the rule store backend.
type RulesConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // postgres | sqlite | file
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	FilePath    string `yaml:"file_path" mapstructure:"file_path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FEASIBILITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("geo.zones_path", "data/zoning.geojson")
	v.SetDefault("geo.streets_path", "data/streets.geojson")
	v.SetDefault("resolver.street_max_distance_m", 120.0)
	v.SetDefault("rules.driver", "sqlite")
	v.SetDefault("rules.sqlite_path", "feasibility.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
