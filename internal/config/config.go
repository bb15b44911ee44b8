package config

import (
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type ICEServer struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`

	LogLevel         string `mapstructure:"log_level"`
	PionLogLevel     string `mapstructure:"pion_log_level"`
	EventQueueSize   int    `mapstructure:"event_queue_size"`
	SendBufferSize   int    `mapstructure:"send_buffer_size"`
	MaxDroppedFrames int    `mapstructure:"max_dropped_frames"`

	CreateLimit    int           `mapstructure:"create_limit"`
	CreateInterval time.Duration `mapstructure:"create_interval"`

	ICEServers []ICEServer `mapstructure:"ice_servers"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("log_level", "info")
	v.SetDefault("pion_log_level", "warn")
	v.SetDefault("event_queue_size", 64)
	v.SetDefault("send_buffer_size", 64)
	v.SetDefault("max_dropped_frames", 256)
	v.SetDefault("create_limit", 20)
	v.SetDefault("create_interval", "10s")
	v.SetDefault("ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
	})
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("RTCBRIDGE")
	v.AutomaticEnv()

	setDefaults(v)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		fileLoaded = false
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := ApplyLogLevel(cfg.LogLevel); err != nil {
		return nil, err
	}

	if fileLoaded {
		v.OnConfigChange(func(e fsnotify.Event) {
			if err := ApplyLogLevel(v.GetString("log_level")); err != nil {
				log.Error().Err(err).Str("module", "config").Str("file", e.Name).Msg("reload log level")
				return
			}
			log.Info().Str("module", "config").Str("file", e.Name).Str("log_level", v.GetString("log_level")).Msg("config reloaded")
		})
		v.WatchConfig()
	}

	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("static", cfg.StaticPath).Msg("config ready")
	return &cfg, nil
}

// ApplyLogLevel sets the global zerolog level.
func ApplyLogLevel(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}
