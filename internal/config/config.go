package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string   `mapstructure:"mode"`
	Port       int      `mapstructure:"port"`
	Secret     string   `mapstructure:"secret"`
	LogLevel   string   `mapstructure:"log_level"`
	ICEServers []string `mapstructure:"ice_servers"`
	RecordDir  string   `mapstructure:"record_dir"`

	API       APIConfig       `mapstructure:"api"`
	Janus     JanusConfig     `mapstructure:"janus"`
	VideoRoom VideoRoomConfig `mapstructure:"videoroom"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Translate TranslateConfig `mapstructure:"translate"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Media     MediaConfig     `mapstructure:"media"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type JanusConfig struct {
	URL            string        `mapstructure:"url"`
	Keepalive      time.Duration `mapstructure:"keepalive"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type VideoRoomConfig struct {
	Publishers  int    `mapstructure:"publishers"`
	Bitrate     int    `mapstructure:"bitrate"`
	FIRFreq     int    `mapstructure:"fir_freq"`
	Description string `mapstructure:"description"`
}

type ChatConfig struct {
	URL          string        `mapstructure:"url"`
	Namespace    string        `mapstructure:"namespace"`
	Reconnect    time.Duration `mapstructure:"reconnect"`
	MaxReconnect time.Duration `mapstructure:"max_reconnect"`
}

type TranslateConfig struct {
	Endpoint  string        `mapstructure:"endpoint"`
	Client    string        `mapstructure:"client"`
	Target    string        `mapstructure:"target"`
	Language  string        `mapstructure:"language"`
	Cache     string        `mapstructure:"cache"`
	CacheSize int           `mapstructure:"cache_size"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MediaConfig struct {
	Width        int `mapstructure:"width"`
	Height       int `mapstructure:"height"`
	VideoBitrate int `mapstructure:"video_bitrate"`
	AudioBitrate int `mapstructure:"audio_bitrate"`
}

func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFile reads fileName if present; missing files fall back to defaults.
func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("duet")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("janus", cfg.Janus.URL).
		Str("api", cfg.API.BaseURL).
		Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8090)
	v.SetDefault("secret", "duet-dev-secret")
	v.SetDefault("log_level", "info")
	v.SetDefault("ice_servers", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("record_dir", "recordings")

	v.SetDefault("api.base_url", "http://localhost:8082/api")
	v.SetDefault("api.timeout", "10s")

	v.SetDefault("janus.url", "ws://localhost:8188")
	v.SetDefault("janus.keepalive", "25s")
	v.SetDefault("janus.request_timeout", "10s")

	v.SetDefault("videoroom.publishers", 6)
	v.SetDefault("videoroom.bitrate", 128000)
	v.SetDefault("videoroom.fir_freq", 10)
	v.SetDefault("videoroom.description", "duet")

	v.SetDefault("chat.url", "http://localhost:8082")
	v.SetDefault("chat.namespace", "/chat")
	v.SetDefault("chat.reconnect", "1s")
	v.SetDefault("chat.max_reconnect", "30s")

	v.SetDefault("translate.endpoint", "https://translate.googleapis.com/translate_a/single")
	v.SetDefault("translate.client", "gtx")
	v.SetDefault("translate.target", "ko")
	v.SetDefault("translate.language", "ko")
	v.SetDefault("translate.cache", "memory")
	v.SetDefault("translate.cache_size", 1024)
	v.SetDefault("translate.cache_ttl", "24h")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("media.width", 640)
	v.SetDefault("media.height", 480)
	v.SetDefault("media.video_bitrate", 500000)
	v.SetDefault("media.audio_bitrate", 32000)
}
