package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppCfg struct {
	Name string
	Env  string
	Host string
	Port int
}

type LogCfg struct {
	Level string
}

type DBCfg struct {
	DSN         string
	MaxOpen     int
	MaxIdle     int
	AutoMigrate bool
}

type RedisCfg struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

type MQCfg struct {
	URL       string
	RoomQueue string
	TourQueue string
	Prefetch  int
}

type StorageCfg struct {
	// Backend selects where processed artifacts live: "local" or "s3".
	Backend string
	// LocalDir is the root under which the local backend writes artifact
	// keys; its tours/ subtree is served statically at /tours. Artifact
	// URLs are PublicBaseURL + "/" + key, so an empty base yields
	// same-origin paths like /tours/{propertyId}/....
	LocalDir      string
	UploadDir     string
	WorkDir       string
	PublicBaseURL string
}

type S3Cfg struct {
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	UsePathStyle bool
	PublicURL    string
	SSE          string
}

type VoicePreset struct {
	ID          string
	Name        string
	Description string
}

type NarrationCfg struct {
	Enabled      bool
	APIKey       string
	BaseURL      string
	DefaultVoice string
	TimeoutSec   int
	Concurrency  int
	Voices       map[string]VoicePreset
}

type ScriptGenCfg struct {
	APIKey     string
	BaseURL    string
	Model      string
	TimeoutSec int
}

type WorkerCfg struct {
	Concurrency int
}

type TelemetryCfg struct {
	Enabled      bool
	OtlpEndpoint string
	SampleRatio  float64
}

type Config struct {
	App       AppCfg
	Log       LogCfg
	Database  DBCfg
	Redis     RedisCfg
	RabbitMQ  MQCfg
	Storage   StorageCfg
	S3        S3Cfg
	Narration NarrationCfg
	ScriptGen ScriptGenCfg
	Worker    WorkerCfg
	Telemetry TelemetryCfg
}

func (n NarrationCfg) Timeout() time.Duration {
	if n.TimeoutSec <= 0 {
		return 60 * time.Second
	}
	return time.Duration(n.TimeoutSec) * time.Second
}

func (s ScriptGenCfg) Timeout() time.Duration {
	if s.TimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.TimeoutSec) * time.Second
}

func Load() (*Config, error) {
	base := viper.New()
	base.SetConfigName("config")
	base.SetConfigType("yaml")
	base.AddConfigPath("./configs")
	base.AddConfigPath(".")
	base.AutomaticEnv()
	base.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	base.SetEnvPrefix("APP")

	setDefaults(base)

	if err := base.ReadInConfig(); err == nil {
		// Expand ${ENV} references once before parsing, then reload the
		// expanded content with a fresh viper.
		path := base.ConfigFileUsed()
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		expanded := os.ExpandEnv(string(raw))

		v := viper.New()
		v.SetConfigType("yaml")
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return nil, err
		}
		v.AutomaticEnv()
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.SetEnvPrefix("APP")
		setDefaults(v)

		cfg := new(Config)
		if err := v.Unmarshal(&cfg); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	// No config file is also fine, env + defaults only.
	cfg := new(Config)
	if err := base.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that would otherwise surface deep inside a
// background job: an unknown storage backend or a broken voice preset is a
// startup error, not a silent runtime fallback.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "local", "s3":
	default:
		return fmt.Errorf("storage.backend %q is not one of local, s3", c.Storage.Backend)
	}

	if c.Narration.Enabled {
		if len(c.Narration.Voices) == 0 {
			return fmt.Errorf("narration enabled but no voice presets configured")
		}
		for name, preset := range c.Narration.Voices {
			if strings.TrimSpace(preset.ID) == "" {
				return fmt.Errorf("voice preset %q has an empty provider id", name)
			}
		}
		if _, ok := c.Narration.Voices[c.Narration.DefaultVoice]; !ok {
			return fmt.Errorf("narration.defaultVoice %q is not a configured preset", c.Narration.DefaultVoice)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "panotour")
	v.SetDefault("app.env", "debug")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("redis.poolSize", 10)
	v.SetDefault("rabbitmq.roomQueue", "room_process")
	v.SetDefault("rabbitmq.tourQueue", "tour_generate")
	v.SetDefault("rabbitmq.prefetch", 10)
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.localDir", "./data")
	v.SetDefault("storage.uploadDir", "./data/uploads")
	v.SetDefault("storage.workDir", "./data/work")
	v.SetDefault("storage.publicBaseURL", "")
	v.SetDefault("s3.region", "auto")
	v.SetDefault("s3.usePathStyle", true)
	v.SetDefault("narration.enabled", false)
	v.SetDefault("narration.baseURL", "https://api.elevenlabs.io/v1")
	v.SetDefault("narration.defaultVoice", "professional_female")
	v.SetDefault("narration.timeoutSec", 60)
	v.SetDefault("narration.concurrency", 3)
	v.SetDefault("narration.voices.professional_female.id", "21m00Tcm4TlvDq8ikWAM")
	v.SetDefault("narration.voices.professional_female.name", "Rachel")
	v.SetDefault("narration.voices.professional_female.description", "Warm, professional female voice for luxury listings")
	v.SetDefault("narration.voices.professional_male.id", "TxGEqnHWrfWFTfGW9XjX")
	v.SetDefault("narration.voices.professional_male.name", "Josh")
	v.SetDefault("narration.voices.professional_male.description", "Confident male voice for commercial properties")
	v.SetDefault("narration.voices.friendly_female.id", "EXAVITQu4vr4xnSDxMaL")
	v.SetDefault("narration.voices.friendly_female.name", "Bella")
	v.SetDefault("narration.voices.friendly_female.description", "Conversational voice for family homes")
	v.SetDefault("narration.voices.luxury_male.id", "pNInz6obpgDQGcFmaJgB")
	v.SetDefault("narration.voices.luxury_male.name", "Adam")
	v.SetDefault("narration.voices.luxury_male.description", "Deep, sophisticated voice for high-end estates")
	v.SetDefault("scriptgen.baseURL", "https://api.openai.com/v1")
	v.SetDefault("scriptgen.model", "gpt-4o-mini")
	v.SetDefault("scriptgen.timeoutSec", 30)
	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("telemetry.sampleRatio", 1.0)
}
