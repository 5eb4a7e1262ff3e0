package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Assistant   AssistantConfig   `yaml:"assistant"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Audio       AudioConfig       `yaml:"audio"`
	Synthesis   SynthesisConfig   `yaml:"synthesis"`
	Playback    PlaybackConfig    `yaml:"playback"`
	Latency     LatencyConfig     `yaml:"latency"`
	Corpus      CorpusConfig      `yaml:"corpus"`
	Pushover    PushoverConfig    `yaml:"pushover"`
	Control     ControlConfig     `yaml:"control"`
	Log         LogConfig         `yaml:"log"`
}

type AssistantConfig struct {
	ExitPattern     string `yaml:"exit_pattern"`
	WakePattern     string `yaml:"wake_pattern"`
	SleepPattern    string `yaml:"sleep_pattern"`
	Greeting        string `yaml:"greeting"`
	Farewell        string `yaml:"farewell"`
	Fallback        string `yaml:"fallback"`
	RestartInterval string `yaml:"restart_interval"`
}

type RecognitionConfig struct {
	APIKey       string `yaml:"api_key"`
	URL          string `yaml:"url"`
	Model        string `yaml:"model"`
	Encoding     string `yaml:"encoding"`
	LanguageCode string `yaml:"language_code"`
}

type AudioConfig struct {
	Source     string   `yaml:"source"`
	Command    string   `yaml:"command"`
	Args       []string `yaml:"args"`
	FileDir    string   `yaml:"file_dir"`
	SampleRate int      `yaml:"sample_rate"`
}

type SynthesisConfig struct {
	APIKey       string  `yaml:"api_key"`
	URL          string  `yaml:"url"`
	LanguageCode string  `yaml:"language_code"`
	Voice        string  `yaml:"voice"`
	Encoding     string  `yaml:"encoding"`
	Pitch        float64 `yaml:"pitch"`
}

type PlaybackConfig struct {
	Command    []string `yaml:"command"`
	OutputPath string   `yaml:"output_path"`
	DingPath   string   `yaml:"ding_path"`
}

type LatencyConfig struct {
	Host       string  `yaml:"host"`
	Replies    int     `yaml:"replies"`
	Timeout    string  `yaml:"timeout"`
	Privileged bool    `yaml:"privileged"`
	BaseDelay  string  `yaml:"base_delay"`
	Threshold  string  `yaml:"threshold"`
	Factor     float64 `yaml:"factor"`
	MaxDelay   string  `yaml:"max_delay"`
}

type CorpusConfig struct {
	File            string `yaml:"file"`
	BinID           string `yaml:"bin_id"`
	SecretKey       string `yaml:"secret_key"`
	URL             string `yaml:"url"`
	RefreshInterval string `yaml:"refresh_interval"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Title   string `yaml:"title"`
	Enabled bool   `yaml:"enabled"`
}

type ControlConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	AuthToken string `yaml:"auth_token"`
	Metrics   bool   `yaml:"metrics"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the YAML file at path. Variables from a .env file next to it are
// added to the environment first, without overriding ones already set, and
// ${VAR} references are then expanded.
func Load(path string) (*Config, error) {
	envPath := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envPath, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Assistant.ExitPattern == "" {
		c.Assistant.ExitPattern = `(exit|restart)`
	}
	if c.Assistant.WakePattern == "" {
		c.Assistant.WakePattern = `(hello|hey|hi) charlie`
	}
	if c.Assistant.SleepPattern == "" {
		c.Assistant.SleepPattern = `(goodbye) charlie`
	}
	if c.Assistant.Greeting == "" {
		c.Assistant.Greeting = "Hello %s"
	}
	if c.Assistant.Farewell == "" {
		c.Assistant.Farewell = "Goodbye %s"
	}
	if c.Assistant.Fallback == "" {
		c.Assistant.Fallback = "Sorry, I don't know the answer to that. Try asking your parents."
	}
	if c.Assistant.RestartInterval == "" {
		c.Assistant.RestartInterval = "45s"
	}
	if c.Recognition.Encoding == "" {
		c.Recognition.Encoding = "LINEAR16"
	}
	if c.Recognition.LanguageCode == "" {
		c.Recognition.LanguageCode = "en-US"
	}
	if c.Audio.Source == "" {
		c.Audio.Source = "command"
	}
	if c.Audio.Command == "" {
		c.Audio.Command = "rec"
	}
	if c.Audio.FileDir == "" {
		c.Audio.FileDir = "./audio"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Synthesis.LanguageCode == "" {
		c.Synthesis.LanguageCode = "en-US"
	}
	if c.Synthesis.Voice == "" {
		c.Synthesis.Voice = "en-US-Wavenet-A"
	}
	if c.Synthesis.Encoding == "" {
		c.Synthesis.Encoding = "MP3"
	}
	if c.Synthesis.Pitch == 0 {
		c.Synthesis.Pitch = 4.5
	}
	if len(c.Playback.Command) == 0 {
		c.Playback.Command = []string{"mpg123", "-q"}
	}
	if c.Playback.OutputPath == "" {
		c.Playback.OutputPath = "output.mp3"
	}
	if c.Playback.DingPath == "" {
		c.Playback.DingPath = "ding.mp3"
	}
	if c.Latency.Host == "" {
		c.Latency.Host = "35.186.221.153"
	}
	if c.Latency.Replies == 0 {
		c.Latency.Replies = 4
	}
	if c.Latency.Timeout == "" {
		c.Latency.Timeout = "10s"
	}
	if c.Latency.BaseDelay == "" {
		c.Latency.BaseDelay = "2s"
	}
	if c.Latency.Threshold == "" {
		c.Latency.Threshold = "140ms"
	}
	if c.Latency.Factor == 0 {
		c.Latency.Factor = 15
	}
	if c.Latency.MaxDelay == "" {
		c.Latency.MaxDelay = "4.5s"
	}
	if c.Corpus.RefreshInterval == "" {
		c.Corpus.RefreshInterval = "15s"
	}
	if c.Control.Addr == "" {
		c.Control.Addr = "127.0.0.1:8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}
