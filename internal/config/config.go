package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Target      TargetConfig      `mapstructure:"target"`
	Browser     BrowserConfig     `mapstructure:"browser"`
	Output      OutputConfig      `mapstructure:"output"`
	Log         LogConfig         `mapstructure:"log"`
	Server      ServerConfig      `mapstructure:"server"`
	Security    SecurityConfig    `mapstructure:"security"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Scenarios   ScenariosConfig   `mapstructure:"scenarios"`
}

// TargetConfig locates the web application under test.
type TargetConfig struct {
	BaseURL string `mapstructure:"baseURL"` // wins over host/port when set
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// Origin returns the URL every relative scenario URL is resolved against.
func (t TargetConfig) Origin() string {
	if t.BaseURL != "" {
		return strings.TrimRight(t.BaseURL, "/")
	}
	return fmt.Sprintf("http://%s:%d", t.Host, t.Port)
}

type BrowserConfig struct {
	ExecutablePath  string        `mapstructure:"executablePath"`
	Headless        bool          `mapstructure:"headless"`
	UserDataDir     string        `mapstructure:"userDataDir"`
	WindowWidth     int           `mapstructure:"windowWidth"`
	WindowHeight    int           `mapstructure:"windowHeight"`
	ActionTimeout   time.Duration `mapstructure:"actionTimeout"`
	RunTimeout      time.Duration `mapstructure:"runTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	MaxSessions     int           `mapstructure:"maxSessions"`
}

type OutputConfig struct {
	ScreenshotDir string `mapstructure:"screenshotDir"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console, json
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`
}

type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
	ApiKey         string   `mapstructure:"apiKey"`
}

// CredentialsConfig feeds the {{username}}, {{password}} and {{totp}} placeholders.
type CredentialsConfig struct {
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	TOTPSecret string `mapstructure:"totpSecret"`
}

// ScenariosConfig lists extra YAML scenario files or directories to load.
type ScenariosConfig struct {
	Paths []string `mapstructure:"paths"`
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("target.baseURL", "")
	v.SetDefault("target.host", "localhost")
	v.SetDefault("target.port", 8080)

	v.SetDefault("browser.executablePath", "") // auto-detect
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.userDataDir", "") // temporary profile
	v.SetDefault("browser.windowWidth", 1280)
	v.SetDefault("browser.windowHeight", 720)
	v.SetDefault("browser.actionTimeout", "30s")
	v.SetDefault("browser.runTimeout", "2m")
	v.SetDefault("browser.shutdownTimeout", "10s")
	v.SetDefault("browser.maxSessions", 4)

	v.SetDefault("output.screenshotDir", "verification")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("server.port", 9090)
	v.SetDefault("server.readTimeout", "15s")
	v.SetDefault("server.writeTimeout", "15s")
	v.SetDefault("server.idleTimeout", "60s")

	v.SetDefault("security.allowedOrigins", []string{"*"})
	v.SetDefault("security.apiKey", "")

	v.SetDefault("credentials.username", "testuser@example.com") // mocked login accepts anything
	v.SetDefault("credentials.password", "password123")
	v.SetDefault("credentials.totpSecret", "")

	v.SetDefault("scenarios.paths", []string{})

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.uiverify")
		v.AddConfigPath("/etc/uiverify")
	}

	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("UIVERIFY")

	// The app under test is usually started with PORT in the environment.
	if err := v.BindEnv("target.port", "UIVERIFY_TARGET_PORT", "PORT"); err != nil {
		return nil, err
	}

	err := v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	err = v.Unmarshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Browser.MaxSessions < 1 {
		cfg.Browser.MaxSessions = 1
	}

	return &cfg, nil
}
