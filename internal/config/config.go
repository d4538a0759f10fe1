// Package config loads medisnap settings from defaults, a YAML file, a .env
// file and the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the home directory when no path is given.
const DefaultFileName = ".medisnap.yaml"

type Config struct {
	API      APIConfig    `yaml:"api"`
	Language string       `yaml:"language" validate:"required,bcp47_language_tag"`
	Camera   CameraConfig `yaml:"camera"`
	Log      LogConfig    `yaml:"log"`
	Server   ServerConfig `yaml:"server"`

	// Source is the file the config was read from, if any.
	Source string `yaml:"-"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url" validate:"required,url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

type CameraConfig struct {
	Device         string        `yaml:"device" validate:"required"`
	Width          int           `yaml:"width" validate:"gt=0"`
	Height         int           `yaml:"height" validate:"gt=0"`
	PreviewTimeout time.Duration `yaml:"preview_timeout" validate:"gt=0"`
}

type LogConfig struct {
	File    string `yaml:"file"`
	Verbose bool   `yaml:"verbose"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr" validate:"required,hostname_port"`
	DB          string `yaml:"db"`
	AnswerShape string `yaml:"answer_shape" validate:"oneof=object string envelope empty"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000/api",
			Timeout: 60 * time.Second,
		},
		Language: "en",
		Camera: CameraConfig{
			Device:         "/dev/video0",
			Width:          1280,
			Height:         720,
			PreviewTimeout: 5 * time.Second,
		},
		Server: ServerConfig{
			Addr:        "127.0.0.1:8000",
			DB:          ":memory:",
			AnswerShape: "object",
		},
	}
}

// Load builds the configuration. An empty path falls back to
// ~/.medisnap.yaml when it exists; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, DefaultFileName)
		}
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	// .env is optional; variables already set in the environment win
	_ = godotenv.Load()

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	c.Source = path
	return nil
}

func (c *Config) applyEnvOverrides() {
	// NEXT_PUBLIC_API_URL is what the web client reads; accept it as a fallback
	c.API.BaseURL = getEnv("MEDISNAP_API_URL", getEnv("NEXT_PUBLIC_API_URL", c.API.BaseURL))
	c.API.Token = getEnv("MEDISNAP_API_TOKEN", c.API.Token)
	c.API.Timeout = getEnvAsDuration("MEDISNAP_TIMEOUT", c.API.Timeout)
	c.Language = getEnv("MEDISNAP_LANGUAGE", c.Language)
	c.Camera.Device = getEnv("MEDISNAP_CAMERA_DEVICE", c.Camera.Device)
	c.Camera.Width = getEnvAsInt("MEDISNAP_CAMERA_WIDTH", c.Camera.Width)
	c.Camera.Height = getEnvAsInt("MEDISNAP_CAMERA_HEIGHT", c.Camera.Height)
	c.Log.File = getEnv("MEDISNAP_LOG_FILE", c.Log.File)
	c.Log.Verbose = getEnvAsBool("MEDISNAP_VERBOSE", c.Log.Verbose)
	c.Server.Addr = getEnv("MEDISNAP_SERVE_ADDR", c.Server.Addr)
	c.Server.DB = getEnv("MEDISNAP_SERVE_DB", c.Server.DB)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s: failed %q (value %v)", fieldPath(fe.Namespace()), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
}

// fieldPath drops the root struct name: "Config.api.base_url" -> "api.base_url".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}
