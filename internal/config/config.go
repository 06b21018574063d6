package config

import (
	"os"
	"path"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Public  Public
	private Private
}

type Public struct {
	ListenAddr string `yaml:"listen_addr" validate:"required"`
	LogLevel   string `yaml:"log_level"`
	LogJSON    bool   `yaml:"log_json"`

	MediaAPIBaseURL    string `yaml:"media_api_base_url" validate:"required,url"`
	PropertyAPIBaseURL string `yaml:"property_api_base_url" validate:"required,url"`

	SessionTTL      time.Duration `yaml:"session_ttl"`      // idle sessions older than this are torn down
	JanitorInterval time.Duration `yaml:"janitor_interval"` // how often the janitor scans for idle sessions

	MaxFileSizeBytes          int64    `yaml:"max_file_size_bytes"`
	AllowedImageExtensions    []string `yaml:"allowed_image_extensions"`
	AllowedDocumentExtensions []string `yaml:"allowed_document_extensions"`

	RequiredDocumentTypes        []string `yaml:"required_document_types"`
	RequiredProjectDocumentTypes []string `yaml:"required_project_document_types"` // extra slots when the property is a project

	ThumbnailMaxDimension int `yaml:"thumbnail_max_dimension"`
	ThumbnailQuality      int `yaml:"thumbnail_quality"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	UploadRateLimitPerSecond float64 `yaml:"upload_rate_limit_per_second"`
	UploadRateLimitBurst     float64 `yaml:"upload_rate_limit_burst"`
}

type Private struct {
	ServiceToken string `yaml:"service_token"` // bearer token for the media/property boundaries
}

func (c *Config) ServiceToken() string {
	return c.private.ServiceToken
}

func applyDefaults(p *Public) {
	if p.LogLevel == "" {
		p.LogLevel = "info"
	}
	if p.SessionTTL == 0 {
		p.SessionTTL = 30 * time.Minute
	}
	if p.JanitorInterval == 0 {
		p.JanitorInterval = time.Minute
	}
	if p.MaxFileSizeBytes == 0 {
		p.MaxFileSizeBytes = 10 << 20 // 10 MiB
	}
	if len(p.AllowedImageExtensions) == 0 {
		p.AllowedImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
	}
	if len(p.AllowedDocumentExtensions) == 0 {
		p.AllowedDocumentExtensions = []string{".pdf", ".doc", ".docx", ".xls", ".xlsx"}
	}
	if len(p.RequiredDocumentTypes) == 0 {
		p.RequiredDocumentTypes = []string{"expose", "floor_plan", "energy_certificate"}
	}
	if len(p.RequiredProjectDocumentTypes) == 0 {
		p.RequiredProjectDocumentTypes = []string{"price_list"}
	}
	if p.ThumbnailMaxDimension == 0 {
		p.ThumbnailMaxDimension = 200
	}
	if p.ThumbnailQuality == 0 {
		p.ThumbnailQuality = 80
	}
	if p.UploadRateLimitPerSecond == 0 {
		p.UploadRateLimitPerSecond = 5
	}
	if p.UploadRateLimitBurst == 0 {
		p.UploadRateLimitBurst = 10
	}
}

func mustLoadPath(configPath string, output interface{}) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		panic("can't read config file")
	}
	if err := yaml.Unmarshal(configFile, output); err != nil {
		panic("can't unmarshal config file")
	}
}

// MustLoad reads public.yaml and private.yaml from configFolder and panics
// on any problem. Missing optional fields get defaults.
func MustLoad(configFolder string) *Config {
	var public Public
	mustLoadPath(path.Join(configFolder, "public.yaml"), &public)

	var private Private
	mustLoadPath(path.Join(configFolder, "private.yaml"), &private)

	applyDefaults(&public)

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&public); err != nil {
		panic("invalid config: " + err.Error())
	}

	return &Config{public, private}
}
