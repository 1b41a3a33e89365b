package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	FacePP      FacePPConfig      `yaml:"facepp"`
	References  ReferencesConfig  `yaml:"references"`
	MinIO       MinIOConfig       `yaml:"minio"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Recognition RecognitionConfig `yaml:"recognition"`
}

type DatabaseConfig struct {
	Backend      string `yaml:"backend"`        // postgres, mariadb or memory; derived from URL when empty
	URL          string `yaml:"url"`            // PostgreSQL URL or MariaDB DSN
	MaxOpenConns int    `yaml:"max_open_conns"` // Maximum open connections (default 25)
	MaxIdleConns int    `yaml:"max_idle_conns"` // Maximum idle connections (default 5)
}

type EmbeddingConfig struct {
	URL     string        `yaml:"url"` // defaults to http://localhost:8000
	Timeout time.Duration `yaml:"timeout"`
}

type FacePPConfig struct {
	URL       string        `yaml:"url"`
	APIKey    string        `yaml:"-"`
	APISecret string        `yaml:"-"`
	Timeout   time.Duration `yaml:"timeout"`
	QPS       float64       `yaml:"qps"`
	Burst     int           `yaml:"burst"`
}

// Enabled reports whether credentials for the remote fallback are set.
func (c *FacePPConfig) Enabled() bool {
	return c.APIKey != "" && c.APISecret != ""
}

type ReferencesConfig struct {
	Dir       string `yaml:"dir"`
	CacheSize int    `yaml:"cache_size"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"` // reference images are read from the bucket when set
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"` // events are published only when set, e.g. tcp://localhost:1883
	Username string `yaml:"-"`
	Password string `yaml:"-"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      int    `yaml:"qos"`
}

type RecognitionConfig struct {
	MinFaceSize        int           `yaml:"min_face_size"`
	LocalThreshold     float64       `yaml:"local_threshold"`
	RemoteThreshold    float64       `yaml:"remote_threshold"`
	ConfirmFrames      int           `yaml:"confirm_frames"`
	ConfirmationPolicy string        `yaml:"confirmation_policy"`
	ConfirmationWindow time.Duration `yaml:"confirmation_window"`
	Cooldown           time.Duration `yaml:"cooldown"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a non-negative float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable as a Go duration ("20s", "1m").
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// Defaults returns the built-in configuration without environment overrides.
func Defaults() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return &cfg
}

func Load() *Config {
	d := Defaults()

	cfg := &Config{
		Database: DatabaseConfig{
			Backend:      strings.ToLower(os.Getenv("DATABASE_BACKEND")),
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", d.Database.MaxOpenConns),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", d.Database.MaxIdleConns),
		},
		Embedding: EmbeddingConfig{
			URL:     envString("EMBEDDING_URL", d.Embedding.URL),
			Timeout: envDuration("EMBEDDING_TIMEOUT", d.Embedding.Timeout),
		},
		FacePP: FacePPConfig{
			URL:       envString("FACEPP_URL", d.FacePP.URL),
			APIKey:    os.Getenv("FACEPP_API_KEY"),
			APISecret: os.Getenv("FACEPP_API_SECRET"),
			Timeout:   envDuration("FACEPP_TIMEOUT", d.FacePP.Timeout),
			QPS:       envFloat("FACEPP_QPS", d.FacePP.QPS),
			Burst:     envInt("FACEPP_BURST", d.FacePP.Burst),
		},
		References: ReferencesConfig{
			Dir:       envString("REFERENCE_DIR", d.References.Dir),
			CacheSize: envInt("REFERENCE_CACHE_SIZE", d.References.CacheSize),
		},
		MinIO: MinIOConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    envString("MINIO_BUCKET", "reference-images"),
			Prefix:    os.Getenv("MINIO_PREFIX"),
			UseSSL:    envBool("MINIO_USE_SSL", false),
		},
		MQTT: MQTTConfig{
			Broker:   os.Getenv("MQTT_BROKER"),
			Username: os.Getenv("MQTT_USERNAME"),
			Password: os.Getenv("MQTT_PASSWORD"),
			ClientID: envString("MQTT_CLIENT_ID", d.MQTT.ClientID),
			Topic:    envString("MQTT_TOPIC", d.MQTT.Topic),
			QoS:      envInt("MQTT_QOS", d.MQTT.QoS),
		},
		Recognition: RecognitionConfig{
			MinFaceSize:        envInt("MIN_FACE_SIZE", d.Recognition.MinFaceSize),
			LocalThreshold:     envFloat("LOCAL_THRESHOLD", d.Recognition.LocalThreshold),
			RemoteThreshold:    envFloat("REMOTE_THRESHOLD", d.Recognition.RemoteThreshold),
			ConfirmFrames:      envInt("CONFIRM_FRAMES", d.Recognition.ConfirmFrames),
			ConfirmationPolicy: envString("CONFIRMATION_POLICY", d.Recognition.ConfirmationPolicy),
			ConfirmationWindow: envDuration("CONFIRMATION_WINDOW", d.Recognition.ConfirmationWindow),
			Cooldown:           envDuration("COOLDOWN", d.Recognition.Cooldown),
		},
	}

	if cfg.Database.Backend == "" {
		cfg.Database.Backend = backendFromURL(cfg.Database.URL)
	}
	return cfg
}

// backendFromURL guesses the storage backend from the connection string.
// PostgreSQL URLs carry a scheme; MariaDB DSNs look like user:pass@tcp(host)/db.
func backendFromURL(url string) string {
	switch {
	case url == "":
		return "memory"
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return "postgres"
	default:
		return "mariadb"
	}
}
