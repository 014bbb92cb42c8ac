package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath            = "./config.yaml"
	DefaultAddr            = ":8080"
	DefaultShutdownTimeout = 15 * time.Second
	DefaultMetricsPath     = "/metrics"
	DefaultChunkSize       = ByteSize(64 << 10)
)

// Config — снимок конфигурации одной сессии обслуживания. После Load не изменяется
// и разделяется всеми обработчиками.
type Config struct {
	// Addr — адрес listener'а; флаг --addr имеет приоритет.
	Addr string `yaml:"addr" env:"ADDR"`
	// Dir — рабочий каталог, в него распаковываются архивы.
	Dir string `yaml:"dir" env:"SITE_DIR"`
	// Root — корень раздачи относительно Dir.
	Root string `yaml:"root" env:"SITE_ROOT"`
	// Token — значение заголовка "token" для POST /upload.
	Token string `yaml:"token" env:"UPLOAD_TOKEN"`

	JWT     *JWT              `yaml:"jwt"`
	TLS     *TLS              `yaml:"tls"`
	Routes  map[string]string `yaml:"routes"`
	Cache   CacheControl      `yaml:"cache"`
	Default *DefaultPage      `yaml:"default"`
	Metrics Metrics           `yaml:"metrics"`

	MaxUpload       ByteSize      `yaml:"max_upload" env:"MAX_UPLOAD"`
	ChunkSize       ByteSize      `yaml:"chunk_size" env:"CHUNK_SIZE"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// TLS — пути к сертификату и ключу в PEM.
type TLS struct {
	Crt string `yaml:"crt"`
	Key string `yaml:"key"`
}

// JWT — проверка Bearer-токена (HMAC) для загрузок.
type JWT struct {
	Secret   string `yaml:"secret"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
}

// CacheControl задаёт заголовок Cache-Control по префиксу, суффиксу или glob-шаблону пути.
type CacheControl struct {
	Prefixes map[string]string `yaml:"prefixes"`
	Suffixes map[string]string `yaml:"suffixes"`
	Patterns map[string]string `yaml:"patterns"`
}

// DefaultPage отдаётся вместо 404.
type DefaultPage struct {
	// File — путь относительно корня раздачи.
	File   string `yaml:"file"`
	Status int    `yaml:"status"`
}

// Metrics — публикация prometheus-метрик.
type Metrics struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED"`
	Path    string `yaml:"path"`
}

// Path возвращает путь к файлу конфигурации из CONFIG_PATH или DefaultPath.
func Path() string {
	return getenv("CONFIG_PATH", DefaultPath)
}

// Load читает YAML-конфигурацию, применяет ENV-переопределения и возвращает актуальную структуру.
func Load(path string) (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't open %s: %w", path, err)
	}

	return Parse(b)
}

// Parse разбирает YAML из b поверх значений по умолчанию и применяет ENV.
func Parse(b []byte) (*Config, error) {
	c := defaults()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("can't read config: %w", err)
	}

	// ENV override
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("env override: %w", err)
	}

	c.normalize()
	if c.Default != nil && c.Default.Status == 0 {
		c.Default.Status = 200
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func defaults() *Config {
	return &Config{
		Addr:            DefaultAddr,
		Root:            ".",
		ChunkSize:       DefaultChunkSize,
		ShutdownTimeout: DefaultShutdownTimeout,
		Metrics:         Metrics{Path: DefaultMetricsPath},
	}
}

// normalize сбрасывает пустые необязательные секции в nil.
func (c *Config) normalize() {
	if c.TLS != nil && *c.TLS == (TLS{}) {
		c.TLS = nil
	}
	if c.JWT != nil && *c.JWT == (JWT{}) {
		c.JWT = nil
	}
	if c.Default != nil && *c.Default == (DefaultPage{}) {
		c.Default = nil
	}
}

// Validate проверяет обязательные поля и согласованность секций.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Dir) == "" {
		errs = append(errs, errors.New("dir is required"))
	}
	if c.TLS != nil && (c.TLS.Crt == "" || c.TLS.Key == "") {
		errs = append(errs, errors.New("tls requires both crt and key"))
	}
	if c.JWT != nil && c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt requires secret"))
	}
	if c.Default != nil {
		if c.Default.File == "" {
			errs = append(errs, errors.New("default requires file"))
		}
		if c.Default.Status < 100 || c.Default.Status > 599 {
			errs = append(errs, fmt.Errorf("default status %d out of range", c.Default.Status))
		}
	}
	for route, file := range c.Routes {
		if !strings.HasPrefix(route, "/") {
			errs = append(errs, fmt.Errorf("route %q must start with /", route))
		}
		if file == "" {
			errs = append(errs, fmt.Errorf("route %q has no file", route))
		}
	}
	if c.MaxUpload < 0 {
		errs = append(errs, errors.New("max_upload must not be negative"))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, errors.New("chunk_size must be positive"))
	}

	return errors.Join(errs...)
}

// ServeRoot — каталог раздачи: Root относительно Dir (абсолютный Root используется как есть).
func (c *Config) ServeRoot() string {
	if filepath.IsAbs(c.Root) {
		return filepath.Clean(c.Root)
	}
	return filepath.Join(c.Dir, c.Root)
}

// TLSEnabled сообщает, настроен ли TLS.
func (c *Config) TLSEnabled() bool {
	return c.TLS != nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}

	return def
}
