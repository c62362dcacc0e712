package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port    int    `yaml:"port"`
		BaseURL string `yaml:"baseURL"`
	} `yaml:"server"`

	Storage struct {
		Driver string `yaml:"driver"` // local | s3
		Root   string `yaml:"root"`
		Minio  struct {
			Endpoint   string `yaml:"endpoint"`
			AccessKey  string `yaml:"accessKey"`
			SecretKey  string `yaml:"secretKey"`
			BucketName string `yaml:"bucketName"`
			Region     string `yaml:"region"`
			UseSSL     bool   `yaml:"useSSL"`
		} `yaml:"minio"`
	} `yaml:"storage"`

	Database struct {
		Driver       string `yaml:"driver"` // jsonfile | mysql | postgres
		SnapshotPath string `yaml:"snapshotPath"`
		Host         string `yaml:"host"`
		Port         int    `yaml:"port"`
		User         string `yaml:"user"`
		Password     string `yaml:"password"`
		Name         string `yaml:"name"`
		SSLMode      string `yaml:"sslmode"`
	} `yaml:"database"`

	Analyzer struct {
		Provider string `yaml:"provider"` // stub | openai
		OpenAI   struct {
			APIKey string `yaml:"apiKey"`
			Model  string `yaml:"model"`
		} `yaml:"openai"`
	} `yaml:"analyzer"`

	RateLimit struct {
		Capacity   int `yaml:"capacity"`
		RefillRate int `yaml:"refillRate"`
	} `yaml:"ratelimit"`
}

// Load baca file config.yaml
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "local"
	}
	if c.Storage.Root == "" {
		c.Storage.Root = "uploads"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "jsonfile"
	}
	if c.Database.SnapshotPath == "" {
		c.Database.SnapshotPath = "scans_db.json"
	}
	if c.Analyzer.Provider == "" {
		c.Analyzer.Provider = "stub"
	}
	if c.Analyzer.OpenAI.Model == "" {
		c.Analyzer.OpenAI.Model = "gpt-4o"
	}
	if c.RateLimit.Capacity == 0 {
		c.RateLimit.Capacity = 60
	}
	if c.RateLimit.RefillRate == 0 {
		c.RateLimit.RefillRate = 10
	}
}

// Secrets stay out of the YAML; environment wins only when the file left
// the field empty.
func (c *Config) applyEnv() {
	if c.Analyzer.OpenAI.APIKey == "" {
		c.Analyzer.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Storage.Minio.AccessKey == "" {
		c.Storage.Minio.AccessKey = os.Getenv("MINIO_ACCESS_KEY")
	}
	if c.Storage.Minio.SecretKey == "" {
		c.Storage.Minio.SecretKey = os.Getenv("MINIO_SECRET_KEY")
	}
	if c.Database.Password == "" {
		c.Database.Password = os.Getenv("DB_PASSWORD")
	}
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	ssl := c.Database.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		ssl,
	)
}
