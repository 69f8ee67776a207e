package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Database    DatabaseConfig    `mapstructure:"database"`
	Application ApplicationConfig `mapstructure:"application"`
}

type ApplicationConfig struct {
	Name         string        `mapstructure:"name"`
	Version      string        `mapstructure:"version"`
	ReportFormat string        `mapstructure:"report_format"` // text, markdown, html
	Orphans      bool          `mapstructure:"orphans"`
	Storage      StorageConfig `mapstructure:"storage"`
}

type StorageConfig struct {
	Stage     string `mapstructure:"stage"`     // watched inbox for incoming decks
	Output    string `mapstructure:"output"`    // extracted payloads land here, one dir per deck
	Processed string `mapstructure:"processed"` // decks are moved here after extraction
}

type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Options  string `mapstructure:"options"`
}

func (c *DatabaseConfig) GetConnectStr() string {
	if c.URL != "" {
		return c.URL
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, sslmode)

	if c.Options != "" {
		// Basic URL encoding for the options value: space -> %20
		encodedOptions := strings.ReplaceAll(c.Options, " ", "%20")
		connStr += fmt.Sprintf("&options=%s", encodedOptions)
	}

	return connStr
}

// IsConfigured reports whether any connection detail was provided at all.
// Persistence is optional; without it runs are only reported, not stored.
func (c *DatabaseConfig) IsConfigured() bool {
	return c.URL != "" || c.Host != ""
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: .env file not found, using system environment variables")
	}

	viper.SetConfigFile("config.yaml") // Support optional config.yaml
	viper.AutomaticEnv()

	// Environment variable mappings
	mappings := []struct {
		key, env string
	}{
		{"database.url", "DB_URL"},
		{"database.host", "PG_HOST"},
		{"database.port", "PG_PORT"},
		{"database.user", "PG_USER"},
		{"database.password", "PG_PASSWORD"},
		{"database.dbname", "PG_DB"},
		{"database.sslmode", "PG_SSLMODE"},
		{"database.options", "PG_OPTIONS"},

		{"application.report_format", "DECKX_REPORT_FORMAT"},
		{"application.orphans", "DECKX_ORPHANS"},

		// Storage
		{"application.storage.stage", "STORAGE_STAGE"},
		{"application.storage.output", "STORAGE_OUTPUT"},
		{"application.storage.processed", "STORAGE_PROCESSED"},
	}

	for _, m := range mappings {
		viper.BindEnv(m.key, m.env)
	}

	// Defaults
	viper.SetDefault("application.name", "deckextract")
	viper.SetDefault("application.report_format", "text")
	viper.SetDefault("application.orphans", false)
	viper.SetDefault("application.storage.stage", "storage/stage")
	viper.SetDefault("application.storage.output", "storage/extracted")
	viper.SetDefault("application.storage.processed", "storage/processed")

	if err := viper.ReadInConfig(); err != nil {
		// Ignore if config.yaml is missing
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
