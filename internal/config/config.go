package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	APIPort     int    `mapstructure:"api_port"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`

	// Store selects the credential store implementation: "local" for the
	// relational database, "supabase" for the managed backend.
	Store string `mapstructure:"store"`

	Database struct {
		Driver string `mapstructure:"driver"`
		URL    string `mapstructure:"url"`
	} `mapstructure:"database"`

	Supabase struct {
		URL            string `mapstructure:"url"`
		AnonKey        string `mapstructure:"anon_key"`
		ServiceRoleKey string `mapstructure:"service_role_key"`
	} `mapstructure:"supabase"`

	JWT struct {
		Secret        string `mapstructure:"secret"`
		Algorithm     string `mapstructure:"algorithm"`
		ExpireMinutes int    `mapstructure:"expire_minutes"`
	} `mapstructure:"jwt"`

	// PasswordCost is the bcrypt cost factor; zero means the bcrypt default.
	PasswordCost int `mapstructure:"password_cost"`
}

// LoadConfig loads the configuration from file and environment variables.
// The core components never read the environment themselves; everything they
// need is injected from here at startup.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("USERDECK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Warning: Could not read config file: %s. Using defaults or environment variables.", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.APIPort == 0 {
		cfg.APIPort = 8000
		log.Println("api_port not specified, using default 8000")
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Store == "" {
		cfg.Store = "local"
		log.Println("store not specified, using local relational store")
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite3"
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = "userdeck.db"
		log.Println("database url not specified, using default userdeck.db")
	}
	if cfg.JWT.Algorithm == "" {
		cfg.JWT.Algorithm = "HS256"
	}
	if cfg.JWT.ExpireMinutes == 0 {
		cfg.JWT.ExpireMinutes = 30
	}

	return &cfg, nil
}
