package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/adamspd/mcqtest/bank"
	"github.com/adamspd/mcqtest/models"
	"github.com/adamspd/mcqtest/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const (
	DefaultPort         = "8043"
	DefaultHost         = "127.0.0.1"
	DefaultDBPath       = "./mcqtest.db"
	DefaultCatalogPath  = "./subjects.json"
	DefaultTickInterval = time.Second
)

type Config struct {
	ListenAddr   string            `mapstructure:"listen_addr"`
	DBPath       string            `mapstructure:"db_path"`
	CatalogPath  string            `mapstructure:"catalog_path"`
	BankHeader   bank.HeaderPolicy `mapstructure:"-"`
	LogLevel     string            `mapstructure:"log_level"`
	LogFile      string            `mapstructure:"log_file"`
	TickInterval time.Duration     `mapstructure:"-"`
	PDFFont      string            `mapstructure:"pdf_font"`
	CORSOrigins  []string          `mapstructure:"cors_origins"`
}

// Load reads .env (if present), then config.yaml from dir (if present), then the
// environment. Later sources win.
func Load(dir string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		utils.LogWarn("Could not read .env: %v", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}

	v.SetDefault("port", DefaultPort)
	v.SetDefault("db_path", DefaultDBPath)
	v.SetDefault("catalog_path", DefaultCatalogPath)
	v.SetDefault("bank_header", string(bank.HeaderDetect))
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("tick_interval", DefaultTickInterval.String())
	v.SetDefault("pdf_font", "")
	v.SetDefault("cors_origins", []string{"http://localhost:*", "http://127.0.0.1:*"})

	v.BindEnv("port", "PORT")
	v.BindEnv("listen_addr", "LISTEN_ADDR")
	v.BindEnv("db_path", "DB_PATH")
	v.BindEnv("catalog_path", "CATALOG_PATH")
	v.BindEnv("bank_header", "BANK_HEADER")
	v.BindEnv("log_level", "LOG_LEVEL")
	v.BindEnv("log_file", "LOG_FILE")
	v.BindEnv("tick_interval", "TICK_INTERVAL")
	v.BindEnv("pdf_font", "PDF_FONT")
	v.BindEnv("cors_origins", "CORS_ORIGINS")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidConfig, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidConfig, err)
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultHost + ":" + v.GetString("port")
	}

	policy, err := bank.ParsePolicy(v.GetString("bank_header"))
	if err != nil {
		return nil, err
	}
	cfg.BankHeader = policy

	interval, err := cast.ToDurationE(v.Get("tick_interval"))
	if err != nil || interval <= 0 {
		return nil, fmt.Errorf("%w: tick_interval %v", models.ErrInvalidConfig, v.Get("tick_interval"))
	}
	cfg.TickInterval = interval

	return &cfg, nil
}
