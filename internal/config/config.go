package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Lark     LarkConfig     `mapstructure:"lark"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Users    []UserConfig   `mapstructure:"users"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LarkConfig holds Lark API configuration. Chatter is only logged when
// no app credentials are set.
type LarkConfig struct {
	AppID     string `mapstructure:"app_id"`
	AppSecret string `mapstructure:"app_secret"`
}

// Enabled reports whether Lark delivery is configured
func (c LarkConfig) Enabled() bool {
	return c.AppID != "" && c.AppSecret != ""
}

// StorageConfig holds document storage configuration
type StorageConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// WorkflowConfig holds the trip workflow settings
type WorkflowConfig struct {
	AdminUserID                  int64         `mapstructure:"admin_user_id"`
	UndoExpenseApprovalDaysLimit int           `mapstructure:"undo_expense_approval_days_limit"`
	ConfidentialDedupeWindow     time.Duration `mapstructure:"confidential_dedupe_window"`
	CompanyCurrency              string        `mapstructure:"company_currency"`
	Currencies                   []string      `mapstructure:"currencies"`
	ProjectName                  string        `mapstructure:"project_name"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// UserConfig seeds one user into the identity store
type UserConfig struct {
	ID         int64    `mapstructure:"id"`
	Name       string   `mapstructure:"name"`
	Email      string   `mapstructure:"email"`
	LarkOpenID string   `mapstructure:"lark_open_id"`
	ManagerID  int64    `mapstructure:"manager_id"`
	Groups     []string `mapstructure:"groups"`
}

// Load loads configuration from a .env file, the YAML file and environment variables
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Workflow.CompanyCurrency = strings.ToUpper(cfg.Workflow.CompanyCurrency)
	for i, c := range cfg.Workflow.Currencies {
		cfg.Workflow.Currencies[i] = strings.ToUpper(strings.TrimSpace(c))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv exports the variables of path; a missing file is ignored
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.path", "data/trips.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("storage.base_dir", "data/documents")

	v.SetDefault("workflow.undo_expense_approval_days_limit", 7)
	v.SetDefault("workflow.confidential_dedupe_window", 5*time.Minute)
	v.SetDefault("workflow.company_currency", "EUR")
	v.SetDefault("workflow.currencies", []string{"EUR", "USD", "GBP", "CHF", "CNY"})
	v.SetDefault("workflow.project_name", "Business Trips")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("lark.app_id", "LARK_APP_ID")
	_ = v.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	_ = v.BindEnv("database.path", "TRIPS_DB_PATH")
	_ = v.BindEnv("workflow.admin_user_id", "TRIPS_ADMIN_USER_ID")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir is required")
	}

	if c.Workflow.AdminUserID <= 0 {
		return fmt.Errorf("workflow.admin_user_id is required")
	}
	if c.Workflow.UndoExpenseApprovalDaysLimit < 0 {
		return fmt.Errorf("workflow.undo_expense_approval_days_limit cannot be negative")
	}
	if len(c.Workflow.CompanyCurrency) != 3 {
		return fmt.Errorf("workflow.company_currency must be a 3-letter code: %q", c.Workflow.CompanyCurrency)
	}
	if !c.Workflow.AllowsCurrency(c.Workflow.CompanyCurrency) {
		return fmt.Errorf("workflow.company_currency %s is not in workflow.currencies", c.Workflow.CompanyCurrency)
	}

	if (c.Lark.AppID == "") != (c.Lark.AppSecret == "") {
		return fmt.Errorf("lark.app_id and lark.app_secret must be set together")
	}

	seen := make(map[int64]bool, len(c.Users))
	for _, u := range c.Users {
		if u.ID <= 0 || u.Name == "" {
			return fmt.Errorf("users: every entry needs an id and a name")
		}
		if seen[u.ID] {
			return fmt.Errorf("users: duplicate id %d", u.ID)
		}
		seen[u.ID] = true
	}
	return nil
}

// AllowsCurrency reports whether code is one of the configured currencies
func (w WorkflowConfig) AllowsCurrency(code string) bool {
	for _, c := range w.Currencies {
		if c == code {
			return true
		}
	}
	return false
}
