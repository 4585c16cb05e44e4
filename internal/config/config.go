package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/garyjia/bonus-report/internal/budget"
	"github.com/garyjia/bonus-report/internal/normalize"
	"github.com/garyjia/bonus-report/internal/quota"
	"github.com/garyjia/bonus-report/internal/report"
)

// Config holds all application configuration
type Config struct {
	Report   ReportConfig   `mapstructure:"report"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Runner   RunnerConfig   `mapstructure:"runner"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ReportConfig holds the business rules of the bonus report
type ReportConfig struct {
	DefaultRole string                  `mapstructure:"default_role"`
	Quarter     string                  `mapstructure:"quarter"`
	Columns     normalize.ColumnAliases `mapstructure:"columns"`
	Budget      budget.Rules            `mapstructure:"budget"`
	Quota       quota.Rules             `mapstructure:"quota"`
	Filter      FilterConfig            `mapstructure:"filter"`
}

// FilterConfig restricts which time entries enter the report
type FilterConfig struct {
	Projects        []string `mapstructure:"projects"`
	Employees       []string `mapstructure:"employees"`
	ExcludeInternal bool     `mapstructure:"exclude_internal"`
}

// StorageConfig holds the run workspace and the published output location
type StorageConfig struct {
	WorkDir   string `mapstructure:"work_dir"`
	OutputDir string `mapstructure:"output_dir"`
}

// RunnerConfig holds report queue configuration
type RunnerConfig struct {
	QueueSize     int    `mapstructure:"queue_size"`
	OutputPattern string `mapstructure:"output_pattern"`
}

// DatabaseConfig holds run history database configuration
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// MetricsConfig holds the node-exporter textfile target
type MetricsConfig struct {
	TextfilePath string `mapstructure:"textfile_path"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Report: ReportConfig{
			DefaultRole: string(budget.DefaultRole),
			Columns:     normalize.DefaultColumnAliases(),
			Budget:      budget.DefaultRules(),
			Quota:       quota.DefaultRules(),
		},
		Storage: StorageConfig{
			WorkDir:   "work",
			OutputDir: "reports",
		},
		Runner: RunnerConfig{
			QueueSize:     4,
			OutputPattern: "Bonusbericht_%s.xlsx",
		},
		Database: DatabaseConfig{
			Path:            "data/report_runs.db",
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Logger: LoggerConfig{
			Level:      "info",
			OutputPath: "stderr",
			Format:     "console",
		},
	}
}

// Load reads configuration from an optional YAML file and the environment.
// Rule tables missing from the file keep their built-in values.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("REPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvVars(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// lists given in the file replace the built-in ones instead of merging
	cfg := Default()
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.ZeroFields = true
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("report.default_role", d.Report.DefaultRole)
	v.SetDefault("report.quarter", "")
	v.SetDefault("report.filter.exclude_internal", false)

	v.SetDefault("storage.work_dir", d.Storage.WorkDir)
	v.SetDefault("storage.output_dir", d.Storage.OutputDir)

	v.SetDefault("runner.queue_size", d.Runner.QueueSize)
	v.SetDefault("runner.output_pattern", d.Runner.OutputPattern)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)
	v.SetDefault("database.migrations_dir", "")

	v.SetDefault("logger.level", d.Logger.Level)
	v.SetDefault("logger.output_path", d.Logger.OutputPath)
	v.SetDefault("logger.format", d.Logger.Format)

	v.SetDefault("metrics.textfile_path", "")
}

func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("storage.output_dir", "REPORT_OUTPUT_DIR")
	_ = v.BindEnv("storage.work_dir", "REPORT_WORK_DIR")
	_ = v.BindEnv("database.path", "REPORT_DATABASE_PATH")
	_ = v.BindEnv("logger.level", "REPORT_LOG_LEVEL")
	_ = v.BindEnv("metrics.textfile_path", "REPORT_METRICS_TEXTFILE")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, ok := budget.ParseRole(c.Report.DefaultRole); !ok {
		return fmt.Errorf("report.default_role %q is not one of %v", c.Report.DefaultRole, budget.Roles())
	}
	if c.Report.Quarter != "" {
		if _, err := report.ParseQuarter(c.Report.Quarter); err != nil {
			return fmt.Errorf("report.quarter: %w", err)
		}
	}
	if len(c.Report.Columns.Project) == 0 || len(c.Report.Columns.WorkPackage) == 0 {
		return fmt.Errorf("report.columns.project and report.columns.work_package are required")
	}
	if c.Storage.OutputDir == "" {
		return fmt.Errorf("storage.output_dir is required")
	}
	if c.Storage.WorkDir == "" {
		return fmt.Errorf("storage.work_dir is required")
	}
	if c.Runner.QueueSize <= 0 {
		return fmt.Errorf("runner.queue_size must be positive")
	}
	if strings.Count(c.Runner.OutputPattern, "%s") != 1 {
		return fmt.Errorf("runner.output_pattern must contain exactly one %%s")
	}
	if c.Database.Enabled && c.Database.Path == "" {
		return fmt.Errorf("database.path is required when the database is enabled")
	}
	return nil
}

// ReportOptions converts the report section into generator options
func (c *Config) ReportOptions() report.Options {
	role, _ := budget.ParseRole(c.Report.DefaultRole)
	return report.Options{
		Quarter: c.Report.Quarter,
		Role:    role,
		Filter: report.Filter{
			Projects:        c.Report.Filter.Projects,
			Employees:       c.Report.Filter.Employees,
			ExcludeInternal: c.Report.Filter.ExcludeInternal,
		},
		Aliases: c.Report.Columns,
		Budget:  c.Report.Budget,
		Quota:   c.Report.Quota,
	}
}
