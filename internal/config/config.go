// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/andresuchdata/reorder-planner/internal/domain"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Drive    DriveConfig
	Planner  PlannerConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns DATABASE_URL when set, otherwise a key/value connection string.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type AppConfig struct {
	LogLevel  string
	DataDir   string
	ReportDir string
}

type CacheConfig struct {
	Enabled       bool
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	KPITTLSeconds int
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Prefix    string
}

type DriveConfig struct {
	CredentialsJSON string
	FolderID        string
	DownloadDir     string
}

// PlannerConfig holds the calculation defaults
type PlannerConfig struct {
	Regions          domain.RegionConfig
	DefaultMonth     int
	DefaultDay       int
	DefaultGrowthPct float64
	DefaultSafetyPct float64
	RecomputeWorkers int
	Seed             uint64
	Persist          bool
}

// DefaultParams returns the simulation parameters a fresh store starts with.
func (p PlannerConfig) DefaultParams() domain.SimulationParameters {
	return domain.SimulationParameters{
		Month:     p.DefaultMonth,
		Day:       p.DefaultDay,
		GrowthPct: p.DefaultGrowthPct,
		SafetyPct: p.DefaultSafetyPct,
	}
}

var (
	once     sync.Once
	instance *Config
	loadErr  error
)

// Load reads configuration once per process. Later calls return the same result.
func Load() (*Config, error) {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		v := viper.New()
		setDefaults(v)

		// Read from environment variables
		v.AutomaticEnv()

		instance, loadErr = build(v)
		if loadErr != nil {
			return
		}

		ensureDir(instance.App.DataDir)
		ensureDir(instance.App.ReportDir)
	})

	return instance, loadErr
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 15)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "planner")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_DATA_DIR", "./data/input")
	v.SetDefault("APP_REPORT_DIR", "./data/reports")
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_KPI_TTL_SECONDS", 60)
	v.SetDefault("STORAGE_ENABLED", false)
	v.SetDefault("STORAGE_ENDPOINT", "localhost:9000")
	v.SetDefault("STORAGE_ACCESS_KEY", "")
	v.SetDefault("STORAGE_SECRET_KEY", "")
	v.SetDefault("STORAGE_BUCKET", "planner-reports")
	v.SetDefault("STORAGE_USE_SSL", false)
	v.SetDefault("STORAGE_PREFIX", "reports")
	v.SetDefault("GOOGLE_DRIVE_CREDENTIALS_JSON", "")
	v.SetDefault("GOOGLE_DRIVE_FOLDER_ID", "")
	v.SetDefault("GOOGLE_DRIVE_DOWNLOAD_DIR", "./data/drive")
	v.SetDefault("PLANNER_REGION_LEAD_TIMES", domain.DefaultRegionConfig().String())
	v.SetDefault("PLANNER_DEFAULT_MONTH", 9)
	v.SetDefault("PLANNER_DEFAULT_DAY", 1)
	v.SetDefault("PLANNER_DEFAULT_GROWTH_PCT", 20.0)
	v.SetDefault("PLANNER_DEFAULT_SAFETY_PCT", 50.0)
	v.SetDefault("PLANNER_RECOMPUTE_WORKERS", 1)
	v.SetDefault("PLANNER_SEED", 0)
	v.SetDefault("PLANNER_PERSIST", false)
}

func build(v *viper.Viper) (*Config, error) {
	regions, err := domain.ParseRegionConfig(v.GetString("PLANNER_REGION_LEAD_TIMES"))
	if err != nil {
		return nil, fmt.Errorf("PLANNER_REGION_LEAD_TIMES: %w", err)
	}

	month := v.GetInt("PLANNER_DEFAULT_MONTH")
	if month < 0 || month >= domain.MonthsPerYear {
		return nil, fmt.Errorf("PLANNER_DEFAULT_MONTH must be 0..11, got %d", month)
	}
	day := v.GetInt("PLANNER_DEFAULT_DAY")
	if day < 1 || day > domain.DaysInMonth[month] {
		return nil, fmt.Errorf("PLANNER_DEFAULT_DAY must be 1..%d for month %d, got %d", domain.DaysInMonth[month], month, day)
	}

	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: splitList(v.GetStringSlice("SERVER_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			URL:      v.GetString("DATABASE_URL"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		App: AppConfig{
			LogLevel:  v.GetString("LOG_LEVEL"),
			DataDir:   v.GetString("APP_DATA_DIR"),
			ReportDir: v.GetString("APP_REPORT_DIR"),
		},
		Cache: CacheConfig{
			Enabled:       v.GetBool("CACHE_ENABLED"),
			RedisURL:      v.GetString("REDIS_URL"),
			RedisHost:     v.GetString("REDIS_HOST"),
			RedisPort:     v.GetString("REDIS_PORT"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
			KPITTLSeconds: v.GetInt("CACHE_KPI_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Enabled:   v.GetBool("STORAGE_ENABLED"),
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
			Prefix:    v.GetString("STORAGE_PREFIX"),
		},
		Drive: DriveConfig{
			CredentialsJSON: v.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
			FolderID:        v.GetString("GOOGLE_DRIVE_FOLDER_ID"),
			DownloadDir:     v.GetString("GOOGLE_DRIVE_DOWNLOAD_DIR"),
		},
		Planner: PlannerConfig{
			Regions:          regions,
			DefaultMonth:     month,
			DefaultDay:       day,
			DefaultGrowthPct: v.GetFloat64("PLANNER_DEFAULT_GROWTH_PCT"),
			DefaultSafetyPct: v.GetFloat64("PLANNER_DEFAULT_SAFETY_PCT"),
			RecomputeWorkers: max(1, v.GetInt("PLANNER_RECOMPUTE_WORKERS")),
			Seed:             v.GetUint64("PLANNER_SEED"),
			Persist:          v.GetBool("PLANNER_PERSIST"),
		},
	}, nil
}

// splitList accepts both repeated values and a single comma separated env value.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func ensureDir(dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
