package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		UI
		Media
		Auth
		Catalog
		Tasks
		Scheduler
		Audit
		Demo
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path   string
		LogSQL bool // Log every statement through the gorm logger
	}
	UI struct {
		TemplatesPath string // Empty means the embedded templates
		StaticPath    string
	}
	Media struct {
		Path          string
		MaxUploadSize int64 // Bytes
	}
	Auth struct {
		SessionSecret   string
		SessionLifetime time.Duration
		TokenExpiry     time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	Catalog struct {
		BooksPageSize       int
		AuthorsPageSize     int
		LoansPageSize       int
		ReviewRatePerMinute float64 // 0 disables review throttling
		ReviewBurst         int
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Scheduler struct {
		Enabled         bool
		OverdueSchedule string // Cron format: "0 6 * * *" = daily at 06:00
		AuditSchedule   string // Cron format: "30 3 * * *" = daily at 03:30
	}
	Audit struct {
		RetentionDays int // Days to keep audit events (default: 90)
	}
	Demo struct {
		Enabled bool // Read-only mode for public demo instances
		Seed    bool // Seed the public domain catalog when the catalog is empty
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8000)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_log_sql", false)
	v.SetDefault("templates_path", "")
	v.SetDefault("static_path", "./static")
	v.SetDefault("media_path", DefaultMediaPath)
	v.SetDefault("media_max_upload_size", 5<<20) // 5 MiB

	// Auth defaults
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "336h") // Two weeks
	v.SetDefault("auth_token_expiry", "720h")     // 30 days
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)     // HTTPS-only cookies
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration

	// Catalog defaults
	v.SetDefault("books_page_size", DefaultBooksPageSize)
	v.SetDefault("authors_page_size", DefaultAuthorsPageSize)
	v.SetDefault("loans_page_size", DefaultLoansPageSize)
	v.SetDefault("review_rate_per_minute", 0)
	v.SetDefault("review_burst", 3)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	// Scheduler defaults
	v.SetDefault("scheduler_enabled", true)
	v.SetDefault("overdue_schedule", "0 6 * * *")
	v.SetDefault("audit_cleanup_schedule", "30 3 * * *")
	v.SetDefault("audit_retention_days", 90)

	// Demo mode defaults
	v.SetDefault("demo_enabled", false)
	v.SetDefault("demo_seed", true)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path:   v.GetString("DATABASE_PATH"),
			LogSQL: v.GetBool("DATABASE_LOG_SQL"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
		},
		Media: Media{
			Path:          v.GetString("MEDIA_PATH"),
			MaxUploadSize: v.GetInt64("MEDIA_MAX_UPLOAD_SIZE"),
		},
		Auth: Auth{
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			TokenExpiry:      v.GetDuration("AUTH_TOKEN_EXPIRY"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Catalog: Catalog{
			BooksPageSize:       v.GetInt("BOOKS_PAGE_SIZE"),
			AuthorsPageSize:     v.GetInt("AUTHORS_PAGE_SIZE"),
			LoansPageSize:       v.GetInt("LOANS_PAGE_SIZE"),
			ReviewRatePerMinute: v.GetFloat64("REVIEW_RATE_PER_MINUTE"),
			ReviewBurst:         v.GetInt("REVIEW_BURST"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Scheduler: Scheduler{
			Enabled:         v.GetBool("SCHEDULER_ENABLED"),
			OverdueSchedule: v.GetString("OVERDUE_SCHEDULE"),
			AuditSchedule:   v.GetString("AUDIT_CLEANUP_SCHEDULE"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
		Demo: Demo{
			Enabled: v.GetBool("DEMO_ENABLED"),
			Seed:    v.GetBool("DEMO_SEED"),
		},
	}
}
