package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

type Env struct {
	AppAddr string
	GinMode string

	StoreDriver string
	DatabaseDSN string

	JWTSecret  string
	SessionTTL time.Duration

	CORSAllowedOrigins []string
	LoginRateLimit     string
	LogLevel           string

	// Seed account for the memory driver.
	AdminUsername string
	AdminPassword string
}

// LoadDotEnv loads path into the process environment when the file exists.
// Variables already set win.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func LoadEnv() Env {
	appAddr := strings.TrimSpace(os.Getenv("APP_ADDR"))
	if appAddr == "" {
		appAddr = ":8080"
	}

	ginMode := strings.TrimSpace(os.Getenv("GIN_MODE"))

	driver := strings.ToLower(strings.TrimSpace(os.Getenv("STORE_DRIVER")))
	if driver != DriverMemory {
		driver = DriverMySQL
	}

	dsn := strings.TrimSpace(os.Getenv("DATABASE_DSN"))
	if dsn == "" {
		dsn = "root:@tcp(127.0.0.1:3306)/omnia?parseTime=true&loc=UTC&charset=utf8mb4&timeout=5s&readTimeout=30s&writeTimeout=30s"
	}

	ttl := 7 * 24 * time.Hour
	if v := strings.TrimSpace(os.Getenv("SESSION_TTL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			ttl = d
		}
	}

	rate := strings.TrimSpace(os.Getenv("LOGIN_RATE_LIMIT"))
	if rate == "" {
		rate = "10-M"
	}

	adminUser := strings.TrimSpace(os.Getenv("ADMIN_USERNAME"))
	if adminUser == "" {
		adminUser = "admin"
	}

	return Env{
		AppAddr:            appAddr,
		GinMode:            ginMode,
		StoreDriver:        driver,
		DatabaseDSN:        dsn,
		JWTSecret:          os.Getenv("JWT_SECRET"),
		SessionTTL:         ttl,
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		LoginRateLimit:     rate,
		LogLevel:           strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		AdminUsername:      adminUser,
		AdminPassword:      os.Getenv("ADMIN_PASSWORD"),
	}
}

// Validate reports settings the server cannot start with.
func (e Env) Validate() error {
	var errs []error
	if len(e.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters"))
	}
	if e.StoreDriver == DriverMemory && e.AdminPassword == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD is required with the memory driver"))
	}
	if _, err := strconv.Atoi(strings.SplitN(e.LoginRateLimit, "-", 2)[0]); err != nil {
		errs = append(errs, fmt.Errorf("LOGIN_RATE_LIMIT %q is not a rate like 10-M", e.LoginRateLimit))
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
