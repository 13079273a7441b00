package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	HTTPAddr string `validate:"required"`
	GRPCAddr string // empty disables the gRPC listener

	// Storage
	Env    string `validate:"oneof=dev prod"`
	Store  string `validate:"oneof=memory sqlite"`
	DBPath string `validate:"required_if=Store sqlite"`

	// Sampling
	SamplingRate float64 `validate:"gte=0,lte=1"`
	SamplingSalt string

	// Identity: inline "actor:role" pairs and/or a YAML file.
	Roles     []string
	Admins    []string // actors allowed on /v1/admin and /v1/logs
	RolesFile string
	JWTSecret string // empty: trust the X-Actor-ID header

	// Operational log
	LogLevel           string `validate:"oneof=debug info warning error critical"`
	LogRetentionDays   int    `validate:"gte=0"`
	PruneIntervalHours int    `validate:"gte=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func FromEnv() Config {
	env := strings.ToLower(getenvDefault("REVIEWFLOW_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	storeKind := strings.ToLower(getenvDefault("REVIEWFLOW_STORE", "sqlite"))
	if storeKind != "memory" && storeKind != "sqlite" {
		storeKind = "sqlite"
	}

	level := strings.ToLower(getenvDefault("REVIEWFLOW_LOG_LEVEL", "info"))
	if level == "warn" {
		level = "warning"
	}

	return Config{
		HTTPAddr: getenvDefault("REVIEWFLOW_HTTP_ADDR", ":8080"),
		GRPCAddr: os.Getenv("REVIEWFLOW_GRPC_ADDR"),

		Env:    env,
		Store:  storeKind,
		DBPath: getenvDefault("REVIEWFLOW_DB_PATH", "./data/reviewflow.db"),

		SamplingRate: clampRate(getenvFloat("REVIEWFLOW_SAMPLING_RATE", 0.3)),
		SamplingSalt: os.Getenv("REVIEWFLOW_SAMPLING_SALT"),

		Roles:     splitCSV(os.Getenv("REVIEWFLOW_ROLES")),
		Admins:    splitCSV(os.Getenv("REVIEWFLOW_ADMINS")),
		RolesFile: os.Getenv("REVIEWFLOW_ROLES_FILE"),
		JWTSecret: os.Getenv("REVIEWFLOW_JWT_SECRET"),

		LogLevel:           level,
		LogRetentionDays:   getenvInt("REVIEWFLOW_LOG_RETENTION_DAYS", 30),
		PruneIntervalHours: getenvInt("REVIEWFLOW_PRUNE_INTERVAL_HOURS", 6),
	}
}

// Validate reports every field that is out of range.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func clampRate(r float64) float64 {
	switch {
	case r != r || r < 0: // NaN
		return 0
	case r > 1:
		return 1
	}
	return r
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
