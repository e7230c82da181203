package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	DatabaseURI        string
	DBHost             string
	DBPort             string
	DBUser             string
	DBPassword         string
	DBName             string
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Reward engine configuration
	PioneerKeepTopN      int
	LeaderboardCacheSecs int
	// Redis for caching/token blacklist
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Admins
	AdminUsernames []string
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
// Precedence: config/config.json -> defaults -> environment variable overrides.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// SetForTesting replaces the cached configuration. Test helper only.
func SetForTesting(c AppConfig) {
	cfg = c
	loaded = true
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads JSON file into cfg if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	dec := json.NewDecoder(f)
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			case json.Number:
				i, _ := t.Int64()
				return int(i)
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		if v := getInt(app, "RateLimitPerMinute"); v != 0 {
			out.RateLimitPerMinute = v
		}
		if v := getInt(app, "PioneerKeepTopN"); v != 0 {
			out.PioneerKeepTopN = v
		}
		if v := getInt(app, "LeaderboardCacheSecs"); v != 0 {
			out.LeaderboardCacheSecs = v
		}
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
		if list := getStringSlice(app, "AdminUsernames"); len(list) > 0 {
			out.AdminUsernames = list
		}
	}

	if g, ok := raw["gin"].(map[string]any); ok {
		if v := getString(g, "Mode"); v != "" {
			out.GinMode = v
		}
		if v := getString(g, "LogPath"); v != "" {
			out.GinPath = v
		}
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		if v := getInt(rds, "RedisPort"); v != 0 {
			out.RedisPort = v
		}
		if v := getInt(rds, "RedisDB"); v != 0 {
			out.RedisDB = v
		}
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		if v := getString(lg, "Level"); v != "" {
			out.LogLevel = v
		}
		if v := getString(lg, "Path"); v != "" {
			out.LogPath = v
		}
		if v := getInt(lg, "MaxSizeMB"); v != 0 {
			out.LogMaxSizeMB = v
		}
		if v := getInt(lg, "MaxBackups"); v != 0 {
			out.LogMaxBackups = v
		}
		if v := getInt(lg, "MaxAgeDays"); v != 0 {
			out.LogMaxAgeDays = v
		}
		out.LogCompress = getBool(lg, "Compress")
	}

	return nil
}

func applyDefaults(out *AppConfig) {
	if out.AppPort == "" {
		out.AppPort = "8080"
	}
	if out.DBHost == "" {
		out.DBHost = "127.0.0.1"
	}
	if out.DBPort == "" {
		out.DBPort = "3306"
	}
	if out.DBUser == "" {
		out.DBUser = "root"
	}
	if out.DBName == "" {
		out.DBName = "impactportal"
	}
	if out.RateLimitPerMinute == 0 {
		out.RateLimitPerMinute = 60
	}
	if len(out.AllowedOrigins) == 0 {
		out.AllowedOrigins = []string{"*"}
	}
	if out.GinMode == "" {
		out.GinMode = "release"
	}
	if out.GinPath == "" {
		out.GinPath = "logs/gin.log"
	}
	if out.PioneerKeepTopN == 0 {
		out.PioneerKeepTopN = 100
	}
	if out.LeaderboardCacheSecs == 0 {
		out.LeaderboardCacheSecs = 60
	}
	if out.RedisHost == "" {
		out.RedisHost = "127.0.0.1"
	}
	if out.RedisPort == 0 {
		out.RedisPort = 6379
	}
	if out.LogLevel == "" {
		out.LogLevel = "info"
	}
	if out.LogPath == "" {
		out.LogPath = "logs/app.log"
	}
}

func applyEnvOverrides(out *AppConfig) {
	out.AppPort = getEnv("APP_PORT", out.AppPort)
	out.JWTSecret = getEnv("JWT_SECRET", out.JWTSecret)
	out.DatabaseURI = getEnv("DATABASE_URI", out.DatabaseURI)
	out.DBHost = getEnv("DB_HOST", out.DBHost)
	out.DBPort = getEnv("DB_PORT", out.DBPort)
	out.DBUser = getEnv("DB_USER", out.DBUser)
	out.DBPassword = getEnv("DB_PASSWORD", out.DBPassword)
	out.DBName = getEnv("DB_NAME", out.DBName)
	out.GinMode = getEnv("GIN_MODE", out.GinMode)
	out.LogLevel = getEnv("LOG_LEVEL", out.LogLevel)
	out.RedisHost = getEnv("REDIS_HOST", out.RedisHost)
	out.RedisPassword = getEnv("REDIS_PASSWORD", out.RedisPassword)

	if v := os.Getenv("REDIS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			out.RedisPort = n
		}
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			out.RedisDB = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			out.RateLimitPerMinute = n
		}
	}
	if v := os.Getenv("PIONEER_KEEP_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			out.PioneerKeepTopN = n
		}
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		parts := strings.Split(v, ",")
		origins := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				origins = append(origins, s)
			}
		}
		if len(origins) > 0 {
			out.AllowedOrigins = origins
		}
	}
	if v := os.Getenv("ADMIN_USERNAMES"); v != "" {
		parts := strings.Split(v, ",")
		admins := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				admins = append(admins, s)
			}
		}
		if len(admins) > 0 {
			out.AdminUsernames = admins
		}
	}
}
