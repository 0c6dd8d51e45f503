package config

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var (
	AppVersion             = "v1.0.0"
	AppPort                = "3000"
	AppDebug               = false
	AppBasicAuthCredential []string
	AppBasePath            = ""
	AppTrustedProxies      []string

	PathStorages = "storages"

	// Cache store policies. TTLs and sizes are tunable per store so operators
	// can retune without a code change.
	CacheResponsesTTL      = 1 * time.Hour
	CacheResponsesMaxSize  = 1000
	CacheSearchesTTL       = 30 * time.Minute
	CacheSearchesMaxSize   = 500
	CacheEmbeddingsTTL     = 24 * time.Hour
	CacheEmbeddingsMaxSize = 5000
	CacheSweepInterval     = 5 * time.Minute

	// Rate limit policies, fixed window per scope.
	RateLimitGlobalLimit        = 500
	RateLimitGlobalWindow       = 1 * time.Hour
	RateLimitCustomerLimit      = 10
	RateLimitCustomerWindow     = 1 * time.Hour
	RateLimitOwnerLimit         = 30
	RateLimitOwnerWindow        = 1 * time.Hour
	RateLimitMediaUploadLimit   = 5
	RateLimitMediaUploadWindow  = 1 * time.Hour
	RateLimitGCRetention        = 24 * time.Hour
	RateLimitGCInterval         = 10 * time.Minute

	// Retry / circuit breaker defaults. Callers may override per operation.
	RetryMaxAttempts        = 3
	RetryDelayMs            = 1000
	BreakerFailureThreshold = 5
	BreakerResetTimeout     = 60 * time.Second
)

func init() {
	if v := strings.TrimSpace(os.Getenv("APP_PORT")); v != "" {
		AppPort = v
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("APP_DEBUG"))) {
	case "1", "true", "yes", "on":
		AppDebug = true
	}
	if v := strings.TrimSpace(os.Getenv("APP_BASIC_AUTH")); v != "" {
		AppBasicAuthCredential = strings.Split(v, ",")
	}
	if v := strings.TrimSpace(os.Getenv("APP_BASE_PATH")); v != "" {
		AppBasePath = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_TRUSTED_PROXIES")); v != "" {
		AppTrustedProxies = strings.Split(v, ",")
	}
	if v := strings.TrimSpace(os.Getenv("PATH_STORAGES")); v != "" {
		PathStorages = v
	}

	loadDurationEnv("CACHE_RESPONSES_TTL_SECONDS", &CacheResponsesTTL)
	loadIntEnv("CACHE_RESPONSES_MAX_SIZE", &CacheResponsesMaxSize)
	loadDurationEnv("CACHE_SEARCHES_TTL_SECONDS", &CacheSearchesTTL)
	loadIntEnv("CACHE_SEARCHES_MAX_SIZE", &CacheSearchesMaxSize)
	loadDurationEnv("CACHE_EMBEDDINGS_TTL_SECONDS", &CacheEmbeddingsTTL)
	loadIntEnv("CACHE_EMBEDDINGS_MAX_SIZE", &CacheEmbeddingsMaxSize)
	loadDurationEnv("CACHE_SWEEP_INTERVAL_SECONDS", &CacheSweepInterval)

	loadIntEnv("RATE_LIMIT_GLOBAL_LIMIT", &RateLimitGlobalLimit)
	loadDurationEnv("RATE_LIMIT_GLOBAL_WINDOW_SECONDS", &RateLimitGlobalWindow)
	loadIntEnv("RATE_LIMIT_CUSTOMER_LIMIT", &RateLimitCustomerLimit)
	loadDurationEnv("RATE_LIMIT_CUSTOMER_WINDOW_SECONDS", &RateLimitCustomerWindow)
	loadIntEnv("RATE_LIMIT_OWNER_LIMIT", &RateLimitOwnerLimit)
	loadDurationEnv("RATE_LIMIT_OWNER_WINDOW_SECONDS", &RateLimitOwnerWindow)
	loadIntEnv("RATE_LIMIT_MEDIA_UPLOAD_LIMIT", &RateLimitMediaUploadLimit)
	loadDurationEnv("RATE_LIMIT_MEDIA_UPLOAD_WINDOW_SECONDS", &RateLimitMediaUploadWindow)
	loadDurationEnv("RATE_LIMIT_GC_RETENTION_SECONDS", &RateLimitGCRetention)
	loadDurationEnv("RATE_LIMIT_GC_INTERVAL_SECONDS", &RateLimitGCInterval)

	loadIntEnv("RETRY_MAX_ATTEMPTS", &RetryMaxAttempts)
	loadIntEnv("RETRY_DELAY_MS", &RetryDelayMs)
	loadIntEnv("BREAKER_FAILURE_THRESHOLD", &BreakerFailureThreshold)
	loadDurationEnv("BREAKER_RESET_TIMEOUT_SECONDS", &BreakerResetTimeout)

	loadTunablesFromDB()
}

func loadIntEnv(key string, target *int) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*target = n
		}
	}
}

func loadDurationEnv(key string, target *time.Duration) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*target = time.Duration(n) * time.Second
		}
	}
}

func openSettingsDB() (*sql.DB, error) {
	// First boot runs before any other storages setup, the directory may not
	// exist yet.
	if err := os.MkdirAll(PathStorages, 0755); err != nil {
		return nil, err
	}

	dbPath := fmt.Sprintf("%s/azshield.db", PathStorages)
	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on", dbPath)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS global_settings (key TEXT PRIMARY KEY, value TEXT)`); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// loadTunablesFromDB applies operator overrides saved via the admin API.
// DB values win over env so a runtime retune survives restarts.
func loadTunablesFromDB() {
	db, err := openSettingsDB()
	if err != nil {
		return
	}
	defer db.Close()

	rows, err := db.Query(`SELECT key, value FROM global_settings`)
	if err != nil {
		return
	}
	defer rows.Close()

	for rows.Next() {
		var key, val string
		if err := rows.Scan(&key, &val); err != nil {
			continue
		}
		applyTunable(key, val)
	}
}

func applyTunable(key, val string) {
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil || n <= 0 {
		return
	}
	switch key {
	case "cache_responses_ttl_seconds":
		CacheResponsesTTL = time.Duration(n) * time.Second
	case "cache_responses_max_size":
		CacheResponsesMaxSize = n
	case "cache_searches_ttl_seconds":
		CacheSearchesTTL = time.Duration(n) * time.Second
	case "cache_searches_max_size":
		CacheSearchesMaxSize = n
	case "cache_embeddings_ttl_seconds":
		CacheEmbeddingsTTL = time.Duration(n) * time.Second
	case "cache_embeddings_max_size":
		CacheEmbeddingsMaxSize = n
	case "ratelimit_global_limit":
		RateLimitGlobalLimit = n
	case "ratelimit_global_window_seconds":
		RateLimitGlobalWindow = time.Duration(n) * time.Second
	case "ratelimit_customer_limit":
		RateLimitCustomerLimit = n
	case "ratelimit_customer_window_seconds":
		RateLimitCustomerWindow = time.Duration(n) * time.Second
	case "ratelimit_owner_limit":
		RateLimitOwnerLimit = n
	case "ratelimit_owner_window_seconds":
		RateLimitOwnerWindow = time.Duration(n) * time.Second
	case "ratelimit_media_upload_limit":
		RateLimitMediaUploadLimit = n
	case "ratelimit_media_upload_window_seconds":
		RateLimitMediaUploadWindow = time.Duration(n) * time.Second
	}
}

// SaveTunables persists operator overrides to the global_settings table.
func SaveTunables(values map[string]int) error {
	db, err := openSettingsDB()
	if err != nil {
		return err
	}
	defer db.Close()

	for key, n := range values {
		if _, err := db.Exec(
			`INSERT INTO global_settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, strconv.Itoa(n),
		); err != nil {
			return err
		}
		applyTunable(key, strconv.Itoa(n))
	}
	return nil
}
