package cmd

import (
	"context"
	"os"
	"strings"
	"time"

	globalConfig "github.com/AzielCF/az-shield/config"
	domainCache "github.com/AzielCF/az-shield/domains/cache"
	domainRateLimit "github.com/AzielCF/az-shield/domains/ratelimit"
	domainResilience "github.com/AzielCF/az-shield/domains/resilience"
	"github.com/AzielCF/az-shield/pkg/utils"
	"github.com/AzielCF/az-shield/usecase"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Usecase
	cacheUsecase      domainCache.ICacheUsecase
	rateLimitUsecase  domainRateLimit.IRateLimitUsecase
	resilienceUsecase domainResilience.IResilienceUsecase

	appCtx    context.Context
	appCancel context.CancelFunc
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Short: "Resilience layer for WhatsApp AI assistants",
	Long: `Caching, rate limiting, retry and circuit breaker services for
WhatsApp AI assistant deployments, exposed over an admin HTTP API.`,
}

func init() {
	// Load environment variables first
	utils.LoadConfig(".")

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Initialize flags first, before any subcommands are added
	initFlags()

	// Then initialize other components
	cobra.OnInitialize(initEnvConfig, initApp)
}

// initEnvConfig loads configuration from environment variables
func initEnvConfig() {
	// Application settings
	if envPort := viper.GetString("app_port"); envPort != "" {
		globalConfig.AppPort = envPort
	}
	if envDebug := viper.GetBool("app_debug"); envDebug {
		globalConfig.AppDebug = envDebug
	}
	envBasicAuth := viper.GetString("app_basic_auth")
	if envBasicAuth == "" {
		envBasicAuth = os.Getenv("APP_BASIC_AUTH")
	}
	if envBasicAuth != "" {
		credential := strings.Split(envBasicAuth, ",")
		globalConfig.AppBasicAuthCredential = credential
	}
	if envBasePath := viper.GetString("app_base_path"); envBasePath != "" {
		globalConfig.AppBasePath = envBasePath
	}
	if envTrustedProxies := viper.GetString("app_trusted_proxies"); envTrustedProxies != "" {
		proxies := strings.Split(envTrustedProxies, ",")
		globalConfig.AppTrustedProxies = proxies
	}
}

func initFlags() {
	// Application flags
	rootCmd.PersistentFlags().StringVarP(
		&globalConfig.AppPort,
		"port", "p",
		globalConfig.AppPort,
		"change port number with --port <number> | example: --port=8080",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&globalConfig.AppDebug,
		"debug", "d",
		globalConfig.AppDebug,
		"hide or displaying log with --debug <true/false> | example: --debug=true",
	)
	rootCmd.PersistentFlags().StringSliceVarP(
		&globalConfig.AppBasicAuthCredential,
		"basic-auth", "b",
		globalConfig.AppBasicAuthCredential,
		"basic auth credential | -b=yourUsername:yourPassword",
	)
	rootCmd.PersistentFlags().StringVarP(
		&globalConfig.AppBasePath,
		"base-path", "",
		globalConfig.AppBasePath,
		`base path for subpath deployment --base-path <string> | example: --base-path="/shield"`,
	)
	rootCmd.PersistentFlags().StringSliceVarP(
		&globalConfig.AppTrustedProxies,
		"trusted-proxies", "",
		globalConfig.AppTrustedProxies,
		`trusted proxy IP ranges for reverse proxy deployments --trusted-proxies <string> | example: --trusted-proxies="10.0.0.0/8,172.16.0.0/12"`,
	)

	// Tuning flags
	rootCmd.PersistentFlags().IntVarP(
		&globalConfig.RetryMaxAttempts,
		"retry-max-attempts", "",
		globalConfig.RetryMaxAttempts,
		`default attempt budget for retried operations --retry-max-attempts <number> | example: --retry-max-attempts=5`,
	)
	rootCmd.PersistentFlags().IntVarP(
		&globalConfig.BreakerFailureThreshold,
		"breaker-threshold", "",
		globalConfig.BreakerFailureThreshold,
		`consecutive failures before a circuit opens --breaker-threshold <number> | example: --breaker-threshold=3`,
	)
}

func initApp() {
	if globalConfig.AppDebug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	//preparing folder if not exist
	err := utils.CreateFolder(globalConfig.PathStorages)
	if err != nil {
		logrus.Errorln(err)
	}

	appCtx, appCancel = context.WithCancel(context.Background())

	cacheUsecase, err = usecase.NewCacheService(map[domainCache.StoreType]domainCache.Policy{
		domainCache.StoreResponses:  {TTL: globalConfig.CacheResponsesTTL, MaxSize: globalConfig.CacheResponsesMaxSize},
		domainCache.StoreSearches:   {TTL: globalConfig.CacheSearchesTTL, MaxSize: globalConfig.CacheSearchesMaxSize},
		domainCache.StoreEmbeddings: {TTL: globalConfig.CacheEmbeddingsTTL, MaxSize: globalConfig.CacheEmbeddingsMaxSize},
	}, globalConfig.CacheSweepInterval)
	if err != nil {
		logrus.Fatalf("failed to init cache service: %v", err)
	}
	cacheUsecase.StartBackgroundSweep(appCtx)

	rateLimitUsecase, err = usecase.NewRateLimitService(map[domainRateLimit.Scope]domainRateLimit.Policy{
		domainRateLimit.ScopeGlobal:        {Limit: globalConfig.RateLimitGlobalLimit, Window: globalConfig.RateLimitGlobalWindow},
		domainRateLimit.ScopeCustomer:      {Limit: globalConfig.RateLimitCustomerLimit, Window: globalConfig.RateLimitCustomerWindow},
		domainRateLimit.ScopeBusinessOwner: {Limit: globalConfig.RateLimitOwnerLimit, Window: globalConfig.RateLimitOwnerWindow},
		domainRateLimit.ScopeMediaUpload:   {Limit: globalConfig.RateLimitMediaUploadLimit, Window: globalConfig.RateLimitMediaUploadWindow},
	}, globalConfig.RateLimitGCRetention, globalConfig.RateLimitGCInterval)
	if err != nil {
		logrus.Fatalf("failed to init rate limit service: %v", err)
	}
	rateLimitUsecase.StartBackgroundGC(appCtx)

	resilienceUsecase = usecase.NewResilienceService(domainResilience.Defaults{
		MaxAttempts:      globalConfig.RetryMaxAttempts,
		Delay:            time.Duration(globalConfig.RetryDelayMs) * time.Millisecond,
		FailureThreshold: globalConfig.BreakerFailureThreshold,
		ResetTimeout:     globalConfig.BreakerResetTimeout,
	})
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp performs a clean shutdown of background workers.
func StopApp() {
	logrus.Info("[APP] Stopping application...")

	if appCancel != nil {
		appCancel()
	}

	logrus.Info("[APP] Application stopped cleanly.")
}
