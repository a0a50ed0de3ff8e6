package cfg

import (
	"cmp"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath    string `long:"db-path" env:"DB_PATH" default:"./buzz-comb.db" description:"SQLite database file"`
	ExportDir string `long:"export-dir" env:"EXPORT_DIR" default:"./exports" description:"Directory for scheduled JSON/CSV/report exports"`
	RedisAddr string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for the export cache (optional)"`
	CacheTTL  int    `long:"cache-ttl" env:"CACHE_TTL" default:"300" description:"Export cache TTL in seconds"`

	// Application configuration
	TopicsDir         string `long:"topics-dir" env:"TOPICS_DIR" default:"./topics" description:"Directory containing topic configuration files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://buzz.example.com)"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of background workers for topic processing"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler interval in seconds"`
	ExportSchedule    string `long:"export-schedule" env:"EXPORT_SCHEDULE" default:"0 * * * *" description:"Cron expression for scheduled exports"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	HTTPTimeout       int    `long:"http-timeout" env:"HTTP_TIMEOUT" default:"30" description:"Timeout in seconds for outbound HTTP requests"`

	// Source credentials
	TwitterBearerToken string `long:"twitter-bearer-token" env:"TWITTER_BEARER_TOKEN" description:"Twitter API v2 bearer token"`
	RedditClientID     string `long:"reddit-client-id" env:"REDDIT_CLIENT_ID" description:"Reddit application client id"`
	RedditClientSecret string `long:"reddit-client-secret" env:"REDDIT_CLIENT_SECRET" description:"Reddit application client secret"`
	RedditUserAgent    string `long:"reddit-user-agent" env:"REDDIT_USER_AGENT" default:"buzz-comb/1.0" description:"User agent sent to the Reddit API"`
	WeiboAccessToken   string `long:"weibo-access-token" env:"WEIBO_ACCESS_TOKEN" description:"Weibo open API access token"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Buzz Comb/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Shanghai)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:             raw.DBPath,
		ExportDir:          raw.ExportDir,
		RedisAddr:          raw.RedisAddr,
		CacheTTL:           raw.CacheTTL,
		TopicsDir:          raw.TopicsDir,
		Port:               raw.Port,
		BaseUrl:            raw.BaseUrl,
		WorkerCount:        raw.WorkerCount,
		SchedulerInterval:  raw.SchedulerInterval,
		ExportSchedule:     raw.ExportSchedule,
		APIAccessKey:       raw.APIAccessKey,
		HTTPTimeout:        raw.HTTPTimeout,
		TwitterBearerToken: raw.TwitterBearerToken,
		RedditClientID:     raw.RedditClientID,
		RedditClientSecret: raw.RedditClientSecret,
		RedditUserAgent:    raw.RedditUserAgent,
		WeiboAccessToken:   raw.WeiboAccessToken,
		UserAgent:          raw.UserAgent,
		Timezone:           raw.Timezone,
		Debug:              raw.Debug,
		Version:            GetVersion(),
	}

	if cfg.WorkerCount <= 0 {
		return nil, fmt.Errorf("worker count must be positive, got %d", cfg.WorkerCount)
	}
	if cfg.SchedulerInterval <= 0 {
		return nil, fmt.Errorf("scheduler interval must be positive, got %d", cfg.SchedulerInterval)
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		slog.Warn("Invalid timezone, using system default", "timezone", cfg.Timezone, "error", err)
	}

	return cfg, nil
}

func applyTimezone(timezone string) error {
	if timezone == "" {
		return nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}
	time.Local = loc
	return nil
}
