package cfg

import "time"

type Cfg struct {
	// Storage configuration
	DBPath    string
	ExportDir string
	RedisAddr string
	CacheTTL  int

	// Application configuration
	TopicsDir         string
	Port              string
	BaseUrl           string
	WorkerCount       int
	SchedulerInterval int
	ExportSchedule    string
	APIAccessKey      string
	HTTPTimeout       int

	// Source credentials
	TwitterBearerToken string
	RedditClientID     string
	RedditClientSecret string
	RedditUserAgent    string
	WeiboAccessToken   string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

func (c *Cfg) GetHTTPTimeout() time.Duration {
	if c.HTTPTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.HTTPTimeout) * time.Second
}

func (c *Cfg) GetCacheTTL() time.Duration {
	if c.CacheTTL <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.CacheTTL) * time.Second
}

// Location falls back to UTC when the configured timezone is unknown.
func (c *Cfg) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
