package source

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/lysyi3m/buzz-comb/app/relevance"
	"github.com/lysyi3m/buzz-comb/app/topic"
)

type Options struct {
	HTTPClient *http.Client
	UserAgent  string

	TwitterBearerToken string
	TwitterBaseURL     string
	Reddit             RedditCredentials
	WeiboAccessToken   string
	WeiboBaseURL       string

	// DisablePacing turns off the per-source request limiters.
	DisablePacing bool
}

// Build returns the enabled sources of a topic in the fixed order
// rss, twitter, reddit, weibo. Sources without credentials are skipped.
func Build(cfg *topic.Config, classifier *relevance.Classifier, opts Options) ([]Source, error) {
	client := topicClient(opts.HTTPClient, cfg.Settings)

	var sources []Source

	if cfg.Sources.RSS.Enabled {
		fetcher := NewFetcher(client, opts.UserAgent, opts.limiter(time.Second, 1))
		sources = append(sources, NewRSSSource(cfg.Sources.RSS, classifier, NewContentExtractor(), fetcher))
	}

	if cfg.Sources.Twitter.Enabled {
		fetcher := NewFetcher(client, opts.UserAgent, nil)
		s, err := NewTwitterSource(opts.TwitterBaseURL, opts.TwitterBearerToken, cfg.Vocabulary, cfg.Sources.Twitter, fetcher)
		if err := skipUnconfigured(cfg.Name, PlatformTwitter, err); err != nil {
			return nil, err
		}
		if s != nil {
			sources = append(sources, s)
		}
	}

	if cfg.Sources.Reddit.Enabled {
		creds := opts.Reddit
		if creds.UserAgent == "" {
			creds.UserAgent = opts.UserAgent
		}
		s, err := NewRedditSource(creds, cfg.Sources.Reddit, client, opts.limiter(2*time.Second, 1))
		if err := skipUnconfigured(cfg.Name, PlatformReddit, err); err != nil {
			return nil, err
		}
		if s != nil {
			sources = append(sources, s)
		}
	}

	if cfg.Sources.Weibo.Enabled {
		fetcher := NewFetcher(client, opts.UserAgent, opts.limiter(2*time.Second, 1))
		s, err := NewWeiboSource(opts.WeiboBaseURL, opts.WeiboAccessToken, cfg.Sources.Weibo, fetcher)
		if err := skipUnconfigured(cfg.Name, PlatformWeibo, err); err != nil {
			return nil, err
		}
		if s != nil {
			sources = append(sources, s)
		}
	}

	return sources, nil
}

// topicClient applies a topic's request timeout on top of the shared client.
func topicClient(base *http.Client, settings topic.Settings) *http.Client {
	if base == nil {
		return &http.Client{Timeout: settings.GetTimeout()}
	}
	if settings.Timeout <= 0 {
		return base
	}
	client := *base
	client.Timeout = settings.GetTimeout()
	return &client
}

func (o Options) limiter(every time.Duration, burst int) *rate.Limiter {
	if o.DisablePacing {
		return nil
	}
	return rate.NewLimiter(rate.Every(every), burst)
}

func skipUnconfigured(topicName, platform string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrMissingCredentials) {
		slog.Info("Source skipped, credentials not configured", "topic", topicName, "source", platform)
		return nil
	}
	return err
}
