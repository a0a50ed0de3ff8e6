package source

import (
	"context"
	"errors"

	"github.com/lysyi3m/buzz-comb/app/relevance"
)

const (
	PlatformRSS     = "news_rss"
	PlatformTwitter = "twitter"
	PlatformReddit  = "reddit"
	PlatformWeibo   = "weibo"
)

var ErrMissingCredentials = errors.New("missing credentials")

// Source produces raw items for one platform. Implementations must be safe
// to call from their own goroutine; sources never share mutable state.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]relevance.RawItem, error)
}
