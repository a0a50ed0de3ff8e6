package relevance

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var errNoIdentity = errors.New("item has neither a native id nor a url")

// ItemID derives the stable identity of a raw item: the platform-prefixed
// native id when there is one, otherwise the md5 of the canonical URL.
func ItemID(platform, nativeID, rawURL string) (string, error) {
	nativeID = strings.TrimSpace(nativeID)
	if nativeID != "" {
		if platform == "" {
			return "", fmt.Errorf("native id %q has no platform", nativeID)
		}
		return platform + "_" + nativeID, nil
	}

	canonical := CanonicalURL(rawURL)
	if canonical == "" {
		return "", errNoIdentity
	}

	sum := md5.Sum([]byte(canonical))
	return hex.EncodeToString(sum[:]), nil
}

// CanonicalURL trims the URL, lower-cases scheme and host and drops the
// fragment. Unparseable input is returned trimmed.
func CanonicalURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	return u.String()
}
