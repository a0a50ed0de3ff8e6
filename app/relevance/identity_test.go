package relevance

import (
	"crypto/md5"
	"encoding/hex"
	"testing"
)

func TestItemID_NativeID(t *testing.T) {
	id, err := ItemID("reddit", "1abcde", "https://reddit.com/r/popmart/comments/1abcde")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if id != "reddit_1abcde" {
		t.Errorf("Expected reddit_1abcde, got: %s", id)
	}
}

func TestItemID_URLHash(t *testing.T) {
	link := "https://hypebeast.com/2025/7/labubu-drop"
	sum := md5.Sum([]byte(link))
	expected := hex.EncodeToString(sum[:])

	id, err := ItemID("news_rss", "", link)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if id != expected {
		t.Errorf("Expected %s, got: %s", expected, id)
	}

	again, _ := ItemID("news_rss", "", "  HTTPS://HypeBeast.com/2025/7/labubu-drop#comments ")
	if again != id {
		t.Errorf("Expected canonical URL variants to share an id, got %s and %s", id, again)
	}

	other, _ := ItemID("news_rss", "", "https://hypebeast.com/2025/7/other")
	if other == id {
		t.Errorf("Expected different URLs to produce different ids")
	}
}

func TestItemID_Errors(t *testing.T) {
	if _, err := ItemID("news_rss", "", ""); err == nil {
		t.Errorf("Expected error without native id or url")
	}
	if _, err := ItemID("", "123", ""); err == nil {
		t.Errorf("Expected error for native id without platform")
	}
}

func TestCanonicalURL_PathCaseKept(t *testing.T) {
	got := CanonicalURL("HTTPS://Example.COM/Path/To?q=Labubu#frag")
	if got != "https://example.com/Path/To?q=Labubu" {
		t.Errorf("Unexpected canonical URL: %s", got)
	}
}
