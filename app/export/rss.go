package export

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/lysyi3m/buzz-comb/app/relevance"
)

// FeedInfo describes the channel of a ranked topic feed.
type FeedInfo struct {
	Topic   string
	BaseURL string
	Version string
}

// RSS renders ranked items as an RSS 2.0 channel, highest rank first.
func RSS(info FeedInfo, items []relevance.Item, now time.Time) []byte {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	baseURL := strings.TrimSuffix(cmp.Or(info.BaseURL, "http://localhost:8080"), "/")
	topicURL := fmt.Sprintf("%s/topics/%s", baseURL, info.Topic)

	writeElement(&buf, "title", fmt.Sprintf("Buzz Comb: %s", info.Topic), 4)
	writeElement(&buf, "link", topicURL, 4)
	writeElement(&buf, "description", fmt.Sprintf("Ranked on-topic posts for %s", info.Topic), 4)
	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(topicURL+"/rss")))

	writeElement(&buf, "lastBuildDate", now.Format(time.RFC1123Z), 4)
	writeElement(&buf, "generator", fmt.Sprintf("Buzz-Comb/%s", info.Version), 4)

	for _, item := range items {
		writeItem(&buf, item)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.Bytes()
}

func writeItem(buf *bytes.Buffer, item relevance.Item) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"false\">")
	xml.EscapeText(buf, []byte(item.ID))
	buf.WriteString("</guid>\n")

	writeElement(buf, "title", cmp.Or(item.Title, item.Summary), 6)
	writeElement(buf, "link", item.URL, 6)
	writeElement(buf, "description", cmp.Or(item.Summary, item.Title, "No description available"), 6)

	if item.Content != "" && item.Content != item.Summary {
		buf.WriteString("      <content:encoded><![CDATA[")
		// "]]>" cannot appear inside a CDATA section.
		buf.WriteString(strings.ReplaceAll(xmlChars(item.Content), "]]>", "]]]]><![CDATA[>"))
		buf.WriteString("]]></content:encoded>\n")
	}

	writeElement(buf, "pubDate", item.PublishedAt.Format(time.RFC1123Z), 6)
	writeElement(buf, "author", item.Author, 6)

	writeElement(buf, "category", item.Platform, 6)
	for _, keyword := range item.MatchedKeywords {
		writeElement(buf, "category", keyword, 6)
	}

	buf.WriteString("    </item>\n")
}

func writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	buf.WriteString(strings.Repeat(" ", indent))
	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

// xmlChars replaces runes XML 1.0 forbids, like the form feeds readability
// keeps from page text, the same way xml.EscapeText does.
func xmlChars(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == 0x09, r == 0x0A, r == 0x0D,
			r >= 0x20 && r <= 0xD7FF,
			r >= 0xE000 && r <= 0xFFFD,
			r >= 0x10000 && r <= 0x10FFFF:
			return r
		}
		return '\uFFFD'
	}, s)
}
