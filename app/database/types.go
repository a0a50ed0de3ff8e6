package database

import (
	"time"
)

type Topic struct {
	Name          string // Topic identifier derived from the config filename
	LastFetchedAt *time.Time
	NextFetchAt   *time.Time
	LastItemCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
