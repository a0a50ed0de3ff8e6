package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lysyi3m/buzz-comb/app/relevance"
)

const fileTimestamp = "20060102_150405"

type Files struct {
	JSON   string
	CSV    string
	Report string
}

type Writer struct {
	dir      string
	version  string
	location *time.Location
}

func NewWriter(dir, version string, location *time.Location) *Writer {
	return &Writer{dir: dir, version: version, location: location}
}

// Run writes the JSON document, CSV and report for one topic snapshot.
func (w *Writer) Run(topicName string, items []relevance.Item, now time.Time) (*Files, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	stamp := now.In(w.loc()).Format(fileTimestamp)
	files := &Files{
		JSON:   filepath.Join(w.dir, fmt.Sprintf("%s_%s.json", topicName, stamp)),
		CSV:    filepath.Join(w.dir, fmt.Sprintf("%s_%s.csv", topicName, stamp)),
		Report: filepath.Join(w.dir, fmt.Sprintf("%s_report_%s.json", topicName, stamp)),
	}

	doc, err := MarshalJSON(BuildDocument(topicName, w.version, items, now))
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(files.JSON, doc); err != nil {
		return nil, err
	}

	csvData, err := CSV(items)
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(files.CSV, csvData); err != nil {
		return nil, err
	}

	report, err := MarshalJSON(BuildReport(topicName, items, now, w.loc()))
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(files.Report, report); err != nil {
		return nil, err
	}

	return files, nil
}

func (w *Writer) loc() *time.Location {
	if w.location == nil {
		return time.UTC
	}
	return w.location
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	// CreateTemp uses 0600; exports are read by the web application's user.
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move export into place: %w", err)
	}
	return nil
}
