// package formatter exports the addition history to files (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/desertthunder/jamx/internal/models"
	"github.com/desertthunder/jamx/internal/shared"
)

// Format names an export format.
type Format string

const (
	CSV      Format = "csv"
	Markdown Format = "markdown"
	Text     Format = "text"
)

// ParseFormat accepts csv, markdown (or md) and text (or txt), case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	case "text", "txt":
		return Text, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, s)
	}
}

// Extension is the file extension used for f.
func (f Format) Extension() string {
	switch f {
	case Markdown:
		return ".md"
	case Text:
		return ".txt"
	default:
		return ".csv"
	}
}

// ExportToCSV converts additions to CSV with columns: ID, Track, URI, Channel, Message TS, Source, Added At
func ExportToCSV(additions []*models.Addition) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Track", "URI", "Channel", "Message TS", "Source", "Added At"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, a := range additions {
		record := []string{
			a.ID(),
			a.TrackID(),
			a.URI(),
			a.Channel(),
			a.MessageTS(),
			string(a.Source()),
			a.AddedAt().UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts additions to a Markdown list of open.spotify.com links
func ExportToMarkdown(additions []*models.Addition) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Playlist additions\n\n")
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", len(additions)))

	for i, a := range additions {
		buf.WriteString(fmt.Sprintf("%d. [%s](https://open.spotify.com/track/%s) (%s, %s)\n",
			i+1, a.TrackID(), a.TrackID(), a.Source(), a.AddedAt().UTC().Format("2006-01-02 15:04")))
	}

	return buf.Bytes(), nil
}

// ExportToText converts additions to one Spotify URI per line
func ExportToText(additions []*models.Addition) ([]byte, error) {
	var buf bytes.Buffer
	for _, a := range additions {
		buf.WriteString(a.URI() + "\n")
	}
	return buf.Bytes(), nil
}

// Export renders additions in format f.
func Export(additions []*models.Addition, f Format) ([]byte, error) {
	switch f {
	case CSV:
		return ExportToCSV(additions)
	case Markdown:
		return ExportToMarkdown(additions)
	case Text:
		return ExportToText(additions)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, f)
	}
}

// WriteExport writes additions to path in format f.
//
// Defaults to additions{ext} in the working directory. Returns the path written.
func WriteExport(additions []*models.Addition, f Format, path string) (string, error) {
	if path == "" {
		path = "additions" + f.Extension()
	}

	data, err := Export(additions, f)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", f, err)
	}

	return path, nil
}
