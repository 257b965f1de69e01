package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mangamatch/internal/catalog"
	"mangamatch/internal/services"
)

// Format is an export file format.
type Format string

const (
	FormatAuto Format = ""
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return FormatAuto, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", services.Wrap(services.ErrValidation, "importer", "format", fmt.Sprintf("unsupported format %q", value), nil)
	}
}

// ReadFile parses the export at path. FormatAuto picks by extension, then by
// content.
func ReadFile(path string, format Format) ([]catalog.Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()
	if format == FormatAuto {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv":
			format = FormatCSV
		case ".json":
			format = FormatJSON
		}
	}
	return Read(f, format)
}

// Read parses an export from r. Rows without a title or catalog id are
// skipped; duplicate titles keep their first row.
func Read(r io.Reader, format Format) ([]catalog.Input, error) {
	br := bufio.NewReader(r)
	if format == FormatAuto {
		format = sniff(br)
	}
	var (
		inputs []catalog.Input
		err    error
	)
	switch format {
	case FormatJSON:
		inputs, err = readJSON(br)
	default:
		inputs, err = readCSV(br)
	}
	if err != nil {
		return nil, err
	}
	return dedupe(inputs), nil
}

func sniff(br *bufio.Reader) Format {
	peek, _ := br.Peek(512)
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(peek, []byte("\xef\xbb\xbf")), " \t\r\n")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return FormatJSON
	}
	return FormatCSV
}

func dedupe(inputs []catalog.Input) []catalog.Input {
	seen := make(map[string]struct{}, len(inputs))
	out := inputs[:0]
	for _, in := range inputs {
		key := in.Key()
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, in)
	}
	return out
}

var columnAliases = map[string]string{
	"title":              "title",
	"name":               "title",
	"series_title":       "title",
	"alternative_titles": "alternative_titles",
	"alt_titles":         "alternative_titles",
	"status":             "status",
	"chapters_read":      "chapters_read",
	"last_chapter_read":  "chapters_read",
	"volumes_read":       "volumes_read",
	"last_volume_read":   "volumes_read",
	"score":              "score",
	"rating":             "score",
	"url":                "url",
	"series_url":         "url",
	"notes":              "notes",
	"last_read_at":       "last_read_at",
	"updated_at":         "last_read_at",
	"anilist_id":         "anilist_id",
	"catalog_id":         "anilist_id",
}

func readCSV(r io.Reader) ([]catalog.Input, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "importer", "csv", "read header", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		name = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(name, " ", "_")))
		if canonical, ok := columnAliases[name]; ok {
			if _, dup := columns[canonical]; !dup {
				columns[canonical] = i
			}
		}
	}
	if _, ok := columns["title"]; !ok {
		return nil, services.Wrap(services.ErrValidation, "importer", "csv", "header has no title column", nil)
	}

	var inputs []catalog.Input
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "importer", "csv", fmt.Sprintf("line %d", line), err)
		}
		get := func(column string) string {
			idx, ok := columns[column]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		inputs = append(inputs, catalog.Input{
			Title:             get("title"),
			AlternativeTitles: splitList(get("alternative_titles")),
			CatalogID:         parseInt64(get("anilist_id")),
			Status:            get("status"),
			ChaptersRead:      parseFloat(get("chapters_read")),
			VolumesRead:       int(parseInt64(get("volumes_read"))),
			Score:             parseFloat(get("score")),
			URL:               get("url"),
			Notes:             get("notes"),
			LastReadAt:        parseTime(get("last_read_at")),
		})
	}
	return inputs, nil
}

type jsonSeries struct {
	Title             string      `json:"title"`
	AlternativeTitles []string    `json:"alternative_titles"`
	AniListID         json.Number `json:"anilist_id"`
	Status            string      `json:"status"`
	ChaptersRead      json.Number `json:"chapters_read"`
	VolumesRead       json.Number `json:"volumes_read"`
	Score             json.Number `json:"score"`
	URL               string      `json:"url"`
	Notes             string      `json:"notes"`
	LastReadAt        string      `json:"last_read_at"`
}

type jsonExport struct {
	Series []jsonSeries `json:"series"`
}

func readJSON(r io.Reader) ([]catalog.Input, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	var series []jsonSeries
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(raw, &series)
	} else {
		var export jsonExport
		err = json.Unmarshal(raw, &export)
		series = export.Series
	}
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "importer", "json", "decode export", err)
	}

	inputs := make([]catalog.Input, 0, len(series))
	for _, s := range series {
		inputs = append(inputs, catalog.Input{
			Title:             strings.TrimSpace(s.Title),
			AlternativeTitles: cleanList(s.AlternativeTitles),
			CatalogID:         parseInt64(s.AniListID.String()),
			Status:            strings.TrimSpace(s.Status),
			ChaptersRead:      parseFloat(s.ChaptersRead.String()),
			VolumesRead:       int(parseInt64(s.VolumesRead.String())),
			Score:             parseFloat(s.Score.String()),
			URL:               strings.TrimSpace(s.URL),
			Notes:             s.Notes,
			LastReadAt:        parseTime(s.LastReadAt),
		})
	}
	return inputs, nil
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	return cleanList(strings.Split(value, ";"))
}

func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseInt64(value string) int64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil && n > 0 {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil && f > 0 {
		return int64(f)
	}
	return 0
}

func parseFloat(value string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms).UTC()
	}
	return time.Time{}
}
