package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"mangamatch/internal/api"
	"mangamatch/internal/matcher"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

type column struct {
	header   string
	align    columnAlignment
	maxWidth int
}

const titleWidth = 42

func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, 0, len(columns))
	for i, col := range columns {
		header[i] = col.header
		align := text.AlignLeft
		if col.align == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			WidthMax:    col.maxWidth,
			WidthMaxEnforcer: func(col string, maxLen int) string {
				return truncate(col, maxLen)
			},
		})
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func truncate(value string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(value) <= limit {
		return value
	}
	if limit == 1 {
		return "…"
	}
	runes := []rune(value)
	return string(runes[:limit-1]) + "…"
}

func dash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatID(id int64) string {
	if id <= 0 {
		return "-"
	}
	return strconv.FormatInt(id, 10)
}

func formatConfidence(confidence, candidates int) string {
	if candidates == 0 {
		return "-"
	}
	return fmt.Sprintf("%d%%", confidence)
}

func renderResults(views []api.ResultView) string {
	columns := []column{
		{header: "#", align: alignRight},
		{header: "Title", maxWidth: titleWidth},
		{header: "Status"},
		{header: "Conf", align: alignRight},
		{header: "Best Match", maxWidth: titleWidth},
		{header: "ID", align: alignRight},
		{header: "Source"},
	}
	rows := make([][]string, 0, len(views))
	for i, v := range views {
		matchTitle, matchID := v.CatalogTitle, v.CatalogID
		if v.SelectedID > 0 {
			matchTitle, matchID = v.SelectedTitle, v.SelectedID
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			dash(v.Title),
			v.Status,
			formatConfidence(v.Confidence, v.Candidates),
			dash(matchTitle),
			formatID(matchID),
			dash(v.Provenance),
		})
	}
	return renderTable(columns, rows)
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// progressLine redraws a single status line on a terminal. Off a terminal it
// stays silent and the matcher's sampled progress logs carry the signal.
type progressLine struct {
	mu     sync.Mutex
	out    io.Writer
	width  int
	active bool
}

func newProgressLine(out io.Writer) *progressLine {
	if !isTerminal(out) {
		return nil
	}
	return &progressLine{out: out}
}

func (p *progressLine) callback() matcher.ProgressFunc {
	if p == nil {
		return nil
	}
	return func(completed, total int, title string) {
		p.mu.Lock()
		defer p.mu.Unlock()
		line := fmt.Sprintf("[%*d/%d] %s", len(strconv.Itoa(total)), completed, total, truncate(title, 60))
		pad := max(p.width-utf8.RuneCountInString(line), 0)
		fmt.Fprintf(p.out, "\r%s%s", line, strings.Repeat(" ", pad))
		p.width = utf8.RuneCountInString(line)
		p.active = true
	}
}

func (p *progressLine) finish() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active {
		fmt.Fprintln(p.out)
		p.active = false
	}
}
