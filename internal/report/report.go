// Package report renders ranked results as CSV and as a terminal preview.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"

	"github.com/kailas-cloud/patsim/internal/domain/candidate"
	"github.com/kailas-cloud/patsim/internal/usecase/rank"
)

// Header is the CSV column order.
var Header = []string{
	candidate.FieldPublicationNumber,
	candidate.FieldTitle,
	candidate.FieldFilingDate,
	candidate.FieldCountryCode,
	"similarity_score",
}

// utf8BOM lets spreadsheet applications detect UTF-8 (Japanese titles).
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

const previewTitleWidth = 48

// CSVOptions controls CSV output.
type CSVOptions struct {
	BOM bool
}

// WriteCSV writes hits in ranked order, one row per hit, score with 6 decimals.
func WriteCSV(w io.Writer, hits []rank.Hit[candidate.Record], opts CSVOptions) error {
	if opts.BOM {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("write bom: %w", err)
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, h := range hits {
		if err := cw.Write(csvRow(h)); err != nil {
			return fmt.Errorf("write row %s: %w", h.Record.ID(), err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func csvRow(h rank.Hit[candidate.Record]) []string {
	return []string{
		h.Record.ID(),
		h.Record.Title(),
		h.Record.FilingDate(),
		h.Record.CountryCode(),
		FormatScore(h.Score),
	}
}

// FormatScore renders a similarity score with 6 decimals.
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 6, 64)
}

// WritePreview renders the first n hits as a bordered table.
func WritePreview(w io.Writer, hits []rank.Hit[candidate.Record], n int) error {
	if n > len(hits) {
		n = len(hits)
	}
	rows := make([][]string, 0, n)
	for i, h := range hits[:max(n, 0)] {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			h.Record.ID(),
			ansi.Truncate(h.Record.Title(), previewTitleWidth, "…"),
			h.Record.FilingDate(),
			strconv.FormatFloat(h.Score, 'f', 4, 64),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "PUBLICATION", "TITLE", "FILED", "SCORE").
		Rows(rows...)

	if _, err := fmt.Fprintln(w, t.String()); err != nil {
		return fmt.Errorf("write preview: %w", err)
	}
	return nil
}
