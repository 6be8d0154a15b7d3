package epx

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Alexander4822/Spielwiese/internal/domain"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	// ErrTableNotFound is returned when the page contains no <table>
	ErrTableNotFound = errors.New("EPX table not found in HTML source")
	// ErrNoDataRows is returned when the table has a header but no data rows
	ErrNoDataRows = errors.New("EPX parser found no data rows")
	// ErrMissingColumn is returned when the month or a category column cannot be mapped
	ErrMissingColumn = errors.New("EPX parser could not map column")
	// ErrNoUsableRows is returned when every data row was rejected
	ErrNoUsableRows = errors.New("EPX parser produced no usable index records")
)

var monthColumnCandidates = []string{"monat", "datum", "zeitraum", "month"}

// category header → target field, matched by substring on the normalized header
var categoryColumns = []struct {
	header string
	field  string
}{
	{"Eigentumswohnungen", "apartments"},
	{"Bestandshäuser", "existingHomes"},
	{"Neubauhäuser", "newHomes"},
}

// Table is the text content of an HTML table; Headers is the first row
type Table struct {
	Headers []string
	Rows    [][]string
}

// ParseReport counts how many data rows were accepted and discarded
type ParseReport struct {
	Rows    int `json:"rows"`
	Parsed  int `json:"parsed"`
	Skipped int `json:"skipped"`
}

type columnLayout struct {
	month         int
	apartments    int
	existingHomes int
	newHomes      int
}

// ExtractFirstTable parses an HTML document and returns the cell text of its first table.
// Rows without any cell are ignored.
func ExtractFirstTable(r io.Reader) (*Table, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse EPX html: %w", err)
	}

	table := findFirst(doc, atom.Table)
	if table == nil {
		return nil, ErrTableNotFound
	}

	var rows [][]string
	walk(table, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Tr {
			if cells := rowCells(n); len(cells) > 0 {
				rows = append(rows, cells)
			}
			return false
		}
		// nested tables belong to a cell, not to this table's rows
		return !(n != table && n.Type == html.ElementNode && n.DataAtom == atom.Table)
	})

	if len(rows) < 2 {
		return nil, ErrNoDataRows
	}
	return &Table{Headers: rows[0], Rows: rows[1:]}, nil
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

// walk visits n and its descendants depth-first; visit returns false to skip children
func walk(n *html.Node, visit func(*html.Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func rowCells(tr *html.Node) []string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			cells = append(cells, nodeText(c))
		}
	}
	return cells
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
		return true
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

func resolveColumns(headers []string) (columnLayout, error) {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = NormalizeHeader(h)
	}

	layout := columnLayout{month: -1, apartments: -1, existingHomes: -1, newHomes: -1}

	// exact header match first, then substring
	for _, candidate := range monthColumnCandidates {
		for i, h := range normalized {
			if h == candidate {
				layout.month = i
				break
			}
		}
		if layout.month >= 0 {
			break
		}
	}
	if layout.month < 0 {
		layout.month = findSubstring(normalized, monthColumnCandidates...)
	}
	if layout.month < 0 {
		return layout, fmt.Errorf("%w: month", ErrMissingColumn)
	}

	for _, col := range categoryColumns {
		idx := findSubstring(normalized, NormalizeHeader(col.header))
		if idx < 0 {
			return layout, fmt.Errorf("%w: %s", ErrMissingColumn, col.header)
		}
		switch col.field {
		case "apartments":
			layout.apartments = idx
		case "existingHomes":
			layout.existingHomes = idx
		case "newHomes":
			layout.newHomes = idx
		}
	}
	return layout, nil
}

func findSubstring(headers []string, needles ...string) int {
	for _, needle := range needles {
		for i, h := range headers {
			if strings.Contains(h, needle) {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseRow(row []string, layout columnLayout) (domain.EpxIndex, bool) {
	month, ok := NormalizeMonth(cell(row, layout.month))
	if !ok {
		return domain.EpxIndex{}, false
	}
	apartments, ok := ParseLocaleNumber(cell(row, layout.apartments))
	if !ok {
		return domain.EpxIndex{}, false
	}
	existing, ok := ParseLocaleNumber(cell(row, layout.existingHomes))
	if !ok {
		return domain.EpxIndex{}, false
	}
	newHomes, ok := ParseLocaleNumber(cell(row, layout.newHomes))
	if !ok {
		return domain.EpxIndex{}, false
	}
	return domain.EpxIndex{
		Month:         month,
		Apartments:    apartments,
		ExistingHomes: existing,
		NewHomes:      newHomes,
	}, true
}

// ToSeries maps table rows onto the index series, sorted by month with one row per month.
// Rows that fail to parse are discarded and counted in the report.
func ToSeries(t *Table) ([]domain.EpxIndex, ParseReport, error) {
	report := ParseReport{Rows: len(t.Rows)}

	layout, err := resolveColumns(t.Headers)
	if err != nil {
		return nil, report, err
	}

	series := make([]domain.EpxIndex, 0, len(t.Rows))
	for _, row := range t.Rows {
		idx, ok := parseRow(row, layout)
		if !ok {
			report.Skipped++
			continue
		}
		series = append(series, idx)
	}
	report.Parsed = len(series)

	if len(series) == 0 {
		return nil, report, ErrNoUsableRows
	}
	return MergeByMonth(nil, series), report, nil
}

// ParseHTML extracts the first table from an EPX page and converts it to a series
func ParseHTML(r io.Reader) ([]domain.EpxIndex, ParseReport, error) {
	table, err := ExtractFirstTable(r)
	if err != nil {
		return nil, ParseReport{}, err
	}
	return ToSeries(table)
}
