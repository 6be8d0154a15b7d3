package epx

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func epxPage(rows ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><h1>EPX</h1><table class="epx">`)
	b.WriteString(`<thead><tr><th>Monat</th><th>EPX <b>Eigentumswohnungen</b></th><th>Bestandshäuser</th><th>Neubauhäuser&nbsp;</th></tr></thead><tbody>`)
	for _, r := range rows {
		b.WriteString(r)
	}
	b.WriteString(`</tbody></table><table><tr><td>ignored</td></tr></table></body></html>`)
	return b.String()
}

func epxRow(month, a, e, n string) string {
	return fmt.Sprintf("<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>", month, a, e, n)
}

func TestParseHTML(t *testing.T) {
	page := epxPage(
		epxRow("1.2025", "218,47", "201,10", "245,90"),
		epxRow("Februar 2025", "219,02", "201,55", "246,12"),
		epxRow("Durchschnitt", "200", "200", "200"),
		epxRow("3.2025", "n/a", "202,00", "246,50"),
		epxRow("1.2025", "218,50", "201,20", "245,95"),
	)

	series, report, err := ParseHTML(strings.NewReader(page))
	require.NoError(t, err)

	assert.Equal(t, ParseReport{Rows: 5, Parsed: 3, Skipped: 2}, report)
	require.Len(t, series, 2)
	assert.Equal(t, "2025-01", series[0].Month)
	// later duplicate month wins
	assert.Equal(t, 218.50, series[0].Apartments)
	assert.Equal(t, "2025-02", series[1].Month)
	assert.Equal(t, 201.55, series[1].ExistingHomes)
	assert.Equal(t, 246.12, series[1].NewHomes)
}

func TestParseHTML_Errors(t *testing.T) {
	tests := []struct {
		name string
		page string
		want error
	}{
		{"no table", "<html><body><p>maintenance</p></body></html>", ErrTableNotFound},
		{"header only", "<table><tr><th>Monat</th></tr></table>", ErrNoDataRows},
		{
			"missing category column",
			"<table><tr><th>Monat</th><th>Eigentumswohnungen</th><th>Bestandshäuser</th></tr><tr><td>1.2025</td><td>1</td><td>2</td></tr></table>",
			ErrMissingColumn,
		},
		{
			"missing month column",
			"<table><tr><th>Region</th><th>Eigentumswohnungen</th><th>Bestandshäuser</th><th>Neubauhäuser</th></tr><tr><td>x</td><td>1</td><td>2</td><td>3</td></tr></table>",
			ErrMissingColumn,
		},
		{"no usable rows", epxPage(epxRow("Summe", "1", "2", "3")), ErrNoUsableRows},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseHTML(strings.NewReader(tt.page))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestResolveColumns_MonthSubstring(t *testing.T) {
	layout, err := resolveColumns([]string{"Neubauhäuser", "Bestandshäuser", "Eigentumswohnungen", "Berichtsmonat"})
	require.NoError(t, err)
	assert.Equal(t, columnLayout{month: 3, apartments: 2, existingHomes: 1, newHomes: 0}, layout)
}

func TestMergeByMonth(t *testing.T) {
	existing := sampleSeries(3)
	incoming := sampleSeries(5)[2:]
	incoming[0].Apartments = 999

	merged := MergeByMonth(existing, incoming)
	require.Len(t, merged, 5)
	assert.Equal(t, 999.0, merged[2].Apartments)
	for i := 1; i < len(merged); i++ {
		assert.Less(t, merged[i-1].Month, merged[i].Month)
	}

	again := MergeByMonth(merged, incoming)
	assert.Equal(t, merged, again)
}
