package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// feedRow builds one data line with the 19 fixed columns.
func feedRow(code, name, family string, rest ...string) string {
	fields := make([]string, feedColumnCount)
	fields[colCode] = code
	fields[colName] = name
	fields[colFamily] = family
	for i, v := range rest {
		fields[3+i] = v
	}
	return strings.Join(fields, ";")
}

func writeFeed(t *testing.T, rows ...string) string {
	t.Helper()

	var b strings.Builder
	for i := 0; i < feedHeaderLines; i++ {
		b.WriteString("preamble line\n")
	}
	for _, r := range rows {
		b.WriteString(r + "\n")
	}

	path := filepath.Join(t.TempDir(), "Stock Datos 05-01-26.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path
}

func TestFeedLoaderLoad(t *testing.T) {
	l := NewFeedLoader(testLogger())

	path := writeFeed(t,
		feedRow("A001", "GRANOLA", "VIME", "120", "1.500,5", "10", "0", "", "05/01/2026", "200", "900", "300", "20", "", "", "250", "16,5", "", "18"),
		feedRow("A002", "MUESLI", "MEC", "80", "400", "0", "0", "", "(en blanco)", "", "600", "150", "10", "", "", "0", "0", "", "0"),
		"Total general;;;;;;;;;;;;;;;;;;",
	)

	items, err := l.Load(path)
	require.NoError(t, err)
	require.Len(t, items, 2)

	a := items[0]
	assert.Equal(t, "A001", a.Code)
	assert.Equal(t, "GRANOLA", a.Name)
	assert.Equal(t, "VIME", a.Family)
	assert.Equal(t, 120.0, a.CasesPerHour)
	assert.Equal(t, 1500.5, a.Available)
	assert.Equal(t, 200.0, a.OrderQty)
	assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), a.OrderDate)
	assert.Equal(t, 16.5, a.DailySales15LastYear)

	b := items[1]
	assert.False(t, b.HasOrder(), "blank sentinel date means no order")
	assert.Equal(t, 0.0, b.OrderQty)
}

func TestFeedLoaderLatin1(t *testing.T) {
	l := NewFeedLoader(testLogger())

	// "PIÑA" with a Latin-1 encoded Ñ (0xD1)
	row := feedRow("B001", "PI\xd1A", "VIME", "50", "100", "0", "0", "", "", "", "300", "75", "5", "", "", "0", "0", "", "0")
	path := writeFeed(t, row)

	items, err := l.Load(path)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "PIÑA", items[0].Name)
}

func TestFeedLoaderDuplicatesKeepLast(t *testing.T) {
	l := NewFeedLoader(testLogger())

	path := writeFeed(t,
		feedRow("A001", "FIRST", "VIME", "100", "10", "0", "0", "", "", "", "1", "1", "1", "", "", "0", "0", "", "0"),
		feedRow("A002", "OTHER", "MEC", "100", "10", "0", "0", "", "", "", "1", "1", "1", "", "", "0", "0", "", "0"),
		feedRow("A001", "CORRECTED", "VIME", "100", "99", "0", "0", "", "", "", "1", "1", "1", "", "", "0", "0", "", "0"),
	)

	items, err := l.Load(path)
	require.NoError(t, err)
	require.Len(t, items, 2)
	// Last occurrence wins, first-seen position is kept
	assert.Equal(t, "A001", items[0].Code)
	assert.Equal(t, "CORRECTED", items[0].Name)
	assert.Equal(t, 99.0, items[0].Available)
}

func TestFeedLoaderBadOrderDate(t *testing.T) {
	l := NewFeedLoader(testLogger())

	path := writeFeed(t,
		feedRow("A001", "X", "VIME", "100", "10", "0", "0", "", "not-a-date", "5", "1", "1", "1", "", "", "0", "0", "", "0"),
	)

	_, err := l.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad order date")
}

func TestFindDataset(t *testing.T) {
	l := NewFeedLoader(testLogger())

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Stock Datos 05-01-26.csv"), []byte{}, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Stock Datos 06-01-26.csv"), []byte{}, 0644))

	path, err := l.FindDataset(dir, time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Contains(t, path, "06-01-26")

	_, err = l.FindDataset(dir, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"", 0},
		{"(en blanco)", 0},
		{"1.234,5", 1234.5},
		{"42", 42},
		{"0,25", 0.25},
		{"-3,5", -3.5},
		{"garbage", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseNumber(tt.raw), "parseNumber(%q)", tt.raw)
	}
}
