package catalog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/charmap"
)

// Feed column layout (fixed positions, legacy export from the ERP).
const (
	colCode = iota
	colName
	colFamily
	colCasesPerHour
	colAvailable
	colQualityHold
	colExternalStock
	colPending
	colOrderDate
	colOrderQty
	colSales60
	colSales15
	colDailySales15
	_ // Vta +15
	_ // M_Vta +15
	colSales15LastYear
	colDailySales15LastYear
	_ // Vta +15 AA
	colDailySales15NextLastYear

	feedColumnCount = 19
)

// feedHeaderLines is the number of preamble lines before the data rows.
const feedHeaderLines = 5

// blankSentinel is how the legacy export spells "no value".
const blankSentinel = "(en blanco)"

// FeedLoader reads the inventory/sales dataset files.
type FeedLoader struct {
	log zerolog.Logger
}

// NewFeedLoader creates a feed loader.
func NewFeedLoader(log zerolog.Logger) *FeedLoader {
	return &FeedLoader{log: log.With().Str("component", "feed_loader").Logger()}
}

// FindDataset locates the dataset file for the given date inside dir. The
// legacy exports embed the date as DD-MM-YY in the file name.
func (l *FeedLoader) FindDataset(dir string, date time.Time) (string, error) {
	stamp := date.Format("02-01-06")

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read dataset directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".csv") && strings.Contains(name, stamp) {
			return filepath.Join(dir, name), nil
		}
	}

	return "", fmt.Errorf("no dataset file for date %s in %s", stamp, dir)
}

// Load reads a dataset file and returns the item list. Duplicate item codes
// keep the last occurrence, matching the legacy export's behaviour of
// re-emitting corrected rows at the end.
func (l *FeedLoader) Load(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feed file: %w", err)
	}
	defer f.Close()

	// Legacy exports are Latin-1 encoded
	scanner := bufio.NewScanner(charmap.ISO8859_1.NewDecoder().Reader(f))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	byCode := make(map[string]Item)
	var order []string

	for scanner.Scan() {
		lineNo++
		if lineNo <= feedHeaderLines {
			continue
		}

		line := scanner.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "Total general") {
			continue
		}

		fields := strings.Split(line, ";")
		if len(fields) < feedColumnCount {
			l.log.Warn().Int("line", lineNo).Int("fields", len(fields)).Msg("Skipping short feed row")
			continue
		}

		item, err := l.parseRow(fields)
		if err != nil {
			return nil, fmt.Errorf("feed line %d: %w", lineNo, err)
		}
		if item.Code == "" {
			continue
		}

		if _, seen := byCode[item.Code]; !seen {
			order = append(order, item.Code)
		}
		byCode[item.Code] = item
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read feed file: %w", err)
	}

	items := make([]Item, 0, len(order))
	for _, code := range order {
		items = append(items, byCode[code])
	}

	l.log.Info().Int("items", len(items)).Str("path", path).Msg("Feed loaded")
	return items, nil
}

func (l *FeedLoader) parseRow(fields []string) (Item, error) {
	item := Item{
		Code:                     strings.TrimSpace(fields[colCode]),
		Name:                     strings.TrimSpace(fields[colName]),
		Family:                   strings.TrimSpace(fields[colFamily]),
		CasesPerHour:             parseNumber(fields[colCasesPerHour]),
		Available:                parseNumber(fields[colAvailable]),
		QualityHold:              parseNumber(fields[colQualityHold]),
		ExternalStock:            parseNumber(fields[colExternalStock]),
		OrderQty:                 parseNumber(fields[colOrderQty]),
		Sales60:                  parseNumber(fields[colSales60]),
		Sales15:                  parseNumber(fields[colSales15]),
		DailySales15:             parseNumber(fields[colDailySales15]),
		Sales15LastYear:          parseNumber(fields[colSales15LastYear]),
		DailySales15LastYear:     parseNumber(fields[colDailySales15LastYear]),
		DailySales15NextLastYear: parseNumber(fields[colDailySales15NextLastYear]),
	}
	_ = fields[colPending] // customer backlog figure, superseded by the orders feed

	rawDate := strings.TrimSpace(fields[colOrderDate])
	if rawDate != "" && rawDate != blankSentinel {
		date, err := time.Parse("02/01/2006", rawDate)
		if err != nil {
			return Item{}, fmt.Errorf("item %s: bad order date %q: %w", item.Code, rawDate, err)
		}
		item.OrderDate = date
	}

	return item, nil
}

// parseNumber converts legacy numeric cells to float64. Thousands are dotted,
// decimals use commas, and blanks or the "(en blanco)" sentinel mean zero.
func parseNumber(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" || s == blankSentinel {
		return 0
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
