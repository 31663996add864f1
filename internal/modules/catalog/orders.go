package catalog

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/charmap"
)

// OrderLoader reads the confirmed-orders feed: one row per item, one column
// per delivery day (DD/MM/YYYY headers), quantities stored as negatives.
type OrderLoader struct {
	log zerolog.Logger
}

// NewOrderLoader creates an order loader.
func NewOrderLoader(log zerolog.Logger) *OrderLoader {
	return &OrderLoader{log: log.With().Str("component", "order_loader").Logger()}
}

// Load reads the orders file into an OrderBook. Quantities are stored as
// absolute values; the feed spells outgoing stock as negative numbers.
func (l *OrderLoader) Load(path string) (OrderBook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open orders file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(charmap.ISO8859_1.NewDecoder().Reader(f))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	// First line is a report title, second carries the real header
	if !scanner.Scan() {
		return nil, fmt.Errorf("orders file %s is empty", path)
	}
	if !scanner.Scan() {
		return nil, fmt.Errorf("orders file %s has no header row", path)
	}

	header := strings.Split(scanner.Text(), ";")
	codeIdx := -1
	dates := make(map[int]time.Time)
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == hdrCode {
			codeIdx = i
			continue
		}
		if strings.Contains(h, "/") {
			if d, err := time.Parse("02/01/2006", h); err == nil {
				dates[i] = d
			}
		}
	}
	if codeIdx < 0 {
		return nil, fmt.Errorf("orders file missing required column %q", hdrCode)
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("orders file has no delivery-day columns")
	}

	book := make(OrderBook)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, ";")
		code := fieldAt(fields, codeIdx)
		if code == "" {
			continue
		}

		for i, day := range dates {
			qty := parseNumber(fieldAt(fields, i))
			if qty == 0 {
				continue
			}
			if book[code] == nil {
				book[code] = make(map[time.Time]float64)
			}
			book[code][day] += math.Abs(qty)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders file: %w", err)
	}

	l.log.Info().Int("items", len(book)).Str("path", path).Msg("Confirmed orders loaded")
	return book, nil
}
