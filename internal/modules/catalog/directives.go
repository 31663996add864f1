package catalog

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/charmap"
)

// Directive file header names. The file is maintained by hand in a
// spreadsheet, so lookups are header-based rather than positional.
const (
	hdrCode           = "COD_ART"
	hdrExtraInfo      = "Info extra"
	hdrPlacement      = "ORDEN PLANIFICACION"
	hdrCasesPerPallet = "cj/palet"
	hdrAllergen       = "ALERGENOS"
)

// exclusionTags are Info extra values that remove an item from planning.
var exclusionTags = map[string]bool{
	"DESCATALOGADO": true,
}

// DirectiveLoader reads the per-item directives file.
type DirectiveLoader struct {
	log zerolog.Logger
}

// NewDirectiveLoader creates a directive loader.
func NewDirectiveLoader(log zerolog.Logger) *DirectiveLoader {
	return &DirectiveLoader{log: log.With().Str("component", "directive_loader").Logger()}
}

// Load reads the directives file. Missing required columns are a data error
// that aborts the run; the allergen column is optional (older files predate
// it).
func (l *DirectiveLoader) Load(path string) (DirectiveSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open directives file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(charmap.ISO8859_1.NewDecoder().Reader(f))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read directives header: %w", err)
		}
		return nil, fmt.Errorf("directives file %s is empty", path)
	}

	header := strings.Split(scanner.Text(), ";")
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}

	for _, required := range []string{hdrCode, hdrExtraInfo, hdrPlacement, hdrCasesPerPallet} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("directives file missing required column %q", required)
		}
	}
	allergenIdx, hasAllergen := idx[hdrAllergen]

	set := make(DirectiveSet)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, ";")
		code := fieldAt(fields, idx[hdrCode])
		if code == "" {
			continue
		}

		extra := strings.ToUpper(fieldAt(fields, idx[hdrExtraInfo]))

		d := Directive{
			Code:           code,
			Placement:      parsePlacement(fieldAt(fields, idx[hdrPlacement])),
			CasesPerPallet: parseCasesPerPallet(fieldAt(fields, idx[hdrCasesPerPallet])),
		}
		if exclusionTags[extra] {
			d.Excluded = true
			d.ExclusionReason = extra
		}
		if hasAllergen {
			d.Allergen = parseYes(fieldAt(fields, allergenIdx))
		}

		set[code] = d
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read directives file: %w", err)
	}

	l.log.Info().Int("directives", len(set)).Str("path", path).Msg("Directives loaded")
	return set, nil
}

func fieldAt(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

// parsePlacement maps the spreadsheet's INICIO/FINAL markers (and their
// English spellings) to a placement. Anything else means no preference.
func parsePlacement(raw string) Placement {
	switch strings.ToUpper(raw) {
	case "INICIO", "EARLY":
		return PlaceEarly
	case "FINAL", "LATE":
		return PlaceLate
	default:
		return PlaceAny
	}
}

func parseCasesPerPallet(raw string) float64 {
	if raw == "" {
		return DefaultCasesPerPallet
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil || v <= 0 {
		return DefaultCasesPerPallet
	}
	return v
}

func parseYes(raw string) bool {
	switch strings.ToUpper(raw) {
	case "SI", "S", "YES", "Y", "1", "TRUE":
		return true
	default:
		return false
	}
}
