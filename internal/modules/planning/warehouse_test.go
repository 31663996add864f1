package planning

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/planline/internal/modules/catalog"
)

func occLine(stock, cases, perPallet, hours float64) Line {
	return Line{
		Proj: Projection{
			Item:         catalog.Item{Code: "A"},
			Directive:    catalog.Directive{CasesPerPallet: perPallet},
			InitialStock: stock,
		},
		Cases: cases,
		Hours: hours,
	}
}

func TestAccountWarehouse(t *testing.T) {
	lines := []Line{
		occLine(100, 100, 40, 2), // 200 units, 5 pallets
		occLine(60, 20, 20, 0.5), // 80 units, 4 pallets
		occLine(99999, 0, 40, 0), // idle, ignored
	}

	occ := AccountWarehouse(lines)
	assert.InDelta(t, 280, occ.TotalUnits, 1e-9)
	assert.InDelta(t, 9, occ.TotalPallets, 1e-9)
	assert.Equal(t, 0, occ.SpacePenalty)
}

func TestAccountWarehousePenaltyBands(t *testing.T) {
	tests := []struct {
		pallets float64
		penalty int
	}{
		{700, 0},
		{800, 0}, // thresholds are exclusive
		{801, -10},
		{1000, -10},
		{1001, -50},
		{1200, -50},
		{1201, -100},
		{5000, -100},
	}

	for _, tt := range tests {
		occ := AccountWarehouse([]Line{occLine(0, tt.pallets, 1, 2)})
		assert.InDelta(t, tt.pallets, occ.TotalPallets, 1e-9)
		assert.Equal(t, tt.penalty, occ.SpacePenalty, "pallets %v", tt.pallets)
	}
}

func TestAccountWarehouseEmpty(t *testing.T) {
	occ := AccountWarehouse(nil)
	assert.Zero(t, occ.TotalUnits)
	assert.Zero(t, occ.TotalPallets)
	assert.Equal(t, 0, occ.SpacePenalty)
}
