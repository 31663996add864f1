package planning

// Space penalty thresholds. The warehouse comfortably holds ~800 pallets;
// beyond that every extra band costs real money in external storage.
var palletPenalties = []struct {
	pallets float64
	penalty int
}{
	{1200, -100},
	{1000, -50},
	{800, -10},
}

// Occupancy is the projected warehouse load once the plan completes.
type Occupancy struct {
	TotalUnits   float64 `json:"total_units"`
	TotalPallets float64 `json:"total_pallets"`
	SpacePenalty int     `json:"space_penalty"`
}

// AccountWarehouse projects the post-production warehouse load: every
// planned item's stock plus its produced cases, converted to pallets with
// the per-item pallet size, plus the step penalty for the occupancy band.
func AccountWarehouse(lines []Line) Occupancy {
	var occ Occupancy

	for _, l := range lines {
		if l.Hours <= 0 {
			continue
		}
		units := l.Proj.InitialStock + l.Cases
		occ.TotalUnits += units
		occ.TotalPallets += units / l.Proj.Directive.CasesPerPallet
	}

	for _, band := range palletPenalties {
		if occ.TotalPallets > band.pallets {
			occ.SpacePenalty = band.penalty
			break
		}
	}

	return occ
}
