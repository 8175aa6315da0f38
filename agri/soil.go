package agri

// MoistureBand classifies a soil moisture percentage.
type MoistureBand int

const (
	// MoistureDry is below 30%.
	MoistureDry MoistureBand = iota
	// MoistureGood is from 30% up to 60%.
	MoistureGood
	// MoistureWet is 60% and above.
	MoistureWet
)

// ClassifyMoisture returns the band of a moisture percentage.
func ClassifyMoisture(pct float64) MoistureBand {
	switch {
	case pct < 30:
		return MoistureDry
	case pct < 60:
		return MoistureGood
	default:
		return MoistureWet
	}
}

// String returns the label shown next to the reading.
func (b MoistureBand) String() string {
	switch b {
	case MoistureDry:
		return "Dry"
	case MoistureGood:
		return "Good"
	case MoistureWet:
		return "Wet"
	default:
		return "Unknown"
	}
}
