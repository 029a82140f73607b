package config

// A QueryMode selects how rays are submitted to the dispatch table.
type QueryMode uint8

const (
	// Rays are traced as single rays or fixed width packets.
	ModeNormal QueryMode = iota

	// Rays are traced as a stream of coherent (neighboring) rays.
	ModeStreamCoherent

	// Rays are traced as a stream of shuffled rays.
	ModeStreamIncoherent
)

func (m QueryMode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeStreamCoherent:
		return "stream-coherent"
	case ModeStreamIncoherent:
		return "stream-incoherent"
	}
	return "unknown"
}

// Parse a query mode name. Unknown names are rejected.
func ParseQueryMode(name string) (QueryMode, error) {
	switch name {
	case "normal":
		return ModeNormal, nil
	case "stream-coherent":
		return ModeStreamCoherent, nil
	case "stream-incoherent":
		return ModeStreamIncoherent, nil
	}
	return ModeNormal, Invalid("mode", name, "expected one of normal, stream-coherent, stream-incoherent")
}
