package domain

// Leg is one routed stage: material for Type moves from Source to
// Destination.
type Leg struct {
	Type        ProductionType
	Source      Location
	Destination Location
}

// Route expands an ordered stage list into legs. Each stage's source is the
// previous stage (production for the first one, warehouse for warehouse
// stages). Slitting feeds cutting when the list contains a cutting stage and
// finished goods otherwise. Unknown stages are skipped.
func Route(types []ProductionType) []Leg {
	toCutting := false
	for _, t := range types {
		if t == TypeCutting {
			toCutting = true
			break
		}
	}

	current := LocationProduction
	legs := make([]Leg, 0, len(types))
	for _, t := range types {
		dest, ok := destination(t, toCutting)
		if !ok {
			continue
		}
		src := current
		if t == TypeWarehouse {
			src = LocationWarehouse
		}
		legs = append(legs, Leg{Type: t, Source: src, Destination: dest})
		current = Location(t)
	}
	return legs
}

func destination(t ProductionType, toCutting bool) (Location, bool) {
	switch t {
	case TypeWarehouse:
		return LocationSlitting, true
	case TypeSlitting:
		if toCutting {
			return LocationCutting, true
		}
		return LocationProduction, true
	case TypeCutting:
		return LocationGluing, true
	case TypeGluing:
		return LocationProduction, true
	}
	return "", false
}
