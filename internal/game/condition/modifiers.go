package condition

// Modifiers is the summed effect of a set of mission-wide conditions.
type Modifiers struct {
	HitPoints   int
	Skills      map[string]int
	Categories  map[string]int
	Inspiration map[string]int
}

// MissionModifiers sums the values of every mission-wide condition in active
// by target. Round-based, effect-free and custom-target conditions contribute
// nothing. Sums are linear and unclamped.
func MissionModifiers(active []*Definition) Modifiers {
	m := Modifiers{
		Skills:      make(map[string]int),
		Categories:  make(map[string]int),
		Inspiration: make(map[string]int),
	}
	for _, d := range active {
		if !d.IsMissionWide() {
			continue
		}
		switch d.Target.Kind {
		case TargetHitPoints:
			m.HitPoints += d.Value
		case TargetSkill:
			m.Skills[d.Target.Name] += d.Value
		case TargetCategory:
			m.Categories[d.Target.Name] += d.Value
		case TargetInspiration:
			m.Inspiration[d.Target.Name] += d.Value
		}
	}
	return m
}
