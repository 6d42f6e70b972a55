package ecs

// WorldStats is a point-in-time summary of a world's registry and filter index.
type WorldStats struct {
	EntityCount    int
	SystemCount    int
	FilterCount    int
	ComponentCount int
	Filters        []FilterStats
}

// FilterStats describes one indexed filter.
type FilterStats struct {
	System       string
	Sort         int
	Name         string
	Expression   string
	Matches      int
	Dependencies []string
}

// Stats collects a summary of the world. Filters are listed in system sort
// order, then by filter name.
func (w *World) Stats() WorldStats {
	stats := WorldStats{
		EntityCount:    w.live,
		SystemCount:    len(w.systems),
		FilterCount:    len(w.filters),
		ComponentCount: len(w.registry.ids),
		Filters:        make([]FilterStats, 0, len(w.filters)),
	}

	for _, entry := range w.systems {
		for _, name := range entry.filters.Names() {
			fi := entry.indexes[name]
			deps := fi.filter.Dependencies()
			depNames := make([]string, len(deps))
			for i, dep := range deps {
				depNames[i] = dep.String()
			}

			stats.Filters = append(stats.Filters, FilterStats{
				System:       entry.name,
				Sort:         entry.sort,
				Name:         name,
				Expression:   fi.filter.String(),
				Matches:      fi.members.Len(),
				Dependencies: depNames,
			})
		}
	}

	return stats
}
