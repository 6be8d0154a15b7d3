package epx

import (
	"sort"

	"github.com/Alexander4822/Spielwiese/internal/domain"
)

// MergeByMonth overlays incoming on existing keyed by month; incoming wins.
// The result is sorted ascending by month.
func MergeByMonth(existing, incoming []domain.EpxIndex) []domain.EpxIndex {
	byMonth := make(map[string]domain.EpxIndex, len(existing)+len(incoming))
	for _, row := range existing {
		byMonth[row.Month] = row
	}
	for _, row := range incoming {
		byMonth[row.Month] = row
	}

	out := make([]domain.EpxIndex, 0, len(byMonth))
	for _, row := range byMonth {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}
