package services

import (
	"github.com/shopspring/decimal"
	"github.com/softstake/softstake_service/internal/domain/entities"
)

// ClassifyTier returns the profit tier whose half-open range contains the
// balance, or nil when no band matches. Bands are scanned in ascending
// order of lower bound so overlapping admin input still yields a single
// deterministic answer.
func ClassifyTier(bands []entities.TierBand, balance decimal.Decimal) *entities.TierBand {
	sorted := make([]entities.TierBand, len(bands))
	copy(sorted, bands)
	entities.SortTierBands(sorted)

	for i := range sorted {
		if sorted[i].Contains(balance) {
			return &sorted[i]
		}
	}
	return nil
}

// ClassifyLevel returns the highest community level whose unlock threshold
// is at or below the effective volume; zero when no level is reached.
// Influencers are measured against the reduced threshold column. The
// staircase is re-evaluated from scratch on every call, so a shrinking
// volume lowers the result.
func ClassifyLevel(bands []entities.LevelBand, volume decimal.Decimal, influencer bool) int {
	sorted := make([]entities.LevelBand, len(bands))
	copy(sorted, bands)
	entities.SortLevelBands(sorted)

	level := 0
	for i := range sorted {
		if volume.GreaterThanOrEqual(sorted[i].ThresholdFor(influencer)) {
			level = sorted[i].Level
		}
	}
	return level
}

// SurpassedLevels returns every level the volume has progressed past,
// ascending. The highest reached level is excluded: a level's pool only
// unlocks once the user has moved beyond it.
func SurpassedLevels(bands []entities.LevelBand, volume decimal.Decimal, influencer bool) []int {
	sorted := make([]entities.LevelBand, len(bands))
	copy(sorted, bands)
	entities.SortLevelBands(sorted)

	var levels []int
	for i := range sorted {
		if volume.GreaterThanOrEqual(sorted[i].ThresholdFor(influencer)) {
			levels = append(levels, sorted[i].Level)
		}
	}
	if len(levels) == 0 {
		return nil
	}
	return levels[:len(levels)-1]
}
