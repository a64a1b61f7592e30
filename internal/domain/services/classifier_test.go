package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/softstake/softstake_service/internal/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testTierBands() []entities.TierBand {
	return []entities.TierBand{
		{Name: "silver", MinBalance: dec("500"), MaxBalance: dec("2000"), Rate: dec("0.012")},
		{Name: "bronze", MinBalance: dec("100"), MaxBalance: dec("500"), Rate: dec("0.01")},
		{Name: "gold", MinBalance: dec("2000"), MaxBalance: dec("10000"), Rate: dec("0.015")},
	}
}

func TestClassifyTier(t *testing.T) {
	bands := testTierBands()

	tests := []struct {
		name    string
		balance string
		want    string
	}{
		{"below all bands", "99.99", ""},
		{"lower bound inclusive", "100", "bronze"},
		{"inside band", "300", "bronze"},
		{"upper bound exclusive", "500", "silver"},
		{"top band", "2000", "gold"},
		{"above all bands", "10000", ""},
		{"zero balance", "0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			band := ClassifyTier(bands, dec(tt.balance))
			if tt.want == "" {
				assert.Nil(t, band)
				return
			}
			require.NotNil(t, band)
			assert.Equal(t, tt.want, band.Name)
		})
	}
}

func TestClassifyTierDoesNotMutateInput(t *testing.T) {
	bands := testTierBands()
	ClassifyTier(bands, dec("300"))
	assert.Equal(t, "silver", bands[0].Name)
}

func testLevelBands() []entities.LevelBand {
	return []entities.LevelBand{
		{Level: 1, UnlockThreshold: dec("1000"), InfluencerThreshold: dec("500"), RewardPool: dec("100"), DailyRate: dec("0.01")},
		{Level: 2, UnlockThreshold: dec("5000"), InfluencerThreshold: dec("2500"), RewardPool: dec("500"), DailyRate: dec("0.01")},
		{Level: 3, UnlockThreshold: dec("20000"), InfluencerThreshold: dec("10000"), RewardPool: dec("2000"), DailyRate: dec("0.01")},
	}
}

func TestClassifyLevel(t *testing.T) {
	bands := testLevelBands()

	tests := []struct {
		name       string
		volume     string
		influencer bool
		want       int
	}{
		{"below first threshold", "999.99", false, 0},
		{"exact first threshold", "1000", false, 1},
		{"between levels", "4999", false, 1},
		{"top level", "20000", false, 3},
		{"influencer reduced threshold", "500", true, 1},
		{"influencer mid level", "2500", true, 2},
		{"regular user at influencer threshold", "500", false, 0},
		{"zero volume", "0", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyLevel(bands, dec(tt.volume), tt.influencer))
		})
	}
}

func TestClassifyLevelDropsWithVolume(t *testing.T) {
	bands := testLevelBands()

	assert.Equal(t, 2, ClassifyLevel(bands, dec("5000"), false))
	assert.Equal(t, 1, ClassifyLevel(bands, dec("4000"), false))
	assert.Equal(t, 0, ClassifyLevel(bands, dec("900"), false))
}

func TestSurpassedLevels(t *testing.T) {
	bands := testLevelBands()

	// The highest level reached is never itself claimable.
	assert.Empty(t, SurpassedLevels(bands, dec("500"), false))
	assert.Empty(t, SurpassedLevels(bands, dec("1200"), false))
	assert.Equal(t, []int{1, 2}, SurpassedLevels(bands, dec("25000"), false))
	assert.Equal(t, []int{1}, SurpassedLevels(bands, dec("2500"), true))
}

func TestDailyAmount(t *testing.T) {
	band := entities.LevelBand{RewardPool: dec("500"), DailyRate: dec("0.01")}
	assert.True(t, dec("5").Equal(band.DailyAmount()))
}
