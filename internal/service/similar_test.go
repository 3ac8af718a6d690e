package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/user/festmap/internal/model"
)

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0, CosineSimilarity([]float32{1, 0}, []float32{0, 5}), 1e-9)
	assert.InDelta(t, -1, CosineSimilarity([]float32{1, 0}, []float32{-3, 0}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 0}))
}

func TestRankSimilar(t *testing.T) {
	source := model.KeyedVector{URL: "program/25/a", Values: []float32{1, 0}}
	candidates := []model.KeyedVector{
		source,
		{URL: "program/25/far", Values: []float32{-1, 0}},
		{URL: "program/25/near", Values: []float32{1, 0.1}},
		{URL: "program/25/tie-b", Values: []float32{0, 1}},
		{URL: "program/25/tie-a", Values: []float32{0, 2}},
	}

	got := RankSimilar(source, candidates, 10)
	urls := make([]string, len(got))
	for i, n := range got {
		urls[i] = n.URL
	}
	assert.Equal(t, []string{"program/25/near", "program/25/tie-a", "program/25/tie-b", "program/25/far"}, urls)

	assert.Len(t, RankSimilar(source, candidates, 2), 2)
	assert.Empty(t, RankSimilar(source, candidates, 0))
}

func TestRecommendationReason(t *testing.T) {
	base := model.MovieRecord{
		Director:            "Jan Kowalski",
		Section:             "Odkrycia",
		CountryYearDuration: "Polska, Czechy 2024 / 95'",
		Screenings:          []model.Screening{{Venue: "knh 1"}, {Venue: model.Unknown}},
	}

	other := base
	_, kind := RecommendationReason(base, other)
	assert.Equal(t, "director", kind)

	other.Director = "Anna Nowak"
	_, kind = RecommendationReason(base, other)
	assert.Equal(t, "section", kind)

	other.Section = "Fale"
	other.CountryYearDuration = "Polska, Czechy 2023 / 120'"
	reason, kind := RecommendationReason(base, other)
	assert.Equal(t, "country", kind)
	assert.Contains(t, reason, "Polska, Czechy")

	other.CountryYearDuration = "Francja 2023 / 120'"
	reason, kind = RecommendationReason(base, other)
	assert.Equal(t, "venue", kind)
	assert.Contains(t, reason, "knh 1")

	other.Screenings = []model.Screening{{Venue: model.Unknown}}
	_, kind = RecommendationReason(base, other)
	assert.Equal(t, "description", kind)

	unknown := model.MovieRecord{Director: model.Unknown, Section: model.Unknown, CountryYearDuration: model.Unknown}
	_, kind = RecommendationReason(unknown, unknown)
	assert.Equal(t, "description", kind)
}

func TestCountryOf(t *testing.T) {
	assert.Equal(t, "Polska", countryOf("Polska 2024 / 95'"))
	assert.Equal(t, "USA, Kanada", countryOf("USA, Kanada 1999 / 120'"))
	assert.Equal(t, "", countryOf(model.Unknown))
	assert.Equal(t, "", countryOf("2024 / 95'"))
}
