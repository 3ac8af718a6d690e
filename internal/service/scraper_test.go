package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScraper(t *testing.T) (*Scraper, *[]time.Duration) {
	t.Helper()
	s, err := NewScraper("https://festival.test/", 500*time.Millisecond)
	require.NoError(t, err)

	var sleeps []time.Duration
	s.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return ctx.Err()
	}
	return s, &sleeps
}

func TestScrapeMoviesPreservesOrderAndSkipsFailures(t *testing.T) {
	s, sleeps := newTestScraper(t)
	fetcher := newFakeFetcher(map[string]string{
		"https://festival.test/program/25/b":   detailHTML("B", "Opis B."),
		"https://festival.test/program/25/a":   detailHTML("A", "Opis A."),
		"https://festival.test/not/a-film/url": detailHTML("Bad", "Nie film."),
	})

	urls := []string{"program/25/b", "program/25/missing", "not/a-film/url", "program/25/a"}
	movies, err := s.ScrapeMovies(context.Background(), fetcher, urls)
	require.NoError(t, err)

	require.Len(t, movies, 2)
	assert.Equal(t, "B", movies[0].Title)
	assert.Equal(t, "program/25/b", movies[0].URL)
	assert.Equal(t, "A", movies[1].Title)
	assert.Equal(t, "program/25/a", movies[1].URL)

	assert.Equal(t, []string{
		"https://festival.test/program/25/b",
		"https://festival.test/program/25/missing",
		"https://festival.test/not/a-film/url",
		"https://festival.test/program/25/a",
	}, fetcher.fetched)

	// 只在抓取成功后停顿
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 500 * time.Millisecond, 500 * time.Millisecond}, *sleeps)
}

func TestScrapeMoviesResolvesAgainstBase(t *testing.T) {
	s, err := NewScraper("https://festival.test/edition/", 0)
	require.NoError(t, err)

	fetcher := newFakeFetcher(map[string]string{
		"https://festival.test/edition/program/25/x": detailHTML("X", "Opis."),
	})
	movies, err := s.ScrapeMovies(context.Background(), fetcher, []string{"program/25/x"})
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, "program/25/x", movies[0].URL)
}

func TestScrapeMoviesEmptyInput(t *testing.T) {
	s, _ := newTestScraper(t)
	movies, err := s.ScrapeMovies(context.Background(), newFakeFetcher(nil), nil)
	require.NoError(t, err)
	assert.NotNil(t, movies)
	assert.Empty(t, movies)
}

func TestScrapeMoviesCancelled(t *testing.T) {
	s, _ := newTestScraper(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ScrapeMovies(ctx, newFakeFetcher(nil), []string{"program/25/a"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewScraperRejectsRelativeBase(t *testing.T) {
	_, err := NewScraper("festival.test/", time.Second)
	require.Error(t, err)

	_, err = NewScraper("://bad", time.Second)
	require.Error(t, err)
}

func TestSleepCtx(t *testing.T) {
	require.NoError(t, sleepCtx(context.Background(), 0))
	require.NoError(t, sleepCtx(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
}
