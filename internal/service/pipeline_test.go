package service

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/festmap/internal/config"
	"github.com/user/festmap/internal/repository"
	"github.com/user/festmap/internal/utils"
)

func testConfig() *config.Config {
	return &config.Config{
		BaseURL:           "https://festival.test/",
		ProgramPath:       "program/index",
		ListingPages:      2,
		YearToken:         "25",
		Browser:           "http",
		DataDir:           "data",
		EmbeddingProvider: "ollama",
		OllamaHost:        "http://localhost:11434",
		OllamaModel:       "nomic-embed-text",
		BatchSize:         2,
		UMAPNeighbors:     20,
		UMAPMinDist:       0.1,
		UMAPSpread:        2,
		UMAPRepulsion:     2,
		UMAPSeed:          42,
	}
}

func festivalSite() map[string]string {
	return map[string]string{
		"https://festival.test/program/index": listingHTML,
		"https://festival.test/program/index?page=1": `<div class="wiersz">
  <a class="undlink" href="program/25/third-film">Third</a>
</div>`,
		"https://festival.test/program/25/some-film":  detailHTML("Some Film", "Opowieść o czymś."),
		"https://festival.test/program/25/other-film": detailHTML("Other Film", "Inna historia."),
		"https://festival.test/program/25/third-film": detailHTML("Third Film", "Trzecia."),
	}
}

func newTestPipeline(t *testing.T, fetcher *fakeFetcher, embedder *fakeEmbedder, reducer Reducer) (*Pipeline, *repository.Dataset) {
	t.Helper()
	cfg := testConfig()
	cfg.DataDir = t.TempDir()
	repos := repository.NewRepositories(nil, cfg.DataDir)

	p := NewPipeline(cfg, repos,
		WithFetcherFactory(func(context.Context) (utils.Fetcher, error) { return fetcher, nil }),
		WithEmbedderFactory(func() (Embedder, error) { return embedder, nil }),
		WithReducer(reducer),
	)
	return p, repos.Dataset
}

func TestPipelineRun(t *testing.T) {
	fetcher := newFakeFetcher(festivalSite())
	embedder := &fakeEmbedder{}
	p, dataset := newTestPipeline(t, fetcher, embedder, &indexReducer{})

	require.NoError(t, p.Run(context.Background()))
	assert.True(t, fetcher.closed)

	raw, err := dataset.LoadRawMovies()
	require.NoError(t, err)
	require.Len(t, raw, 3)

	vectors, err := dataset.LoadEmbeddings()
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for i, r := range raw {
		assert.Equal(t, encodeText(r.Description), vectors[i], "第 %d 个向量应对应第 %d 条记录", i, i)
	}
	assert.Len(t, embedder.calls, 2)

	coords, err := dataset.LoadProjection()
	require.NoError(t, err)
	assert.Equal(t, [][2]float64{{0, 0}, {1, -1}, {2, -2}}, coords)

	full, err := dataset.LoadFullMovies()
	require.NoError(t, err)
	require.Len(t, full, 3)
	for i, f := range full {
		assert.Equal(t, raw[i].URL, f.URL)
		assert.Equal(t, raw[i].Title, f.Title)
		assert.Equal(t, float64(i), f.X)
		assert.Equal(t, -float64(i), f.Y)
	}
}

func TestPipelineScrapeClosesFetcherOnError(t *testing.T) {
	fetcher := newFakeFetcher(festivalSite())
	p, dataset := newTestPipeline(t, fetcher, &fakeEmbedder{}, &indexReducer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, p.Scrape(ctx), context.Canceled)
	assert.True(t, fetcher.closed)

	_, err := os.Stat(dataset.Path(repository.RawMoviesFile))
	assert.True(t, os.IsNotExist(err))
}

func TestPipelineScrapeFetcherFactoryError(t *testing.T) {
	p, _ := newTestPipeline(t, nil, &fakeEmbedder{}, &indexReducer{})
	boom := errors.New("chrome not found")
	p.newFetcher = func(context.Context) (utils.Fetcher, error) { return nil, boom }

	require.ErrorIs(t, p.Scrape(context.Background()), boom)
}

func TestPipelineEmbedNeedsRecords(t *testing.T) {
	embedder := &fakeEmbedder{}
	p, dataset := newTestPipeline(t, newFakeFetcher(nil), embedder, &indexReducer{})

	_, err := os.Stat(dataset.Path(repository.RawMoviesFile))
	require.True(t, os.IsNotExist(err))
	require.Error(t, p.Embed(context.Background()))

	require.NoError(t, dataset.SaveRawMovies(nil))
	require.ErrorIs(t, p.Embed(context.Background()), ErrNoRecords)
	assert.Empty(t, embedder.calls)
}

func TestPipelineEmbedFailureWritesNothing(t *testing.T) {
	embedder := &fakeEmbedder{failAt: 2}
	p, dataset := newTestPipeline(t, newFakeFetcher(festivalSite()), embedder, &indexReducer{})

	require.NoError(t, p.Scrape(context.Background()))
	require.ErrorIs(t, p.Embed(context.Background()), errEmbedFailed)

	for _, name := range []string{repository.EmbeddingsFile, repository.ProjectionFile, repository.FullMoviesFile} {
		_, err := os.Stat(dataset.Path(name))
		assert.True(t, os.IsNotExist(err), name)
	}
}

func TestPipelineProjectionFailureKeepsPreviousArtifacts(t *testing.T) {
	p, dataset := newTestPipeline(t, newFakeFetcher(festivalSite()), &fakeEmbedder{}, &indexReducer{})
	require.NoError(t, p.Run(context.Background()))

	before := map[string][]byte{}
	for _, name := range []string{repository.EmbeddingsFile, repository.ProjectionFile, repository.FullMoviesFile} {
		b, err := os.ReadFile(dataset.Path(name))
		require.NoError(t, err)
		before[name] = b
	}

	// 新一轮抓取得到不同的简介，向量随之变化
	raw, err := dataset.LoadRawMovies()
	require.NoError(t, err)
	for i := range raw {
		raw[i].Description += " (nowa wersja)"
	}
	require.NoError(t, dataset.SaveRawMovies(raw))

	boom := errors.New("umap diverged")
	p.reducer = &indexReducer{err: boom}
	require.ErrorIs(t, p.Embed(context.Background()), boom)

	for name, want := range before {
		got, err := os.ReadFile(dataset.Path(name))
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
}

func TestPipelineEmbedChecksVectorDims(t *testing.T) {
	p, _ := newTestPipeline(t, newFakeFetcher(festivalSite()), &fakeEmbedder{}, &indexReducer{})
	p.cfg.VectorDims = 768

	require.NoError(t, p.Scrape(context.Background()))
	require.Error(t, p.Embed(context.Background()))
}

func TestDefaultEmbedderFactory(t *testing.T) {
	cfg := testConfig()

	e, err := DefaultEmbedderFactory(cfg)()
	require.NoError(t, err)
	assert.IsType(t, &utils.OllamaClient{}, e)

	cfg.EmbeddingProvider = "gemini"
	_, err = DefaultEmbedderFactory(cfg)()
	require.Error(t, err, "缺少 API key 时应当报错")

	cfg.GeminiAPIKey = "key"
	cfg.GeminiModel = "gemini-embedding-exp-03-07"
	e, err = DefaultEmbedderFactory(cfg)()
	require.NoError(t, err)
	assert.IsType(t, &utils.GeminiClient{}, e)

	cfg.EmbeddingProvider = "openai"
	_, err = DefaultEmbedderFactory(cfg)()
	require.Error(t, err)
}

func TestUMAPConfigFromEnvConfig(t *testing.T) {
	cfg := testConfig()
	cfg.UMAPNeighbors = 15
	cfg.UMAPEpochs = 300
	cfg.UMAPSeed = 7

	u := UMAPConfig(cfg)
	assert.Equal(t, 2, u.NComponents)
	assert.Equal(t, 15, u.NNeighbors)
	assert.Equal(t, 300, u.NEpochs)
	assert.Equal(t, int64(7), u.Seed)
	assert.Equal(t, 2.0, u.Spread)
	assert.Equal(t, 2.0, u.RepulsionStrength)
}
