package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/user/festmap/internal/config"
	"github.com/user/festmap/internal/model"
	"github.com/user/festmap/internal/repository"
	"github.com/user/festmap/internal/umap"
	"github.com/user/festmap/internal/utils"
)

// ErrNoRecords 数据集中没有可向量化的电影
var ErrNoRecords = errors.New("没有可处理的电影记录")

// FetcherFactory 为一个抓取阶段创建页面抓取器
type FetcherFactory func(ctx context.Context) (utils.Fetcher, error)

// EmbedderFactory 为一个向量阶段创建向量服务
type EmbedderFactory func() (Embedder, error)

// Pipeline 抓取 → 向量化 → 降维 → 合并
// 两个阶段之间只通过磁盘上的数据集传递状态
type Pipeline struct {
	cfg         *config.Config
	dataset     *repository.Dataset
	movies      *repository.MovieRepository
	newFetcher  FetcherFactory
	newEmbedder EmbedderFactory
	reducer     Reducer
}

// PipelineOption 可选配置
type PipelineOption func(*Pipeline)

// WithFetcherFactory 替换默认的浏览器
func WithFetcherFactory(f FetcherFactory) PipelineOption {
	return func(p *Pipeline) { p.newFetcher = f }
}

// WithEmbedderFactory 替换默认的向量服务
func WithEmbedderFactory(f EmbedderFactory) PipelineOption {
	return func(p *Pipeline) { p.newEmbedder = f }
}

// WithReducer 替换默认的 UMAP
func WithReducer(r Reducer) PipelineOption {
	return func(p *Pipeline) { p.reducer = r }
}

// NewPipeline 创建流水线；repos.Movie 为 nil 时不写向量库
func NewPipeline(cfg *config.Config, repos *repository.Repositories, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		cfg:         cfg,
		dataset:     repos.Dataset,
		movies:      repos.Movie,
		newFetcher:  DefaultFetcherFactory(cfg),
		newEmbedder: DefaultEmbedderFactory(cfg),
		reducer:     umap.NewReducer(UMAPConfig(cfg)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DefaultFetcherFactory BROWSER=http 时用静态抓取，否则启动无头 Chrome
func DefaultFetcherFactory(cfg *config.Config) FetcherFactory {
	return func(ctx context.Context) (utils.Fetcher, error) {
		if cfg.Browser == "http" {
			return utils.NewHTTPClient(cfg.FetchTimeout), nil
		}
		return utils.NewBrowser(ctx, cfg.Headless, cfg.PageWait, cfg.FetchTimeout)
	}
}

// DefaultEmbedderFactory 按 EMBEDDING_PROVIDER 选择 Gemini 或 Ollama
func DefaultEmbedderFactory(cfg *config.Config) EmbedderFactory {
	return func() (Embedder, error) {
		switch cfg.EmbeddingProvider {
		case "gemini":
			if cfg.GeminiAPIKey == "" {
				return nil, errors.New("未配置 GEMINI_API_KEY")
			}
			return utils.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel), nil
		case "ollama":
			return utils.NewOllamaClient(cfg.OllamaHost, cfg.OllamaModel), nil
		default:
			return nil, fmt.Errorf("未知的向量服务: %s", cfg.EmbeddingProvider)
		}
	}
}

// UMAPConfig 把环境配置映射为降维参数
func UMAPConfig(cfg *config.Config) umap.Config {
	u := umap.DefaultConfig()
	u.NNeighbors = cfg.UMAPNeighbors
	u.MinDist = cfg.UMAPMinDist
	u.Spread = cfg.UMAPSpread
	u.RepulsionStrength = cfg.UMAPRepulsion
	u.NEpochs = cfg.UMAPEpochs
	u.Seed = cfg.UMAPSeed
	return u
}

// Scrape 抓取阶段：发现链接、逐个解析详情页，写出 raw_movie_details.json
func (p *Pipeline) Scrape(ctx context.Context) error {
	fetcher, err := p.newFetcher(ctx)
	if err != nil {
		return fmt.Errorf("创建抓取器失败: %w", err)
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			log.Printf("[爬虫] 关闭抓取器失败: %v", err)
		}
	}()

	links, err := NewLinkExtractor(p.cfg.YearToken).DiscoverLinks(ctx, fetcher, p.cfg.ListingURLs())
	if err != nil {
		return err
	}
	log.Printf("[爬虫] 共发现 %d 个不重复的电影链接", len(links))

	scraper, err := NewScraper(p.cfg.BaseURL, p.cfg.FetchDelay)
	if err != nil {
		return err
	}
	movies, err := scraper.ScrapeMovies(ctx, fetcher, links)
	if err != nil {
		return err
	}

	if err := p.dataset.SaveRawMovies(movies); err != nil {
		return err
	}
	log.Printf("[爬虫] 已保存 %d 部电影到 %s", len(movies), p.dataset.Path(repository.RawMoviesFile))
	return nil
}

// Embed 向量阶段：读取 raw_movie_details.json，向量化简介、降维并合并坐标
func (p *Pipeline) Embed(ctx context.Context) error {
	records, err := p.dataset.LoadRawMovies()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return ErrNoRecords
	}

	embedder, err := p.newEmbedder()
	if err != nil {
		return fmt.Errorf("创建向量服务失败: %w", err)
	}

	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Description
	}

	log.Printf("[向量] 开始向量化 %d 条简介，批次大小 %d", len(texts), p.cfg.BatchSize)
	vectors, err := BatchEmbed(ctx, embedder, texts, p.cfg.BatchSize, NewPacer(p.cfg.EmbedInterval))
	if err != nil {
		return err
	}
	if dims := p.cfg.VectorDims; dims > 0 {
		for i, v := range vectors {
			if len(v) != dims {
				return fmt.Errorf("第 %d 个向量维度为 %d，期望 %d", i, len(v), dims)
			}
		}
	}

	keyed, err := KeyVectors(records, vectors)
	if err != nil {
		return err
	}
	points, err := Project(ctx, p.reducer, keyed)
	if err != nil {
		return err
	}
	enriched, err := MergeCoordinates(records, points)
	if err != nil {
		return err
	}

	// 三个产物全部算好后才落盘，避免新向量与旧的 full_movie_details 混用
	if err := p.dataset.SaveEmbeddings(vectors); err != nil {
		return err
	}
	if err := p.dataset.SaveProjection(points); err != nil {
		return err
	}
	if err := p.dataset.SaveFullMovies(enriched); err != nil {
		return err
	}
	log.Printf("[投影] 已保存 %d 部电影到 %s", len(enriched), p.dataset.Path(repository.FullMoviesFile))

	if p.movies != nil {
		rows := make([]model.MovieRow, len(enriched))
		for i, e := range enriched {
			rows[i] = model.NewMovieRow(e, vectors[i])
		}
		if err := p.movies.UpsertAll(rows); err != nil {
			return fmt.Errorf("写入向量库失败: %w", err)
		}
		log.Printf("[向量] 已写入向量库 %d 行", len(rows))
	}
	return nil
}

// Run 依次执行抓取与向量两个阶段
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.Scrape(ctx); err != nil {
		return fmt.Errorf("抓取阶段失败: %w", err)
	}
	if err := p.Embed(ctx); err != nil {
		return fmt.Errorf("向量阶段失败: %w", err)
	}
	return nil
}
