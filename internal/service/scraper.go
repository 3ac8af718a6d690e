package service

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/user/festmap/internal/model"
	"github.com/user/festmap/internal/utils"
)

// Scraper 逐个抓取详情页并解析为电影记录
type Scraper struct {
	baseURL *url.URL
	delay   time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewScraper 创建抓取器；delay 为每次成功抓取后的停顿
func NewScraper(baseURL string, delay time.Duration) (*Scraper, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("无效的站点地址 %q: %w", baseURL, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("站点地址必须是绝对地址: %q", baseURL)
	}
	return &Scraper{baseURL: u, delay: delay, sleep: sleepCtx}, nil
}

// ScrapeMovies 按输入顺序抓取并解析每个详情页
//
// 单个地址抓取失败或记录校验失败只记日志并跳过；只有 ctx 被取消时才返回错误。
func (s *Scraper) ScrapeMovies(ctx context.Context, fetcher utils.Fetcher, urls []string) ([]model.MovieRecord, error) {
	movies := make([]model.MovieRecord, 0, len(urls))
	total := len(urls)

	for i, rel := range urls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Printf("[爬虫] 正在抓取 %d/%d: %s", i+1, total, rel)

		abs, err := s.resolve(rel)
		if err != nil {
			log.Printf("[爬虫] 地址无法解析，跳过 %s: %v", rel, err)
			continue
		}

		html, err := fetcher.Fetch(ctx, abs)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("[爬虫] 抓取失败，跳过 %s: %v", abs, err)
			continue
		}

		movie := ParseMovieDetail(html, rel)
		if err := model.ValidateRecord(movie); err != nil {
			log.Printf("[爬虫] %v", err)
		} else {
			movies = append(movies, movie)
		}

		if err := s.sleep(ctx, s.delay); err != nil {
			return nil, err
		}
	}

	log.Printf("[爬虫] 完成，成功解析 %d/%d 部电影", len(movies), total)
	return movies, nil
}

func (s *Scraper) resolve(rel string) (string, error) {
	ref, err := url.Parse(rel)
	if err != nil {
		return "", err
	}
	return s.baseURL.ResolveReference(ref).String(), nil
}

// sleepCtx 可被 ctx 打断的 time.Sleep
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
