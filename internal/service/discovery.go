package service

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/festmap/internal/model"
	"github.com/user/festmap/internal/utils"
)

// LinkExtractor 从节目单列表页提取电影详情页路径
type LinkExtractor struct {
	pattern *regexp.Regexp
}

// NewLinkExtractor 只接受 program/<yearToken>/<slug> 形状的链接
func NewLinkExtractor(yearToken string) *LinkExtractor {
	return &LinkExtractor{pattern: model.DetailPathPatternFor(yearToken)}
}

// ExtractListingLinks 解析一页节目单
//
// 只看 div.wiersz 行容器：页面其余位置的链接是站点导航，不是电影。
// 每行先取标题链接 a.undlink，再取 td.subtytul 中“同场放映”的子链接。
// 同一页内保持首次出现顺序并去掉完全相同的 href。
func (e *LinkExtractor) ExtractListingLinks(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("解析 HTML 失败: %w", err)
	}

	var links []string
	seen := make(map[string]struct{})
	add := func(s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || !e.pattern.MatchString(href) {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}
		links = append(links, href)
	}

	doc.Find("div.wiersz").Each(func(_ int, row *goquery.Selection) {
		row.Find("a.undlink").Each(func(_ int, a *goquery.Selection) { add(a) })
		row.Find("td.subtytul a").Each(func(_ int, a *goquery.Selection) { add(a) })
	})

	return links, nil
}

// DiscoverLinks 依次抓取所有列表页并汇总电影链接
//
// 单页抓取或解析失败只记日志、不重试，也不影响其余页面。
// 跨页去重基于集合，返回顺序不保证与发现顺序一致。
func (e *LinkExtractor) DiscoverLinks(ctx context.Context, fetcher utils.Fetcher, pages []string) ([]string, error) {
	all := make(map[string]struct{})

	for _, pageURL := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		log.Printf("[爬虫] 抓取列表页: %s", pageURL)
		html, err := fetcher.Fetch(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("[爬虫] 列表页抓取失败，跳过 %s: %v", pageURL, err)
			continue
		}

		links, err := e.ExtractListingLinks(html)
		if err != nil {
			log.Printf("[爬虫] 列表页解析失败，跳过 %s: %v", pageURL, err)
			continue
		}
		log.Printf("[爬虫] 本页发现 %d 部电影", len(links))

		for _, l := range links {
			all[l] = struct{}{}
		}
	}

	unique := make([]string, 0, len(all))
	for l := range all {
		unique = append(unique, l)
	}
	return unique, nil
}
