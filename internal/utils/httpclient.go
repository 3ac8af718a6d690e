package utils

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Fetcher 页面抓取接口：给定绝对地址返回渲染后的 HTML
// 实现方负责持有浏览器/连接等会话资源，调用方用完必须 Close
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
	Close() error
}

// HTTPStatusError 站点返回了非 2xx 状态码
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("请求失败，状态码: %d (%s)", e.StatusCode, e.URL)
}

// HTTPClient 基于 resty 的静态页面抓取器
// 不执行 JS，适合服务端直出的节目单页面
type HTTPClient struct {
	client     *resty.Client
	cache      *LRUCache[string]
	userAgents []string
	rnd        *rand.Rand
}

// NewHTTPClient 创建新的HTTP客户端
func NewHTTPClient(timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// 只对网络错误与 5xx 重试
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	return &HTTPClient{
		client: client,
		cache:  NewLRUCache[string](512, time.Hour),
		userAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/121.0",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:109.0) Gecko/20100101 Firefox/121.0",
		},
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Fetch 发送GET请求并返回页面 HTML，同一次运行内相同地址只请求一次
func (c *HTTPClient) Fetch(ctx context.Context, url string) (string, error) {
	if html, ok := c.cache.Get(url); ok {
		return html, nil
	}

	req := c.client.R().SetContext(ctx)
	c.setBrowserHeaders(req)

	resp, err := req.Get(url)
	if err != nil {
		return "", fmt.Errorf("请求失败: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return "", &HTTPStatusError{URL: url, StatusCode: resp.StatusCode()}
	}

	html := resp.String()
	c.cache.Set(url, html)
	return html, nil
}

// Close 释放缓存；resty 客户端本身无需关闭
func (c *HTTPClient) Close() error {
	c.cache.Clear()
	return nil
}

// setBrowserHeaders 设置浏览器请求头
func (c *HTTPClient) setBrowserHeaders(req *resty.Request) {
	userAgent := c.userAgents[c.rnd.Intn(len(c.userAgents))]
	req.SetHeader("User-Agent", userAgent)
	req.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.SetHeader("Accept-Language", "pl-PL,pl;q=0.9,en;q=0.8")
	req.SetHeader("DNT", "1")
	req.SetHeader("Upgrade-Insecure-Requests", "1")
	req.SetHeader("Sec-Fetch-Dest", "document")
	req.SetHeader("Sec-Fetch-Mode", "navigate")
	req.SetHeader("Sec-Fetch-Site", "none")
	req.SetHeader("Cache-Control", "max-age=0")
}
