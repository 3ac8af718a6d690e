package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeBrowser 无头 Chrome 抓取器
// 整个阶段只启动一个浏览器、复用一个标签页；Close 之后不可再用
type ChromeBrowser struct {
	browserCtx   context.Context
	cancelAlloc  context.CancelFunc
	cancelBrowse context.CancelFunc
	pageWait     time.Duration
	timeout      time.Duration
}

// NewBrowser 启动浏览器
// pageWait 是页面加载后额外等待的时间，给前端脚本渲染节目单留出余量
func NewBrowser(ctx context.Context, headless bool, pageWait, timeout time.Duration) (*ChromeBrowser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowse := chromedp.NewContext(allocCtx)

	// 首次 Run 才会真正拉起浏览器进程，启动失败在这里就暴露
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowse()
		cancelAlloc()
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}

	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChromeBrowser{
		browserCtx:   browserCtx,
		cancelAlloc:  cancelAlloc,
		cancelBrowse: cancelBrowse,
		pageWait:     pageWait,
		timeout:      timeout,
	}, nil
}

// Fetch 打开页面并返回渲染后的完整 HTML
func (b *ChromeBrowser) Fetch(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tabCtx, cancel := context.WithTimeout(b.browserCtx, b.timeout)
	defer cancel()

	// 调用方取消时同步取消当前页面
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(b.pageWait),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("打开页面失败 %s: %w", url, err)
	}
	return html, nil
}

// Close 关闭浏览器
func (b *ChromeBrowser) Close() error {
	b.cancelBrowse()
	b.cancelAlloc()
	return nil
}
