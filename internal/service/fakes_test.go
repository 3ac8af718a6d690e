package service

import (
	"context"
	"errors"
	"strings"

	"github.com/user/festmap/internal/utils"
)

// fakeFetcher 按地址返回预置页面，未预置的地址返回 404
type fakeFetcher struct {
	pages   map[string]string
	fetched []string
	closed  bool
}

func newFakeFetcher(pages map[string]string) *fakeFetcher {
	return &fakeFetcher{pages: pages}
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.fetched = append(f.fetched, url)
	html, ok := f.pages[url]
	if !ok {
		return "", &utils.HTTPStatusError{URL: url, StatusCode: 404}
	}
	return html, nil
}

func (f *fakeFetcher) Close() error {
	f.closed = true
	return nil
}

// fakeEmbedder 把文本编码为 [长度, 首字节]，并记录每次调用的批次
type fakeEmbedder struct {
	calls  [][]string
	failAt int // 第几次调用返回错误（从 1 开始，0 表示不失败）
	short  bool
}

var errEmbedFailed = errors.New("embedding service unavailable")

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls = append(e.calls, append([]string(nil), texts...))
	if e.failAt > 0 && len(e.calls) == e.failAt {
		return nil, errEmbedFailed
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, encodeText(t))
	}
	if e.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func encodeText(t string) []float32 {
	first := float32(0)
	if t != "" {
		first = float32(t[0])
	}
	return []float32{float32(len(t)), first}
}

// indexReducer 第 i 行映射到 (i, -i)
type indexReducer struct {
	err  error
	drop bool
	seen [][]float64
}

func (r *indexReducer) FitTransform(data [][]float64) ([][]float64, error) {
	r.seen = data
	if r.err != nil {
		return nil, r.err
	}
	n := len(data)
	if r.drop && n > 0 {
		n--
	}
	out := make([][]float64, n)
	for i := range out {
		out[i] = []float64{float64(i), -float64(i)}
	}
	return out, nil
}

const listingHTML = `<html><body>
<nav><a class="undlink" href="program/25/nav-film">Nawigacja</a></nav>
<div class="wiersz">
  <a class="undlink" href="program/25/some-film">Some Film</a>
  <table><tr><td class="subtytul"><a href="program/25/other-film">Other Film</a></td></tr></table>
</div>
</body></html>`

func detailHTML(title, description string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	if title != "" {
		b.WriteString("<h1>" + title + "</h1>")
	}
	if description != "" {
		b.WriteString(`<div class="tresc marginesy glownyop"><p>` + description + "</p></div>")
	}
	b.WriteString("</body></html>")
	return b.String()
}
