package service

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/festmap/internal/model"
)

// InfoLineKind 详情页信息块中一行文本的类别
type InfoLineKind int

const (
	InfoUnclassified InfoLineKind = iota
	InfoOriginalTitle
	InfoCountryYearDuration
	InfoSubtitles
)

func (k InfoLineKind) String() string {
	switch k {
	case InfoOriginalTitle:
		return "original_title"
	case InfoCountryYearDuration:
		return "country_year_duration"
	case InfoSubtitles:
		return "subtitles"
	default:
		return "unclassified"
	}
}

var (
	yearTokenRe      = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	sectionHrefRe    = regexp.MustCompile(`program/index.*idCyklu=`)
	subtitleMarker   = "napisy"
	screeningDivider = ", "
)

// ClassifyInfoLine 按内容特征给信息块中的一行归类
//
//   - 含四位年份且含斜杠：国家/年份/片长，例如 "Polska 2024 / 95'"
//   - 含字幕标记 napisy：字幕行
//   - 不含斜杠的其他非空行：原片名候选，片名本身可以带年份，例如 "Blade Runner 2049"
//   - 其他（有斜杠但没有年份）：无法归类
func ClassifyInfoLine(text string) InfoLineKind {
	text = strings.TrimSpace(text)
	if text == "" {
		return InfoUnclassified
	}
	hasYear := yearTokenRe.MatchString(text)
	hasSlash := strings.Contains(text, "/")
	hasSubtitles := strings.Contains(strings.ToLower(text), subtitleMarker)

	switch {
	case hasYear && hasSlash:
		return InfoCountryYearDuration
	case hasSubtitles:
		return InfoSubtitles
	case !hasSlash:
		return InfoOriginalTitle
	default:
		return InfoUnclassified
	}
}

// ParseMovieDetail 解析电影详情页
//
// 永不失败：缺失的字段退化为 model.Unknown 或 nil，单场放映解析出错只跳过该场。
// 返回记录的 URL 始终是传入的 url 原值。
func ParseMovieDetail(html, url string) model.MovieRecord {
	movie := model.MovieRecord{
		Title:               model.Unknown,
		Director:            model.Unknown,
		Section:             model.Unknown,
		Description:         model.Unknown,
		CountryYearDuration: model.Unknown,
		Screenings:          []model.Screening{},
		URL:                 url,
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return movie
	}

	// 标题
	if t := firstText(doc.Find("h1")); t != "" {
		movie.Title = t
	}

	// 导演
	if d := firstText(doc.Find("div.f6.rez")); d != "" {
		movie.Director = d
	}

	// 原片名 / 国家年份片长 / 字幕：共用 div.small 下的 div.nag 文本行，每类取第一个
	assigned := make(map[InfoLineKind]bool, 3)
	doc.Find("div.small div.nag").Each(func(_ int, s *goquery.Selection) {
		text := normSpace(s.Text())
		kind := ClassifyInfoLine(text)
		if kind == InfoUnclassified || assigned[kind] {
			return
		}
		assigned[kind] = true
		switch kind {
		case InfoOriginalTitle:
			movie.OriginalTitle = &text
		case InfoCountryYearDuration:
			movie.CountryYearDuration = text
		case InfoSubtitles:
			movie.Subtitles = &text
		}
	})

	movie.Section = parseSection(doc)

	// 简介：正文容器中的第一段
	if p := firstText(doc.Find("div.tresc.marginesy.glownyop").First().Find("p")); p != "" {
		movie.Description = p
	}

	doc.Find("div.senpozycja.sonsite.klikalny").Each(func(_ int, s *goquery.Selection) {
		if sc, ok := parseScreening(s); ok {
			movie.Screenings = append(movie.Screenings, sc)
		}
	})

	return movie
}

// parseSection 先找 div.cykle 中的单元链接，找不到或文字为空时退回到第一个带文字的“按单元筛选”链接
func parseSection(doc *goquery.Document) string {
	if name := firstText(doc.Find("div.cykle a.nazwacyklu")); name != "" {
		return name
	}

	section := model.Unknown
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !sectionHrefRe.MatchString(href) {
			return true
		}
		if t := normSpace(a.Text()); t != "" {
			section = t
			return false
		}
		return true
	})
	return section
}

// parseScreening 解析一场放映；文本不是“日期, 时间”格式时返回 false
func parseScreening(s *goquery.Selection) (sc model.Screening, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			sc, ok = model.Screening{}, false
		}
	}()

	st := s.Find("span.st").First()
	if st.Length() == 0 {
		return model.Screening{}, false
	}
	full := strings.TrimSpace(st.Text())

	parts := strings.Split(full, screeningDivider)
	if len(parts) != 2 {
		return model.Screening{}, false
	}

	venue := firstText(s.Find("a.sa.f6.tooltip"))
	if venue == "" {
		venue = model.Unknown
	}

	return model.Screening{
		Date:         strings.TrimSpace(parts[0]),
		Time:         strings.TrimSpace(parts[1]),
		Venue:        venue,
		FullDatetime: full,
	}, true
}

func firstText(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	return normSpace(s.First().Text())
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
