package service

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/user/festmap/internal/model"
)

// SimilarMovie 带推荐理由的相似电影
type SimilarMovie struct {
	Movie      model.EnrichedMovieRecord `json:"movie"`
	Similarity float64                   `json:"similarity"`
	Reason     string                    `json:"reason"`
	ReasonType string                    `json:"reason_type"`
}

// Neighbor 近邻及其余弦相似度
type Neighbor struct {
	URL        string
	Similarity float64
}

// CosineSimilarity 两个向量的余弦相似度；任一为零向量或维度不一致时为 0
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / math.Sqrt(na*nb)
}

// RankSimilar 在候选集中找出与 source 最相近的 limit 个（不含 source 自身）
// 相似度相同按 URL 排序，保证结果稳定
func RankSimilar(source model.KeyedVector, candidates []model.KeyedVector, limit int) []Neighbor {
	if limit <= 0 {
		return []Neighbor{}
	}
	scored := make([]Neighbor, 0, len(candidates))
	for _, c := range candidates {
		if c.URL == source.URL {
			continue
		}
		scored = append(scored, Neighbor{URL: c.URL, Similarity: CosineSimilarity(source.Values, c.Values)})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].URL < scored[j].URL
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// commonVenues 两部电影共同的放映影厅
func commonVenues(a, b model.MovieRecord) []string {
	bv := make(map[string]struct{})
	for _, v := range b.Venues() {
		bv[v] = struct{}{}
	}
	common := []string{}
	for _, v := range a.Venues() {
		if v == model.Unknown {
			continue
		}
		if _, ok := bv[v]; ok {
			common = append(common, v)
		}
	}
	return common
}

// countryOf 取“国家 年份 / 片长”中年份之前的国家部分
func countryOf(cyd string) string {
	if cyd == "" || cyd == model.Unknown {
		return ""
	}
	head := strings.TrimSpace(strings.SplitN(cyd, "/", 2)[0])
	if loc := yearTokenRe.FindStringIndex(head); loc != nil {
		head = strings.TrimSpace(head[:loc[0]])
	}
	return strings.TrimRight(head, ", ")
}

func known(s string) bool { return s != "" && s != model.Unknown }

// RecommendationReason 生成推荐理由（按优先级：同导演 > 同单元 > 同国家 > 同影厅 > 简介相近）
func RecommendationReason(source, target model.MovieRecord) (string, string) {
	if known(source.Director) && source.Director == target.Director {
		return fmt.Sprintf("同样出自导演 %s 之手", source.Director), "director"
	}

	if known(source.Section) && source.Section == target.Section {
		return fmt.Sprintf("同属「%s」单元", source.Section), "section"
	}

	if c := countryOf(source.CountryYearDuration); c != "" && c == countryOf(target.CountryYearDuration) {
		return fmt.Sprintf("同样来自 %s", c), "country"
	}

	if venues := commonVenues(source, target); len(venues) > 0 {
		return fmt.Sprintf("同在 %s 放映", strings.Join(venues, "、")), "venue"
	}

	return "简介语义相近", "description"
}
