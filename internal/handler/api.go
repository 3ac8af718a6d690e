package handler

import (
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/user/festmap/internal/model"
	"github.com/user/festmap/internal/service"
	"github.com/user/festmap/internal/utils"
)

const (
	defaultSimilarLimit = 10
	maxSimilarLimit     = 50
)

// SectionSummary 单元及其电影数量
type SectionSummary struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Color string `json:"color"`
}

// listMovies 配置了向量库时从数据库读取，否则读取 JSON 数据集
func (h *Handler) listMovies(sections []string) ([]model.EnrichedMovieRecord, error) {
	if h.Repos.Movie != nil {
		rows, err := h.Repos.Movie.List(sections)
		if err != nil {
			return nil, err
		}
		movies := make([]model.EnrichedMovieRecord, len(rows))
		for i, r := range rows {
			movies[i] = r.Record()
		}
		return movies, nil
	}

	snap, err := h.dataset()
	if err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return snap.Movies, nil
	}
	wanted := make(map[string]struct{}, len(sections))
	for _, s := range sections {
		wanted[s] = struct{}{}
	}
	movies := make([]model.EnrichedMovieRecord, 0, len(snap.Movies))
	for _, m := range snap.Movies {
		if _, ok := wanted[m.Section]; ok {
			movies = append(movies, m)
		}
	}
	return movies, nil
}

// matchesQuery 标题、原片名、导演中任一包含 q（不区分大小写）
func matchesQuery(m model.EnrichedMovieRecord, q string) bool {
	if q == "" {
		return true
	}
	fields := []string{m.Title, m.Director}
	if m.OriginalTitle != nil {
		fields = append(fields, *m.OriginalTitle)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// Movies 电影列表 API，支持 ?section=a&section=b&q=关键词
func (h *Handler) Movies(c *gin.Context) {
	sections := c.QueryArray("section")
	q := strings.ToLower(strings.TrimSpace(c.Query("q")))

	movies, err := h.listMovies(sections)
	if err != nil {
		log.Printf("[服务] 获取电影列表失败: %v", err)
		utils.InternalServerError(c, "读取数据集失败")
		return
	}

	result := make([]model.EnrichedMovieRecord, 0, len(movies))
	for _, m := range movies {
		if matchesQuery(m, q) {
			result = append(result, m)
		}
	}
	utils.Success(c, result)
}

// Sections 单元列表 API：按电影数量倒序，数量相同按名称
func (h *Handler) Sections(c *gin.Context) {
	movies, err := h.listMovies(nil)
	if err != nil {
		log.Printf("[服务] 获取单元列表失败: %v", err)
		utils.InternalServerError(c, "读取数据集失败")
		return
	}

	counts := make(map[string]int)
	for _, m := range movies {
		counts[m.Section]++
	}
	result := make([]SectionSummary, 0, len(counts))
	for name, n := range counts {
		result = append(result, SectionSummary{Name: name, Count: n, Color: SectionColor(name)})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Name < result[j].Name
	})
	utils.Success(c, result)
}

// Similar 相似电影 API：?url=program/25/x&limit=10
func (h *Handler) Similar(c *gin.Context) {
	url := strings.TrimSpace(c.Query("url"))
	if url == "" {
		utils.BadRequest(c, "缺少 url 参数")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultSimilarLimit)))
	if err != nil || limit <= 0 {
		limit = defaultSimilarLimit
	}
	limit = min(limit, maxSimilarLimit)

	if h.Repos.Movie != nil {
		h.similarFromStore(c, url, limit)
		return
	}
	h.similarFromDataset(c, url, limit)
}

func (h *Handler) similarFromStore(c *gin.Context, url string, limit int) {
	source, err := h.Repos.Movie.FindByURL(url)
	if err != nil {
		log.Printf("[服务] 查询电影失败: %v", err)
		utils.InternalServerError(c, "")
		return
	}
	if source == nil {
		utils.NotFound(c, "电影不存在")
		return
	}

	rows, err := h.Repos.Movie.FindSimilar(url, limit)
	if err != nil {
		log.Printf("[服务] 查询相似电影失败: %v", err)
		utils.InternalServerError(c, "")
		return
	}

	src := source.Record()
	result := make([]service.SimilarMovie, 0, len(rows))
	for _, r := range rows {
		movie := r.Record()
		reason, reasonType := service.RecommendationReason(src.MovieRecord, movie.MovieRecord)
		result = append(result, service.SimilarMovie{
			Movie:      movie,
			Similarity: 1 - r.Distance,
			Reason:     reason,
			ReasonType: reasonType,
		})
	}
	utils.Success(c, result)
}

func (h *Handler) similarFromDataset(c *gin.Context, url string, limit int) {
	snap, err := h.dataset()
	if err != nil {
		log.Printf("[服务] 读取数据集失败: %v", err)
		utils.InternalServerError(c, "读取数据集失败")
		return
	}
	idx, ok := snap.find(url)
	if !ok {
		utils.NotFound(c, "电影不存在")
		return
	}
	if len(snap.Vectors) == 0 {
		utils.Error(c, http.StatusServiceUnavailable, "向量数据不可用")
		return
	}

	src := snap.Movies[idx]
	neighbors := service.RankSimilar(snap.Vectors[idx], snap.Vectors, limit)
	result := make([]service.SimilarMovie, 0, len(neighbors))
	for _, n := range neighbors {
		i, _ := snap.find(n.URL)
		movie := snap.Movies[i]
		reason, reasonType := service.RecommendationReason(src.MovieRecord, movie.MovieRecord)
		result = append(result, service.SimilarMovie{
			Movie:      movie,
			Similarity: n.Similarity,
			Reason:     reason,
			ReasonType: reasonType,
		})
	}
	utils.Success(c, result)
}
