package handler

import (
	"errors"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/user/festmap/internal/config"
	"github.com/user/festmap/internal/model"
	"github.com/user/festmap/internal/repository"
	"github.com/user/festmap/internal/utils"
	"golang.org/x/sync/singleflight"
)

const datasetCacheKey = "dataset"

// Handler HTTP 处理器
type Handler struct {
	Repos  *repository.Repositories
	Config *config.Config

	cache *cache.Cache
	loads singleflight.Group
}

// NewHandler 创建处理器
func NewHandler(repos *repository.Repositories, cfg *config.Config) *Handler {
	ttl := cfg.ReloadEvery
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &Handler{
		Repos:  repos,
		Config: cfg,
		cache:  utils.NewCache(ttl, 10*time.Minute),
	}
}

// snapshot 一次加载得到的只读数据集
type snapshot struct {
	Movies   []model.EnrichedMovieRecord
	Vectors  []model.KeyedVector // 与 Movies 同序；向量文件缺失或不对齐时为空
	byURL    map[string]int
	LoadedAt time.Time
}

func (s *snapshot) find(url string) (int, bool) {
	i, ok := s.byURL[url]
	return i, ok
}

func loadSnapshot(dataset *repository.Dataset) (*snapshot, error) {
	movies, err := dataset.LoadFullMovies()
	if err != nil {
		return nil, err
	}

	snap := &snapshot{
		Movies:   movies,
		byURL:    make(map[string]int, len(movies)),
		LoadedAt: time.Now(),
	}
	for i, m := range movies {
		snap.byURL[m.URL] = i
	}

	vectors, err := dataset.LoadEmbeddings()
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		log.Printf("[服务] 读取向量失败，相似推荐不可用: %v", err)
	case len(vectors) != len(movies):
		log.Printf("[服务] 向量 %d 个与电影 %d 部不对齐，相似推荐不可用", len(vectors), len(movies))
	default:
		snap.Vectors = make([]model.KeyedVector, len(movies))
		for i, m := range movies {
			snap.Vectors[i] = model.KeyedVector{URL: m.URL, Values: vectors[i]}
		}
	}
	return snap, nil
}

// dataset 返回缓存的数据集；并发的首次加载只读一次磁盘
func (h *Handler) dataset() (*snapshot, error) {
	if v, ok := h.cache.Get(datasetCacheKey); ok {
		return v.(*snapshot), nil
	}

	v, err, _ := h.loads.Do(datasetCacheKey, func() (interface{}, error) {
		snap, err := loadSnapshot(h.Repos.Dataset)
		if err != nil {
			return nil, err
		}
		h.cache.SetDefault(datasetCacheKey, snap)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*snapshot), nil
}

// Reload 丢弃缓存并重新读取数据集
func (h *Handler) Reload() error {
	h.cache.Delete(datasetCacheKey)
	_, err := h.dataset()
	return err
}

// RenderData 统一封装公共渲染数据
func (h *Handler) RenderData(c *gin.Context, data gin.H) gin.H {
	res := gin.H{
		"SiteName": h.Config.SiteName,
		"Path":     c.Request.URL.Path,
	}
	for k, v := range data {
		res[k] = v
	}
	return res
}

// Home 首页：电影地图
func (h *Handler) Home(c *gin.Context) {
	count := 0
	if snap, err := h.dataset(); err != nil {
		log.Printf("[服务] 读取数据集失败: %v", err)
	} else {
		count = len(snap.Movies)
	}

	c.HTML(http.StatusOK, "index.html", h.RenderData(c, gin.H{
		"Title":      h.Config.SiteName,
		"MovieCount": count,
	}))
}
