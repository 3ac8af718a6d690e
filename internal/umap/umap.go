// Package umap 实现 UMAP 非线性降维（随机初始化版本）。
//
// 流程与 umap-learn 一致：精确 kNN → smooth kNN 求 sigma/rho → 模糊单纯集合并
// → 拟合 a/b → 负采样 SGD 优化布局。固定 Seed 时结果完全可复现。
//
// kNN 是暴力精确搜索，时间 O(N²·D)，适合几百到几千个样本的规模。
package umap

import (
	"errors"
	"fmt"
	"math/rand"
)

var (
	// ErrEmptyMatrix 输入矩阵为空
	ErrEmptyMatrix = errors.New("umap: 输入矩阵为空")
	// ErrRaggedMatrix 输入矩阵各行维度不一致
	ErrRaggedMatrix = errors.New("umap: 输入矩阵各行维度不一致")
)

// Metric 距离度量
type Metric string

const (
	Cosine    Metric = "cosine"
	Euclidean Metric = "euclidean"
)

// Config 降维参数
type Config struct {
	NComponents        int
	NNeighbors         int
	Metric             Metric
	MinDist            float64
	Spread             float64
	RepulsionStrength  float64
	LearningRate       float64
	NegativeSampleRate int
	NEpochs            int // 0 表示按样本量自动选择
	Seed               int64
}

// DefaultConfig 电影地图使用的参数：二维、余弦距离、20 邻居、seed 42、排斥力与展开度均为 2
func DefaultConfig() Config {
	return Config{
		NComponents:        2,
		NNeighbors:         20,
		Metric:             Cosine,
		MinDist:            0.1,
		Spread:             2,
		RepulsionStrength:  2,
		LearningRate:       1,
		NegativeSampleRate: 5,
		Seed:               42,
	}
}

func (c Config) validate() error {
	if c.NComponents < 1 {
		return fmt.Errorf("umap: NComponents 必须 >= 1，实际 %d", c.NComponents)
	}
	if c.NNeighbors < 2 {
		return fmt.Errorf("umap: NNeighbors 必须 >= 2，实际 %d", c.NNeighbors)
	}
	if c.Spread <= 0 {
		return fmt.Errorf("umap: Spread 必须 > 0")
	}
	if c.MinDist < 0 || c.MinDist > c.Spread {
		return fmt.Errorf("umap: MinDist 必须位于 [0, Spread]")
	}
	switch c.Metric {
	case Cosine, Euclidean:
	default:
		return fmt.Errorf("umap: 不支持的距离度量 %q", c.Metric)
	}
	return nil
}

// Reducer 按固定配置执行降维
type Reducer struct {
	Config Config
}

// NewReducer 创建降维器
func NewReducer(cfg Config) *Reducer {
	return &Reducer{Config: cfg}
}

// FitTransform 把 N×D 矩阵降到 N×NComponents
func (r *Reducer) FitTransform(data [][]float64) ([][]float64, error) {
	return FitTransform(data, r.Config)
}

// FitTransform 把 N×D 矩阵降到 N×cfg.NComponents
func FitTransform(data [][]float64, cfg Config) ([][]float64, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	n := len(data)
	if n == 0 {
		return nil, ErrEmptyMatrix
	}
	dim := len(data[0])
	if dim == 0 {
		return nil, ErrEmptyMatrix
	}
	for _, row := range data {
		if len(row) != dim {
			return nil, ErrRaggedMatrix
		}
	}

	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 1
	}
	if cfg.NegativeSampleRate <= 0 {
		cfg.NegativeSampleRate = 5
	}
	if cfg.RepulsionStrength <= 0 {
		cfg.RepulsionStrength = 1
	}

	// 单个样本没有邻域可言，直接落在原点
	if n == 1 {
		return [][]float64{make([]float64, cfg.NComponents)}, nil
	}

	k := cfg.NNeighbors
	if k > n {
		k = n
	}

	dist := distanceFunc(cfg.Metric)
	knnIdx, knnDist := nearestNeighbors(data, k, dist)
	sigmas, rhos := smoothKNNDist(knnDist, float64(k))
	g := fuzzySimplicialSet(knnIdx, knnDist, sigmas, rhos)

	nEpochs := cfg.NEpochs
	if nEpochs <= 0 {
		nEpochs = 500
		if n > 10000 {
			nEpochs = 200
		}
	}
	g.prune(nEpochs)

	rnd := rand.New(rand.NewSource(cfg.Seed))
	embedding := randomInit(rnd, n, cfg.NComponents)

	a, b := findABParams(cfg.Spread, cfg.MinDist)
	optimizeLayout(embedding, g, layoutParams{
		a:                  a,
		b:                  b,
		gamma:              cfg.RepulsionStrength,
		initialAlpha:       cfg.LearningRate,
		negativeSampleRate: float64(cfg.NegativeSampleRate),
		nEpochs:            nEpochs,
	}, rnd)

	return embedding, nil
}

// randomInit 在 [-10, 10] 内随机初始化后线性缩放到 [0, 10]
func randomInit(rnd *rand.Rand, n, nComponents int) [][]float64 {
	emb := make([][]float64, n)
	for i := range emb {
		emb[i] = make([]float64, nComponents)
		for d := range emb[i] {
			emb[i][d] = rnd.Float64()*20 - 10
		}
	}

	for d := 0; d < nComponents; d++ {
		lo, hi := emb[0][d], emb[0][d]
		for i := 1; i < n; i++ {
			lo = min(lo, emb[i][d])
			hi = max(hi, emb[i][d])
		}
		span := hi - lo
		if span == 0 {
			continue
		}
		for i := range emb {
			emb[i][d] = 10 * (emb[i][d] - lo) / span
		}
	}
	return emb
}
