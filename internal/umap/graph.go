package umap

import (
	"math"
	"sort"
)

const (
	smoothKTolerance = 1e-5
	minKDistScale    = 1e-3
	smoothKNNIters   = 64
)

type distFunc func(x, y []float64) float64

func distanceFunc(m Metric) distFunc {
	if m == Euclidean {
		return euclidean
	}
	return cosine
}

func euclidean(x, y []float64) float64 {
	var s float64
	for i := range x {
		d := x[i] - y[i]
		s += d * d
	}
	return math.Sqrt(s)
}

// cosine 余弦距离；两个零向量视为重合，单个零向量视为正交
func cosine(x, y []float64) float64 {
	var dot, nx, ny float64
	for i := range x {
		dot += x[i] * y[i]
		nx += x[i] * x[i]
		ny += y[i] * y[i]
	}
	switch {
	case nx == 0 && ny == 0:
		return 0
	case nx == 0 || ny == 0:
		return 1
	}
	d := 1 - dot/math.Sqrt(nx*ny)
	if d < 0 {
		return 0
	}
	return d
}

// nearestNeighbors 精确 kNN（含自身），按距离升序；距离相同按下标升序保证确定性
// 逐行计算距离，时间 O(N²)，额外内存只有一行 O(N)
func nearestNeighbors(data [][]float64, k int, dist distFunc) ([][]int, [][]float64) {
	n := len(data)
	idx := make([][]int, n)
	dists := make([][]float64, n)
	order := make([]int, n)
	row := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := range order {
			order[j] = j
		}
		for j := range row {
			if j == i {
				row[j] = 0
				continue
			}
			row[j] = dist(data[i], data[j])
		}
		sort.SliceStable(order, func(a, b int) bool {
			oa, ob := order[a], order[b]
			// 自身永远排在第一位
			if oa == i {
				return ob != i
			}
			if ob == i {
				return false
			}
			return row[oa] < row[ob]
		})
		idx[i] = append([]int(nil), order[:k]...)
		dists[i] = make([]float64, k)
		for j, o := range idx[i] {
			dists[i][j] = row[o]
		}
	}
	return idx, dists
}

// smoothKNNDist 为每个点二分查找 sigma，使邻域隶属度之和等于 log2(k)
func smoothKNNDist(distances [][]float64, k float64) (sigmas, rhos []float64) {
	n := len(distances)
	sigmas = make([]float64, n)
	rhos = make([]float64, n)
	target := math.Log2(k)

	var total float64
	var count int
	for _, row := range distances {
		for _, d := range row {
			total += d
			count++
		}
	}
	meanDistances := total / float64(count)

	for i, row := range distances {
		// rho：到最近的非零距离邻居的距离（local_connectivity = 1）
		for _, d := range row {
			if d > 0 {
				rhos[i] = d
				break
			}
		}

		lo, hi, mid := 0.0, math.Inf(1), 1.0
		for iter := 0; iter < smoothKNNIters; iter++ {
			var psum float64
			for j := 1; j < len(row); j++ {
				d := row[j] - rhos[i]
				if d > 0 {
					psum += math.Exp(-d / mid)
				} else {
					psum += 1
				}
			}
			if math.Abs(psum-target) < smoothKTolerance {
				break
			}
			if psum > target {
				hi = mid
				mid = (lo + hi) / 2
			} else {
				lo = mid
				if math.IsInf(hi, 1) {
					mid *= 2
				} else {
					mid = (lo + hi) / 2
				}
			}
		}
		sigmas[i] = mid

		var rowMean float64
		for _, d := range row {
			rowMean += d
		}
		rowMean /= float64(len(row))
		if rhos[i] > 0 {
			sigmas[i] = max(sigmas[i], minKDistScale*rowMean)
		} else {
			sigmas[i] = max(sigmas[i], minKDistScale*meanDistances)
		}
	}
	return sigmas, rhos
}

// graph 对称化后的模糊单纯集，以有向边列表保存（每条无向边出现两次）
type graph struct {
	n       int
	heads   []int
	tails   []int
	weights []float64
}

type edgeKey struct{ i, j int }

// fuzzySimplicialSet 计算有向隶属度后做模糊并：w = a + aᵀ - a∘aᵀ
func fuzzySimplicialSet(knnIdx [][]int, knnDist [][]float64, sigmas, rhos []float64) *graph {
	n := len(knnIdx)
	directed := make(map[edgeKey]float64, n*len(knnIdx[0]))
	for i := range knnIdx {
		for j, nb := range knnIdx[i] {
			if nb == i {
				continue
			}
			var val float64
			d := knnDist[i][j] - rhos[i]
			if d <= 0 || sigmas[i] == 0 {
				val = 1
			} else {
				val = math.Exp(-d / sigmas[i])
			}
			directed[edgeKey{i, nb}] = val
		}
	}

	keys := make([]edgeKey, 0, len(directed)*2)
	seen := make(map[edgeKey]struct{}, len(directed)*2)
	for e := range directed {
		for _, k := range []edgeKey{e, {e.j, e.i}} {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	// map 遍历无序，排序后边的处理顺序才稳定
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].i != keys[b].i {
			return keys[a].i < keys[b].i
		}
		return keys[a].j < keys[b].j
	})

	g := &graph{n: n}
	for _, k := range keys {
		a := directed[k]
		at := directed[edgeKey{k.j, k.i}]
		w := a + at - a*at
		if w <= 0 {
			continue
		}
		g.heads = append(g.heads, k.i)
		g.tails = append(g.tails, k.j)
		g.weights = append(g.weights, w)
	}
	return g
}

// prune 去掉在 nEpochs 内一次都不会被采样到的弱边
func (g *graph) prune(nEpochs int) {
	maxW := 0.0
	for _, w := range g.weights {
		maxW = max(maxW, w)
	}
	threshold := maxW / float64(nEpochs)

	heads, tails, weights := g.heads[:0], g.tails[:0], g.weights[:0]
	for e, w := range g.weights {
		if w < threshold {
			continue
		}
		heads = append(heads, g.heads[e])
		tails = append(tails, g.tails[e])
		weights = append(weights, w)
	}
	g.heads, g.tails, g.weights = heads, tails, weights
}
