package umap

import (
	"math"
	"math/rand"
)

const gradClip = 4.0

type layoutParams struct {
	a, b               float64
	gamma              float64
	initialAlpha       float64
	negativeSampleRate float64
	nEpochs            int
}

func clip(v float64) float64 {
	if v > gradClip {
		return gradClip
	}
	if v < -gradClip {
		return -gradClip
	}
	return v
}

func rdist(x, y []float64) float64 {
	var s float64
	for i := range x {
		d := x[i] - y[i]
		s += d * d
	}
	return s
}

// optimizeLayout 负采样随机梯度下降；边按权重比例被采样，学习率线性衰减
func optimizeLayout(emb [][]float64, g *graph, p layoutParams, rnd *rand.Rand) {
	nEdges := len(g.weights)
	if nEdges == 0 {
		return
	}

	maxW := 0.0
	for _, w := range g.weights {
		maxW = max(maxW, w)
	}

	epochsPerSample := make([]float64, nEdges)
	epochsPerNegSample := make([]float64, nEdges)
	nextSample := make([]float64, nEdges)
	nextNegSample := make([]float64, nEdges)
	for e, w := range g.weights {
		epochsPerSample[e] = maxW / w
		epochsPerNegSample[e] = epochsPerSample[e] / p.negativeSampleRate
		nextSample[e] = epochsPerSample[e]
		nextNegSample[e] = epochsPerNegSample[e]
	}

	a, b := p.a, p.b
	dim := len(emb[0])
	nVertices := len(emb)

	for epoch := 0; epoch < p.nEpochs; epoch++ {
		alpha := p.initialAlpha * (1 - float64(epoch)/float64(p.nEpochs))
		n := float64(epoch)

		for e := 0; e < nEdges; e++ {
			if nextSample[e] > n {
				continue
			}
			j, k := g.heads[e], g.tails[e]
			current, other := emb[j], emb[k]

			// 吸引
			distSq := rdist(current, other)
			gradCoeff := 0.0
			if distSq > 0 {
				gradCoeff = -2 * a * b * math.Pow(distSq, b-1) / (a*math.Pow(distSq, b) + 1)
			}
			for d := 0; d < dim; d++ {
				gd := clip(gradCoeff * (current[d] - other[d]))
				current[d] += gd * alpha
				other[d] -= gd * alpha
			}
			nextSample[e] += epochsPerSample[e]

			// 排斥（负采样）
			nNeg := int((n - nextNegSample[e]) / epochsPerNegSample[e])
			for s := 0; s < nNeg; s++ {
				k = rnd.Intn(nVertices)
				if k == j {
					continue
				}
				other = emb[k]
				distSq = rdist(current, other)
				if distSq > 0 {
					gradCoeff = 2 * p.gamma * b / ((0.001 + distSq) * (a*math.Pow(distSq, b) + 1))
				} else {
					gradCoeff = 0
				}
				for d := 0; d < dim; d++ {
					gd := gradClip
					if gradCoeff > 0 {
						gd = clip(gradCoeff * (current[d] - other[d]))
					}
					current[d] += gd * alpha
				}
			}
			nextNegSample[e] += float64(nNeg) * epochsPerNegSample[e]
		}
	}
}

// findABParams 拟合 1/(1+a·x^(2b)) 逼近由 spread/minDist 定义的目标曲线（Levenberg–Marquardt）
func findABParams(spread, minDist float64) (float64, float64) {
	const m = 300
	xs := make([]float64, m)
	ys := make([]float64, m)
	for i := 0; i < m; i++ {
		x := spread * 3 * float64(i) / float64(m-1)
		xs[i] = x
		if x < minDist {
			ys[i] = 1
		} else {
			ys[i] = math.Exp(-(x - minDist) / spread)
		}
	}

	curve := func(a, b, x float64) float64 {
		return 1 / (1 + a*math.Pow(x, 2*b))
	}
	sse := func(a, b float64) float64 {
		var s float64
		for i, x := range xs {
			r := ys[i] - curve(a, b, x)
			s += r * r
		}
		return s
	}

	a, b := 1.0, 1.0
	lambda := 1e-3
	cost := sse(a, b)
	for iter := 0; iter < 200; iter++ {
		// 正规方程 JᵀJ δ = Jᵀr
		var jaa, jab, jbb, gra, grb float64
		for i, x := range xs {
			if x == 0 {
				continue
			}
			u := math.Pow(x, 2*b)
			den := (1 + a*u) * (1 + a*u)
			da := -u / den
			db := -a * u * 2 * math.Log(x) / den
			r := ys[i] - curve(a, b, x)
			jaa += da * da
			jab += da * db
			jbb += db * db
			gra += da * r
			grb += db * r
		}

		improved := false
		for tries := 0; tries < 10; tries++ {
			m11 := jaa * (1 + lambda)
			m22 := jbb * (1 + lambda)
			det := m11*m22 - jab*jab
			if det == 0 {
				lambda *= 10
				continue
			}
			dA := (m22*gra - jab*grb) / det
			dB := (m11*grb - jab*gra) / det
			na, nb := a+dA, b+dB
			if na <= 0 || nb <= 0 {
				lambda *= 10
				continue
			}
			if c := sse(na, nb); c < cost {
				a, b, cost = na, nb, c
				lambda = max(lambda/10, 1e-12)
				improved = true
				break
			}
			lambda *= 10
		}
		if !improved {
			break
		}
	}
	return a, b
}
