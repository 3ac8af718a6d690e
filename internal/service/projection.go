package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/user/festmap/internal/model"
)

// ErrAlignment 记录与坐标无法一一对应
var ErrAlignment = errors.New("记录与坐标未对齐")

// Reducer 降维变换：N×D 矩阵 → N×2 矩阵，给定配置时结果确定
type Reducer interface {
	FitTransform(data [][]float64) ([][]float64, error)
}

// Project 对全部向量降维，并给每个坐标打上来源记录的 URL
func Project(ctx context.Context, reducer Reducer, vectors []model.KeyedVector) ([]model.Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matrix := make([][]float64, len(vectors))
	for i, v := range vectors {
		row := make([]float64, len(v.Values))
		for j, x := range v.Values {
			row[j] = float64(x)
		}
		matrix[i] = row
	}

	log.Printf("[投影] 开始降维: %d 个向量", len(vectors))
	coords, err := reducer.FitTransform(matrix)
	if err != nil {
		return nil, fmt.Errorf("降维失败: %w", err)
	}
	if len(coords) != len(vectors) {
		return nil, fmt.Errorf("降维输出 %d 行，输入 %d 行: %w", len(coords), len(vectors), ErrAlignment)
	}

	points := make([]model.Point, len(coords))
	for i, c := range coords {
		if len(c) < 2 {
			return nil, fmt.Errorf("第 %d 行坐标维度不足: %d", i, len(c))
		}
		points[i] = model.Point{URL: vectors[i].URL, X: c[0], Y: c[1]}
	}
	log.Printf("[投影] 完成")
	return points, nil
}

// MergeCoordinates 第 i 条记录取第 i 个坐标，并要求两者 URL 一致
// 不修改入参，返回新切片
func MergeCoordinates(records []model.MovieRecord, points []model.Point) ([]model.EnrichedMovieRecord, error) {
	if len(records) != len(points) {
		return nil, fmt.Errorf("记录 %d 条，坐标 %d 个: %w", len(records), len(points), ErrAlignment)
	}

	out := make([]model.EnrichedMovieRecord, len(records))
	for i, r := range records {
		p := points[i]
		if p.URL != r.URL {
			return nil, fmt.Errorf("第 %d 条: 记录 %s 对应坐标 %s: %w", i, r.URL, p.URL, ErrAlignment)
		}
		out[i] = model.EnrichedMovieRecord{MovieRecord: r, X: p.X, Y: p.Y}
	}
	return out, nil
}

// KeyVectors 给向量打上对应记录的 URL
func KeyVectors(records []model.MovieRecord, vectors [][]float32) ([]model.KeyedVector, error) {
	if len(records) != len(vectors) {
		return nil, fmt.Errorf("记录 %d 条，向量 %d 个: %w", len(records), len(vectors), ErrAlignment)
	}
	keyed := make([]model.KeyedVector, len(records))
	for i, r := range records {
		keyed[i] = model.KeyedVector{URL: r.URL, Values: vectors[i]}
	}
	return keyed, nil
}
