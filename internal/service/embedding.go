package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"
)

// ErrMisalignedBatch 向量服务返回的条数与请求条数不一致
var ErrMisalignedBatch = errors.New("向量条数与输入条数不一致")

// Embedder 文本向量化服务
// 返回值的长度和顺序必须与输入一致
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Pacer 控制连续两次向量请求之间的最小间隔（令牌桶，容量 1）
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer interval <= 0 时不做任何限速
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait 阻塞直到可以发出下一次请求；第一次调用立即返回
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}

// BatchEmbed 把 texts 切成不超过 batchSize 的连续批次依次向量化
//
// 严格串行，同一时刻只有一个请求在途；任一批次出错立即返回，不保留部分结果。
// 返回的第 i 个向量对应 texts[i]。
func BatchEmbed(ctx context.Context, embedder Embedder, texts []string, batchSize int, pacer *Pacer) ([][]float32, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("批次大小必须为正数: %d", batchSize)
	}

	batches := (len(texts) + batchSize - 1) / batchSize
	vectors := make([][]float32, 0, len(texts))

	for b := 0; b < batches; b++ {
		start := b * batchSize
		end := min(start+batchSize, len(texts))
		chunk := texts[start:end]

		if err := pacer.Wait(ctx); err != nil {
			return nil, err
		}

		log.Printf("[向量] 批次 %d/%d (%d 条)", b+1, batches, len(chunk))
		got, err := embedder.Embed(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("批次 %d/%d 向量化失败: %w", b+1, batches, err)
		}
		if len(got) != len(chunk) {
			return nil, fmt.Errorf("批次 %d/%d: 期望 %d 条，实际 %d 条: %w", b+1, batches, len(chunk), len(got), ErrMisalignedBatch)
		}
		vectors = append(vectors, got...)
	}

	return vectors, nil
}
