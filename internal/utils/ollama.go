package utils

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// EmbeddingRequest Ollama embedding API 请求结构
type EmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// EmbeddingResponse Ollama embedding API 响应结构
type EmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// OllamaClient 本地 Ollama 向量客户端
type OllamaClient struct {
	model  string
	client *resty.Client
}

// NewOllamaClient 创建 Ollama 客户端
func NewOllamaClient(host, model string) *OllamaClient {
	if host == "" {
		host = "http://localhost:11434"
	}
	return &OllamaClient{
		model: model,
		client: resty.New().
			SetBaseURL(strings.TrimRight(host, "/")).
			SetTimeout(60*time.Second).
			SetHeader("Content-Type", "application/json"),
	}
}

// Embed Ollama 的 /api/embeddings 只接受单条文本，这里按顺序逐条请求
func (o *OllamaClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for i, text := range texts {
		vec, err := o.GenerateEmbedding(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("第 %d 条文本向量生成失败: %w", i, err)
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}

// GenerateEmbedding 调用本地 Ollama API 生成向量
func (o *OllamaClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	var result EmbeddingResponse
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(EmbeddingRequest{Model: o.model, Prompt: text}).
		SetResult(&result).
		ForceContentType("application/json").
		Post("/api/embeddings")
	if err != nil {
		return nil, fmt.Errorf("post request to ollama failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("ollama returned error status: %d", resp.StatusCode())
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("ollama 返回了空向量")
	}

	return result.Embedding, nil
}
