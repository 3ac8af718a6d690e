package utils

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiPart Gemini 内容片段
type GeminiPart struct {
	Text string `json:"text"`
}

// GeminiContent Gemini 内容
type GeminiContent struct {
	Parts []GeminiPart `json:"parts"`
}

// geminiEmbedRequest 单条向量请求
type geminiEmbedRequest struct {
	Model   string        `json:"model"`
	Content GeminiContent `json:"content"`
}

// geminiBatchRequest batchEmbedContents 请求体
type geminiBatchRequest struct {
	Requests []geminiEmbedRequest `json:"requests"`
}

// geminiError Gemini API 错误体
type geminiError struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// geminiBatchResponse batchEmbedContents 响应体
type geminiBatchResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

// GeminiClient Gemini 批量向量客户端
type GeminiClient struct {
	client *resty.Client
	apiKey string
	model  string
}

// NewGeminiClient 创建 Gemini 客户端
// 遇到 429 时按 Retry-After（缺省指数退避）重试，其余错误直接返回
func NewGeminiClient(apiKey, model string) *GeminiClient {
	return NewGeminiClientWithBaseURL(geminiBaseURL, apiKey, model)
}

// NewGeminiClientWithBaseURL 允许指定 API 地址（测试或代理网关）
func NewGeminiClientWithBaseURL(baseURL, apiKey, model string) *GeminiClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(60*time.Second).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(3).
		SetRetryWaitTime(5 * time.Second).
		SetRetryMaxWaitTime(time.Minute).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return r != nil && r.StatusCode() == http.StatusTooManyRequests
		}).
		SetRetryAfter(func(_ *resty.Client, r *resty.Response) (time.Duration, error) {
			if r == nil {
				return 0, nil
			}
			if secs, err := strconv.Atoi(r.Header().Get("Retry-After")); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second, nil
			}
			// 返回 0 表示交给 resty 的默认退避
			return 0, nil
		})

	return &GeminiClient{
		client: client,
		apiKey: apiKey,
		model:  strings.TrimPrefix(model, "models/"),
	}
}

// Embed 一次请求为整批文本生成向量，返回顺序与输入一致
func (g *GeminiClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	modelName := "models/" + g.model
	body := geminiBatchRequest{Requests: make([]geminiEmbedRequest, 0, len(texts))}
	for _, t := range texts {
		body.Requests = append(body.Requests, geminiEmbedRequest{
			Model:   modelName,
			Content: GeminiContent{Parts: []GeminiPart{{Text: t}}},
		})
	}

	var result geminiBatchResponse
	var apiErr geminiError
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParam("key", g.apiKey).
		SetBody(body).
		SetResult(&result).
		SetError(&apiErr).
		Post("/" + modelName + ":batchEmbedContents")
	if err != nil {
		return nil, fmt.Errorf("post request to gemini failed: %w", err)
	}
	if resp.IsError() {
		if apiErr.Error != nil {
			return nil, fmt.Errorf("gemini api error (%d %s): %s", resp.StatusCode(), apiErr.Error.Status, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("gemini returned error status: %d", resp.StatusCode())
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(result.Embeddings))
	for i, e := range result.Embeddings {
		if len(e.Values) == 0 {
			return nil, fmt.Errorf("gemini returned empty embedding at index %d", i)
		}
		vectors[i] = e.Values
	}
	return vectors, nil
}
