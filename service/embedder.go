package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vinli0921/product-recommender-system/core"
)

// HTTPEmbedder 是跨模态编码服务的 REST 客户端实现。
//
// 约定与 TF Serving / KServe 的 REST 形态一致：
//   - POST {endpoint}/v1/models/{model}:predict
//   - 请求体 {"instances": [...]}，文本实例为 {"text": "..."}，
//     图片实例为 {"b64": "<base64>"}
//   - 响应体 {"predictions": [[f1, f2, ...]]}
//
// 工程特征：
//   - 文本模型：BGE 系列句向量模型
//   - 图片模型：CLIP（与物品图片索引同一编码空间）
type HTTPEmbedder struct {
	// Endpoint 服务端点，例如 "http://localhost:8501"
	Endpoint string

	// TextModel 文本编码模型名称
	TextModel string

	// ImageModel 图片编码模型名称
	ImageModel string

	// Timeout 超时时间
	Timeout time.Duration

	httpClient *http.Client
}

// EmbedderOption 编码服务客户端配置选项
type EmbedderOption func(*HTTPEmbedder)

// WithEmbedderTimeout 设置超时时间
func WithEmbedderTimeout(timeout time.Duration) EmbedderOption {
	return func(c *HTTPEmbedder) {
		c.Timeout = timeout
	}
}

// WithTextModel 设置文本编码模型名称
func WithTextModel(name string) EmbedderOption {
	return func(c *HTTPEmbedder) {
		c.TextModel = name
	}
}

// WithImageModel 设置图片编码模型名称
func WithImageModel(name string) EmbedderOption {
	return func(c *HTTPEmbedder) {
		c.ImageModel = name
	}
}

// NewHTTPEmbedder 创建一个新的编码服务客户端。
func NewHTTPEmbedder(endpoint string, opts ...EmbedderOption) *HTTPEmbedder {
	client := &HTTPEmbedder{
		Endpoint:   endpoint,
		TextModel:  "bge-small-en",
		ImageModel: "clip-vit-base",
		Timeout:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(client)
	}
	client.httpClient = &http.Client{Timeout: client.Timeout}
	return client
}

// EncodeText 把文本编码为 Embedding（实现 core.EmbeddingService 接口）。
func (c *HTTPEmbedder) EncodeText(ctx context.Context, text string) ([]float64, error) {
	return c.predict(ctx, c.TextModel, map[string]interface{}{"text": text})
}

// EncodeImage 把图片编码为 Embedding（实现 core.EmbeddingService 接口）。
func (c *HTTPEmbedder) EncodeImage(ctx context.Context, image []byte) ([]float64, error) {
	return c.predict(ctx, c.ImageModel, map[string]interface{}{
		"b64": base64.StdEncoding.EncodeToString(image),
	})
}

// predict 调用模型服务并取第一条预测向量。
func (c *HTTPEmbedder) predict(ctx context.Context, modelName string, instance map[string]interface{}) ([]float64, error) {
	url := fmt.Sprintf("%s/v1/models/%s:predict", c.Endpoint, modelName)

	body := map[string]interface{}{
		"instances": []map[string]interface{}{instance},
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleGateway, core.ErrorCodeUnavailable,
			fmt.Sprintf("embedder: call model %q", modelName), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, core.NewDomainError(core.ModuleGateway, core.ErrorCodeUnavailable,
			fmt.Sprintf("embedder: model %q returned status=%d, body=%s",
				modelName, resp.StatusCode, string(bodyBytes)))
	}

	var result struct {
		Predictions [][]float64 `json:"predictions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, core.WrapDomainError(core.ModuleGateway, core.ErrorCodeUnavailable,
			"embedder: decode response", err)
	}
	if len(result.Predictions) == 0 || len(result.Predictions[0]) == 0 {
		return nil, core.NewDomainError(core.ModuleGateway, core.ErrorCodeUnavailable,
			fmt.Sprintf("embedder: model %q returned empty prediction", modelName))
	}

	return result.Predictions[0], nil
}

// Close 关闭连接（实现 core.EmbeddingService 接口）。
func (c *HTTPEmbedder) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// 确保 HTTPEmbedder 实现了 core.EmbeddingService 接口
var _ core.EmbeddingService = (*HTTPEmbedder)(nil)
