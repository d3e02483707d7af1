package sponsor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Scorer 是外部风控打分服务的抽象：对调用方提交的 challenge token
// 返回一个得分，由 Dispatcher 与配置阈值比较。
type Scorer interface {
	Score(ctx context.Context, challenge string) (float64, error)
}

// ScorerFunc 便于测试与自定义实现
type ScorerFunc func(ctx context.Context, challenge string) (float64, error)

func (f ScorerFunc) Score(ctx context.Context, challenge string) (float64, error) {
	return f(ctx, challenge)
}

// HTTPScorer 调用外部 HTTP 打分服务：POST {"challenge": "..."}，
// 期望响应 {"score": <float>}。
type HTTPScorer struct {
	endpoint string
	client   *http.Client
}

func NewHTTPScorer(endpoint string, timeout time.Duration) *HTTPScorer {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPScorer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *HTTPScorer) Score(ctx context.Context, challenge string) (float64, error) {
	body, err := json.Marshal(map[string]string{"challenge": challenge})
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("score request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("score service status %d", resp.StatusCode)
	}
	var out struct {
		Score float64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("score response: %w", err)
	}
	return out.Score, nil
}
