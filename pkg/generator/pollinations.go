package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/pollinations-image-kit/pkg/domain"
)

// PollinationsGenerator は Pollinations の画像生成エンドポイントに GET リクエストを送るジェネレーターです。
// 呼び出しごとに独立しており、状態を持ちません。
type PollinationsGenerator struct {
	httpClient HTTPClient
	baseURL    string
	logger     *slog.Logger
}

// Option は PollinationsGenerator の設定を変更する関数です。
type Option func(*PollinationsGenerator)

// WithBaseURL は送信先のベースURLを差し替えます。
func WithBaseURL(baseURL string) Option {
	return func(g *PollinationsGenerator) {
		g.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger はログ出力先を指定します。
func WithLogger(logger *slog.Logger) Option {
	return func(g *PollinationsGenerator) {
		g.logger = logger
	}
}

// NewPollinationsGenerator は依存関係を注入して PollinationsGenerator を初期化します。
func NewPollinationsGenerator(httpClient HTTPClient, opts ...Option) (*PollinationsGenerator, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("httpClient is required")
	}

	g := &PollinationsGenerator{
		httpClient: httpClient,
		baseURL:    DefaultBaseURL,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g, nil
}

// Generate はリクエストを URL に変換して1回だけ送信し、画像データを返します。
// 通信エラーや非2xx応答は元のエラー内容を含めて返し、リトライは行いません。
func (g *PollinationsGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.ImageResponse, error) {
	target, err := BuildURL(g.baseURL, req)
	if err != nil {
		return nil, err
	}

	g.logger.InfoContext(ctx, "API リクエストを送信します",
		"url", target,
		"model", req.Model,
		"width", req.Width,
		"height", req.Height,
		"seed", req.Seed,
	)

	data, err := g.httpClient.FetchBytes(ctx, target)
	if err != nil {
		g.logger.ErrorContext(ctx, "API リクエストに失敗しました", "error", err)
		return nil, fmt.Errorf("画像生成リクエストに失敗しました: %w", err)
	}

	mimeType, err := detectImageMime(data)
	if err != nil {
		g.logger.ErrorContext(ctx, "応答が画像ではありません", "error", err, "bytes", len(data))
		return nil, fmt.Errorf("画像生成リクエストに失敗しました: %w", err)
	}

	g.logger.InfoContext(ctx, "画像生成に成功しました", "bytes", len(data), "mime_type", mimeType)

	return &domain.ImageResponse{
		Data:     data,
		MimeType: mimeType,
		UsedSeed: req.Seed,
	}, nil
}

// ListModels はリモートで利用可能な画像モデルの一覧を取得します。
func (g *PollinationsGenerator) ListModels(ctx context.Context) ([]string, error) {
	var models []string
	if err := g.httpClient.FetchAndDecodeJSON(ctx, g.baseURL+modelsPath, &models); err != nil {
		g.logger.ErrorContext(ctx, "モデル一覧の取得に失敗しました", "error", err)
		return nil, fmt.Errorf("モデル一覧の取得に失敗しました: %w", err)
	}
	return models, nil
}
