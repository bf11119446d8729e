package generator

import (
	"context"

	"github.com/shouni/pollinations-image-kit/pkg/domain"
)

// ImageGenerator はビジネスロジック層が利用する統合窓口です。
type ImageGenerator interface {
	// Generate はリクエストを1回だけ送信し、画像バイト列を返します。リトライはしません。
	Generate(ctx context.Context, req domain.GenerationRequest) (*domain.ImageResponse, error)
	// ListModels はリモートで利用可能なモデル名を取得します。
	ListModels(ctx context.Context) ([]string, error)
}

// HTTPClient は、HTTPリクエストを実行し、URLからデータを取得するためのインターフェースです。
// 本番では SingleShotClient を使います。httpkit.Client もこのインターフェースを満たしますが、失敗時にリトライします。
type HTTPClient interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
	FetchAndDecodeJSON(ctx context.Context, url string, v any) error
}
