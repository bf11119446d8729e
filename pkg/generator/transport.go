package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shouni/go-http-kit/pkg/httpkit"
)

// SingleShotClient は httpkit.Client の送信処理とレスポンス処理を使い、
// リクエストを1回だけ送る HTTPClient 実装です。
// httpkit.Client.FetchBytes は常に retry.Do を経由するため使いません。
type SingleShotClient struct {
	client *httpkit.Client
}

// NewSingleShotClient は httpkit.Client を構築して SingleShotClient を返します。
// リトライ関連のオプションを渡しても送信回数は変わりません。
func NewSingleShotClient(timeout time.Duration, opts ...httpkit.ClientOption) *SingleShotClient {
	return &SingleShotClient{client: httpkit.New(timeout, opts...)}
}

// FetchBytes は GET リクエストを1回送信し、2xx 応答の本文を返します。
// 非2xx応答のエラーにはステータス行を含めます。
func (c *SingleShotClient) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	if !c.client.SkipNetworkValidation {
		if ok, err := c.client.IsSafeURL(url); !ok {
			if err == nil {
				err = fmt.Errorf("URL '%s' is blocked by network policy", url)
			}
			return nil, fmt.Errorf("URL の安全性検証に失敗しました: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", httpkit.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストに失敗しました: %w", err)
	}

	status := resp.Status
	body, err := httpkit.HandleResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", status, err)
	}
	return body, nil
}

// FetchAndDecodeJSON は GET リクエストを1回送信し、本文を JSON として v にデコードします。
func (c *SingleShotClient) FetchAndDecodeJSON(ctx context.Context, url string, v any) error {
	body, err := c.FetchBytes(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("JSONデコードに失敗しました: %w", err)
	}
	return nil
}
