package generator

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shouni/pollinations-image-kit/pkg/domain"
)

// BuildURL はプロンプトをパスセグメントに、その他のパラメータをクエリに載せた URL を組み立てます。
// プロンプト中の "/" も %2F にエンコードされ、常に単一のセグメントになります。
func BuildURL(baseURL string, req domain.GenerationRequest) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + promptPath + url.PathEscape(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("URLの組み立てに失敗しました: %w", err)
	}
	u.RawQuery = queryParams(req).Encode()
	return u.String(), nil
}

// queryParams は送信するクエリパラメータを返します。
// 真偽値は必ず小文字の "true"/"false" で表現します。
func queryParams(req domain.GenerationRequest) url.Values {
	q := url.Values{}
	q.Set("width", strconv.Itoa(req.Width))
	q.Set("height", strconv.Itoa(req.Height))
	q.Set("seed", strconv.FormatInt(req.Seed, 10))
	q.Set("model", req.Model)
	q.Set("nologo", strconv.FormatBool(req.NoLogo))
	q.Set("enhance", strconv.FormatBool(req.Enhance))
	q.Set("private", strconv.FormatBool(req.Private))
	q.Set("safe", strconv.FormatBool(req.Safe))
	if req.Referrer != "" {
		q.Set("referrer", req.Referrer)
	}
	return q
}

// detectImageMime はバイト列から MIME タイプを判定し、画像でなければエラーを返します。
func detectImageMime(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyResponse
	}
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("%w (detected_mime_type: %s)", ErrNotImage, mimeType)
	}
	return mimeType, nil
}
