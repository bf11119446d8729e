package generator

import (
	"context"
	"encoding/json"
)

// --- Mocks ---

type mockHTTPClient struct {
	data     []byte
	err      error
	jsonBody string

	calls   int
	lastURL string
}

func (m *mockHTTPClient) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	m.calls++
	m.lastURL = url
	return m.data, m.err
}

func (m *mockHTTPClient) FetchAndDecodeJSON(ctx context.Context, url string, v any) error {
	m.calls++
	m.lastURL = url
	if m.err != nil {
		return m.err
	}
	return json.Unmarshal([]byte(m.jsonBody), v)
}
