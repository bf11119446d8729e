package studio

import (
	"context"

	"github.com/shouni/pollinations-image-kit/pkg/domain"
)

// mockGenerator は generator.ImageGenerator のテスト用モックです。
type mockGenerator struct {
	generateFunc func(ctx context.Context, req domain.GenerationRequest) (*domain.ImageResponse, error)
	models       []string
	calls        int
}

func (m *mockGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.ImageResponse, error) {
	m.calls++
	if m.generateFunc != nil {
		return m.generateFunc(ctx, req)
	}
	return nil, nil
}

func (m *mockGenerator) ListModels(ctx context.Context) ([]string, error) {
	return m.models, nil
}
