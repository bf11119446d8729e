package studio

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/pollinations-image-kit/pkg/domain"
	"github.com/shouni/pollinations-image-kit/pkg/storage"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{0, 128, 255, 255})
		}
	}
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func validRequest() domain.GenerationRequest {
	return domain.GenerationRequest{Prompt: "ずんだ餅", Width: 1024, Height: 1024, Seed: 42, Model: domain.ModelFlux}
}

func newSaver(t *testing.T) (*storage.Saver, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "Images")
	clock := func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local) }
	return storage.NewSaver(afero.NewOsFs(), dir, storage.WithClock(clock)), dir
}

func succeedWith(data []byte) *mockGenerator {
	return &mockGenerator{
		generateFunc: func(ctx context.Context, req domain.GenerationRequest) (*domain.ImageResponse, error) {
			return &domain.ImageResponse{Data: data, MimeType: "image/png", UsedSeed: req.Seed}, nil
		},
	}
}

func TestNew(t *testing.T) {
	saver, _ := newSaver(t)
	_, err := New(nil, saver)
	assert.Error(t, err)
	_, err = New(&mockGenerator{}, nil)
	assert.Error(t, err)
}

func TestStudio_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("成功: 生成した画像を自動保存する", func(t *testing.T) {
		data := pngBytes(t, 8, 8)
		saver, dir := newSaver(t)
		s, err := New(succeedWith(data), saver)
		require.NoError(t, err)

		res, err := s.Generate(ctx, validRequest())
		require.NoError(t, err)
		require.NotNil(t, res.Saved)
		assert.NoError(t, res.AutoSaveErr)
		assert.Equal(t, filepath.Join(dir, "2024-01-01_AI0001.jpg"), res.Saved.Path)
		assert.InDelta(t, float64(len(data))/1024, res.SizeKB(), 0.0001)

		got, err := os.ReadFile(res.Saved.Path)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("入力検証に失敗した場合はジェネレーターを呼ばない", func(t *testing.T) {
		gen := succeedWith([]byte("x"))
		saver, _ := newSaver(t)
		s, _ := New(gen, saver)

		req := validRequest()
		req.Width = 100
		_, err := s.Generate(ctx, req)

		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
		assert.Equal(t, 0, gen.calls)
	})

	t.Run("生成失敗時はファイルを書かない", func(t *testing.T) {
		genErr := errors.New("connection refused")
		gen := &mockGenerator{
			generateFunc: func(ctx context.Context, req domain.GenerationRequest) (*domain.ImageResponse, error) {
				return nil, genErr
			},
		}
		saver, dir := newSaver(t)
		s, _ := New(gen, saver)

		res, err := s.Generate(ctx, validRequest())
		assert.Nil(t, res)
		assert.ErrorIs(t, err, genErr)

		_, statErr := os.Stat(dir)
		assert.True(t, os.IsNotExist(statErr), "no directory or file should be created")
		assert.Nil(t, s.Current())
	})

	t.Run("自動保存の失敗は生成結果として返す", func(t *testing.T) {
		base := t.TempDir()
		blocker := filepath.Join(base, "Images")
		require.NoError(t, os.WriteFile(blocker, []byte("not a dir"), 0o644))

		saver := storage.NewSaver(afero.NewOsFs(), blocker)
		s, _ := New(succeedWith(pngBytes(t, 4, 4)), saver)

		res, err := s.Generate(ctx, validRequest())
		require.NoError(t, err)
		assert.Nil(t, res.Saved)
		assert.Error(t, res.AutoSaveErr)
		assert.NotNil(t, s.Current(), "the image stays available for save-as")
	})

	t.Run("自動保存を無効にできる", func(t *testing.T) {
		saver, dir := newSaver(t)
		s, _ := New(succeedWith(pngBytes(t, 4, 4)), saver, WithAutoSave(false))

		res, err := s.Generate(ctx, validRequest())
		require.NoError(t, err)
		assert.Nil(t, res.Saved)

		_, statErr := os.Stat(dir)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("生成中の二重実行は ErrBusy", func(t *testing.T) {
		started := make(chan struct{})
		release := make(chan struct{})
		gen := &mockGenerator{
			generateFunc: func(ctx context.Context, req domain.GenerationRequest) (*domain.ImageResponse, error) {
				close(started)
				<-release
				return &domain.ImageResponse{Data: []byte("img")}, nil
			},
		}
		saver, _ := newSaver(t)
		s, _ := New(gen, saver, WithAutoSave(false))

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Generate(ctx, validRequest())
			assert.NoError(t, err)
		}()

		<-started
		_, err := s.Generate(ctx, validRequest())
		assert.ErrorIs(t, err, ErrBusy)

		close(release)
		wg.Wait()
	})
}

func TestStudio_SaveAs(t *testing.T) {
	ctx := context.Background()

	t.Run("画像がなければ ErrNoImage", func(t *testing.T) {
		saver, _ := newSaver(t)
		s, _ := New(&mockGenerator{}, saver)

		_, err := s.SaveAs(filepath.Join(t.TempDir(), "out.png"))
		assert.ErrorIs(t, err, ErrNoImage)
	})

	t.Run("拡張子がなければ .jpg を付与する", func(t *testing.T) {
		data := pngBytes(t, 4, 4)
		saver, _ := newSaver(t)
		s, _ := New(succeedWith(data), saver, WithAutoSave(false))
		_, err := s.Generate(ctx, validRequest())
		require.NoError(t, err)

		target := filepath.Join(t.TempDir(), "my-image")
		saved, err := s.SaveAs(target)
		require.NoError(t, err)
		assert.Equal(t, target+".jpg", saved.Path)

		got, err := os.ReadFile(saved.Path)
		require.NoError(t, err)
		_, format, err := image.DecodeConfig(bytes.NewReader(got))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)
		assert.Equal(t, len(got), saved.Size)
	})

	t.Run("PNG 保存先には元のバイト列を書く", func(t *testing.T) {
		data := pngBytes(t, 4, 4)
		saver, _ := newSaver(t)
		s, _ := New(succeedWith(data), saver, WithAutoSave(false))
		_, err := s.Generate(ctx, validRequest())
		require.NoError(t, err)

		saved, err := s.SaveAs(filepath.Join(t.TempDir(), "my-image.png"))
		require.NoError(t, err)

		got, err := os.ReadFile(saved.Path)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("デコードできない形式は .jpg でもそのまま書く", func(t *testing.T) {
		data := []byte("RIFF\x00\x00\x00\x00WEBPVP8 ")
		saver, _ := newSaver(t)
		s, _ := New(&mockGenerator{
			generateFunc: func(ctx context.Context, req domain.GenerationRequest) (*domain.ImageResponse, error) {
				return &domain.ImageResponse{Data: data, MimeType: "image/webp"}, nil
			},
		}, saver, WithAutoSave(false))
		_, err := s.Generate(ctx, validRequest())
		require.NoError(t, err)

		saved, err := s.SaveAs(filepath.Join(t.TempDir(), "my-image.jpg"))
		require.NoError(t, err)

		got, err := os.ReadFile(saved.Path)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("指定した拡張子はそのまま使う", func(t *testing.T) {
		saver, _ := newSaver(t)
		s, _ := New(succeedWith(pngBytes(t, 4, 4)), saver, WithAutoSave(false))
		_, err := s.Generate(ctx, validRequest())
		require.NoError(t, err)

		target := filepath.Join(t.TempDir(), "my-image.png")
		saved, err := s.SaveAs(target)
		require.NoError(t, err)
		assert.Equal(t, target, saved.Path)
	})
}

func TestStudio_Preview(t *testing.T) {
	ctx := context.Background()
	saver, _ := newSaver(t)
	s, _ := New(succeedWith(pngBytes(t, 64, 32)), saver, WithAutoSave(false))

	_, err := s.Preview(16, 16)
	assert.ErrorIs(t, err, ErrNoImage)

	_, err = s.Generate(ctx, validRequest())
	require.NoError(t, err)

	thumb, err := s.Preview(16, 16)
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 16, cfg.Width)
	assert.Equal(t, 8, cfg.Height)
}

func TestStudio_Models(t *testing.T) {
	saver, _ := newSaver(t)
	s, _ := New(&mockGenerator{models: []string{"flux"}}, saver)

	models, err := s.Models(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"flux"}, models)
}
