package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shouni/pollinations-image-kit/pkg/domain"
	"github.com/shouni/pollinations-image-kit/pkg/generator"
	"github.com/shouni/pollinations-image-kit/pkg/imgutil"
	"github.com/shouni/pollinations-image-kit/pkg/storage"
)

// DefaultExt は保存先に拡張子がない場合に付与する拡張子です。
const DefaultExt = ".jpg"

var (
	// ErrBusy は生成中に次の生成が要求された場合に返されます。
	ErrBusy = errors.New("generation already in progress")
	// ErrNoImage は保存やプレビューの対象となる画像がまだない場合に返されます。
	ErrNoImage = errors.New("no image to save")
)

// Result は1回の生成操作の結果です。
// 自動保存の失敗は生成自体の失敗とはせず、AutoSaveErr に格納します。
type Result struct {
	Image       *domain.ImageResponse
	Saved       *domain.SavedImage
	AutoSaveErr error
}

// SizeKB は画像データのサイズを KB 単位で返します。
func (r *Result) SizeKB() float64 {
	if r == nil || r.Image == nil {
		return 0
	}
	return float64(len(r.Image.Data)) / 1024
}

// Studio は生成、自動保存、名前を付けて保存、プレビューの一連の操作をまとめます。
// 同時に実行できる生成は1件だけです。
type Studio struct {
	gen      generator.ImageGenerator
	saver    *storage.Saver
	autoSave bool
	logger   *slog.Logger

	inflight sync.Mutex

	mu      sync.Mutex
	current *domain.ImageResponse
}

// Option は Studio の設定を変更する関数です。
type Option func(*Studio)

// WithAutoSave は生成成功後の自動保存を切り替えます。既定は有効です。
func WithAutoSave(enabled bool) Option {
	return func(s *Studio) {
		s.autoSave = enabled
	}
}

// WithLogger はログ出力先を指定します。
func WithLogger(logger *slog.Logger) Option {
	return func(s *Studio) {
		s.logger = logger
	}
}

// New は依存関係を注入して Studio を初期化します。
func New(gen generator.ImageGenerator, saver *storage.Saver, opts ...Option) (*Studio, error) {
	if gen == nil {
		return nil, fmt.Errorf("gen (generator.ImageGenerator) is required")
	}
	if saver == nil {
		return nil, fmt.Errorf("saver (*storage.Saver) is required")
	}

	s := &Studio{
		gen:      gen,
		saver:    saver,
		autoSave: true,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Generate は入力を検証してから画像を生成し、成功すれば自動保存します。
func (s *Studio) Generate(ctx context.Context, req domain.GenerationRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		s.logger.ErrorContext(ctx, "入力検証に失敗しました", "error", err)
		return nil, err
	}

	if !s.inflight.TryLock() {
		return nil, ErrBusy
	}
	defer s.inflight.Unlock()

	img, err := s.gen.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.current = img
	s.mu.Unlock()

	res := &Result{Image: img}
	if s.autoSave {
		saved, err := s.saver.Save(img.Data, "")
		if err != nil {
			s.logger.ErrorContext(ctx, "自動保存に失敗しました", "error", err)
			res.AutoSaveErr = err
		} else {
			res.Saved = saved
		}
	}

	s.logger.InfoContext(ctx, "画像生成が完了しました",
		"width", req.Width,
		"height", req.Height,
		"size_kb", fmt.Sprintf("%.2f", res.SizeKB()),
		"auto_saved", res.Saved != nil,
	)
	return res, nil
}

// Current は直近に生成した画像を返します。
func (s *Studio) Current() *domain.ImageResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SaveAs は直近に生成した画像を指定パスに保存します。拡張子がなければ .jpg を付与します。
// 保存先が .jpg / .jpeg で画像が JPEG 以外の場合は JPEG に変換してから書き込みます。
func (s *Studio) SaveAs(path string) (*domain.SavedImage, error) {
	img := s.Current()
	if img == nil {
		return nil, ErrNoImage
	}
	if path == "" {
		return nil, fmt.Errorf("save path is required")
	}
	if filepath.Ext(path) == "" {
		path += DefaultExt
	}
	return s.saver.Save(s.encodeFor(path, img), path)
}

// encodeFor は保存先の拡張子に合わせたバイト列を返します。
// 変換できない形式は元のバイト列のまま保存します。
func (s *Studio) encodeFor(path string, img *domain.ImageResponse) []byte {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
	default:
		return img.Data
	}
	if img.MimeType == "image/jpeg" {
		return img.Data
	}

	jpg, err := imgutil.CompressToJPEG(img.Data, imgutil.DefaultQuality)
	if err != nil {
		s.logger.Warn("JPEG への変換に失敗したため元の形式のまま保存します",
			"path", path, "mime_type", img.MimeType, "error", err)
		return img.Data
	}
	return jpg
}

// Preview は直近に生成した画像を枠内に縮小した JPEG を返します。
func (s *Studio) Preview(boxW, boxH int) ([]byte, error) {
	img := s.Current()
	if img == nil {
		return nil, ErrNoImage
	}
	return imgutil.Thumbnail(img.Data, boxW, boxH, imgutil.DefaultQuality)
}

// Models は利用可能なモデル一覧を取得します。
func (s *Studio) Models(ctx context.Context) ([]string, error) {
	return s.gen.ListModels(ctx)
}
