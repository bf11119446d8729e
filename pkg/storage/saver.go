package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/shouni/pollinations-image-kit/pkg/domain"
)

const (
	// DefaultDir は自動保存先の既定ディレクトリです。
	DefaultDir = "Images"

	dateLayout = "2006-01-02"
	filePerm   = 0o644
	dirPerm    = 0o755
)

// FileName は YYYY-MM-DD_AI0001.jpg 形式のファイル名を返します。
func FileName(date time.Time, n int) string {
	return fmt.Sprintf("%s_AI%04d.jpg", date.Format(dateLayout), n)
}

// Saver は画像データをファイルシステムに書き込むコンポーネントです。
// 呼び出し間で保持する状態はファイルシステムそのもの以外にありません。
type Saver struct {
	fs      afero.Fs
	baseDir string
	now     func() time.Time
	logger  *slog.Logger
}

// Option は Saver の設定を変更する関数です。
type Option func(*Saver)

// WithClock は自動採番で使う日付の取得元を差し替えます。
func WithClock(now func() time.Time) Option {
	return func(s *Saver) {
		s.now = now
	}
}

// WithLogger はログ出力先を指定します。
func WithLogger(logger *slog.Logger) Option {
	return func(s *Saver) {
		s.logger = logger
	}
}

// NewSaver は Saver を初期化します。fs が nil の場合は OS のファイルシステムを使います。
func NewSaver(fs afero.Fs, baseDir string, opts ...Option) *Saver {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if baseDir == "" {
		baseDir = DefaultDir
	}
	s := &Saver{
		fs:      fs,
		baseDir: baseDir,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// BaseDir は自動保存先のディレクトリを返します。
func (s *Saver) BaseDir() string {
	return s.baseDir
}

// AllocateUniquePath は指定日付の連番ファイル名のうち、まだ存在しない最初のパスを返します。
// ディレクトリがなければ作成します。ファイルシステムに変化がない限り、何度呼んでも同じパスを返します。
// 返したパスは予約されないため、書き込みには Save を使ってください。
func (s *Saver) AllocateUniquePath(date time.Time) (string, error) {
	if err := s.fs.MkdirAll(s.baseDir, dirPerm); err != nil {
		return "", fmt.Errorf("保存先ディレクトリの作成に失敗しました: %w", err)
	}

	for n := 1; ; n++ {
		candidate := filepath.Join(s.baseDir, FileName(date, n))
		exists, err := afero.Exists(s.fs, candidate)
		if err != nil {
			return "", fmt.Errorf("ファイルの存在確認に失敗しました: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
}

// Save は画像データを書き込みます。
// path が空の場合は当日の連番ファイル名を排他的に作成して書き込み、既存ファイルを上書きしません。
// path が指定されている場合はそのパスに上書きで書き込みます。親ディレクトリは作成しません。
// 書き込み途中で失敗したファイルの削除は行いません。
func (s *Saver) Save(data []byte, path string) (*domain.SavedImage, error) {
	var err error
	if path == "" {
		path, err = s.createUnique(data, s.now())
	} else {
		err = afero.WriteFile(s.fs, path, data, filePerm)
	}
	if err != nil {
		s.logger.Error("画像の保存に失敗しました", "path", path, "error", err)
		return nil, fmt.Errorf("画像の保存に失敗しました: %w", err)
	}

	s.logger.Info("画像を保存しました", "path", path, "bytes", len(data))
	return &domain.SavedImage{Path: path, Size: len(data)}, nil
}

// createUnique は存在確認と書き込みを分けず、排他作成に成功した連番で書き込みます。
// 複数の書き込み手が同じ番号を選んでも、どちらか一方は次の番号へ進みます。
func (s *Saver) createUnique(data []byte, date time.Time) (string, error) {
	if err := s.fs.MkdirAll(s.baseDir, dirPerm); err != nil {
		return "", fmt.Errorf("保存先ディレクトリの作成に失敗しました: %w", err)
	}

	for n := 1; ; n++ {
		candidate := filepath.Join(s.baseDir, FileName(date, n))
		f, err := s.fs.OpenFile(candidate, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return candidate, err
		}

		_, werr := f.Write(data)
		cerr := f.Close()
		if werr != nil {
			return candidate, werr
		}
		return candidate, cerr
	}
}
