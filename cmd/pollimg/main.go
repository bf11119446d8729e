// Command pollimg はプロンプトから画像を生成して保存するコマンドラインツールです。
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"github.com/shouni/pollinations-image-kit/pkg/config"
	"github.com/shouni/pollinations-image-kit/pkg/generator"
	"github.com/shouni/pollinations-image-kit/pkg/logger"
	"github.com/shouni/pollinations-image-kit/pkg/storage"
	"github.com/shouni/pollinations-image-kit/pkg/studio"
)

// Version はビルド時に注入されます。
var Version = "dev"

func main() {
	// .env があれば読み込む
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if opts.showVersion {
		fmt.Fprintln(stdout, Version)
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log, closeLog, err := logger.New(logger.Options{Level: cfg.LogLevel, Dir: cfg.LogDir, Stderr: stderr})
	if err != nil {
		fmt.Fprintf(stderr, "Failed to init logger: %v\n", err)
		return 1
	}
	defer closeLog()

	if !cfg.Loaded {
		log.Error("設定ファイルが見つかりません。既定のパラメータを使用します", "path", cfg.Path)
	}
	opts.applyConfig(cfg)

	httpClient := generator.NewSingleShotClient(cfg.Timeout)
	gen, err := generator.NewPollinationsGenerator(httpClient,
		generator.WithBaseURL(cfg.BaseURL),
		generator.WithLogger(log),
	)
	if err != nil {
		log.Error("ジェネレーターの初期化に失敗しました", "error", err)
		return 1
	}

	saver := storage.NewSaver(afero.NewOsFs(), cfg.OutputDir, storage.WithLogger(log))
	st, err := studio.New(gen, saver, studio.WithAutoSave(!opts.noAutoSave), studio.WithLogger(log))
	if err != nil {
		log.Error("初期化に失敗しました", "error", err)
		return 1
	}

	if opts.listModels {
		return listModels(ctx, st, cfg, log, stdout)
	}
	return generate(ctx, st, saver, opts, log, stdout, stderr)
}

func listModels(ctx context.Context, st *studio.Studio, cfg *config.Config, log *slog.Logger, stdout io.Writer) int {
	models, err := st.Models(ctx)
	if err != nil {
		log.Warn("モデル一覧を取得できませんでした。設定の一覧を表示します", "error", err)
		models = cfg.AvailableModels
	}
	fmt.Fprintln(stdout, "Available Image Models:")
	for _, m := range models {
		fmt.Fprintf(stdout, "- %s\n", m)
	}
	return 0
}

func generate(ctx context.Context, st *studio.Studio, saver *storage.Saver, opts *cliOptions, log *slog.Logger, stdout, stderr io.Writer) int {
	var boxW, boxH int
	if opts.preview != "" {
		var err error
		if boxW, boxH, err = parseBox(opts.previewBox); err != nil {
			fmt.Fprintf(stderr, "入力エラー: %v\n", err)
			return 2
		}
	}

	res, err := st.Generate(ctx, opts.req)
	if err != nil {
		fmt.Fprintf(stderr, "生成失敗: %v\n", err)
		return 1
	}

	status := 0
	switch {
	case res.Saved != nil:
		fmt.Fprintf(stdout, "画像を生成して保存しました: %s (%dx%d, %.2fKB)\n",
			res.Saved.Path, opts.req.Width, opts.req.Height, res.SizeKB())
	case res.AutoSaveErr != nil:
		fmt.Fprintf(stderr, "自動保存に失敗しました: %v\n", res.AutoSaveErr)
	default:
		fmt.Fprintf(stdout, "画像を生成しました (%dx%d, %.2fKB)\n", opts.req.Width, opts.req.Height, res.SizeKB())
	}

	if opts.saveAs != "" {
		saved, err := st.SaveAs(opts.saveAs)
		if err != nil {
			fmt.Fprintf(stderr, "画像の保存に失敗しました: %v\n", err)
			status = 1
		} else {
			fmt.Fprintf(stdout, "画像を保存しました: %s\n", saved.Path)
		}
	}

	if opts.preview != "" {
		path, err := writePreview(st, saver, opts.preview, boxW, boxH)
		if err != nil {
			log.Error("プレビューの作成に失敗しました", "error", err)
			fmt.Fprintf(stderr, "プレビューの作成に失敗しました: %v\n", err)
			status = 1
		} else {
			fmt.Fprintf(stdout, "プレビュー: %s\n", path)
		}
	}

	if res.Saved == nil && opts.saveAs == "" && res.AutoSaveErr != nil {
		status = 1
	}
	return status
}

// writePreview は縮小した JPEG を書き込み、実際に書き込んだパスを返します。
func writePreview(st *studio.Studio, saver *storage.Saver, path string, boxW, boxH int) (string, error) {
	thumb, err := st.Preview(boxW, boxH)
	if err != nil {
		return "", err
	}
	saved, err := saver.Save(thumb, previewPath(path))
	if err != nil {
		return "", err
	}
	return saved.Path, nil
}

// previewPath はプレビューの保存先を JPEG の拡張子にそろえます。
// out.png は out.jpg になり、拡張子がなければ .jpg を付与します。
func previewPath(path string) string {
	ext := filepath.Ext(path)
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return path
	}
	return strings.TrimSuffix(path, ext) + studio.DefaultExt
}
