package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/shouni/pollinations-image-kit/pkg/config"
	"github.com/shouni/pollinations-image-kit/pkg/domain"
)

// defaultSeed は元の入力フォームの初期値です。
const defaultSeed = 42

type cliOptions struct {
	req domain.GenerationRequest

	configPath  string
	saveAs      string
	preview     string
	previewBox  string
	noAutoSave  bool
	listModels  bool
	showVersion bool

	flags *pflag.FlagSet
}

func parseFlags(args []string, stderr io.Writer) (*cliOptions, error) {
	opts := &cliOptions{}
	fs := pflag.NewFlagSet("pollimg", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVarP(&opts.req.Prompt, "prompt", "p", "", "image description")
	fs.IntVar(&opts.req.Width, "width", 1024, "image width (256-4096)")
	fs.IntVar(&opts.req.Height, "height", 1024, "image height (256-4096)")
	fs.Int64Var(&opts.req.Seed, "seed", defaultSeed, "random seed")
	fs.StringVarP(&opts.req.Model, "model", "m", domain.ModelFlux, "model name")
	fs.StringVar(&opts.req.Referrer, "referrer", "", "optional referrer passed to the service")
	fs.BoolVar(&opts.req.NoLogo, "nologo", true, "remove the watermark")
	fs.BoolVar(&opts.req.Enhance, "enhance", false, "let the service enhance the prompt")
	fs.BoolVar(&opts.req.Private, "private", false, "keep the image out of the public feed")
	fs.BoolVar(&opts.req.Safe, "safe", true, "enable the safety filter")

	fs.StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "path to config.json")
	fs.StringVarP(&opts.saveAs, "save-as", "o", "", "also save the image to this path (.jpg or .png)")
	fs.StringVar(&opts.preview, "preview", "", "write a scaled preview JPEG to this path")
	fs.StringVar(&opts.previewBox, "preview-size", "512x512", "preview bounding box WxH")
	fs.BoolVar(&opts.noAutoSave, "no-autosave", false, "skip the automatic save to the output directory")
	fs.BoolVar(&opts.listModels, "list-models", false, "list the models offered by the service and exit")
	fs.BoolVar(&opts.showVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.req.Prompt == "" && fs.NArg() > 0 {
		opts.req.Prompt = strings.Join(fs.Args(), " ")
	}
	opts.flags = fs
	return opts, nil
}

// applyConfig はコマンドラインで明示されなかった項目に設定ファイルの既定値を適用します。
func (o *cliOptions) applyConfig(cfg *config.Config) {
	changed := o.flags.Changed
	if !changed("model") {
		o.req.Model = cfg.DefaultModel
	}
	if !changed("width") {
		o.req.Width = cfg.DefaultWidth
	}
	if !changed("height") {
		o.req.Height = cfg.DefaultHeight
	}
	if !changed("nologo") {
		o.req.NoLogo = cfg.DefaultNoLogo
	}
	if !changed("enhance") {
		o.req.Enhance = cfg.DefaultEnhance
	}
	if !changed("private") {
		o.req.Private = cfg.DefaultPrivate
	}
	if !changed("safe") {
		o.req.Safe = cfg.DefaultSafe
	}
}

// parseBox は "WxH" 形式の文字列を幅と高さに分解します。
func parseBox(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid preview size %q: want WxH", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil || w <= 0 {
		return 0, 0, fmt.Errorf("invalid preview width %q", ws)
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h <= 0 {
		return 0, 0, fmt.Errorf("invalid preview height %q", hs)
	}
	return w, h, nil
}
