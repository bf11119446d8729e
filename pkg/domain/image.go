package domain

import (
	"errors"
	"fmt"
	"strings"
)

// 生成サイズの許容範囲です。リモート側の制約に合わせています。
const (
	MinDimension = 256
	MaxDimension = 4096
)

// 利用可能な既定モデルです。
const (
	ModelFlux     = "flux"
	ModelGPTImage = "gptimage"
	ModelKontext  = "kontext"
)

// ErrInvalidRequest は呼び出し側の入力検証に失敗したことを示します。
var ErrInvalidRequest = errors.New("invalid generation request")

// GenerationRequest は単一の画像生成要求です。
// リクエストごとに組み立てられ、永続化はされません。
type GenerationRequest struct {
	Prompt   string
	Width    int
	Height   int
	Seed     int64
	Model    string
	Referrer string // 空の場合はクエリに含めない
	NoLogo   bool
	Enhance  bool
	Private  bool
	Safe     bool
}

// Validate は生成前に呼び出し側が行う入力チェックです。
// Generator 自体はこの検証を行わず、範囲外の値もそのまま送信します。
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("%w: prompt is required", ErrInvalidRequest)
	}
	if !inRange(r.Width) || !inRange(r.Height) {
		return fmt.Errorf("%w: 幅と高さは %d-%d の範囲で指定してください (width=%d, height=%d)",
			ErrInvalidRequest, MinDimension, MaxDimension, r.Width, r.Height)
	}
	return nil
}

func inRange(v int) bool {
	return v >= MinDimension && v <= MaxDimension
}

// ImageResponse は生成された画像データとそのメタデータです。
type ImageResponse struct {
	Data     []byte
	MimeType string
	UsedSeed int64
}

// SavedImage は保存に成功した画像の書き込み先です。
type SavedImage struct {
	Path string
	Size int
}

// DefaultModels は設定ファイルがない場合に選択肢として使うモデル一覧を返します。
func DefaultModels() []string {
	return []string{ModelFlux, ModelGPTImage, ModelKontext}
}
