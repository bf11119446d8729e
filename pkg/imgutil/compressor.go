package imgutil

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// DefaultQuality はプレビュー生成時の JPEG 品質です。
const DefaultQuality = 85

// CompressToJPEG は画像データ（PNG, GIF, JPEG等）をJPEG形式に圧縮します。
// image.Decodeがサポートするフォーマットに対応しています。
func CompressToJPEG(data []byte, quality int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return encodeJPEG(img, quality)
}

// FitSize はアスペクト比を保ったまま枠内に収まるサイズを返します。
// 元画像より大きくはせず、各辺は最低1ピクセルです。
func FitSize(srcW, srcH, boxW, boxH int) (int, int) {
	if srcW <= 0 || srcH <= 0 {
		return 1, 1
	}
	ratio := min(float64(boxW)/float64(srcW), float64(boxH)/float64(srcH), 1.0)
	w := max(int(float64(srcW)*ratio), 1)
	h := max(int(float64(srcH)*ratio), 1)
	return w, h
}

// Thumbnail は画像を枠内に縮小し、JPEG として返します。
func Thumbnail(data []byte, boxW, boxH, quality int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("プレビュー用の画像デコードに失敗しました: %w", err)
	}

	bounds := src.Bounds()
	w, h := FitSize(bounds.Dx(), bounds.Dy(), boxW, boxH)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	return encodeJPEG(dst, quality)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
