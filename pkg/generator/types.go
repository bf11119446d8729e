package generator

import (
	"errors"
	"time"
)

const (
	DefaultBaseURL = "https://image.pollinations.ai"
	DefaultTimeout = 300 * time.Second

	promptPath = "/prompt/"
	modelsPath = "/models"
)

var (
	// ErrEmptyResponse は 2xx 応答の本文が空だった場合に返されます。
	ErrEmptyResponse = errors.New("empty response body")
	// ErrNotImage は 2xx 応答の本文が画像として判定できなかった場合に返されます。
	ErrNotImage = errors.New("response is not an image")
)
