// Package config は生成パラメータの既定値と実行時設定を読み込みます。
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/shouni/pollinations-image-kit/pkg/domain"
	"github.com/shouni/pollinations-image-kit/pkg/generator"
	"github.com/shouni/pollinations-image-kit/pkg/storage"
)

// DefaultPath は設定ファイルの既定の場所です。
const DefaultPath = "config.json"

// EnvPrefix は環境変数による上書きで使う接頭辞です。例: POLLIMG_DEFAULT_MODEL
const EnvPrefix = "POLLIMG"

// Config は生成パラメータの既定値と実行時設定を保持します。
type Config struct {
	DefaultModel    string   `mapstructure:"default_model"`
	DefaultWidth    int      `mapstructure:"default_width"`
	DefaultHeight   int      `mapstructure:"default_height"`
	DefaultNoLogo   bool     `mapstructure:"default_nologo"`
	DefaultEnhance  bool     `mapstructure:"default_enhance"`
	DefaultPrivate  bool     `mapstructure:"default_private"`
	DefaultSafe     bool     `mapstructure:"default_safe"`
	AvailableModels []string `mapstructure:"available_models"`

	OutputDir string        `mapstructure:"output_dir"`
	LogDir    string        `mapstructure:"log_dir"`
	LogLevel  string        `mapstructure:"log_level"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`

	// Loaded は設定ファイルを実際に読み込んだかどうかを示します。
	Loaded bool `mapstructure:"-"`
	// Path は読み込みを試みた設定ファイルのパスです。
	Path string `mapstructure:"-"`
}

// Load は JSON の設定ファイルを読み込みます。
// ファイルが存在しない場合はエラーにせず、ハードコードされた既定値で補います。
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	v.SetConfigType("json")
	setDefaults(v)

	loaded, err := loadConfigFile(v, path)
	if err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Loaded = loaded
	cfg.Path = path

	return &cfg, nil
}

// loadConfigFile は設定ファイルを読み込み viper に渡します。ファイルがなければ false を返します。
func loadConfigFile(v *viper.Viper, path string) (bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return false, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return true, nil
}

// setDefaults は設定ファイルがない場合にも使われる既定値を設定します。
func setDefaults(v *viper.Viper) {
	v.SetDefault("default_model", domain.ModelFlux)
	v.SetDefault("default_width", 1024)
	v.SetDefault("default_height", 1024)
	v.SetDefault("default_nologo", true)
	v.SetDefault("default_enhance", false)
	v.SetDefault("default_private", false)
	v.SetDefault("default_safe", true)
	v.SetDefault("available_models", domain.DefaultModels())

	v.SetDefault("output_dir", storage.DefaultDir)
	v.SetDefault("log_dir", "logs")
	v.SetDefault("log_level", "info")
	v.SetDefault("base_url", generator.DefaultBaseURL)
	v.SetDefault("timeout", generator.DefaultTimeout)
}
