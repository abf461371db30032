// Package config loads the settings of a ground-truth database build from
// defaults, an optional config file, GTDB_* environment variables and
// command-line overrides, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/spf13/viper"

	"github.com/banshee-data/gtdb/internal/blobstore"
	"github.com/banshee-data/gtdb/internal/gtdb"
	"github.com/banshee-data/gtdb/internal/logging"
)

// EnvPrefix prefixes the environment variables read by Load.
const EnvPrefix = "GTDB"

// maxFileSize bounds the config file size.
const maxFileSize = 1 * 1024 * 1024

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full build configuration.
type Config struct {
	Family        string   `mapstructure:"family" validate:"required"`
	DataRoot      string   `mapstructure:"data_root" validate:"required"`
	InfoPath      string   `mapstructure:"info_path" validate:"required"`
	Classes       []string `mapstructure:"classes" validate:"dive,required"`
	DBPath        string   `mapstructure:"db_path"`
	IndexPath     string   `mapstructure:"index_path"`
	AbsolutePaths bool     `mapstructure:"absolute_paths"`
	Virtual       bool     `mapstructure:"virtual"`
	NSweeps       int      `mapstructure:"nsweeps" validate:"min=1,max=100"`
	NumFeatures   int      `mapstructure:"num_features" validate:"min=3,max=64"`
	Sensor        string   `mapstructure:"sensor"`
	Workers       int      `mapstructure:"workers" validate:"min=1,max=1024"`
	MaxFrames     int      `mapstructure:"max_frames" validate:"min=0"`
	Format        string   `mapstructure:"format" validate:"oneof=json zst zstd lz4"`
	ProgressEvery int      `mapstructure:"progress_every" validate:"min=0"`

	Catalog    string `mapstructure:"catalog"`
	ReportPNG  string `mapstructure:"report_png"`
	ReportHTML string `mapstructure:"report_html"`

	Log  LogConfig  `mapstructure:"log"`
	Blob BlobConfig `mapstructure:"blob"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level    string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Encoding string `mapstructure:"encoding" validate:"oneof=console json"`
}

// BlobConfig selects the blob sink.
type BlobConfig struct {
	URL           string  `mapstructure:"url" validate:"omitempty,url"`
	Region        string  `mapstructure:"region"`
	Endpoint      string  `mapstructure:"endpoint"`
	AccessKey     string  `mapstructure:"access_key"`
	SecretKey     string  `mapstructure:"secret_key"`
	UseSSL        bool    `mapstructure:"use_ssl"`
	PutsPerSecond float64 `mapstructure:"puts_per_second" validate:"min=0"`
}

var defaults = map[string]any{
	"family":               "NUSC",
	"data_root":            "",
	"info_path":            "",
	"classes":              []string{},
	"db_path":              "",
	"index_path":           "",
	"absolute_paths":       false,
	"virtual":              false,
	"nsweeps":              1,
	"num_features":         5,
	"sensor":               "",
	"workers":              4,
	"max_frames":           0,
	"format":               "json",
	"progress_every":       gtdb.DefaultProgressEvery,
	"catalog":              "",
	"report_png":           "",
	"report_html":          "",
	"log.level":            "info",
	"log.encoding":         "console",
	"blob.url":             "",
	"blob.region":          "",
	"blob.endpoint":        "",
	"blob.access_key":      "",
	"blob.secret_key":      "",
	"blob.use_ssl":         true,
	"blob.puts_per_second": 0.0,
}

// Load reads the configuration. path may be empty. overrides are applied last
// and keyed like the config file (e.g. "log.level").
func Load(path string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if err := checkFile(path); err != nil {
			return nil, err
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	for key, value := range overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func checkFile(path string) error {
	clean := filepath.Clean(path)
	switch ext := filepath.Ext(clean); ext {
	case ".json", ".yaml", ".yml", ".toml":
	default:
		return fmt.Errorf("config file must be .json, .yaml, .yml or .toml, got %q", ext)
	}
	info, err := os.Stat(clean)
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}
	return nil
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
	translator   ut.Translator
)

func structValidator() (*validator.Validate, ut.Translator) {
	validateOnce.Do(func() {
		validate = validator.New()
		english := en.New()
		uni := ut.New(english, english)
		translator, _ = uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, translator)
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			if name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]; name != "" {
				return name
			}
			return f.Name
		})
	})
	return validate, translator
}

// Validate checks field constraints, the dataset family and that the family
// can name its outputs with these settings.
func (c *Config) Validate() error {
	v, trans := structValidator()
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fe.Translate(trans)
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	family, err := gtdb.LookupFamily(c.Family)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, _, err := c.BuildOptions().Paths(family); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// BuildOptions maps the configuration onto gtdb.BuildOptions. Filesystem,
// logger and openers are left for the caller.
func (c *Config) BuildOptions() gtdb.BuildOptions {
	return gtdb.BuildOptions{
		Family:        c.Family,
		DataRoot:      c.DataRoot,
		InfoPath:      c.InfoPath,
		Classes:       c.Classes,
		DBPath:        c.DBPath,
		IndexPath:     c.IndexPath,
		AbsolutePaths: c.AbsolutePaths,
		Virtual:       c.Virtual,
		NSweeps:       c.NSweeps,
		NumFeatures:   c.NumFeatures,
		Sensor:        c.Sensor,
		Workers:       c.Workers,
		MaxFrames:     c.MaxFrames,
		Format:        c.Format,
		ProgressEvery: c.ProgressEvery,
	}
}

// SummaryOptions maps the configuration onto gtdb.SummaryOptions.
func (c *Config) SummaryOptions() gtdb.SummaryOptions {
	return gtdb.SummaryOptions{
		Family:        c.Family,
		DataRoot:      c.DataRoot,
		InfoPath:      c.InfoPath,
		Classes:       c.Classes,
		NSweeps:       c.NSweeps,
		NumFeatures:   c.NumFeatures,
		MaxFrames:     c.MaxFrames,
		ProgressEvery: c.ProgressEvery,
	}
}

// BlobOptions maps the blob settings onto blobstore.Options.
func (c *Config) BlobOptions() blobstore.Options {
	return blobstore.Options{
		URL:           c.Blob.URL,
		Region:        c.Blob.Region,
		Endpoint:      c.Blob.Endpoint,
		AccessKey:     c.Blob.AccessKey,
		SecretKey:     c.Blob.SecretKey,
		UseSSL:        c.Blob.UseSSL,
		PutsPerSecond: c.Blob.PutsPerSecond,
	}
}

// LogOptions maps the log settings onto logging.Options.
func (c *Config) LogOptions() logging.Options {
	return logging.Options{Level: c.Log.Level, Encoding: c.Log.Encoding}
}

// FlagOverrides returns the values of the flags that were set on fs, keyed
// by the config key named in keys. Flags without a key are ignored.
func FlagOverrides(fs *flag.FlagSet, keys map[string]string) map[string]any {
	out := make(map[string]any)
	fs.Visit(func(f *flag.Flag) {
		key, ok := keys[f.Name]
		if !ok {
			return
		}
		if getter, ok := f.Value.(flag.Getter); ok {
			out[key] = getter.Get()
			return
		}
		out[key] = f.Value.String()
	})
	return out
}
