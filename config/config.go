// Package config defines the settings consumed by the BVH builder and the
// query dispatch layer.
package config

import (
	"bytes"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// The leaf layout names accepted in the configuration.
const (
	LayoutOriented    = "oriented"
	LayoutQuantized8  = "quantized8"
	LayoutQuantized16 = "quantized16"
)

type Config struct {
	LogLevel string  `yaml:"log_level" validate:"omitempty,oneof=debug info notice warning warn error"`
	Leaf     Leaf    `yaml:"leaf"`
	Builder  Builder `yaml:"builder"`
	Query    Query   `yaml:"query"`
}

// Leaf encoding settings.
type Leaf struct {
	// One of oriented, quantized8 or quantized16.
	Layout string `yaml:"layout" validate:"required,oneof=oriented quantized8 quantized16"`

	// The maximum number of primitives per leaf block (M). Leaf blocks
	// hold at most 8 primitives.
	MaxSize int `yaml:"max_size" validate:"gte=1,lte=8"`
}

// Builder settings.
type Builder struct {
	// Records at this depth always become leaves.
	MaxDepth int `yaml:"max_depth" validate:"gte=0,lte=64"`

	// Records with more primitives than this are binned and partitioned
	// in parallel.
	ParallelThreshold int `yaml:"parallel_threshold" validate:"gte=1"`

	// Number of worker threads; 0 selects GOMAXPROCS.
	Workers int `yaml:"workers" validate:"gte=0,lte=1024"`
}

// Query settings.
type Query struct {
	Mode   string `yaml:"mode" validate:"required,oneof=normal stream-coherent stream-incoherent"`
	Widths []int  `yaml:"widths" validate:"required,min=1,dive,oneof=1 4 8 16"`

	// Packet intersectors receive packed lane masks instead of lane vectors.
	Foreign bool `yaml:"foreign"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		LogLevel: "notice",
		Leaf: Leaf{
			Layout:  LayoutOriented,
			MaxSize: 8,
		},
		Builder: Builder{
			MaxDepth:          40,
			ParallelThreshold: 4096,
			Workers:           0,
		},
		Query: Query{
			Mode:   ModeNormal.String(),
			Widths: []int{1, 4, 8, 16},
		},
	}
}

// Load reads a YAML configuration file. Settings missing from the file keep
// their default values. The loaded configuration is validated.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config: reading %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML configuration.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, Invalid("yaml", "document", err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks all settings and returns a ConfigurationError describing
// the first invalid one.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		reason := fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		// Drop the root struct name from the namespace.
		field := fe.Namespace()
		if idx := strings.IndexByte(field, '.'); idx != -1 {
			field = field[idx+1:]
		}
		return Invalid(field, fe.Value(), "failed "+reason)
	}
	return errors.Wrap(err, "config: validation")
}
