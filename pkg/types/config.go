package types

import (
	"fmt"
	"time"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
)

// HTTPConfig holds shared HTTP settings used by every network call.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`

	// UserAgent is the User-Agent header sent with every request. The PLANTS
	// service rejects obvious non-browser agents on some endpoints.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent" validate:"required"`
}

// HarvestConfig holds settings for a harvest run.
type HarvestConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// APIBase is the PLANTS services API root (must end with a slash).
	APIBase string `json:"api_base" yaml:"api_base" mapstructure:"api_base" validate:"required,url,endswith=/"`

	// AssetBase is the host that serves image files by relative path.
	AssetBase string `json:"asset_base" yaml:"asset_base" mapstructure:"asset_base" validate:"required,url"`

	// OutputDir is the base directory; each symbol gets its own subdirectory.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir" validate:"required"`

	// SymbolColumn is the header name of the symbol column in the input list.
	SymbolColumn string `json:"symbol_column" yaml:"symbol_column" mapstructure:"symbol_column" validate:"required"`

	// Delay is the fixed throttle inserted between consecutive symbols.
	Delay time.Duration `json:"delay" yaml:"delay" mapstructure:"delay" validate:"gte=0"`

	// JournalPath is an optional SQLite file recording per-symbol outcomes.
	JournalPath string `json:"journal_path,omitempty" yaml:"journal_path,omitempty" mapstructure:"journal_path"`
}

const (
	DefaultAPIBase      = "https://plantsservices.sc.egov.usda.gov/api/"
	DefaultAssetBase    = "https://plants.sc.egov.usda.gov"
	DefaultOutputDir    = "output"
	DefaultSymbolColumn = "symbol"
	DefaultDelay        = 1 * time.Second
	DefaultTimeout      = 60 * time.Second
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

// DefaultHarvestConfig returns the configuration used when neither flags nor
// the config file set a value.
func DefaultHarvestConfig() HarvestConfig {
	return HarvestConfig{
		HTTPConfig: HTTPConfig{
			Timeout:   DefaultTimeout,
			UserAgent: DefaultUserAgent,
		},
		APIBase:      DefaultAPIBase,
		AssetBase:    DefaultAssetBase,
		OutputDir:    DefaultOutputDir,
		SymbolColumn: DefaultSymbolColumn,
		Delay:        DefaultDelay,
	}
}

// WithDefaults fills every zero-valued field of c from DefaultHarvestConfig.
// A zero Delay is kept as the default; callers wanting no throttle set it
// after this call.
func (c HarvestConfig) WithDefaults() (HarvestConfig, error) {
	out := c
	if err := mergo.Merge(&out, DefaultHarvestConfig()); err != nil {
		return c, fmt.Errorf("merging config defaults: %w", err)
	}
	return out, nil
}

var validate = validator.New()

// Validate checks field constraints declared in the struct tags.
func (c HarvestConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
