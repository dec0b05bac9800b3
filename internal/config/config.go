package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ironsheep/field-overlay-mcp/internal/imaging"
	"github.com/ironsheep/field-overlay-mcp/internal/matcher"
	"github.com/ironsheep/field-overlay-mcp/internal/overlay"
)

// DefaultEnvFile is loaded by Load when present.
const DefaultEnvFile = ".env"

// ErrInvalid wraps every configuration validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the process configuration, read from the environment.
type Config struct {
	LogLevel string

	// Labels is the ordered label list; it is also the draw order.
	Labels   []matcher.Label
	TieBreak matcher.TieBreak

	// SurfaceWidth and SurfaceHeight size the drawing surface. Zero uses
	// the source dimensions.
	SurfaceWidth  float64
	SurfaceHeight float64

	// Flipped marks the preview as mirrored (front camera) for frames that
	// do not say otherwise.
	Flipped bool

	StrokeWidth float64
	TextSize    float64

	FeedAddr string

	Language       string
	TessdataPrefix string
	Preprocess     bool
	Contrast       float64
	MinConfidence  float64
}

// Load reads an optional .env file from the working directory and then
// the environment. Variables already set in the environment win over the
// file.
func Load() (*Config, error) {
	return LoadFile(DefaultEnvFile)
}

// LoadFile is Load with an explicit env file. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel:       getEnv("OVERLAY_LOG_LEVEL", "info"),
		SurfaceWidth:   getEnvAsFloat("OVERLAY_SURFACE_WIDTH", 0),
		SurfaceHeight:  getEnvAsFloat("OVERLAY_SURFACE_HEIGHT", 0),
		Flipped:        getEnvAsBool("OVERLAY_FLIPPED", false),
		StrokeWidth:    getEnvAsFloat("OVERLAY_STROKE_WIDTH", overlay.DefaultStrokeWidth),
		TextSize:       getEnvAsFloat("OVERLAY_TEXT_SIZE", overlay.DefaultTextSize),
		FeedAddr:       getEnv("OVERLAY_FEED_ADDR", ":8765"),
		Language:       getEnv("OVERLAY_LANGUAGE", "eng"),
		TessdataPrefix: getEnv("TESSDATA_PREFIX", ""),
		Preprocess:     getEnvAsBool("OVERLAY_PREPROCESS", true),
		Contrast:       getEnvAsFloat("OVERLAY_CONTRAST", imaging.DefaultContrast),
		MinConfidence:  getEnvAsFloat("OVERLAY_MIN_CONFIDENCE", 0),
	}

	labels := matcher.DefaultLabels()
	if spec := getEnv("OVERLAY_LABELS", ""); spec != "" {
		var err error
		if labels, err = matcher.ParseLabels(spec); err != nil {
			return nil, fmt.Errorf("%w: OVERLAY_LABELS: %w", ErrInvalid, err)
		}
	}
	cfg.Labels = labels

	tb, err := matcher.ParseTieBreak(getEnv("OVERLAY_TIE_BREAK", "first"))
	if err != nil {
		return nil, fmt.Errorf("%w: OVERLAY_TIE_BREAK: %w", ErrInvalid, err)
	}
	cfg.TieBreak = tb

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.SurfaceWidth < 0 || c.SurfaceHeight < 0:
		return fmt.Errorf("%w: surface size %gx%g", ErrInvalid, c.SurfaceWidth, c.SurfaceHeight)
	case c.StrokeWidth <= 0:
		return fmt.Errorf("%w: stroke width %g", ErrInvalid, c.StrokeWidth)
	case c.TextSize <= 0:
		return fmt.Errorf("%w: text size %g", ErrInvalid, c.TextSize)
	case c.Contrast < -1 || c.Contrast > 1:
		return fmt.Errorf("%w: contrast %g (want -1 to 1)", ErrInvalid, c.Contrast)
	case c.MinConfidence < 0 || c.MinConfidence > 1:
		return fmt.Errorf("%w: min confidence %g (want 0 to 1)", ErrInvalid, c.MinConfidence)
	case len(c.Labels) == 0:
		return fmt.Errorf("%w: no labels", ErrInvalid)
	}
	return nil
}

// Style returns the renderer style for the configured dimensions.
func (c *Config) Style() overlay.Style {
	s := overlay.DefaultStyle()
	s.StrokeWidth = c.StrokeWidth
	s.TextSize = c.TextSize
	return s
}

// Matcher returns a matcher for the configured labels and tie-break policy.
func (c *Config) Matcher() *matcher.Matcher {
	return matcher.New(c.Labels, matcher.WithTieBreak(c.TieBreak))
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := getEnv(key, ""); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := getEnv(key, ""); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
