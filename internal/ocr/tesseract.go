package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/field-overlay-mcp/internal/imaging"
	"github.com/ironsheep/field-overlay-mcp/internal/recognition"
)

// DefaultLanguage is the Tesseract language used when none is configured.
const DefaultLanguage = "eng"

// TesseractConfig configures a Tesseract engine.
type TesseractConfig struct {
	// Language is a Tesseract language code such as "eng". The matching
	// traineddata file must be installed.
	Language string

	// TessdataPrefix overrides the directory holding traineddata files.
	// Empty uses TESSDATA_PREFIX or the library default.
	TessdataPrefix string

	// Preprocess converts frames to contrast-adjusted grayscale before
	// recognition.
	Preprocess bool

	// Contrast is the contrast change used when Preprocess is set.
	Contrast float64

	// MinConfidence drops lines Tesseract is less sure of (0 to 1).
	MinConfidence float64

	// PageSegMode is the Tesseract page segmentation mode. Zero leaves the
	// library default (fully automatic).
	PageSegMode gosseract.PageSegMode
}

// Tesseract recognizes text lines with a local Tesseract installation.
//
// One Tesseract client is kept for the engine's lifetime; calls to Recognize
// are serialized.
type Tesseract struct {
	cfg TesseractConfig

	mu     sync.Mutex
	client *gosseract.Client
}

var _ Engine = (*Tesseract)(nil)

// NewTesseract creates a Tesseract engine. Close releases it.
func NewTesseract(cfg TesseractConfig) (*Tesseract, error) {
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}

	client := gosseract.NewClient()
	if cfg.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(cfg.TessdataPrefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(cfg.Language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}
	if cfg.PageSegMode != 0 {
		if err := client.SetPageSegMode(cfg.PageSegMode); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set PSM: %w", err)
		}
	}

	return &Tesseract{cfg: cfg, client: client}, nil
}

// Close releases the Tesseract client.
func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}

// Version returns the linked Tesseract library version.
func Version() string {
	return gosseract.Version()
}

// Recognize turns img upright, recognizes it line by line and returns the
// lines in upright coordinates. Frame.Width and Frame.Height are the
// dimensions of img as given.
//
// Parameters:
//   - ctx: checked before recognition starts; Tesseract itself cannot be
//     interrupted
//   - img: the frame in sensor orientation
//   - meta: rotation that makes img upright and whether the preview is
//     mirrored
//
// Returns:
//   - recognition.Frame: one TextLine per Tesseract text line (RIL_TEXTLINE),
//     content trimmed, lines below the confidence floor dropped
//   - error: an *EngineError naming the failed step
func (t *Tesseract) Recognize(ctx context.Context, img image.Image, meta FrameMeta) (recognition.Frame, error) {
	if err := ctx.Err(); err != nil {
		return recognition.Frame{}, engineError("recognize", err)
	}

	upright, err := imaging.Orient(img, meta.Rotation)
	if err != nil {
		return recognition.Frame{}, engineError("orient", err)
	}
	if t.cfg.Preprocess {
		upright = imaging.PrepareForOCR(upright, t.cfg.Contrast)
	}

	data, err := imaging.PNGBytes(upright)
	if err != nil {
		return recognition.Frame{}, engineError("encode", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client == nil {
		return recognition.Frame{}, engineError("recognize", fmt.Errorf("engine closed"))
	}
	if err := t.client.SetImageFromBytes(data); err != nil {
		return recognition.Frame{}, engineError("set_image", err)
	}

	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return recognition.Frame{}, engineError("text_lines", err)
	}

	b := img.Bounds()
	return recognition.Frame{
		Lines:    linesFromBoxes(boxes, t.cfg.MinConfidence),
		Width:    b.Dx(),
		Height:   b.Dy(),
		Rotation: meta.Rotation,
		Flipped:  meta.Flipped,
	}, nil
}

// linesFromBoxes converts Tesseract text-line boxes. Tesseract ends each
// line with a newline, which is not part of the content.
func linesFromBoxes(boxes []gosseract.BoundingBox, minConfidence float64) []recognition.TextLine {
	lines := make([]recognition.TextLine, 0, len(boxes))
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" {
			continue
		}
		if box.Confidence/100.0 < minConfidence {
			continue
		}
		lines = append(lines, recognition.LineFromRect(text, recognition.Rect{
			Left:   box.Box.Min.X,
			Top:    box.Box.Min.Y,
			Right:  box.Box.Max.X,
			Bottom: box.Box.Max.Y,
		}))
	}
	return lines
}
