// Package ocr turns a screen region into cleaned question text.
package ocr

import (
	"bytes"
	"image"
	"image/png"

	"go.uber.org/zap"

	"quiz-answer-overlay/src/config"
	"quiz-answer-overlay/src/detect"
	"quiz-answer-overlay/src/screenshot"
)

// Handler chains capture, optional text-region detection and recognition.
type Handler struct {
	cfg    *config.Manager
	engine *Engine
}

// NewHandler builds the OCR pipeline from the ocr.* configuration section.
func NewHandler(cfg *config.Manager) (*Handler, error) {
	engine, err := NewEngine(EngineConfig{
		Language:       cfg.GetString("ocr.language", "jpn"),
		PSM:            cfg.GetInt("ocr.psm", 6),
		OEM:            cfg.GetInt("ocr.oem", 3),
		UseWhitelist:   cfg.GetBool("ocr.use_whitelist", true),
		TessdataPrefix: cfg.GetString("ocr.tessdata_prefix", ""),
		ResizeFactor:   cfg.GetFloat("ocr.preprocess.resize_factor", 2.0),
		BlurKernel:     cfg.GetInt("ocr.preprocess.blur_kernel", 1),
		ThresholdType:  cfg.GetString("ocr.preprocess.threshold_type", "adaptive"),
	})
	if err != nil {
		return nil, err
	}
	return &Handler{cfg: cfg, engine: engine}, nil
}

// Close releases the underlying engine.
func (h *Handler) Close() error { return h.engine.Close() }

// DefaultRegion reads the configured capture rectangle.
func (h *Handler) DefaultRegion() screenshot.Region {
	return screenshot.Region{
		X:      h.cfg.GetInt("screenshot.region.x", 0),
		Y:      h.cfg.GetInt("screenshot.region.y", 0),
		Width:  h.cfg.GetInt("screenshot.region.width", 800),
		Height: h.cfg.GetInt("screenshot.region.height", 600),
	}
}

// CaptureAndExtract captures the region (or the configured default when
// region is nil), optionally crops to the detected text area and runs
// recognition. A capture failure returns "" without any OCR call; callers
// treat empty as "retry later", not as an error.
func (h *Handler) CaptureAndExtract(region *screenshot.Region) string {
	r := h.DefaultRegion()
	if region != nil {
		r = *region
	}

	img, err := screenshot.CaptureRegion(r)
	if err != nil {
		zap.S().Errorf("Screen capture failed: %v", err)
		return ""
	}

	var cropped image.Image = img
	if h.cfg.GetBool("screenshot.auto_detect", true) {
		if box := detect.TextRegion(img); box != nil {
			cropped = cropImage(img, *box)
		}
	}

	text := h.engine.Recognize(cropped)
	if text != "" {
		zap.S().Infof("OCR extracted %d chars: %s", len([]rune(text)), truncate(text, 100))
	}
	return text
}

// ExtractFromImage runs recognition on a prepared image (used by tests and
// the --test-ocr capability check).
func (h *Handler) ExtractFromImage(img image.Image) string {
	return h.engine.Recognize(img)
}

func cropImage(img *image.RGBA, box image.Rectangle) image.Image {
	// box is origin-normalized relative to the capture.
	abs := box.Add(img.Bounds().Min)
	return img.SubImage(abs)
}

func encodeRaw(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
