package ocr

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// japaneseWhitelist restricts recognition to the character set quiz
// questions actually use; stray glyphs outside it are a common source of
// misreads.
const japaneseWhitelist = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz" +
	"あいうえおかきくけこさしすせそたちつてとなにぬねのはひふへほまみむめもやゆよらりるれろわをん" +
	"アイウエオカキクケコサシスセソタチツテトナニヌネノハヒフヘホマミムメモヤユヨラリルレロワヲン" +
	"がぎぐげござじずぜぞだぢづでどばびぶべぼぱぴぷぺぽゃゅょっー" +
	"ガギグゲゴザジズゼゾダヂヅデドバビブベボパピプペポャュョッー" +
	"。、！？（）「」【】〔〕〈〉《》[]{}()<>・…" +
	"①②③④⑤⑥⑦⑧⑨⑩ⅠⅡⅢⅣⅤⅥⅦⅧⅨⅩ" +
	"＋－×÷＝≠≤≥＜＞％‰∞√∴∵∈∋∪∩∧∨　"

// EngineConfig carries the ocr.* configuration section.
type EngineConfig struct {
	Language       string
	PSM            int
	OEM            int
	UseWhitelist   bool
	TessdataPrefix string
	ResizeFactor   float64
	BlurKernel     int
	ThresholdType  string
}

// Engine wraps a tesseract client plus the image preprocessing applied
// before every recognition pass.
type Engine struct {
	client *gosseract.Client
	cfg    EngineConfig
}

// NewEngine creates the OCR engine. Language defaults to jpn, segmentation
// mode to 6 (single uniform block).
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Language == "" {
		cfg.Language = "jpn"
	}
	if cfg.PSM == 0 {
		cfg.PSM = 6
	}
	if cfg.ResizeFactor == 0 {
		cfg.ResizeFactor = 2.0
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
		return nil, fmt.Errorf("failed to set OCR language %q: %w", cfg.Language, err)
	}
	if cfg.OEM != 0 {
		_ = client.SetVariable("tessedit_ocr_engine_mode", strconv.Itoa(cfg.OEM))
	}
	if cfg.Language == "jpn" {
		// Keeps column layouts from collapsing into one long token.
		_ = client.SetVariable("preserve_interword_spaces", "1")
		_ = client.SetVariable("textord_heavy_nr", "1")
		_ = client.SetVariable("textord_min_linesize", "2.5")
	}

	return &Engine{client: client, cfg: cfg}, nil
}

// Close releases the tesseract client.
func (e *Engine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// Recognize preprocesses the image and runs up to three recognition passes
// of decreasing specificity, returning the longest non-blank result after
// cleanup. A pass that errors is skipped, not fatal; all passes failing
// yields an empty string.
func (e *Engine) Recognize(img image.Image) string {
	pngBytes, err := e.preprocess(img)
	if err != nil {
		zap.S().Warnf("OCR preprocessing failed, using raw capture: %v", err)
		pngBytes, err = encodeRaw(img)
		if err != nil {
			zap.S().Errorf("Could not encode capture for OCR: %v", err)
			return ""
		}
	}

	passes := []struct {
		name      string
		psm       gosseract.PageSegMode
		whitelist bool
	}{
		{"full-page", gosseract.PageSegMode(e.cfg.PSM), e.cfg.UseWhitelist},
		{"single-line", gosseract.PSM_SINGLE_LINE, e.cfg.UseWhitelist},
		{"minimal", gosseract.PSM_AUTO, false},
	}

	var results []string
	for _, p := range passes {
		text, err := e.runPass(pngBytes, p.psm, p.whitelist)
		if err != nil {
			zap.S().Warnf("OCR pass %s failed: %v", p.name, err)
			continue
		}
		if strings.TrimSpace(text) != "" {
			results = append(results, text)
			zap.S().Debugf("OCR pass %s produced %d chars", p.name, len(text))
		}
		// The minimal pass only runs when nothing else produced text.
		if p.name == "single-line" && len(results) > 0 {
			break
		}
	}

	if len(results) == 0 {
		zap.S().Warn("All OCR passes produced no text")
		return ""
	}

	best := results[0]
	for _, r := range results[1:] {
		if len(strings.TrimSpace(r)) > len(strings.TrimSpace(best)) {
			best = r
		}
	}
	return CleanText(best)
}

func (e *Engine) runPass(pngBytes []byte, psm gosseract.PageSegMode, whitelist bool) (string, error) {
	if err := e.client.SetPageSegMode(psm); err != nil {
		return "", fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	wl := ""
	if whitelist {
		wl = japaneseWhitelist
	}
	if err := e.client.SetWhitelist(wl); err != nil && whitelist {
		return "", fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := e.client.SetImageFromBytes(pngBytes); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	return e.client.Text()
}

// preprocess converts to grayscale, upscales, denoises and binarizes the
// capture. Screen text is small and anti-aliased; tesseract does markedly
// better on an enlarged binary image.
func (e *Engine) preprocess(img image.Image) ([]byte, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("image conversion failed: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorRGBToGray)

	if e.cfg.ResizeFactor != 1.0 {
		gocv.Resize(gray, &gray, image.Point{}, e.cfg.ResizeFactor, e.cfg.ResizeFactor, gocv.InterpolationCubic)
	}

	if k := e.cfg.BlurKernel; k > 1 {
		if k%2 == 0 {
			k++
		}
		gocv.MedianBlur(gray, &gray, k)
	}

	switch e.cfg.ThresholdType {
	case "otsu":
		gocv.Threshold(gray, &gray, 0, 255, gocv.ThresholdBinary+gocv.ThresholdOtsu)
	case "none":
	default: // adaptive
		gocv.AdaptiveThreshold(gray, &gray, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinary, 11, 2)
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, gray)
	if err != nil {
		return nil, fmt.Errorf("failed to encode preprocessed image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}
