package ocr

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Glyphs tesseract invents on noisy captures.
var noiseGlyphs = []string{"|", "_", "~", "^", "`", "¢", "£", "¥", "©", "®", "™"}

// Frequent misrecognitions in mixed digit/kana text.
var substitutions = [][2]string{
	{"O", "0"},
	{"l", "1"},
	{"I", "1"},
	{"…", "..."},
	{"―", "—"},
}

var (
	arithmeticSpacing = regexp.MustCompile(`(\d)\s*([+\-×÷=])\s*(\d)`)
	punctuationSpace  = regexp.MustCompile(`\s+([。、！？：；])`)
	multiSpace        = regexp.MustCompile(`\s+`)
)

var bracketSpacing = strings.NewReplacer(
	" 。", "。",
	" 、", "、",
	" ！", "！",
	" ？", "？",
	"( ", "（",
	" )", "）",
	"[ ", "「",
	" ]", "」",
	"{ ", "【",
	" }", "】",
)

// CleanText normalizes raw OCR output: whitespace collapse, noise glyph
// removal, the misrecognition substitution table, and punctuation spacing.
// Results shorter than 2 characters are logged as suspicious but still
// returned.
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	text = strings.Join(strings.Fields(text), " ")

	for _, g := range noiseGlyphs {
		text = strings.ReplaceAll(text, g, "")
	}
	for _, sub := range substitutions {
		text = strings.ReplaceAll(text, sub[0], sub[1])
	}

	text = bracketSpacing.Replace(text)
	// The match consumes its trailing digit, so chained expressions like
	// "3 × 7 = 21" need repeated passes to join every operator.
	for {
		joined := arithmeticSpacing.ReplaceAllString(text, "$1$2$3")
		if joined == text {
			break
		}
		text = joined
	}
	text = punctuationSpace.ReplaceAllString(text, "$1")
	text = multiSpace.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	if len([]rune(text)) < 2 {
		zap.S().Warnf("OCR text suspiciously short: %q", text)
	}
	return text
}
