package ocr

import "testing"

func TestCleanTextCollapsesWhitespace(t *testing.T) {
	got := CleanText("1  +  1   は   何")
	if got != "1+1 は 何" {
		t.Errorf("Expected collapsed arithmetic, got %q", got)
	}
}

func TestCleanTextStripsNoiseGlyphs(t *testing.T) {
	got := CleanText("答え|は~2^です`")
	if got != "答えは2です" {
		t.Errorf("Expected noise glyphs removed, got %q", got)
	}
}

func TestCleanTextSubstitutions(t *testing.T) {
	// O and I are folded into digits.
	got := CleanText("1O+I")
	if got != "10+1" {
		t.Errorf("Expected digit substitutions, got %q", got)
	}
}

func TestCleanTextPunctuationSpacing(t *testing.T) {
	got := CleanText("そうです 。これは 、テスト ！")
	if got != "そうです。これは、テスト！" {
		t.Errorf("Expected punctuation spacing normalized, got %q", got)
	}
}

func TestCleanTextArithmeticJoin(t *testing.T) {
	got := CleanText("3 × 7 = 21")
	if got != "3×7=21" {
		t.Errorf("Expected operators joined, got %q", got)
	}
}

func TestCleanTextEmpty(t *testing.T) {
	if got := CleanText(""); got != "" {
		t.Errorf("Expected empty result, got %q", got)
	}
}

func TestCleanTextShortStillReturned(t *testing.T) {
	// Below 2 chars is logged as suspicious but not dropped.
	if got := CleanText("A"); got != "A" {
		t.Errorf("Expected short text returned as-is, got %q", got)
	}
}
