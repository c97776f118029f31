package answer

import (
	"strings"
	"testing"

	"quiz-answer-overlay/src/bank"
	"quiz-answer-overlay/src/solver"
)

func TestBankMatchLines(t *testing.T) {
	p := BankMatch{Match: bank.Match{
		Score:  1.0,
		Method: "exact",
		Answer: bank.AnswerInfo{
			Options:       map[string]string{"A": "1", "B": "2", "C": "3"},
			CorrectAnswer: "B",
			AnswerText:    "2",
		},
	}}

	text := Render(p)
	for _, want := range []string{"题库匹配", "匹配度: 100.0%", "  A. 1", "  B. 2", "  C. 3", "答案: B", "解释: 2"} {
		if !strings.Contains(text, want) {
			t.Errorf("Rendered text missing %q:\n%s", want, text)
		}
	}

	// Option order must be stable across renders.
	if Render(p) != text {
		t.Error("Rendering is not deterministic")
	}

	if p.ClipboardText() != "2" {
		t.Errorf("ClipboardText = %q, want resolved answer text", p.ClipboardText())
	}
}

func TestModelAnswerLines(t *testing.T) {
	p := ModelAnswer{Answer: solver.Answer{
		Reasoning:     "順に計算",
		Answer:        "42",
		CorrectOption: "C",
		Confidence:    0.9,
	}}

	text := Render(p)
	for _, want := range []string{"AI解答", "解法: 順に計算", "答案: 42", "选项: C"} {
		if !strings.Contains(text, want) {
			t.Errorf("Rendered text missing %q:\n%s", want, text)
		}
	}
	if p.ClipboardText() != "C" {
		t.Errorf("ClipboardText = %q, want option letter", p.ClipboardText())
	}
}

func TestModelAnswerClipboardFallsBackToAnswer(t *testing.T) {
	p := ModelAnswer{Answer: solver.Answer{Answer: "東京"}}
	if p.ClipboardText() != "東京" {
		t.Errorf("ClipboardText = %q, want answer text", p.ClipboardText())
	}
}

func TestFailureLines(t *testing.T) {
	p := Failure{Message: "OCR识别失败或文本过短"}
	text := Render(p)
	if !strings.Contains(text, "OCR识别失败或文本过短") {
		t.Errorf("Rendered text missing message:\n%s", text)
	}
	if p.Source() != "error" {
		t.Errorf("Source = %q, want error", p.Source())
	}
	if p.ClipboardText() != "" {
		t.Errorf("Failure must not populate the clipboard, got %q", p.ClipboardText())
	}
}
