// Package answer defines the tagged result payloads that flow from the
// pipeline to the overlay and clipboard.
package answer

import (
	"fmt"
	"sort"
	"strings"

	"quiz-answer-overlay/src/bank"
	"quiz-answer-overlay/src/solver"
)

// Payload is one displayable pipeline outcome.
type Payload interface {
	// Source tags the payload origin: "excel", "api" or "error".
	Source() string
	// Lines renders the payload as plain display text, one line per entry.
	Lines() []string
	// ClipboardText is the short form put on the clipboard.
	ClipboardText() string
}

const separator = "--------------------"

// BankMatch presents the best question-bank hit.
type BankMatch struct {
	Match bank.Match
}

func (BankMatch) Source() string { return "excel" }

func (p BankMatch) Lines() []string {
	lines := []string{
		"📚 题库匹配",
		fmt.Sprintf("匹配度: %.1f%%", p.Match.Score*100),
		separator,
	}
	if len(p.Match.Answer.Options) > 0 {
		lines = append(lines, "选项:")
		for _, label := range sortedLabels(p.Match.Answer.Options) {
			lines = append(lines, fmt.Sprintf("  %s. %s", label, p.Match.Answer.Options[label]))
		}
		lines = append(lines, "")
	}
	lines = append(lines, fmt.Sprintf("答案: %s", p.Match.Answer.CorrectAnswer))
	if p.Match.Answer.AnswerText != "" {
		lines = append(lines, fmt.Sprintf("解释: %s", p.Match.Answer.AnswerText))
	}
	return lines
}

func (p BankMatch) ClipboardText() string {
	if p.Match.Answer.AnswerText != "" {
		return p.Match.Answer.AnswerText
	}
	return p.Match.Answer.CorrectAnswer
}

// ModelAnswer presents a successful solver result.
type ModelAnswer struct {
	Answer solver.Answer
}

func (ModelAnswer) Source() string { return "api" }

func (p ModelAnswer) Lines() []string {
	lines := []string{"🤖 AI解答", separator}
	if p.Answer.QuestionType != "" {
		lines = append(lines, fmt.Sprintf("类型: %s", p.Answer.QuestionType))
	}
	if p.Answer.Reasoning != "" {
		lines = append(lines, fmt.Sprintf("解法: %s", p.Answer.Reasoning))
	}
	lines = append(lines, fmt.Sprintf("答案: %s", p.Answer.Answer))
	if p.Answer.CorrectOption != "" {
		lines = append(lines, fmt.Sprintf("选项: %s", p.Answer.CorrectOption))
	}
	return lines
}

func (p ModelAnswer) ClipboardText() string {
	if p.Answer.CorrectOption != "" {
		return p.Answer.CorrectOption
	}
	return p.Answer.Answer
}

// Failure presents a short user-visible error message.
type Failure struct {
	Message string
}

func (Failure) Source() string { return "error" }

func (p Failure) Lines() []string {
	return []string{"❌ 处理失败", separator, p.Message}
}

func (p Failure) ClipboardText() string { return "" }

// Render joins a payload's lines into the overlay text block.
func Render(p Payload) string {
	return strings.Join(p.Lines(), "\n")
}

func sortedLabels(options map[string]string) []string {
	labels := make([]string, 0, len(options))
	for label := range options {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
