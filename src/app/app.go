// Package app wires capture, lookup, solving and display into the one
// linear pipeline behind the hotkey trigger.
package app

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"quiz-answer-overlay/src/answer"
	"quiz-answer-overlay/src/bank"
	"quiz-answer-overlay/src/config"
	"quiz-answer-overlay/src/screenshot"
	"quiz-answer-overlay/src/solver"
	"quiz-answer-overlay/src/stats"
	"quiz-answer-overlay/src/worker"
)

// Extractor produces the cleaned question text for one trigger.
type Extractor interface {
	CaptureAndExtract(region *screenshot.Region) string
}

// QuestionBank is the lookup side of the spreadsheet bank.
type QuestionBank interface {
	Search(question string) []bank.Match
	AddQuestion(sheet, question string, options []string, correct string) error
	Reload() error
}

// Display renders payloads and progress messages.
type Display interface {
	Display(p answer.Payload)
	ShowStatus(msg string)
}

// SolveFunc is the model fallback.
type SolveFunc func(question string) solver.Result

// App owns the pipeline lifecycle and the usage counters.
type App struct {
	cfg       *config.Manager
	extractor Extractor
	bank      QuestionBank
	solve     SolveFunc
	display   Display
	copyText  func(string)

	counters *stats.Counters
	guard    *worker.Guard
}

func New(cfg *config.Manager, extractor Extractor, qbank QuestionBank, solve SolveFunc, display Display) *App {
	return &App{
		cfg:       cfg,
		extractor: extractor,
		bank:      qbank,
		solve:     solve,
		display:   display,
		counters:  stats.New(),
		guard:     worker.NewGuard(),
	}
}

// SetClipboard installs the answer-copy hook. Optional; without it
// answers are display-only.
func (a *App) SetClipboard(copyText func(string)) {
	a.copyText = copyText
}

// HandleTrigger runs one pipeline pass unless one is already in
// flight, in which case the trigger is dropped with a status note.
func (a *App) HandleTrigger() {
	if !a.guard.Submit(a.runPipeline) {
		a.display.ShowStatus("处理中，请稍候...")
	}
}

// runPipeline is capture → lookup → model fallback → display. It never
// lets a failure escape; every path ends in a displayed payload.
func (a *App) runPipeline() {
	a.counters.Request()

	defer func() {
		if r := recover(); r != nil {
			zap.S().Errorf("Pipeline panic: %v", r)
			a.counters.Failure()
			a.display.Display(answer.Failure{Message: fmt.Sprintf("处理异常: %v", r)})
		}
	}()

	a.display.ShowStatus("正在识别题目...")
	question := a.extractor.CaptureAndExtract(nil)
	if len([]rune(strings.TrimSpace(question))) < 3 {
		a.fail("OCR识别失败或文本过短")
		return
	}
	zap.S().Infof("OCR result: %s", truncate(question, 100))

	a.display.ShowStatus("正在查询题库...")
	if matches := a.bank.Search(question); len(matches) > 0 {
		best := matches[0]
		a.counters.BankMatch()
		a.counters.Success()
		zap.S().Infof("Bank match, score %.2f (%s)", best.Score, best.Method)
		a.deliver(answer.BankMatch{Match: best})
		return
	}

	a.display.ShowStatus("正在调用AI解答...")
	a.counters.ModelCall()
	result := a.solve(question)
	if !result.Success {
		a.fail("API调用失败: " + result.Err)
		return
	}
	a.counters.Success()
	a.deliver(answer.ModelAnswer{Answer: result.Answer})
	a.saveModelAnswer(question, result.Answer)
}

func (a *App) deliver(p answer.Payload) {
	a.display.Display(p)
	if a.copyText != nil {
		if text := p.ClipboardText(); text != "" {
			a.copyText(text)
		}
	}
}

func (a *App) fail(msg string) {
	a.counters.Failure()
	zap.S().Error(msg)
	a.display.Display(answer.Failure{Message: msg})
}

// saveModelAnswer appends a solved question to the bank when
// excel.save_model_answers is on and a target sheet is configured.
func (a *App) saveModelAnswer(question string, ans solver.Answer) {
	if !a.cfg.GetBool("excel.save_model_answers", false) {
		return
	}
	sheet := a.cfg.GetString("excel.model_answer_sheet", "")
	if sheet == "" {
		return
	}
	// Free-text answers are not worth a bank row; only lettered
	// answers can be matched against options on a later lookup.
	if ans.CorrectOption == "" {
		zap.S().Debug("Model answer had no option letter, not saved")
		return
	}
	if err := a.bank.AddQuestion(sheet, question, nil, ans.CorrectOption); err != nil {
		zap.S().Warnf("Failed to save model answer: %v", err)
	}
}

// HandleReload re-reads configuration and the question bank.
func (a *App) HandleReload() {
	if err := a.cfg.Reload(); err != nil {
		a.display.ShowStatus("配置重新加载失败")
		zap.S().Errorf("Config reload failed: %v", err)
		return
	}
	if err := a.bank.Reload(); err != nil {
		a.display.ShowStatus("题库重新加载失败")
		zap.S().Errorf("Bank reload failed: %v", err)
		return
	}
	a.display.ShowStatus("配置已重新加载")
	zap.S().Info("Configuration and bank reloaded")
}

// StatsLine formats the pipeline counters for the status line.
func (a *App) StatsLine() string {
	s := a.counters.Snapshot()
	return fmt.Sprintf("请求 %d | 题库 %d | AI %d | 成功率 %.1f%%",
		s.TotalRequests, s.BankMatches, s.ModelCalls, s.SuccessRate())
}

// HandleStats pushes a one-line usage summary to the status line.
func (a *App) HandleStats() {
	a.display.ShowStatus(a.StatsLine())
}

// Snapshot exposes the counters for the exit report and manual mode.
func (a *App) Snapshot() stats.Snapshot {
	return a.counters.Snapshot()
}

// Close drains the in-flight pipeline pass, if any.
func (a *App) Close() {
	a.guard.Close()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
