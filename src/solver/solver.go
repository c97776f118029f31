// Package solver answers a question through a hosted chat-completion
// endpoint when the question bank has no match.
package solver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"quiz-answer-overlay/src/config"
)

var (
	cfg        *config.Manager
	httpClient *http.Client
)

const maxAttempts = 3

// Shrunk by tests to keep backoff out of the test runtime.
var retryDelay = time.Second

// Init wires the solver to the loaded configuration. Must be called
// before Solve or Ping.
func Init(c *config.Manager) {
	cfg = c
	timeout := time.Duration(c.GetInt("api.timeout", 30)) * time.Second
	httpClient = &http.Client{Timeout: timeout}
}

// Answer is the structured payload parsed out of the model's free text.
// Confidence is a fixed display value, not a computed metric.
type Answer struct {
	QuestionType  string
	Reasoning     string
	Answer        string
	CorrectOption string
	Confidence    float64
}

// Result is the solver's tagged outcome. Solve never returns a Go
// error; every failure degrades to Success=false with Err set.
type Result struct {
	Success     bool
	Answer      Answer
	RawResponse string
	Model       string
	TotalTokens int
	Err         string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages         []chatMessage `json:"messages"`
	MaxTokens        int           `json:"max_tokens"`
	Temperature      float64       `json:"temperature"`
	TopP             float64       `json:"top_p"`
	FrequencyPenalty float64       `json:"frequency_penalty"`
	PresencePenalty  float64       `json:"presence_penalty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Model string `json:"model"`
}

// Solve asks the model for an answer to the question text.
func Solve(question string) Result {
	if cfg == nil {
		return Result{Err: "solver not initialized"}
	}

	prompt := buildPrompt(question)
	maxTokens := cfg.GetInt("api.max_tokens", 500)

	resp, err := callAPI(prompt, maxTokens)
	if err != nil {
		zap.S().Errorf("Model call failed: %v", err)
		return Result{Err: err.Error()}
	}
	if len(resp.Choices) == 0 {
		return Result{Err: "response has no choices"}
	}

	content := resp.Choices[0].Message.Content
	return Result{
		Success:     true,
		Answer:      parseAnswer(content),
		RawResponse: content,
		Model:       resp.Model,
		TotalTokens: resp.Usage.TotalTokens,
	}
}

// Ping sends a minimal prompt to verify connectivity and credentials.
func Ping() error {
	if cfg == nil {
		return fmt.Errorf("solver not initialized")
	}
	resp, err := callAPI("テスト。「はい」と答えてください。", 50)
	if err != nil {
		return err
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("response has no choices")
	}
	return nil
}

var (
	mathKeywords  = []string{"計算", "数値", "+", "-", "×", "÷", "=", "%", "割合", "確率", "平均"}
	langKeywords  = []string{"意味", "読み方", "漢字", "ひらがな", "カタカナ", "語彙", "文法", "敬語"}
	logicKeywords = []string{"論理", "推論", "条件", "ならば", "すべて", "一部", "関係", "順序"}
)

const promptTemplate = `あなたは日本のSPIテストの専門家です。以下の問題に素早く正確に答えてください。

【重要】簡潔に答えてください。長い説明は不要です。

【回答形式】
思考過程: [簡潔な解法・考え方]
答え: [最終答案]

【問題】
%s`

// buildPrompt appends at most one category hint, math checked first.
func buildPrompt(question string) string {
	prompt := fmt.Sprintf(promptTemplate, question)
	switch {
	case containsAny(question, mathKeywords):
		prompt += "\n\n【数学】計算ミスに注意。"
	case containsAny(question, langKeywords):
		prompt += "\n\n【言語】語彙の意味を正確に。"
	case containsAny(question, logicKeywords):
		prompt += "\n\n【論理】前提条件を整理。"
	}
	return prompt
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// callAPI posts the prompt, retrying transient statuses with backoff.
func callAPI(prompt string, maxTokens int) (*chatResponse, error) {
	endpoint := strings.TrimRight(cfg.GetString("api.api_endpoint", ""), "/")
	deployment := cfg.GetString("api.deployment_name", "gpt-4")
	version := cfg.GetString("api.api_version", "2024-02-01")
	apiKey := cfg.GetString("api.api_key", "")

	reqURL := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		endpoint, deployment, url.QueryEscape(version))

	body, err := json.Marshal(chatRequest{
		Messages:         []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:        maxTokens,
		Temperature:      cfg.GetFloat("api.temperature", 0.3),
		TopP:             0.8,
		FrequencyPenalty: 0.1,
		PresencePenalty:  0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(retryDelay * time.Duration(1<<(attempt-1)))
		}

		req, err := http.NewRequest(http.MethodPost, reqURL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("api-key", apiKey)

		start := time.Now()
		resp, err := httpClient.Do(req)
		if err != nil {
			// Network errors and timeouts are not retried.
			return nil, fmt.Errorf("model request: %w", err)
		}
		zap.S().Debugf("Model responded %d in %v", resp.StatusCode, time.Since(start))

		if resp.StatusCode == http.StatusOK {
			var parsed chatResponse
			err := json.NewDecoder(resp.Body).Decode(&parsed)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("decode response: %w", err)
			}
			return &parsed, nil
		}

		resp.Body.Close()
		if !retryableStatus(resp.StatusCode) {
			return nil, fmt.Errorf("model returned status %d", resp.StatusCode)
		}
		lastErr = fmt.Errorf("model returned status %d", resp.StatusCode)
		zap.S().Warnf("Transient model error (attempt %d/%d): %v", attempt+1, maxAttempts, lastErr)
	}
	return nil, fmt.Errorf("failed after %d attempts: %w", maxAttempts, lastErr)
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

var (
	bareOptionPattern    = regexp.MustCompile(`\b([A-Da-d])\b`)
	labeledOptionPattern = regexp.MustCompile(`[答正解].*[：:]\s*([A-Da-d])`)
)

// Label prefixes scanned in the model output. The last two pairs are
// a legacy response format still seen from older prompt variants.
var labelPrefixes = []struct {
	prefixes []string
	field    func(*Answer) *string
}{
	{[]string{"思考過程:", "思考过程:"}, func(a *Answer) *string { return &a.Reasoning }},
	{[]string{"答え:", "答案:"}, func(a *Answer) *string { return &a.Answer }},
	{[]string{"問題の種類:", "问题类型:"}, func(a *Answer) *string { return &a.QuestionType }},
	{[]string{"解法・考え方:", "解答过程:"}, func(a *Answer) *string { return &a.Reasoning }},
	{[]string{"正解:", "正确答案:"}, func(a *Answer) *string { return &a.CorrectOption }},
}

// parseAnswer extracts the structured answer from the free-text
// response. First match per label wins; with no labeled answer at all,
// the last non-blank line (or the whole trimmed response) is the
// answer. A single option letter is then pulled out of the answer text.
func parseAnswer(text string) Answer {
	answer := Answer{Confidence: 0.9}

	lines := strings.Split(strings.TrimSpace(text), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		for _, lp := range labelPrefixes {
			for _, prefix := range lp.prefixes {
				if !strings.HasPrefix(line, prefix) {
					continue
				}
				field := lp.field(&answer)
				if *field == "" {
					_, value, _ := strings.Cut(line, ":")
					*field = strings.TrimSpace(value)
				}
			}
		}
	}

	if answer.Answer == "" && answer.CorrectOption == "" {
		answer.Answer = lastNonBlank(lines)
		if answer.Answer == "" {
			answer.Answer = strings.TrimSpace(text)
		}
	}

	if answer.CorrectOption == "" {
		if m := bareOptionPattern.FindStringSubmatch(answer.Answer); m != nil {
			answer.CorrectOption = strings.ToUpper(m[1])
		} else if m := labeledOptionPattern.FindStringSubmatch(answer.Answer); m != nil {
			answer.CorrectOption = strings.ToUpper(m[1])
		}
	}
	return answer
}

func lastNonBlank(lines []string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(lines[i]); s != "" {
			return s
		}
	}
	return ""
}
