package solver

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"quiz-answer-overlay/src/config"
)

const modelReply = `{"choices":[{"message":{"content":"思考過程: 足し算\n答え: 42"}}],"usage":{"total_tokens":12},"model":"gpt-4"}`

func initSolver(t *testing.T, endpoint string) {
	t.Helper()
	cfgJSON := `{"api": {"api_key": "test-key", "api_endpoint": "` + endpoint + `", "timeout": 5, "max_tokens": 100}}`
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(cfgJSON), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	c, err := config.Load(path)
	if err != nil {
		t.Fatalf("config.Load failed: %v", err)
	}
	Init(c)
}

func TestSolveRetriesTransientErrors(t *testing.T) {
	old := retryDelay
	retryDelay = time.Millisecond
	defer func() { retryDelay = old }()

	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(modelReply))
	}))
	defer server.Close()

	initSolver(t, server.URL)
	result := Solve("1+1は？")
	if !result.Success {
		t.Fatalf("Expected success after transient errors, got %q", result.Err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
	if result.Answer.Answer != "42" {
		t.Errorf("Answer = %q, want 42", result.Answer.Answer)
	}
}

func TestSolveFailsImmediatelyOnAuthError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	initSolver(t, server.URL)
	result := Solve("1+1は？")
	if result.Success {
		t.Fatal("Expected failure on 401")
	}
	if attempts != 1 {
		t.Errorf("Expected no retry on 401, got %d attempts", attempts)
	}
}

func TestSolveRequestShape(t *testing.T) {
	var gotPath, gotKey, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("api-version")
		gotKey = r.Header.Get("api-key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(modelReply))
	}))
	defer server.Close()

	initSolver(t, server.URL)
	if result := Solve("テスト"); !result.Success {
		t.Fatalf("Solve failed: %q", result.Err)
	}
	if gotPath != "/openai/deployments/gpt-4/chat/completions" {
		t.Errorf("Path = %q", gotPath)
	}
	if gotQuery != "2024-02-01" {
		t.Errorf("api-version = %q", gotQuery)
	}
	if gotKey != "test-key" {
		t.Errorf("api-key header = %q", gotKey)
	}
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(modelReply))
	}))
	defer server.Close()

	initSolver(t, server.URL)
	if err := Ping(); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestParseAnswerLabeled(t *testing.T) {
	a := parseAnswer("思考過程: 足し算です\n答え: 42")
	if a.Reasoning != "足し算です" {
		t.Errorf("Reasoning = %q", a.Reasoning)
	}
	if a.Answer != "42" {
		t.Errorf("Answer = %q, want 42", a.Answer)
	}
	if a.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want 0.9", a.Confidence)
	}
}

func TestParseAnswerFirstLabelWins(t *testing.T) {
	a := parseAnswer("答え: 42\n答え: 43")
	if a.Answer != "42" {
		t.Errorf("Answer = %q, want the first labeled value", a.Answer)
	}
}

func TestParseAnswerBareLetterFallback(t *testing.T) {
	a := parseAnswer("よく考えると選択肢を比較して\n\nC\n")
	if a.Answer != "C" {
		t.Errorf("Answer = %q, want C", a.Answer)
	}
	if a.CorrectOption != "C" {
		t.Errorf("CorrectOption = %q, want C", a.CorrectOption)
	}
}

func TestParseAnswerLowercaseOptionUppercased(t *testing.T) {
	a := parseAnswer("答え: 正解は b です")
	if a.CorrectOption != "B" {
		t.Errorf("CorrectOption = %q, want B", a.CorrectOption)
	}
}

func TestParseAnswerLabeledOptionPattern(t *testing.T) {
	// No boundary-delimited single letter, so the labeled pattern
	// has to pick the option out.
	a := parseAnswer("答え: 正解のペア：Bb")
	if a.CorrectOption != "B" {
		t.Errorf("CorrectOption = %q, want B", a.CorrectOption)
	}
}

func TestParseAnswerLegacyLabels(t *testing.T) {
	a := parseAnswer("問題の種類: 数学\n解法・考え方: 順に計算\n正解: A")
	if a.QuestionType != "数学" {
		t.Errorf("QuestionType = %q", a.QuestionType)
	}
	if a.Reasoning != "順に計算" {
		t.Errorf("Reasoning = %q", a.Reasoning)
	}
	if a.CorrectOption != "A" {
		t.Errorf("CorrectOption = %q, want A", a.CorrectOption)
	}
}

func TestParseAnswerWholeResponseFallback(t *testing.T) {
	a := parseAnswer("   \n\n  ")
	if a.Answer != "" {
		t.Errorf("Answer = %q, want empty for blank response", a.Answer)
	}
}

func TestBuildPromptHints(t *testing.T) {
	cases := []struct {
		question string
		hint     string
	}{
		{"この計算の意味は？", "【数学】"},
		{"「ありがとう」の意味は？", "【言語】"},
		{"AならばBである。", "【論理】"},
		{"これはどれですか", ""},
	}
	for _, c := range cases {
		prompt := buildPrompt(c.question)
		if c.hint == "" {
			for _, h := range []string{"【数学】", "【言語】", "【論理】"} {
				if strings.Contains(prompt, h) {
					t.Errorf("Question %q should carry no hint, found %s", c.question, h)
				}
			}
			continue
		}
		if !strings.Contains(prompt, c.hint) {
			t.Errorf("Question %q missing hint %s", c.question, c.hint)
		}
		if !strings.Contains(prompt, c.question) {
			t.Errorf("Prompt does not embed the question %q", c.question)
		}
	}
}
