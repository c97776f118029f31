package bank

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"quiz-answer-overlay/src/config"
)

const mathSheet = "数学问题"

func writeWorkbook(t *testing.T, path string) {
	t.Helper()
	f := excelize.NewFile()
	if _, err := f.NewSheet(mathSheet); err != nil {
		t.Fatalf("NewSheet failed: %v", err)
	}
	rows := [][]interface{}{
		{"A", "B", "C", "D", "E", "F"},
		{"1+1等于多少？", "1", "2", "3", "4", "B"},
		{"2*3等于多少？", "5", "6", "7", "8", "B"},
		{"10除以2等于多少？", "4", "5", "6", "7", "C"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("CoordinatesToCellName failed: %v", err)
		}
		if err := f.SetSheetRow(mathSheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow failed: %v", err)
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		t.Fatalf("DeleteSheet failed: %v", err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func newTestBank(t *testing.T) *Bank {
	t.Helper()
	dir := t.TempDir()
	xlsxPath := filepath.Join(dir, "questions.xlsx")
	writeWorkbook(t, xlsxPath)

	cfgJSON := `{
		"excel": {
			"file_path": ` + jsonString(xlsxPath) + `,
			"fuzzy_match": {"threshold": 0.8, "max_results": 10},
			"sheets_config": {
				"数学问题": {
					"question_column": "A",
					"answer_columns": ["B", "C", "D", "E"],
					"correct_answer_column": "F"
				}
			}
		}
	}`
	cfgPath := filepath.Join(dir, "config.json")
	if err := os.WriteFile(cfgPath, []byte(cfgJSON), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("config.Load failed: %v", err)
	}
	b, err := Load(cfg)
	if err != nil {
		t.Fatalf("bank.Load failed: %v", err)
	}
	return b
}

func jsonString(s string) string {
	out := `"`
	for _, r := range s {
		if r == '\\' || r == '"' {
			out += `\`
		}
		out += string(r)
	}
	return out + `"`
}

func TestSearchExactMatchScenario(t *testing.T) {
	b := newTestBank(t)

	results := b.Search("1+1等于多少？")
	if len(results) == 0 {
		t.Fatal("Expected matches for identical question text")
	}
	if results[0].Score != 1.0 {
		t.Errorf("Expected best score 1.0, got %v", results[0].Score)
	}

	var exact *Match
	for i := range results {
		if results[i].Method == "exact" {
			exact = &results[i]
			break
		}
	}
	if exact == nil {
		t.Fatal("Expected an exact-method match")
	}
	if exact.Score != 1.0 {
		t.Errorf("Exact match score = %v, want exactly 1.0", exact.Score)
	}
	if exact.Answer.CorrectAnswer != "B" {
		t.Errorf("Correct answer = %q, want B", exact.Answer.CorrectAnswer)
	}
	// Letter-valued correct answer resolves to that option's text.
	if exact.Answer.AnswerText != "2" {
		t.Errorf("Resolved answer = %q, want 2", exact.Answer.AnswerText)
	}
}

func TestSearchScoresWithinUnitInterval(t *testing.T) {
	b := newTestBank(t)
	for _, m := range b.Search("10除以2等于多少？") {
		if m.Score < 0 || m.Score > 1 {
			t.Errorf("Score %v outside [0,1] for %q", m.Score, m.Question)
		}
	}
}

func TestSearchIdempotent(t *testing.T) {
	b := newTestBank(t)
	first := b.Search("1+1等于多少？")
	second := b.Search("1+1等于多少？")
	if !reflect.DeepEqual(first, second) {
		t.Error("Repeated lookups of the same query returned different results")
	}
}

func TestSearchKeepsBothMethodsForSameRow(t *testing.T) {
	b := newTestBank(t)
	results := b.Search("1+1等于多少？")

	methods := map[string]int{}
	for _, m := range results {
		if m.RowIndex == 0 && m.Sheet == mathSheet {
			methods[m.Method]++
		}
	}
	if methods["fuzzy"] == 0 || methods["exact"] == 0 {
		t.Errorf("Expected the row under both methods, got %v", methods)
	}
}

func TestSearchBelowThresholdReturnsNothing(t *testing.T) {
	b := newTestBank(t)
	if results := b.Search("フランスの首都はどこですか"); len(results) != 0 {
		t.Errorf("Expected no matches for unrelated question, got %d", len(results))
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	b := newTestBank(t)
	if results := b.Search(""); len(results) != 0 {
		t.Errorf("Expected no matches for empty query, got %d", len(results))
	}
}

func TestAddQuestionPersists(t *testing.T) {
	b := newTestBank(t)

	err := b.AddQuestion(mathSheet, "3+4等于多少？", []string{"5", "6", "7", "8"}, "C")
	if err != nil {
		t.Fatalf("AddQuestion failed: %v", err)
	}
	if err := b.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	results := b.Search("3+4等于多少？")
	if len(results) == 0 {
		t.Fatal("Expected the added question to be found after reload")
	}
	if results[0].Answer.AnswerText != "7" {
		t.Errorf("Resolved answer = %q, want 7", results[0].Answer.AnswerText)
	}
}

func TestAddQuestionUnknownSheet(t *testing.T) {
	b := newTestBank(t)
	if err := b.AddQuestion("no-such-sheet", "q", nil, "A"); err == nil {
		t.Error("Expected error for unconfigured sheet")
	}
}

func TestStatistics(t *testing.T) {
	b := newTestBank(t)
	stats := b.Statistics()
	if stats.TotalSheets != 1 {
		t.Errorf("TotalSheets = %d, want 1", stats.TotalSheets)
	}
	if stats.TotalQuestions != 3 {
		t.Errorf("TotalQuestions = %d, want 3", stats.TotalQuestions)
	}
	ss, ok := stats.Sheets[mathSheet]
	if !ok || !ss.Configured {
		t.Fatalf("Expected configured stats for %s", mathSheet)
	}
	if ss.Rows != 3 {
		t.Errorf("Rows = %d, want 3", ss.Rows)
	}
}

func TestNormalizeText(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"1+1等于多少？", "11等于多少"},
		{"  Hello   World!  ", "hello world"},
		{"「おはよう」の意味は？", "おはようの意味は"},
		{"", ""},
	}
	for _, c := range cases {
		if got := normalizeText(c.in); got != c.want {
			t.Errorf("normalizeText(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestBlendScoreIdenticalIsOne(t *testing.T) {
	if got := blendScore("11等于多少", "11等于多少"); got != 1.0 {
		t.Errorf("blendScore identical = %v, want 1.0", got)
	}
}

func TestBlendScoreEmptyIsZero(t *testing.T) {
	if got := blendScore("", "anything"); got != 0 {
		t.Errorf("blendScore with empty query = %v, want 0", got)
	}
}
