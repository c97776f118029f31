// Package bank loads the spreadsheet question bank and answers lookup
// queries with a blended fuzzy-similarity score plus a substring pass.
package bank

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"quiz-answer-overlay/src/config"
)

// SheetConfig maps a sheet's columns onto question/option/answer roles.
type SheetConfig struct {
	QuestionColumn      string
	AnswerColumns       []string
	CorrectAnswerColumn string
}

// AnswerInfo is the extracted answer payload for one matched row.
// Options are labeled A, B, C... by answer-column position.
type AnswerInfo struct {
	Options       map[string]string
	CorrectAnswer string
	AnswerText    string
}

// Match is one lookup hit. Score is in [0,1]; Method is "fuzzy" or "exact".
type Match struct {
	Sheet    string
	RowIndex int
	Question string
	Score    float64
	Method   string
	Answer   AnswerInfo
}

type sheetData struct {
	headers []string
	rows    []map[string]string
}

// Bank holds the workbook contents in memory. Reload and AddQuestion
// are the only mutators; both take the write lock.
type Bank struct {
	mu         sync.RWMutex
	cfg        *config.Manager
	path       string
	sheets     map[string]*sheetData
	sheetOrder []string
	configs    map[string]SheetConfig
}

// Load reads the workbook named by excel.file_path. A missing file is
// logged and yields an empty bank, matching the "bank is optional"
// startup policy; a corrupt file is an error.
func Load(cfg *config.Manager) (*Bank, error) {
	b := &Bank{
		cfg:     cfg,
		path:    cfg.GetString("excel.file_path", "questions.xlsx"),
		sheets:  map[string]*sheetData{},
		configs: map[string]SheetConfig{},
	}
	b.loadSheetConfigs()
	if err := b.loadFile(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bank) loadSheetConfigs() {
	for _, name := range b.cfg.Keys("excel.sheets_config") {
		base := "excel.sheets_config." + name
		b.configs[name] = SheetConfig{
			QuestionColumn:      b.cfg.GetString(base+".question_column", ""),
			AnswerColumns:       b.cfg.GetStrings(base + ".answer_columns"),
			CorrectAnswerColumn: b.cfg.GetString(base+".correct_answer_column", ""),
		}
	}
}

func (b *Bank) loadFile() error {
	if _, err := os.Stat(b.path); err != nil {
		zap.S().Warnf("Question bank file not found: %s", b.path)
		return nil
	}

	f, err := excelize.OpenFile(b.path)
	if err != nil {
		return fmt.Errorf("open workbook %s: %w", b.path, err)
	}
	defer f.Close()

	names := f.GetSheetList()
	zap.S().Infof("Workbook sheets: %v", names)

	for _, name := range names {
		rows, err := f.GetRows(name)
		if err != nil {
			zap.S().Errorf("Failed to read sheet %q: %v", name, err)
			continue
		}
		data := parseSheet(rows)
		b.sheets[name] = data
		b.sheetOrder = append(b.sheetOrder, name)
		zap.S().Infof("Loaded sheet %q: %d rows", name, len(data.rows))
	}
	return nil
}

// parseSheet treats the first row as headers and drops fully blank rows.
func parseSheet(raw [][]string) *sheetData {
	data := &sheetData{}
	if len(raw) == 0 {
		return data
	}
	for _, h := range raw[0] {
		data.headers = append(data.headers, strings.TrimSpace(h))
	}
	for _, cells := range raw[1:] {
		row := map[string]string{}
		blank := true
		for i, h := range data.headers {
			v := ""
			if i < len(cells) {
				v = strings.TrimSpace(cells[i])
			}
			row[h] = v
			if v != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		data.rows = append(data.rows, row)
	}
	return data
}

// Reload re-reads the workbook from disk.
func (b *Bank) Reload() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sheets = map[string]*sheetData{}
	b.sheetOrder = nil
	b.configs = map[string]SheetConfig{}
	b.loadSheetConfigs()
	return b.loadFile()
}

// Search looks the question up in every configured sheet and returns
// hits scoring at or above excel.fuzzy_match.threshold, sorted by
// descending score and truncated to excel.fuzzy_match.max_results.
// Exact substring hits are appended at score 1.0 without deduplicating
// against the fuzzy pass, so a row can appear under both methods.
func (b *Bank) Search(question string) []Match {
	b.mu.RLock()
	defer b.mu.RUnlock()

	threshold := b.cfg.GetFloat("excel.fuzzy_match.threshold", 0.8)
	maxResults := b.cfg.GetInt("excel.fuzzy_match.max_results", 3)

	var all []Match
	for _, name := range b.sheetOrder {
		sc, ok := b.configs[name]
		if !ok {
			continue
		}
		all = append(all, b.searchSheet(question, name, sc, threshold)...)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Score > all[j].Score })
	if len(all) > maxResults {
		all = all[:maxResults]
	}
	return all
}

func (b *Bank) searchSheet(question, name string, sc SheetConfig, threshold float64) []Match {
	data := b.sheets[name]
	if sc.QuestionColumn == "" || !contains(data.headers, sc.QuestionColumn) {
		zap.S().Warnf("Sheet %q has no question column %q", name, sc.QuestionColumn)
		return nil
	}

	query := normalizeText(question)
	var results []Match

	for idx, row := range data.rows {
		stored := row[sc.QuestionColumn]
		if stored == "" {
			continue
		}
		score := blendScore(query, normalizeText(stored))
		if score < threshold {
			continue
		}
		results = append(results, Match{
			Sheet:    name,
			RowIndex: idx,
			Question: stored,
			Score:    score,
			Method:   "fuzzy",
			Answer:   extractAnswer(row, sc),
		})
	}

	for idx, row := range data.rows {
		stored := row[sc.QuestionColumn]
		if stored == "" || query == "" {
			continue
		}
		if !strings.Contains(normalizeText(stored), query) {
			continue
		}
		results = append(results, Match{
			Sheet:    name,
			RowIndex: idx,
			Question: stored,
			Score:    1.0,
			Method:   "exact",
			Answer:   extractAnswer(row, sc),
		})
	}
	return results
}

// extractAnswer labels the configured answer columns A, B, C... in
// order and resolves a letter-valued correct answer to its option text.
func extractAnswer(row map[string]string, sc SheetConfig) AnswerInfo {
	info := AnswerInfo{Options: map[string]string{}}
	for i, col := range sc.AnswerColumns {
		if v := row[col]; v != "" {
			info.Options[string(rune('A'+i))] = v
		}
	}
	if v := row[sc.CorrectAnswerColumn]; v != "" {
		info.CorrectAnswer = v
		if text, ok := info.Options[strings.ToUpper(v)]; ok {
			info.AnswerText = text
		} else {
			info.AnswerText = v
		}
	}
	return info
}

// AddQuestion appends a row to the named sheet and rewrites the whole
// workbook on disk.
func (b *Bank) AddQuestion(sheet, question string, options []string, correct string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	sc, ok := b.configs[sheet]
	if !ok {
		return fmt.Errorf("sheet %q is not configured", sheet)
	}
	data, ok := b.sheets[sheet]
	if !ok {
		data = &sheetData{headers: sheetHeaders(sc)}
		b.sheets[sheet] = data
		b.sheetOrder = append(b.sheetOrder, sheet)
	}

	row := map[string]string{}
	if sc.QuestionColumn != "" {
		row[sc.QuestionColumn] = question
	}
	for i, opt := range options {
		if i < len(sc.AnswerColumns) {
			row[sc.AnswerColumns[i]] = opt
		}
	}
	if sc.CorrectAnswerColumn != "" {
		row[sc.CorrectAnswerColumn] = correct
	}
	data.rows = append(data.rows, row)

	if err := b.save(); err != nil {
		return err
	}
	zap.S().Infof("Added question to sheet %q", sheet)
	return nil
}

func sheetHeaders(sc SheetConfig) []string {
	headers := []string{}
	if sc.QuestionColumn != "" {
		headers = append(headers, sc.QuestionColumn)
	}
	headers = append(headers, sc.AnswerColumns...)
	if sc.CorrectAnswerColumn != "" {
		headers = append(headers, sc.CorrectAnswerColumn)
	}
	return headers
}

func (b *Bank) save() error {
	f := excelize.NewFile()
	defer f.Close()

	for _, name := range b.sheetOrder {
		data := b.sheets[name]
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %q: %w", name, err)
		}
		if err := writeRow(f, name, 1, data.headers); err != nil {
			return err
		}
		for i, row := range data.rows {
			cells := make([]string, len(data.headers))
			for j, h := range data.headers {
				cells[j] = row[h]
			}
			if err := writeRow(f, name, i+2, cells); err != nil {
				return err
			}
		}
	}
	if !contains(b.sheetOrder, "Sheet1") {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("drop default sheet: %w", err)
		}
	}
	if err := f.SaveAs(b.path); err != nil {
		return fmt.Errorf("write workbook %s: %w", b.path, err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// SheetStats summarizes one loaded sheet.
type SheetStats struct {
	Rows           int
	Columns        []string
	Configured     bool
	ValidQuestions int
}

// Stats summarizes the loaded bank.
type Stats struct {
	TotalSheets    int
	TotalQuestions int
	Sheets         map[string]SheetStats
}

func (b *Bank) Statistics() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := Stats{Sheets: map[string]SheetStats{}}
	for _, name := range b.sheetOrder {
		data := b.sheets[name]
		ss := SheetStats{
			Rows:    len(data.rows),
			Columns: data.headers,
		}
		if sc, ok := b.configs[name]; ok {
			ss.Configured = true
			for _, row := range data.rows {
				if row[sc.QuestionColumn] != "" {
					ss.ValidQuestions++
				}
			}
			stats.TotalQuestions += ss.ValidQuestions
		}
		stats.Sheets[name] = ss
	}
	stats.TotalSheets = len(b.sheetOrder)
	return stats
}

var nonWordPattern = regexp.MustCompile(`[^\w\s\x{3040}-\x{309F}\x{30A0}-\x{30FF}\x{4E00}-\x{9FAF}]`)

// normalizeText prepares a question string for matching: collapse
// whitespace, keep only word characters and Japanese scripts, lowercase.
func normalizeText(s string) string {
	if s == "" {
		return ""
	}
	s = strings.Join(strings.Fields(s), " ")
	s = nonWordPattern.ReplaceAllString(s, "")
	return strings.ToLower(s)
}

// blendScore mixes four similarity measures into one score in [0,1].
func blendScore(query, target string) float64 {
	if query == "" || target == "" {
		return 0
	}
	ratio := float64(fuzzy.Ratio(query, target)) / 100.0
	partial := float64(fuzzy.PartialRatio(query, target)) / 100.0
	tokenSort := float64(fuzzy.TokenSortRatio(query, target)) / 100.0
	tokenSet := float64(fuzzy.TokenSetRatio(query, target)) / 100.0
	return 0.2*ratio + 0.3*partial + 0.25*tokenSort + 0.25*tokenSet
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
