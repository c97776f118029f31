// Package runtimeinit performs the shared startup sequence used by the
// resident, manual and self-test run modes.
package runtimeinit

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"quiz-answer-overlay/src/bank"
	"quiz-answer-overlay/src/clipboard"
	"quiz-answer-overlay/src/config"
	"quiz-answer-overlay/src/logutil"
	"quiz-answer-overlay/src/ocr"
	"quiz-answer-overlay/src/solver"
)

type Options struct {
	ConfigPath string
	// Clipboard init needs a display on some platforms; manual and
	// self-test modes skip it.
	SkipClipboard bool
}

// Runtime bundles what Bootstrap constructed.
type Runtime struct {
	Config *config.Manager
	Bank   *bank.Bank
	OCR    *ocr.Handler
}

// Bootstrap loads and validates configuration, sets up logging and
// builds the pipeline components. Configuration errors are fatal to
// the caller; everything else degrades.
func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logutil.Setup(
		cfg.GetString("logging.level", "info"),
		cfg.GetString("logging.file_path", ""),
	)

	if missing := cfg.Validate(); len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration keys: %s", strings.Join(missing, ", "))
	}

	solver.Init(cfg)

	ocrHandler, err := ocr.NewHandler(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OCR: %w", err)
	}

	qbank, err := bank.Load(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load question bank: %w", err)
	}

	if !opts.SkipClipboard {
		if err := clipboard.Init(); err != nil {
			// Not fatal: answers stay display-only.
			zap.S().Warnf("Clipboard unavailable: %v", err)
		}
	}

	zap.S().Infow("Startup complete",
		"bank", cfg.GetString("excel.file_path", ""),
		"hotkey", cfg.GetString("hotkey.trigger_key", "f12"),
		"language", cfg.GetString("ocr.language", "jpn"),
	)
	return &Runtime{Config: cfg, Bank: qbank, OCR: ocrHandler}, nil
}
