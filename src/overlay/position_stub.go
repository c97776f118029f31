//go:build !windows

package overlay

import "go.uber.org/zap"

func applyPlatformStyle(title string, alpha float64, x, y int) {
	zap.S().Debugf("Window styling not supported on this platform (%s at %d,%d alpha %.2f)", title, x, y, alpha)
}

func moveWindow(string, int, int) {}
