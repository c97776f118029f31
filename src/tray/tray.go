// Package tray puts the answer tool in the system tray with stats,
// reload and quit menu entries.
package tray

import (
	"github.com/getlantern/systray"
	"go.uber.org/zap"
)

// Config wires the tray menu to the orchestrator.
type Config struct {
	Tooltip  string
	OnStats  func()
	OnReload func()
	OnQuit   func()
}

// Run starts the tray loop. Blocks until Quit; run it on its own
// goroutine next to the UI loop.
func Run(cfg Config) {
	systray.Run(func() { onReady(cfg) }, func() {})
}

// Quit tears the tray down.
func Quit() {
	systray.Quit()
}

// SetTooltip updates the hover text, used as a lightweight status line.
func SetTooltip(text string) {
	systray.SetTooltip(text)
}

func onReady(cfg Config) {
	systray.SetIcon(iconPNG())
	systray.SetTitle("SPI自动答题")
	if cfg.Tooltip != "" {
		systray.SetTooltip(cfg.Tooltip)
	}

	mStats := systray.AddMenuItem("运行统计", "显示运行统计")
	mReload := systray.AddMenuItem("重新加载", "重新加载配置和题库")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("退出", "退出程序")

	go func() {
		for {
			select {
			case <-mStats.ClickedCh:
				if cfg.OnStats != nil {
					cfg.OnStats()
				}
			case <-mReload.ClickedCh:
				if cfg.OnReload != nil {
					cfg.OnReload()
				}
			case <-mQuit.ClickedCh:
				zap.S().Info("Quit requested from tray")
				if cfg.OnQuit != nil {
					cfg.OnQuit()
				}
				systray.Quit()
				return
			}
		}
	}()
}
