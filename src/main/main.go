package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	fyneapp "fyne.io/fyne/v2/app"
	"go.uber.org/zap"

	"quiz-answer-overlay/src/app"
	"quiz-answer-overlay/src/clipboard"
	"quiz-answer-overlay/src/hotkey"
	"quiz-answer-overlay/src/overlay"
	"quiz-answer-overlay/src/runtimeinit"
	"quiz-answer-overlay/src/screenshot"
	"quiz-answer-overlay/src/singleinstance"
	"quiz-answer-overlay/src/solver"
	"quiz-answer-overlay/src/tray"
)

// normalizeFlagDashes maps GNU-style --flag to Go's -flag.
func normalizeFlagDashes() {
	known := []string{"config", "manual", "test-api", "test-ocr"}
	for i := 1; i < len(os.Args); i++ {
		for _, name := range known {
			long := "--" + name
			if os.Args[i] == long {
				os.Args[i] = "-" + name
			} else if strings.HasPrefix(os.Args[i], long+"=") {
				os.Args[i] = "-" + name + os.Args[i][len(long):]
			}
		}
	}
}

func main() {
	runtime.LockOSThread()

	configPath := flag.String("config", "", "Path to the JSON configuration file")
	manual := flag.Bool("manual", false, "Run the text-menu mode without hotkeys or GUI")
	testAPI := flag.Bool("test-api", false, "Check model endpoint connectivity and exit")
	testOCR := flag.Bool("test-ocr", false, "Capture and recognize the configured region once and exit")
	normalizeFlagDashes()
	flag.Parse()

	switch {
	case *testAPI:
		runTestAPI(*configPath)
	case *testOCR:
		runTestOCR(*configPath)
	case *manual:
		runManual(*configPath)
	default:
		runResident(*configPath)
	}
}

func runResident(configPath string) {
	lock, err := singleinstance.Acquire()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer lock.Release()

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{ConfigPath: configPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Startup failed: %v\n", err)
		os.Exit(1)
	}
	defer rt.OCR.Close()

	fyneApp := fyneapp.New()
	win := overlay.New(rt.Config, fyneApp)

	core := app.New(rt.Config, rt.OCR, rt.Bank, solver.Solve, win)
	core.SetClipboard(clipboard.Write)

	quit := func() {
		zap.S().Info("Shutting down")
		fyneApp.Quit()
	}

	var listener *hotkey.Listener
	showStats := func() {
		win.ShowStatus(listener.Stats().Format() + " | " + core.StatsLine())
	}
	listener, err = hotkey.New(rt.Config, hotkey.Callbacks{
		Trigger: core.HandleTrigger,
		Reload:  core.HandleReload,
		Stats:   showStats,
		Exit:    quit,
		Status:  win.ShowStatus,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Hotkey configuration invalid: %v\n", err)
		os.Exit(1)
	}
	listener.Start()
	defer listener.Stop()
	if listener.Degraded() {
		fmt.Println("热键不可用，请改用 --manual 模式")
	}

	triggerKey := rt.Config.GetString("hotkey.trigger_key", "f12")
	go tray.Run(tray.Config{
		Tooltip:  fmt.Sprintf("SPI自动答题 - 按 %s 触发", triggerKey),
		OnStats:  showStats,
		OnReload: core.HandleReload,
		OnQuit:   quit,
	})
	defer tray.Quit()

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		quit()
	}()

	printStartupInfo(rt, triggerKey)

	// Blocks until quit; fyne owns the main thread.
	fyneApp.Run()

	core.Close()
	fmt.Println(core.Snapshot().Summary())
}

func printStartupInfo(rt *runtimeinit.Runtime, triggerKey string) {
	bankStats := rt.Bank.Statistics()
	fmt.Printf(`=== SPI自动答题工具 ===
题库文件: %s
题库sheets: %d个
总题目数: %d
触发热键: %s
OCR语言: %s
========================
`,
		rt.Config.GetString("excel.file_path", "questions.xlsx"),
		bankStats.TotalSheets,
		bankStats.TotalQuestions,
		triggerKey,
		rt.Config.GetString("ocr.language", "jpn"),
	)
}

func runTestAPI(configPath string) {
	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{ConfigPath: configPath, SkipClipboard: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Startup failed: %v\n", err)
		os.Exit(1)
	}
	defer rt.OCR.Close()

	if err := solver.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "API连接测试失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("API连接测试成功")
}

func runTestOCR(configPath string) {
	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{ConfigPath: configPath, SkipClipboard: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Startup failed: %v\n", err)
		os.Exit(1)
	}
	defer rt.OCR.Close()

	if bounds, err := screenshot.PrimaryDisplayBounds(); err == nil {
		fmt.Printf("主显示器: %dx%d\n", bounds.Dx(), bounds.Dy())
	}
	region := rt.OCR.DefaultRegion()
	fmt.Printf("截屏区域: x=%d y=%d w=%d h=%d\n", region.X, region.Y, region.Width, region.Height)

	text := rt.OCR.CaptureAndExtract(nil)
	if text == "" {
		fmt.Fprintln(os.Stderr, "OCR测试失败: 未识别到文本")
		os.Exit(1)
	}
	fmt.Printf("OCR识别结果:\n%s\n", text)
}
