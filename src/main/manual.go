package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"quiz-answer-overlay/src/answer"
	"quiz-answer-overlay/src/app"
	"quiz-answer-overlay/src/runtimeinit"
	"quiz-answer-overlay/src/solver"
)

// consoleDisplay prints answers to stdout for --manual mode.
type consoleDisplay struct{}

func (consoleDisplay) Display(p answer.Payload) {
	fmt.Println()
	fmt.Println(answer.Render(p))
	fmt.Println()
}

func (consoleDisplay) ShowStatus(status string) {
	fmt.Println(status)
}

func runManual(configPath string) {
	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{ConfigPath: configPath, SkipClipboard: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Startup failed: %v\n", err)
		os.Exit(1)
	}
	defer rt.OCR.Close()

	core := app.New(rt.Config, rt.OCR, rt.Bank, solver.Solve, consoleDisplay{})
	defer core.Close()

	fmt.Println("=== 手动模式 ===")
	printManualHelp()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		switch strings.TrimSpace(scanner.Text()) {
		case "answer", "a":
			core.HandleTrigger()
		case "status", "s":
			fmt.Println(core.Snapshot().Summary())
		case "config", "c":
			fmt.Printf("配置文件: %s\n题库文件: %s\n模型部署: %s\n",
				rt.Config.Path(),
				rt.Config.GetString("excel.file_path", "questions.xlsx"),
				rt.Config.GetString("api.deployment_name", "gpt-4"))
		case "help", "h", "?":
			printManualHelp()
		case "quit", "q", "exit":
			fmt.Println(core.Snapshot().Summary())
			return
		case "":
		default:
			fmt.Println("未知命令，输入 help 查看可用命令")
		}
	}
}

func printManualHelp() {
	fmt.Println(`可用命令:
  answer (a)  截屏识别并作答
  status (s)  显示运行统计
  config (c)  显示当前配置
  help   (h)  显示本帮助
  quit   (q)  退出`)
}
