package logger

import (
	"fmt"
	"strings"
	"time"

	"duhashtsrv-golang/server/internal/config"
	jsonpkg "duhashtsrv-golang/server/internal/pkg/json"
)

type LogLevel int

const (
	LogError LogLevel = iota
	LogWarn
	LogInfo
	LogDebug
	LogTrace
)

const (
	ColorReset  = "\x1b[0m"
	ColorGreen  = "\x1b[32m"
	ColorYellow = "\x1b[33m"
	ColorRed    = "\x1b[31m"
	ColorCyan   = "\x1b[36m"
	ColorGray   = "\x1b[90m"
	ColorBlue   = "\x1b[34m"
	ColorPurple = "\x1b[35m"
)

var currentLogLevel = LogInfo

func Init() {
	cfg := config.Get()
	currentLogLevel = parseLogLevel(cfg.LogLevel)
}

func parseLogLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		return LogError
	case "warn":
		return LogWarn
	case "debug":
		return LogDebug
	case "trace":
		return LogTrace
	default:
		return LogInfo
	}
}

func GetLevel() LogLevel { return currentLogLevel }

func Info(format string, args ...any) {
	if currentLogLevel < LogInfo {
		return
	}
	timestamp := time.Now().Format("15:04:05")
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("%s%s%s %s[info]%s %s\n", ColorGray, timestamp, ColorReset, ColorGreen, ColorReset, msg)
}

func Warn(format string, args ...any) {
	if currentLogLevel < LogWarn {
		return
	}
	timestamp := time.Now().Format("15:04:05")
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("%s%s%s %s[warn]%s %s\n", ColorGray, timestamp, ColorReset, ColorYellow, ColorReset, msg)
}

func Error(format string, args ...any) {
	timestamp := time.Now().Format("15:04:05")
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("%s%s%s %s[error]%s %s\n", ColorGray, timestamp, ColorReset, ColorRed, ColorReset, msg)
}

func Debug(format string, args ...any) {
	if currentLogLevel < LogDebug {
		return
	}
	timestamp := time.Now().Format("15:04:05")
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("%s%s%s %s[debug]%s %s\n", ColorGray, timestamp, ColorReset, ColorBlue, ColorReset, msg)
}

func Trace(format string, args ...any) {
	if currentLogLevel < LogTrace {
		return
	}
	timestamp := time.Now().Format("15:04:05")
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("%s%s%s %s[trace]%s %s\n", ColorGray, timestamp, ColorReset, ColorPurple, ColorReset, msg)
}

const banner = `
     __     __            __   __
 ___/ /_ __/ /  ___ ____ / /  / /____ _____  __
/ _  / // / _ \/ _ '(_-</ _ \/ __(_-</ __/ |/ /
\_,_/\_,_/_//_/\_,_/___/_//_/\__/___/_/  |___/
`

func Banner(version string) {
	fmt.Printf("%s%s%s\n", ColorCyan, banner, ColorReset)

	cfg := config.Get()
	Info("duhashtsrv version %s", version)
	Info("log level: %s", cfg.LogLevel)

	if currentLogLevel >= LogDebug {
		printJSON(cfg)
	}

	fmt.Println()
}

func printJSON(v any) {
	jsonBytes, err := jsonpkg.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(jsonBytes))
}
