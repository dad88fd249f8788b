package mlog

import (
	"log"
	"os"
)

// ログレベル
const (
	VERBOSE = iota
	DEBUG
	INFO
	WARN
	ERROR
)

var logger = log.New(os.Stdout, "", log.Ldate|log.Ltime)

var level = INFO

func SetLevel(l int) {
	level = l
}

func IsVerbose() bool {
	return level <= VERBOSE
}

func IsDebug() bool {
	return level <= DEBUG
}

// V 冗長ログ(フレーム単位の数値ダンプなど)
func V(format string, v ...any) {
	if level <= VERBOSE {
		logger.Printf("[VERBOSE] "+format, v...)
	}
}

// D デバッグログ
func D(format string, v ...any) {
	if level <= DEBUG {
		logger.Printf("[DEBUG] "+format, v...)
	}
}

// I 情報ログ
func I(format string, v ...any) {
	if level <= INFO {
		logger.Printf("[INFO] "+format, v...)
	}
}

// W 警告ログ
func W(format string, v ...any) {
	if level <= WARN {
		logger.Printf("[WARN] "+format, v...)
	}
}

// E エラーログ
func E(format string, v ...any) {
	logger.Printf("[ERROR] "+format, v...)
}
