package config

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogWriter is the writer used for application and database logs.
var LogWriter io.Writer = os.Stdout

var logFilePath = filepath.Join("logs", "journal-api.log")

// LogFilePath returns the path to the backend log file.
func LogFilePath() string {
	return logFilePath
}

// InitLogging opens the log file and builds a zap logger writing JSON lines
// to stdout and the file. The standard logger is redirected to the same
// writer so gorm and library output lands in one place.
func InitLogging(path string, production bool) (*zap.Logger, *os.File) {
	if path != "" {
		logFilePath = path
	}
	if err := os.MkdirAll(filepath.Dir(logFilePath), os.ModePerm); err != nil {
		log.Printf("Warning: Failed to create logs directory: %v", err)
	}

	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("Warning: Failed to open log file: %v", err)
		LogWriter = os.Stdout
	} else {
		LogWriter = io.MultiWriter(os.Stdout, logFile)
	}
	log.SetOutput(LogWriter)
	return NewLogger(LogWriter, production), logFile
}

// NewLogger builds a JSON zap logger on w.
func NewLogger(w io.Writer, production bool) *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zapcore.DebugLevel
	if production {
		level = zapcore.InfoLevel
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(w), level)
	return zap.New(core, zap.AddCaller())
}
