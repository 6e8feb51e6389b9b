package logger

import (
	"io"
	"os"
	"path/filepath"
	"runtime"

	"opushelper/internal/config"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 定义日志接口，fields 为交替出现的键值对
type Logger interface {
	// Debug 记录调试信息
	Debug(msg string, fields ...any)

	// Info 记录一般信息
	Info(msg string, fields ...any)

	// Warn 记录警告信息
	Warn(msg string, fields ...any)

	// Error 记录错误信息
	Error(msg string, fields ...any)

	// Err 记录带 error 的错误信息
	Err(err error, msg string, fields ...any)

	// With 返回附带固定字段的子日志
	With(fields ...any) Logger
}

// ZeroLogger 日志组件
type ZeroLogger struct {
	logger zerolog.Logger
}

// NewZeroLogger 按配置创建日志组件
func NewZeroLogger(cfg *config.Config) *ZeroLogger {
	if cfg == nil {
		return Nop()
	}
	return NewZeroLoggerWith(cfg.Log, nil)
}

// NewZeroLoggerWith 按日志配置创建日志组件，extra 为附加的输出目标
func NewZeroLoggerWith(cfg config.LogConfig, extra io.Writer) *ZeroLogger {
	logLevel := zerolog.DebugLevel
	switch cfg.Level {
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	}

	writers := make([]io.Writer, 0)
	for _, writer := range cfg.Writer {
		switch writer {
		case "console":
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
		case "file":
			filename, err := getLogPath()
			if err != nil {
				continue
			}
			writers = append(writers, &lumberjack.Logger{
				Filename:   filename,
				MaxSize:    1,
				MaxAge:     30,
				MaxBackups: 3,
				LocalTime:  true,
				Compress:   false,
			})
		}
	}
	if extra != nil {
		writers = append(writers, extra)
	}

	if len(writers) == 0 {
		return Nop()
	}

	multiWriter := io.MultiWriter(writers...)
	zerolog.TimeFieldFormat = "2006-01-02 15:04:05"
	logger := zerolog.New(multiWriter).
		With().
		Caller().
		Timestamp().
		Logger().
		Level(logLevel)

	return &ZeroLogger{logger: logger}
}

// Nop 创建一个空的日志记录器
func Nop() *ZeroLogger { return &ZeroLogger{logger: zerolog.Nop()} }

// NewNop 返回接口形式的空日志记录器
func NewNop() Logger { return Nop() }

// Info 记录信息
func (z *ZeroLogger) Info(msg string, fields ...any) {
	z.logger.Info().CallerSkipFrame(1).Fields(fields).Msg(msg)
}

// Error 记录错误
func (z *ZeroLogger) Error(msg string, fields ...any) {
	z.logger.Error().CallerSkipFrame(1).Fields(fields).Msg(msg)
}

// Debug 记录调试信息
func (z *ZeroLogger) Debug(msg string, fields ...any) {
	z.logger.Debug().CallerSkipFrame(1).Fields(fields).Msg(msg)
}

// Warn 记录警告
func (z *ZeroLogger) Warn(msg string, fields ...any) {
	z.logger.Warn().CallerSkipFrame(1).Fields(fields).Msg(msg)
}

// Err 记录错误信息
func (z *ZeroLogger) Err(err error, msg string, fields ...any) {
	z.logger.Err(err).CallerSkipFrame(1).Fields(fields).Msg(msg)
}

// With 返回附带字段的子日志
func (z *ZeroLogger) With(fields ...any) Logger {
	return &ZeroLogger{logger: z.logger.With().Fields(fields).Logger()}
}

// getLogPath 获取日志文件路径
func getLogPath() (string, error) {
	baseDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(baseDir, "logs", "app.log"), nil
}

// DataDir 返回平台相关的应用数据目录
func DataDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		baseDir = os.Getenv("APPDATA")
		if baseDir == "" {
			baseDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		baseDir = filepath.Join(home, "Library", "Application Support")
	default:
		baseDir = os.Getenv("XDG_DATA_HOME")
		if baseDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(home, ".local", "share")
		}
	}

	return filepath.Join(baseDir, "opushelper"), nil
}
