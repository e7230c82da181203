package utils

import (
	"net"
	"net/http"
	"net/http/httputil"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// NewRollingFileLogger builds a zap logger writing JSON to a rotated file,
// used to keep gin access logs separate from the application log.
func NewRollingFileLogger(path, level string, maxSizeMB, maxBackups, maxAgeDays int, compress bool) (*zap.Logger, error) {
	if dir := dirOf(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     timeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
	}

	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    nz(maxSizeMB, 100),
		MaxBackups: nz(maxBackups, 3),
		MaxAge:     nz(maxAgeDays, 7),
		Compress:   compress,
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(lj), parseLevel(level))
	return zap.New(core), nil
}

// Ginzap returns a gin middleware that logs each request through zap.
func Ginzap(logger *zap.Logger, timeFormat string, utc bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		path := ctx.Request.URL.Path
		query := ctx.Request.URL.RawQuery

		ctx.Next()

		end := time.Now()
		if utc {
			end = end.UTC()
		}

		fields := []zap.Field{
			zap.Int("status", ctx.Writer.Status()),
			zap.String("method", ctx.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", ctx.ClientIP()),
			zap.String("user-agent", ctx.Request.UserAgent()),
			zap.String("time", end.Format(timeFormat)),
			zap.Duration("latency", end.Sub(start)),
		}

		if len(ctx.Errors) > 0 {
			for _, e := range ctx.Errors.Errors() {
				logger.Error(e, fields...)
			}
			return
		}
		logger.Info(path, fields...)
	}
}

// RecoveryWithZap returns a gin middleware that recovers from panics, logs
// them through zap and responds 500. With stack enabled the stack trace is
// recorded as well.
func RecoveryWithZap(logger *zap.Logger, stack bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				// Broken pipe / connection reset cannot receive a response.
				var brokenPipe bool
				if ne, ok := err.(*net.OpError); ok {
					if se, ok := ne.Err.(*os.SyscallError); ok {
						msg := strings.ToLower(se.Error())
						brokenPipe = strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
					}
				}

				httpRequest, _ := httputil.DumpRequest(ctx.Request, false)
				if brokenPipe {
					logger.Error(ctx.Request.URL.Path,
						zap.Any("error", err),
						zap.String("request", string(httpRequest)),
					)
					ctx.Abort()
					return
				}

				fields := []zap.Field{
					zap.Any("error", err),
					zap.String("request", string(httpRequest)),
				}
				if stack {
					fields = append(fields, zap.String("stack", string(debug.Stack())))
				}
				logger.Error("panic recovered", fields...)
				ctx.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		ctx.Next()
	}
}
