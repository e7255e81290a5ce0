package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var log = zerolog.New(os.Stderr).With().Timestamp().Logger()

func SetLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

func emit(level zerolog.Level, message string, fields map[string]interface{}) {
	log.WithLevel(level).Fields(sanitizeFields(fields)).Msg(message)
}

func Debug(message string, fields ...map[string]interface{}) {
	emit(zerolog.DebugLevel, message, mergeFields(fields...))
}

func Info(message string, fields ...map[string]interface{}) {
	emit(zerolog.InfoLevel, message, mergeFields(fields...))
}

func Warn(message string, fields ...map[string]interface{}) {
	emit(zerolog.WarnLevel, message, mergeFields(fields...))
}

func Error(message string, fields ...map[string]interface{}) {
	emit(zerolog.ErrorLevel, message, mergeFields(fields...))
}

func mergeFields(fieldMaps ...map[string]interface{}) map[string]interface{} {
	if len(fieldMaps) == 0 {
		return nil
	}
	result := make(map[string]interface{})
	for _, fields := range fieldMaps {
		for k, v := range fields {
			result[k] = v
		}
	}
	return result
}

var sensitiveKeys = []string{
	"key", "token", "secret", "password", "api_key", "stripe_key",
	"webhook_secret", "signature", "authorization", "auth",
}

// sanitizeFields redacts values whose key looks secret-bearing so raw
// credentials never end up in log aggregation.
func sanitizeFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}

	sanitized := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		keyLower := strings.ToLower(k)

		isSensitive := false
		for _, sensitive := range sensitiveKeys {
			if strings.Contains(keyLower, sensitive) {
				isSensitive = true
				break
			}
		}

		if !isSensitive {
			sanitized[k] = v
			continue
		}

		if str, ok := v.(string); ok && len(str) > 8 {
			sanitized[k] = str[:3] + "..." + str[len(str)-3:]
		} else {
			sanitized[k] = "[REDACTED]"
		}
	}

	return sanitized
}

func init() {
	// Reduce noise during tests
	if os.Getenv("GO_ENV") == "test" || strings.Contains(os.Args[0], ".test") {
		SetLevel(zerolog.WarnLevel)
		return
	}

	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "DEBUG":
		SetLevel(zerolog.DebugLevel)
	case "WARN":
		SetLevel(zerolog.WarnLevel)
	case "ERROR":
		SetLevel(zerolog.ErrorLevel)
	default:
		SetLevel(zerolog.InfoLevel)
	}
}
