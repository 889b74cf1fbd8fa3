package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LogLevel represents logging severity levels
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// String returns string representation of log level
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string to a level, defaulting to INFO.
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

// LogEntry represents a structured log entry
type LogEntry struct {
	Timestamp   time.Time              `json:"timestamp"`
	Level       string                 `json:"level"`
	Message     string                 `json:"message"`
	Service     string                 `json:"service"`
	Version     string                 `json:"version"`
	Environment string                 `json:"environment"`
	RequestID   string                 `json:"request_id,omitempty"`
	Method      string                 `json:"method,omitempty"`
	Path        string                 `json:"path,omitempty"`
	StatusCode  int                    `json:"status_code,omitempty"`
	Duration    string                 `json:"duration,omitempty"`
	IP          string                 `json:"ip,omitempty"`
	UserAgent   string                 `json:"user_agent,omitempty"`
	Fields      map[string]interface{} `json:"fields,omitempty"`
	File        string                 `json:"file,omitempty"`
	Line        int                    `json:"line,omitempty"`
	Function    string                 `json:"function,omitempty"`
}

// StructuredLogger writes one JSON object per line
type StructuredLogger struct {
	level        LogLevel
	service      string
	version      string
	environment  string
	enableCaller bool

	mu     sync.Mutex
	output io.Writer
	closer io.Closer
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level        LogLevel
	Service      string
	Version      string
	Environment  string
	OutputPath   string
	EnableCaller bool
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(config LoggerConfig) (*StructuredLogger, error) {
	sl := &StructuredLogger{
		level:        config.Level,
		service:      config.Service,
		version:      config.Version,
		environment:  config.Environment,
		enableCaller: config.EnableCaller,
		output:       os.Stdout,
	}

	switch config.OutputPath {
	case "", "stdout":
	case "stderr":
		sl.output = os.Stderr
	default:
		// Ensure log directory exists
		if err := os.MkdirAll(filepath.Dir(config.OutputPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		file, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		sl.output = file
		sl.closer = file
	}

	return sl, nil
}

// NewWriterLogger logs to w. Used by tests and the CLI.
func NewWriterLogger(w io.Writer, level LogLevel, service string) *StructuredLogger {
	return &StructuredLogger{
		level:   level,
		service: service,
		output:  w,
	}
}

// log writes a structured log entry
func (sl *StructuredLogger) log(level LogLevel, message string, fields map[string]interface{}) {
	if level < sl.level {
		return
	}

	entry := &LogEntry{
		Timestamp:   time.Now().UTC(),
		Level:       level.String(),
		Message:     message,
		Service:     sl.service,
		Version:     sl.version,
		Environment: sl.environment,
	}
	if len(fields) > 0 {
		entry.Fields = fields
	}

	// Add caller information if enabled
	if sl.enableCaller {
		if file, line, fn := sl.getCaller(3); file != "" {
			entry.File = file
			entry.Line = line
			entry.Function = fn
		}
	}

	sl.write(entry)
}

func (sl *StructuredLogger) write(entry *LogEntry) {
	jsonData, err := json.Marshal(entry)
	if err != nil {
		jsonData = []byte(fmt.Sprintf(`{"level":"ERROR","message":"unencodable log entry: %v"}`, err))
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	fmt.Fprintf(sl.output, "%s\n", jsonData)
}

// Debug logs debug messages
func (sl *StructuredLogger) Debug(message string, fields ...map[string]interface{}) {
	sl.log(DEBUG, message, mergeFields(fields...))
}

// Info logs info messages
func (sl *StructuredLogger) Info(message string, fields ...map[string]interface{}) {
	sl.log(INFO, message, mergeFields(fields...))
}

// Warn logs warning messages
func (sl *StructuredLogger) Warn(message string, fields ...map[string]interface{}) {
	sl.log(WARN, message, mergeFields(fields...))
}

// Error logs error messages
func (sl *StructuredLogger) Error(message string, err error, fields ...map[string]interface{}) {
	logFields := mergeFields(fields...)
	if err != nil {
		logFields["error"] = err.Error()
	}
	sl.log(ERROR, message, logFields)
}

// Fatal logs fatal messages and exits
func (sl *StructuredLogger) Fatal(message string, err error, fields ...map[string]interface{}) {
	logFields := mergeFields(fields...)
	if err != nil {
		logFields["error"] = err.Error()
		logFields["stack"] = getStackTrace()
	}
	sl.log(FATAL, message, logFields)
	os.Exit(1)
}

// LogRequest logs HTTP request details
func (sl *StructuredLogger) LogRequest(c *gin.Context, duration time.Duration, fields ...map[string]interface{}) {
	level := INFO
	if c.Writer.Status() >= 500 {
		level = ERROR
	} else if c.Writer.Status() >= 400 {
		level = WARN
	}
	if level < sl.level {
		return
	}

	entry := &LogEntry{
		Timestamp:   time.Now().UTC(),
		Level:       level.String(),
		Message:     "HTTP Request",
		Service:     sl.service,
		Version:     sl.version,
		Environment: sl.environment,
		RequestID:   c.GetString(RequestIDKey),
		Method:      c.Request.Method,
		Path:        c.Request.URL.Path,
		StatusCode:  c.Writer.Status(),
		Duration:    duration.String(),
		IP:          c.ClientIP(),
		UserAgent:   c.GetHeader("User-Agent"),
		Fields:      mergeFields(fields...),
	}

	sl.write(entry)
}

// LogPrintEvent logs the outcome of one print job
func (sl *StructuredLogger) LogPrintEvent(event string, err error, fields ...map[string]interface{}) {
	logFields := mergeFields(fields...)
	logFields["component"] = "printer"

	if err != nil {
		logFields["error"] = err.Error()
		sl.log(ERROR, event, logFields)
		return
	}
	sl.log(INFO, event, logFields)
}

// LogSystemEvent logs system-level events
func (sl *StructuredLogger) LogSystemEvent(event string, fields ...map[string]interface{}) {
	logFields := mergeFields(fields...)
	logFields["component"] = "system"

	sl.log(INFO, event, logFields)
}

// WithRequestContext returns a request-aware logger
func (sl *StructuredLogger) WithRequestContext(c *gin.Context) *RequestLogger {
	return &RequestLogger{
		logger: sl,
		ctx:    c,
	}
}

// getCaller returns caller information
func (sl *StructuredLogger) getCaller(skip int) (string, int, string) {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "", 0, ""
	}

	fn := runtime.FuncForPC(pc)
	var fnName string
	if fn != nil {
		fnName = fn.Name()
		if i := strings.LastIndex(fnName, "."); i >= 0 {
			fnName = fnName[i+1:]
		}
	}

	return filepath.Base(file), line, fnName
}

// getStackTrace returns formatted stack trace
func getStackTrace() string {
	stack := make([]byte, 4096)
	length := runtime.Stack(stack, false)
	return string(stack[:length])
}

// mergeFields merges multiple field maps
func mergeFields(fields ...map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})
	for _, field := range fields {
		for k, v := range field {
			result[k] = v
		}
	}
	return result
}

// RequestLogger provides request-aware logging
type RequestLogger struct {
	logger *StructuredLogger
	ctx    *gin.Context
}

// Info logs info with request context
func (rl *RequestLogger) Info(message string, fields ...map[string]interface{}) {
	rl.logger.Info(message, rl.enrich(fields...))
}

// Warn logs warning with request context
func (rl *RequestLogger) Warn(message string, fields ...map[string]interface{}) {
	rl.logger.Warn(message, rl.enrich(fields...))
}

// Error logs error with request context
func (rl *RequestLogger) Error(message string, err error, fields ...map[string]interface{}) {
	rl.logger.Error(message, err, rl.enrich(fields...))
}

// PrintEvent logs a print outcome with request context
func (rl *RequestLogger) PrintEvent(event string, err error, fields ...map[string]interface{}) {
	rl.logger.LogPrintEvent(event, err, rl.enrich(fields...))
}

// enrich adds request context to fields
func (rl *RequestLogger) enrich(fields ...map[string]interface{}) map[string]interface{} {
	enriched := mergeFields(fields...)
	enriched["request_id"] = rl.ctx.GetString(RequestIDKey)
	enriched["method"] = rl.ctx.Request.Method
	enriched["path"] = rl.ctx.Request.URL.Path
	enriched["ip"] = rl.ctx.ClientIP()
	return enriched
}

// RequestIDKey is the gin context key holding the request ID.
const RequestIDKey = "request_id"

// LoggingMiddleware provides request logging middleware
func (sl *StructuredLogger) LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Generate request ID if not present
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		// Process request
		c.Next()

		// Skip logging for health checks
		if c.Request.URL.Path == "/health" {
			return
		}

		fields := map[string]interface{}{
			"bytes_in":  c.Request.ContentLength,
			"bytes_out": c.Writer.Size(),
		}
		if raw := c.Request.URL.RawQuery; raw != "" {
			fields["query"] = raw
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		sl.LogRequest(c, time.Since(start), fields)
	}
}

// Close closes the logger output
func (sl *StructuredLogger) Close() error {
	if sl.closer != nil {
		return sl.closer.Close()
	}
	return nil
}
