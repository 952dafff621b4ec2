package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nvandessel/dasstrial/internal/constants"
)

// AuditEntry records one tool invocation. Params carries sanitized metadata
// only, never file paths.
type AuditEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Tool       string            `json:"tool"`
	DurationMs int64             `json:"duration_ms"`
	Status     string            `json:"status"` // "success" or "error"
	Error      string            `json:"error,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
}

// AuditLogger appends entries to <root>/.dasstrial/audit.jsonl. It is safe
// for concurrent use, and a nil AuditLogger is a no-op.
type AuditLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewAuditLogger opens the audit log under root. If the file cannot be
// created a warning is printed to stderr and nil is returned.
func NewAuditLogger(root string) *AuditLogger {
	path := filepath.Join(root, constants.DataDirName, constants.AuditFileName)

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot create audit log directory: %v\n", err)
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot open audit log: %v\n", err)
		return nil
	}
	return &AuditLogger{file: f}
}

// Log appends entry as one JSON line.
func (a *AuditLogger) Log(entry AuditEntry) {
	if a == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_, _ = a.file.Write(append(data, '\n'))
}

// Close closes the log file. Later calls to Log are dropped.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

// sanitizeToolParams keeps the parameters that are safe to log.
//
// Parameters fall into three groups:
//   - safe values are logged as-is (numbers, subscale labels, flags)
//   - presence-only params are logged as "(set)" because they name files
//   - anything else is dropped
//
// "_param_count" is always included.
func sanitizeToolParams(params map[string]interface{}) map[string]string {
	if params == nil {
		return nil
	}

	safeValueParams := map[string]bool{
		"score":                  true,
		"subscale":               true,
		"participants_per_group": true,
		"seed":                   true,
		"treatment_effect":       true,
		"archive":                true,
	}
	presenceOnlyParams := map[string]bool{
		"output": true,
	}

	result := make(map[string]string)
	for key, val := range params {
		if safeValueParams[key] {
			result[key] = fmt.Sprintf("%v", val)
		} else if presenceOnlyParams[key] {
			result[key] = "(set)"
		}
	}
	result["_param_count"] = fmt.Sprintf("%d", len(params))
	return result
}

// auditTool logs a tool invocation that started at start.
func (s *Server) auditTool(toolName string, start time.Time, err error, params map[string]string) {
	status := "success"
	errMsg := ""
	if err != nil {
		status = "error"
		errMsg = err.Error()
	}

	s.auditLogger.Log(AuditEntry{
		Timestamp:  start,
		Tool:       toolName,
		DurationMs: time.Since(start).Milliseconds(),
		Status:     status,
		Error:      errMsg,
		Params:     params,
	})
}
