package log

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelAudit Level = "audit"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Field values under these keys never reach the log.
var redacted = map[string]bool{
	"password":      true,
	"token":         true,
	"authorization": true,
	"authtoken":     true,
}

type entry struct {
	TS        string         `json:"ts"`
	Level     Level          `json:"level"`
	ReqID     string         `json:"req_id,omitempty"`
	IP        string         `json:"ip,omitempty"`
	Method    string         `json:"method,omitempty"`
	Path      string         `json:"path,omitempty"`
	Visitor   string         `json:"visitor,omitempty"`
	Action    string         `json:"action,omitempty"`
	Status    int            `json:"status,omitempty"`
	LatencyMs int64          `json:"latency_ms,omitempty"`
	Err       string         `json:"err,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// c may be nil for events raised outside a request (stores, timers, startup).
func write(level Level, c *fiber.Ctx, action string, err error, fields map[string]any) {
	e := entry{
		TS:     time.Now().UTC().Format(time.RFC3339),
		Level:  level,
		Action: action,
		Fields: scrub(fields),
	}
	if c != nil {
		fromRequest(&e, c)
	}
	if err != nil {
		e.Err = err.Error()
	}
	b, _ := json.Marshal(e)
	log.Println(string(b))
}

func fromRequest(e *entry, c *fiber.Ctx) {
	e.IP = c.IP()
	e.Method = c.Method()
	e.Path = c.Path()
	e.Status = c.Response().StatusCode()
	e.ReqID, _ = c.Locals("requestid").(string)
	e.Visitor, _ = c.Locals("vid").(string)
	if start, ok := c.Locals("start").(time.Time); ok {
		e.LatencyMs = time.Since(start).Milliseconds()
	}
}

func scrub(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if redacted[strings.ToLower(k)] {
			v = "[redacted]"
		}
		out[k] = v
	}
	return out
}

func Info(c *fiber.Ctx, action string, fields map[string]any) {
	write(LevelInfo, c, action, nil, fields)
}
func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	write(LevelAudit, c, action, nil, fields)
}

// Security records denied or suspicious requests.
func Security(c *fiber.Ctx, action string, fields map[string]any) {
	write(LevelWarn, c, action, nil, fields)
}

func Warn(c *fiber.Ctx, action string, err error, fields map[string]any) {
	write(LevelWarn, c, action, err, fields)
}

func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	write(LevelError, c, action, err, fields)
}
