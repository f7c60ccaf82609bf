// Package harness drives a document server through a suite of client
// scenarios and reports what happened at every step.
package harness

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Level is the severity of a log entry.
type Level string

// Log levels.
const (
	LevelInfo    Level = "INFO"
	LevelSuccess Level = "SUCCESS"
	LevelError   Level = "ERROR"
	LevelWarning Level = "WARNING"
	LevelDebug   Level = "DEBUG"
)

// Detail is a key/value pair attached to a log entry.
type Detail struct {
	Key   string
	Value any
}

// D creates a detail.
func D(key string, value any) Detail {
	return Detail{Key: key, Value: value}
}

// Entry is a recorded log entry.
type Entry struct {
	Timestamp string         `json:"timestamp"`
	Level     Level          `json:"level"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details"`
}

// Summary counts scenario outcomes.
type Summary struct {
	TotalTests  int     `json:"total_tests"`
	Passed      int     `json:"passed"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

// Test is a scenario in progress.
type Test struct {
	Name   string
	Number int
	start  time.Time
}

// ObserverOption configures an Observer.
type ObserverOption func(*Observer)

// WithoutColor disables colored output.
func WithoutColor() ObserverOption {
	return func(o *Observer) {
		o.noColor = true
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) ObserverOption {
	return func(o *Observer) {
		o.now = now
	}
}

// maxResultLen bounds how much of a scenario's result is logged.
const maxResultLen = 200

// Observer records timestamped log entries and scenario outcomes and
// prints them as they happen.
type Observer struct {
	out     io.Writer
	now     func() time.Time
	noColor bool
	colors  map[Level]*color.Color

	mu      sync.Mutex
	start   time.Time
	tests   int
	passed  int
	failed  int
	entries []Entry
}

// NewObserver creates an observer printing to out.
func NewObserver(out io.Writer, opts ...ObserverOption) *Observer {
	o := &Observer{
		out: out,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	o.colors = map[Level]*color.Color{
		LevelInfo:    color.New(color.FgBlue),
		LevelSuccess: color.New(color.FgGreen),
		LevelError:   color.New(color.FgRed),
		LevelWarning: color.New(color.FgYellow),
		LevelDebug:   color.New(color.FgHiBlack),
	}
	if o.noColor {
		for _, c := range o.colors {
			c.DisableColor()
		}
	}

	o.start = o.now()
	return o
}

// Log records and prints an entry. Details print one per line in the order
// given; maps and slices are printed as indented JSON.
func (o *Observer) Log(level Level, message string, details ...Detail) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ts := o.now().Format("15:04:05.000")
	entry := Entry{
		Timestamp: ts,
		Level:     level,
		Message:   message,
		Details:   make(map[string]any, len(details)),
	}
	for _, d := range details {
		entry.Details[d.Key] = d.Value
	}
	o.entries = append(o.entries, entry)

	c, ok := o.colors[level]
	if !ok {
		c = color.New(color.Reset)
	}
	c.Fprintf(o.out, "[%s] %s: %s\n", ts, level, message)

	for _, d := range details {
		fmt.Fprintf(o.out, "  %s: %s\n", d.Key, formatDetail(d.Value))
	}
}

func formatDetail(v any) string {
	switch v.(type) {
	case map[string]any, []any, []string, []map[string]any:
		data, err := json.MarshalIndent(v, "  ", "  ")
		if err == nil {
			return string(data)
		}
	}
	return fmt.Sprint(v)
}

// Info logs at INFO.
func (o *Observer) Info(message string, details ...Detail) { o.Log(LevelInfo, message, details...) }

// Success logs at SUCCESS.
func (o *Observer) Success(message string, details ...Detail) {
	o.Log(LevelSuccess, message, details...)
}

// Error logs at ERROR.
func (o *Observer) Error(message string, details ...Detail) { o.Log(LevelError, message, details...) }

// Warning logs at WARNING.
func (o *Observer) Warning(message string, details ...Detail) {
	o.Log(LevelWarning, message, details...)
}

// Debug logs at DEBUG.
func (o *Observer) Debug(message string, details ...Detail) { o.Log(LevelDebug, message, details...) }

// StartTest numbers and announces a scenario.
func (o *Observer) StartTest(name string) Test {
	o.mu.Lock()
	o.tests++
	t := Test{Name: name, Number: o.tests, start: o.now()}
	o.mu.Unlock()

	o.Info(fmt.Sprintf("Starting Test #%d: %s", t.Number, name))
	return t
}

// EndTest records the outcome of a scenario. A nil err is a pass.
func (o *Observer) EndTest(t Test, err error, result any) {
	duration := D("duration_ms", fmt.Sprintf("%.2f", float64(o.now().Sub(t.start).Microseconds())/1000))

	o.mu.Lock()
	if err == nil {
		o.passed++
	} else {
		o.failed++
	}
	o.mu.Unlock()

	if err != nil {
		o.Error(fmt.Sprintf("Test #%d FAILED: %s", t.Number, t.Name), duration, D("error", err.Error()))
		return
	}
	o.Success(fmt.Sprintf("Test #%d PASSED: %s", t.Number, t.Name), duration, D("result", truncate(fmt.Sprint(result), maxResultLen)))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Summary returns the counts so far.
func (o *Observer) Summary() Summary {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := Summary{TotalTests: o.tests, Passed: o.passed, Failed: o.failed}
	if o.tests > 0 {
		s.SuccessRate = float64(o.passed) / float64(o.tests) * 100
	}
	return s
}

// PrintSummary prints the summary banner.
func (o *Observer) PrintSummary() Summary {
	s := o.Summary()
	elapsed := o.now().Sub(o.start)

	rule := strings.Repeat("=", 80)
	fmt.Fprintf(o.out, "\n%s\nTEST SUMMARY\n%s\n", rule, rule)
	fmt.Fprintf(o.out, "Total Tests: %d\n", s.TotalTests)
	fmt.Fprintf(o.out, "Passed: %d\n", s.Passed)
	fmt.Fprintf(o.out, "Failed: %d\n", s.Failed)
	if s.TotalTests > 0 {
		fmt.Fprintf(o.out, "Success Rate: %.1f%%\n", s.SuccessRate)
	} else {
		fmt.Fprintln(o.out, "Success Rate: N/A")
	}
	fmt.Fprintf(o.out, "Total Duration: %.2f seconds\n%s\n", elapsed.Seconds(), rule)
	return s
}

// Entries returns a copy of the recorded entries.
func (o *Observer) Entries() []Entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Entry(nil), o.entries...)
}

// Failed returns the number of failed scenarios.
func (o *Observer) Failed() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.failed
}
