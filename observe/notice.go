package observe

import (
	"context"
	"sync"
)

// NoticeMessage is the log message used for developer-facing notices.
const NoticeMessage = "doing it wrong"

// DoingItWrong reports incorrect use of an API by a developer: an invalid
// registration, an unresolvable directive expression, a failing render
// callback. The notice is logged at warn level with "function" and
// "notice" fields. A nil logger drops the notice.
func DoingItWrong(ctx context.Context, logger Logger, function, message string, fields ...Field) {
	if logger == nil {
		return
	}
	all := make([]Field, 0, len(fields)+2)
	all = append(all, Field{Key: "function", Value: function}, Field{Key: "notice", Value: message})
	all = append(all, fields...)
	logger.Warn(ctx, NoticeMessage, all...)
}

// Entry is a log entry captured by a Recorder.
type Entry struct {
	Level  LogLevel
	Msg    string
	Block  string
	Fields map[string]any
}

// Field returns the value of the named field.
func (e Entry) Field(key string) (any, bool) {
	v, ok := e.Fields[key]
	return v, ok
}

// Recorder is a Logger that keeps entries in memory.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Ownership: loggers derived with WithBlock append to the same entry list.
type Recorder struct {
	shared *recorderState
	block  string
}

type recorderState struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{shared: &recorderState{}}
}

func (r *Recorder) Info(ctx context.Context, msg string, fields ...Field) {
	r.record(LevelInfo, msg, fields)
}

func (r *Recorder) Warn(ctx context.Context, msg string, fields ...Field) {
	r.record(LevelWarn, msg, fields)
}

func (r *Recorder) Error(ctx context.Context, msg string, fields ...Field) {
	r.record(LevelError, msg, fields)
}

func (r *Recorder) Debug(ctx context.Context, msg string, fields ...Field) {
	r.record(LevelDebug, msg, fields)
}

// WithBlock returns a recorder that tags entries with the block name.
func (r *Recorder) WithBlock(meta BlockMeta) Logger {
	return &Recorder{shared: r.shared, block: meta.Name}
}

func (r *Recorder) record(level LogLevel, msg string, fields []Field) {
	e := Entry{Level: level, Msg: msg, Block: r.block, Fields: make(map[string]any, len(fields))}
	for _, f := range fields {
		e.Fields[f.Key] = f.Value
	}
	r.shared.mu.Lock()
	r.shared.entries = append(r.shared.entries, e)
	r.shared.mu.Unlock()
}

// Entries returns a copy of all recorded entries.
func (r *Recorder) Entries() []Entry {
	r.shared.mu.Lock()
	defer r.shared.mu.Unlock()
	out := make([]Entry, len(r.shared.entries))
	copy(out, r.shared.entries)
	return out
}

// Notices returns the entries logged through DoingItWrong.
func (r *Recorder) Notices() []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Level == LevelWarn && e.Msg == NoticeMessage {
			out = append(out, e)
		}
	}
	return out
}

// NoticesFor returns the notices reported for function.
func (r *Recorder) NoticesFor(function string) []Entry {
	var out []Entry
	for _, e := range r.Notices() {
		if fn, _ := e.Field("function"); fn == function {
			out = append(out, e)
		}
	}
	return out
}

// Reset discards all recorded entries.
func (r *Recorder) Reset() {
	r.shared.mu.Lock()
	r.shared.entries = nil
	r.shared.mu.Unlock()
}

var _ Logger = (*Recorder)(nil)
