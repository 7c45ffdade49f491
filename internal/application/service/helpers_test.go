package service

import (
	"fmt"
	"sync"

	"github.com/haxorport/tunnel-bridge/internal/domain/model"
	"github.com/haxorport/tunnel-bridge/internal/domain/port"
)

// execRecord is one invocation seen by fakeChannel
type execRecord struct {
	service   string
	cmd       model.Command
	onSuccess port.Callback
	onError   port.Callback
}

// fakeChannel records every Exec and optionally answers through handler
type fakeChannel struct {
	mutex   sync.Mutex
	execs   []execRecord
	handler func(rec execRecord)
}

func (f *fakeChannel) Exec(service string, cmd model.Command, onSuccess port.Callback, onError port.Callback) {
	rec := execRecord{service: service, cmd: cmd, onSuccess: onSuccess, onError: onError}

	f.mutex.Lock()
	f.execs = append(f.execs, rec)
	handler := f.handler
	f.mutex.Unlock()

	if handler != nil {
		handler(rec)
	}
}

func (f *fakeChannel) records() []execRecord {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	records := make([]execRecord, len(f.execs))
	copy(records, f.execs)
	return records
}

// recordingLogger keeps warnings for assertions
type recordingLogger struct {
	mutex sync.Mutex
	warns []string
}

func (l *recordingLogger) Debug(format string, args ...interface{}) {}
func (l *recordingLogger) Info(format string, args ...interface{})  {}
func (l *recordingLogger) Error(format string, args ...interface{}) {}
func (l *recordingLogger) SetLevel(level string)                    {}
func (l *recordingLogger) Close() error                             { return nil }

func (l *recordingLogger) Warn(format string, args ...interface{}) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.warns = append(l.warns, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) warnings() []string {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	warns := make([]string, len(l.warns))
	copy(warns, l.warns)
	return warns
}

var _ port.Logger = (*recordingLogger)(nil)
var _ port.Channel = (*fakeChannel)(nil)
