package btest

import (
	"sync"
	"time"

	"github.com/relex/bulksink/base"
)

// ScriptedBulkWriter is a stub BulkWriter for testing: each call returns the next prepared result
// and records a copy of the received record list
//
// Results beyond the prepared script are nil (success); a writer from NewFailingBulkWriter
// repeats its result forever, e.g. an always-unreachable upstream.
type ScriptedBulkWriter struct {
	mutex    sync.Mutex
	script   []error
	repeat   bool
	numCalls int
	closed   bool
	callChan chan []base.BulkRecord
}

// NewScriptedBulkWriter creates a ScriptedBulkWriter returning the given results in order, then nil
func NewScriptedBulkWriter(script ...error) *ScriptedBulkWriter {
	return &ScriptedBulkWriter{
		script:   script,
		callChan: make(chan []base.BulkRecord, 1000),
	}
}

// NewFailingBulkWriter creates a ScriptedBulkWriter returning the given error on every call
func NewFailingBulkWriter(err error) *ScriptedBulkWriter {
	writer := NewScriptedBulkWriter(err)
	writer.repeat = true
	return writer
}

// BulkPut records the call and returns the next scripted result
func (writer *ScriptedBulkWriter) BulkPut(records []base.BulkRecord, _ time.Time) error {
	writer.mutex.Lock()
	call := writer.numCalls
	writer.numCalls++
	var err error
	switch {
	case call < len(writer.script):
		err = writer.script[call]
	case writer.repeat && len(writer.script) > 0:
		err = writer.script[len(writer.script)-1]
	}
	writer.mutex.Unlock()

	writer.callChan <- append([]base.BulkRecord(nil), records...)
	return err
}

// Close marks the writer closed
func (writer *ScriptedBulkWriter) Close() {
	writer.mutex.Lock()
	writer.closed = true
	writer.mutex.Unlock()
}

// Closed tells whether Close has been called
func (writer *ScriptedBulkWriter) Closed() bool {
	writer.mutex.Lock()
	defer writer.mutex.Unlock()
	return writer.closed
}

// NumCalls returns how many times BulkPut has been invoked so far
func (writer *ScriptedBulkWriter) NumCalls() int {
	writer.mutex.Lock()
	defer writer.mutex.Unlock()
	return writer.numCalls
}

// NextCall waits for the next recorded call and returns its record list, or false on timeout
func (writer *ScriptedBulkWriter) NextCall(timeout time.Duration) ([]base.BulkRecord, bool) {
	select {
	case records := <-writer.callChan:
		return records, true
	case <-time.After(timeout):
		return nil, false
	}
}

// WaitNumCalls waits until at least n calls have been made, or returns false on timeout
func (writer *ScriptedBulkWriter) WaitNumCalls(n int, timeout time.Duration) bool {
	limit := time.Now().Add(timeout)
	for writer.NumCalls() < n {
		if time.Now().After(limit) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
	return true
}
