// Copyright 2025 Alan Matykiewicz
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell copies of the
// Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

// Package trace records the outcome of a pipeline run.
package trace

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Status int

const (
	StatusUnspecified Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unspecified"
	}
}

type Trace struct {
	ID          string            `json:"id"`
	Pipeline    string            `json:"pipeline"`
	Status      Status            `json:"status"`
	StartedAt   int64             `json:"started_at"`
	CompletedAt int64             `json:"completed_at"`
	Values      map[string]string `json:"values,omitempty"`

	// FailReason contains the error message related to the failing
	// of this trace. This field must be nil, unless Status is set to StatusFailed.
	FailReason *string `json:"fail_reason,omitempty"`
}

// New starts a running trace for pipeline with a random ID.
func New(pipeline string) *Trace {
	return &Trace{
		ID:        uuid.NewString(),
		Pipeline:  pipeline,
		Status:    StatusRunning,
		StartedAt: time.Now().UnixNano(),
		Values:    make(map[string]string),
	}
}

func (t *Trace) Set(key, value string) {
	if t.Values == nil {
		t.Values = make(map[string]string)
	}
	t.Values[key] = value
}

func (t *Trace) Complete() {
	if t.Status != StatusRunning {
		return
	}

	t.CompletedAt = time.Now().UnixNano()
	t.Status = StatusCompleted
}

func (t *Trace) Fail(reason error) {
	if t.Status != StatusRunning {
		return
	}

	t.CompletedAt = time.Now().UnixNano()
	t.Status = StatusFailed

	errString := reason.Error()
	t.FailReason = &errString
}

func (t *Trace) Duration() time.Duration {
	if t.CompletedAt == 0 {
		return 0
	}
	return time.Duration(t.CompletedAt - t.StartedAt)
}

type Store interface {
	Save(ctx context.Context, t *Trace) error
	Close() error
}
