// Package testutil provides shared test fixtures, including an in-memory
// fake of the mail gateway.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nhle/webmail/internal/gateway"
	"github.com/nhle/webmail/internal/model"
)

// FakeGateway is an in-memory stand-in for the remote mail API. It
// records every call, serves a configurable folder map, and fails
// selectively via Err (per operation) or ErrOnID (per message).
type FakeGateway struct {
	mu sync.Mutex

	// Folders is what FetchAll returns.
	Folders map[string][]model.Message

	// Err maps an operation name ("MarkRead", "Move", ...) to an error
	// every call of that operation returns.
	Err map[string]error

	// ErrOnID fails a single-message operation only for a specific
	// message ID, letting tests exercise mid-sequence failures.
	ErrOnID map[string]error

	// Delay is slept inside every call, for overlap tests.
	Delay time.Duration

	// Calls records each invocation in order.
	Calls []string

	// Attachments maps "uid/filename" to downloadable content.
	Attachments map[string][]byte
}

// NewFakeGateway returns an empty fake gateway.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		Folders:     make(map[string][]model.Message),
		Err:         make(map[string]error),
		ErrOnID:     make(map[string]error),
		Attachments: make(map[string][]byte),
	}
}

// record logs a call and returns the injected error, if any.
func (f *FakeGateway) record(op, detail string, id string) error {
	if f.Delay > 0 {
		time.Sleep(f.Delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, op+"("+detail+")")
	if id != "" {
		if err, ok := f.ErrOnID[id]; ok {
			return err
		}
	}
	return f.Err[op]
}

// CallLog returns a copy of the recorded calls.
func (f *FakeGateway) CallLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Calls))
	copy(out, f.Calls)
	return out
}

// FetchAll returns the configured folder map.
func (f *FakeGateway) FetchAll(_ context.Context, forceRefresh bool) (map[string][]model.Message, error) {
	if err := f.record("FetchAll", fmt.Sprintf("force=%t", forceRefresh), ""); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string][]model.Message, len(f.Folders))
	for name, msgs := range f.Folders {
		cp := make([]model.Message, len(msgs))
		copy(cp, msgs)
		out[name] = cp
	}
	return out, nil
}

func (f *FakeGateway) MarkRead(_ context.Context, folder model.Folder, id string) error {
	return f.record("MarkRead", string(folder)+","+id, id)
}

func (f *FakeGateway) MarkUnread(_ context.Context, folder model.Folder, id string) error {
	return f.record("MarkUnread", string(folder)+","+id, id)
}

func (f *FakeGateway) Flag(_ context.Context, folder model.Folder, id string) error {
	return f.record("Flag", string(folder)+","+id, id)
}

func (f *FakeGateway) Unflag(_ context.Context, folder model.Folder, id string) error {
	return f.record("Unflag", string(folder)+","+id, id)
}

func (f *FakeGateway) Move(_ context.Context, folder model.Folder, ids []string, target model.Folder) error {
	return f.record("Move", fmt.Sprintf("%s,%v,%s", folder, ids, target), "")
}

func (f *FakeGateway) DeletePermanent(_ context.Context, ids []string) error {
	return f.record("DeletePermanent", fmt.Sprintf("%v", ids), "")
}

func (f *FakeGateway) DeletePermanentAll(_ context.Context) error {
	return f.record("DeletePermanentAll", "", "")
}

func (f *FakeGateway) DownloadAttachment(_ context.Context, uid int, filename string) (*gateway.AttachmentData, error) {
	key := fmt.Sprintf("%d/%s", uid, filename)
	if err := f.record("DownloadAttachment", key, ""); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.Attachments[key]
	if !ok {
		return nil, fmt.Errorf("no such attachment %s", key)
	}
	return &gateway.AttachmentData{Filename: filename, Data: data}, nil
}

func (f *FakeGateway) PreviewAttachment(_ context.Context, uid int, filename string) (*gateway.Preview, error) {
	if !gateway.IsPreviewable(filename) {
		return &gateway.Preview{Filename: filename, FallbackDownload: true}, nil
	}

	key := fmt.Sprintf("%d/%s", uid, filename)
	if err := f.record("PreviewAttachment", key, ""); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.Attachments[key]
	if !ok {
		return nil, fmt.Errorf("no such attachment %s", key)
	}
	return &gateway.Preview{Filename: filename, Data: data}, nil
}
