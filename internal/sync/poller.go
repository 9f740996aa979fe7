// Package sync keeps the local mailbox snapshot fresh by polling the
// gateway in the background and reporting results to the Bubble Tea
// runtime as messages.
package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/webmail/internal/gateway"
	"github.com/nhle/webmail/internal/mailbox"
	"github.com/nhle/webmail/internal/model"
)

// State represents the current state of the background sync.
type State int

const (
	Idle State = iota
	Running
	Errored
)

// Status holds the poller's current state and last successful sync time.
type Status struct {
	State    State
	LastSync time.Time
	Error    error
}

// ResultMsg is a tea.Msg sent when a background refresh completes.
type ResultMsg struct {
	Error           error
	AuthExpired     bool
	NewInboxCount   int
	NewInboxSenders []string
}

// fetchTimeout bounds a single background refresh.
const fetchTimeout = 30 * time.Second

// Poller refreshes the mailbox store on an interval and on demand.
type Poller struct {
	store    *mailbox.Store
	interval time.Duration

	resultCh  chan ResultMsg
	triggerCh chan struct{}
	stopCh    chan struct{}

	mu      gosync.Mutex
	status  Status
	running bool
}

// New creates a poller refreshing the given store every interval.
func New(store *mailbox.Store, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 120 * time.Second
	}
	return &Poller{
		store:     store,
		interval:  interval,
		resultCh:  make(chan ResultMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the polling goroutine and returns a subscription command
// that delivers ResultMsg values to the Bubble Tea runtime.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	// A previous Stop closed the channel; the loop needs a fresh one.
	p.stopCh = make(chan struct{})
	stop := p.stopCh
	p.mu.Unlock()

	go p.loop(stop)

	return p.waitForResult()
}

// Stop halts the polling goroutine.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	close(p.stopCh)
	p.running = false
}

// RefreshNow triggers an immediate refresh outside the regular interval.
func (p *Poller) RefreshNow() tea.Cmd {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// A trigger is already pending.
	}
	return nil
}

// Status returns the poller's current status.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.refresh()
		case <-p.triggerCh:
			p.refresh()
		}
	}
}

// refresh re-fetches the mailbox, diffs the inbox against the previous
// snapshot to count arrivals, and reports the outcome.
func (p *Poller) refresh() {
	p.setState(Running, nil)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	before := inboxKeys(p.store.Snapshot())

	if err := p.store.Refresh(ctx, p.store.Folder()); err != nil {
		p.setState(Errored, err)
		p.sendResult(ResultMsg{
			Error:       err,
			AuthExpired: gateway.IsAuthError(err),
		})
		return
	}

	var count int
	var senders []string
	for _, m := range p.store.Snapshot() {
		if m.Folder.Normalize() != model.FolderInbox {
			continue
		}
		if !before[m.Key()] {
			count++
			senders = append(senders, m.Sender)
		}
	}

	p.setState(Idle, nil)
	p.sendResult(ResultMsg{NewInboxCount: count, NewInboxSenders: senders})
}

func inboxKeys(msgs []model.Message) map[model.MessageKey]bool {
	keys := make(map[model.MessageKey]bool)
	for _, m := range msgs {
		if m.Folder.Normalize() == model.FolderInbox {
			keys[m.Key()] = true
		}
	}
	return keys
}

func (p *Poller) setState(state State, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == Idle && err == nil {
		p.status.LastSync = time.Now()
	}
}

// sendResult delivers a message without blocking the polling goroutine.
func (p *Poller) sendResult(msg ResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
	}
}

func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult re-subscribes after a ResultMsg has been handled.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
