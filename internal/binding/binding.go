// Package binding turns the session manager's push notifications into
// something a view can pull from: the latest snapshot, a change channel
// and bound copies of the manager operations.
package binding

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bluebird-io/portal/internal/models"
	"github.com/bluebird-io/portal/internal/sessions"
)

// StateMsg carries a snapshot into a bubbletea program.
type StateMsg sessions.State

// ClosedMsg is delivered once the binding has been closed.
type ClosedMsg struct{}

type Binding struct {
	manager *sessions.Manager

	mu          sync.Mutex
	latest      sessions.State
	changes     chan sessions.State
	closed      bool
	unsubscribe func()
}

func New(manager *sessions.Manager) *Binding {
	binding := &Binding{
		manager: manager,
		latest:  manager.State(),
		changes: make(chan sessions.State, 1),
	}

	binding.unsubscribe = manager.Subscribe(binding.receive)

	return binding
}

func (b *Binding) receive(state sessions.State) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || state.Version <= b.latest.Version {
		return
	}

	b.latest = state

	// Keep only the newest pending snapshot
	select {
	case <-b.changes:
	default:
	}
	b.changes <- state
}

// Snapshot returns the newest state seen by the binding.
func (b *Binding) Snapshot() sessions.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest
}

// Changes yields snapshots as they arrive. Bursts are coalesced so a slow
// reader only sees the latest one. The channel is closed by Close.
func (b *Binding) Changes() <-chan sessions.State {
	return b.changes
}

// WaitForChange blocks on the next snapshot and hands it to the program
// as a StateMsg, or ClosedMsg once the binding is closed.
func (b *Binding) WaitForChange() tea.Cmd {
	return func() tea.Msg {
		state, ok := <-b.changes
		if !ok {
			return ClosedMsg{}
		}
		return StateMsg(state)
	}
}

func (b *Binding) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.changes)
	b.mu.Unlock()

	b.unsubscribe()
}

func (b *Binding) Login(ctx context.Context, email string, password string) models.Result {
	return b.manager.Login(ctx, email, password)
}

func (b *Binding) Register(ctx context.Context, req models.RegisterRequest) models.Result {
	return b.manager.Register(ctx, req)
}

func (b *Binding) SendEmailCode(ctx context.Context, email string, codeType models.EmailCodeType) models.Result {
	return b.manager.SendEmailCode(ctx, email, codeType)
}

func (b *Binding) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) models.Result {
	return b.manager.ResetPassword(ctx, req)
}

func (b *Binding) Logout(ctx context.Context) error {
	return b.manager.Logout(ctx)
}

func (b *Binding) RefreshUser(ctx context.Context) error {
	return b.manager.RefreshUser(ctx)
}

func (b *Binding) CheckEmail(ctx context.Context, email string) (bool, error) {
	return b.manager.CheckEmail(ctx, email)
}
