package worker

import (
	"context"
	"sync"
	"time"

	"warehousebot/internal/flow"
)

// Manager serializes turns per user: each active user owns one mailbox
// goroutine that processes inbound actions one at a time, so no session is
// ever touched by two in-flight turns. Different users run concurrently.
type Manager struct {
	engine      *flow.Engine
	idleTimeout time.Duration

	mu        sync.Mutex
	mailboxes map[int64]*mailbox
}

type turnTask struct {
	ctx    context.Context
	in     flow.Input
	result chan []flow.Reply
}

type mailbox struct {
	userID int64
	sess   *flow.Session
	tasks  chan turnTask
	stop   chan struct{}
	done   chan struct{}

	stopOnce sync.Once
}

func NewManager(engine *flow.Engine, idleTimeout time.Duration) *Manager {
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	return &Manager{
		engine:      engine,
		idleTimeout: idleTimeout,
		mailboxes:   make(map[int64]*mailbox),
	}
}

// Submit delivers one turn to the user's mailbox and blocks until the
// machine has processed it. If the mailbox shut down while we were
// queueing, a fresh one is created and the turn retried.
func (m *Manager) Submit(ctx context.Context, userID int64, in flow.Input) []flow.Reply {
	for {
		mb := m.ensureMailbox(userID)
		task := turnTask{ctx: ctx, in: in, result: make(chan []flow.Reply, 1)}
		select {
		case mb.tasks <- task:
			select {
			case replies := <-task.result:
				return replies
			case <-ctx.Done():
				return nil
			}
		case <-mb.done:
			continue
		case <-ctx.Done():
			return nil
		}
	}
}

// Reset tears down the user's mailbox and session, releasing any staged
// files the draft owned.
func (m *Manager) Reset(userID int64) {
	m.mu.Lock()
	mb := m.mailboxes[userID]
	m.mu.Unlock()
	if mb == nil {
		return
	}
	mb.stopOnce.Do(func() { close(mb.stop) })
	<-mb.done
}

// Shutdown stops every mailbox. Used at process exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	all := make([]*mailbox, 0, len(m.mailboxes))
	for _, mb := range m.mailboxes {
		all = append(all, mb)
	}
	m.mu.Unlock()
	for _, mb := range all {
		mb.stopOnce.Do(func() { close(mb.stop) })
		<-mb.done
	}
}

// ActiveSessions reports how many user mailboxes are currently alive.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.mailboxes)
}

func (m *Manager) ensureMailbox(userID int64) *mailbox {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mb, ok := m.mailboxes[userID]; ok {
		return mb
	}
	mb := &mailbox{
		userID: userID,
		sess:   flow.NewSession(userID),
		tasks:  make(chan turnTask),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	m.mailboxes[userID] = mb
	go m.run(mb)
	return mb
}

func (m *Manager) run(mb *mailbox) {
	defer close(mb.done)
	idle := time.NewTimer(m.idleTimeout)
	defer idle.Stop()

	for {
		select {
		case task := <-mb.tasks:
			task.result <- m.engine.HandleTurn(task.ctx, mb.sess, task.in)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(m.idleTimeout)
		case <-idle.C:
			// Deregister under the lock so no new Submit can pick this
			// mailbox up; a turn that raced in first still gets served.
			m.mu.Lock()
			select {
			case task := <-mb.tasks:
				m.mu.Unlock()
				task.result <- m.engine.HandleTurn(task.ctx, mb.sess, task.in)
				idle.Reset(m.idleTimeout)
				continue
			default:
			}
			delete(m.mailboxes, mb.userID)
			m.mu.Unlock()
			m.engine.Abandon(mb.sess)
			return
		case <-mb.stop:
			m.mu.Lock()
			delete(m.mailboxes, mb.userID)
			m.mu.Unlock()
			m.engine.Abandon(mb.sess)
			return
		}
	}
}
