package console

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"omnia/internal/datatable"
)

// signal turns controller notifications, which may arrive on the debounce
// timer goroutine, into tea messages. Notifications that arrive while one is
// pending coalesce; the fetch reads the latest query from the controller.
type signal struct {
	ch   chan struct{}
	done chan struct{}
	once sync.Once
}

type tableChangedMsg struct{ src *signal }

func newSignal() *signal {
	return &signal{ch: make(chan struct{}, 1), done: make(chan struct{})}
}

func (s *signal) notify(datatable.Change) {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// wait is a tea.Cmd. It returns nil once the signal is closed.
func (s *signal) wait() tea.Msg {
	select {
	case <-s.ch:
		return tableChangedMsg{src: s}
	case <-s.done:
		return nil
	}
}

func (s *signal) close() {
	s.once.Do(func() { close(s.done) })
}
