package console

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"omnia/internal/domain"
	"omnia/internal/guard"
	"omnia/internal/services"
)

type signedInMsg struct {
	res services.AuthResult
	err error
}

type loginScreen struct {
	d        *deps
	redirect string
	inputs   []textinput.Model
	focus    int
	busy     bool
	err      string
	fields   domain.FieldErrors
}

func newLoginScreen(d *deps, hint, redirect string) (*loginScreen, tea.Cmd) {
	user := textinput.New()
	user.Placeholder = "username or email"
	user.CharLimit = 120
	user.SetValue(hint)

	pass := textinput.New()
	pass.Placeholder = "password"
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '•'
	pass.CharLimit = 72

	s := &loginScreen{d: d, redirect: redirect, inputs: []textinput.Model{user, pass}}
	if hint != "" {
		s.focus = 1
	}
	return s, tea.Batch(s.inputs[s.focus].Focus(), textinput.Blink)
}

func (s *loginScreen) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case signedInMsg:
		s.busy = false
		if msg.err != nil {
			s.fields, s.err = nil, ""
			if fe, ok := domain.AsFieldErrors(msg.err); ok {
				s.fields = fe
			} else {
				s.err = msg.err.Error()
			}
			return nil
		}
		s.d.store.Set(s.d.ctx, guard.Authenticated(msg.res.User))
		return navigate(s.d.guard.ResumePath(s.redirect))

	case tea.KeyMsg:
		if s.busy {
			return nil
		}
		switch {
		case key.Matches(msg, formKeyMap.Next), msg.Type == tea.KeyDown:
			return s.setFocus(s.focus + 1)
		case key.Matches(msg, formKeyMap.Prev), msg.Type == tea.KeyUp:
			return s.setFocus(s.focus - 1)
		case msg.Type == tea.KeyEnter:
			if s.focus == 0 {
				return s.setFocus(1)
			}
			return s.submit()
		case key.Matches(msg, formKeyMap.Cancel):
			return quit
		}
	}

	var cmd tea.Cmd
	s.inputs[s.focus], cmd = s.inputs[s.focus].Update(msg)
	return cmd
}

func (s *loginScreen) setFocus(i int) tea.Cmd {
	n := len(s.inputs)
	s.inputs[s.focus].Blur()
	s.focus = ((i % n) + n) % n
	return s.inputs[s.focus].Focus()
}

func (s *loginScreen) submit() tea.Cmd {
	s.busy, s.err = true, ""
	user := strings.TrimSpace(s.inputs[0].Value())
	pass := s.inputs[1].Value()
	d := s.d
	return func() tea.Msg {
		res, err := d.api.SignIn(d.ctx, user, pass)
		return signedInMsg{res: res, err: err}
	}
}

func (s *loginScreen) view() string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("Sign in") + "\n\n")
	for i, label := range []string{"Username", "Password"} {
		b.WriteString(labelStyle.Render(label) + s.inputs[i].View() + "\n")
		if msg, ok := s.fields[strings.ToLower(label)]; ok {
			b.WriteString(errorStyle.Render("  "+msg) + "\n")
		}
	}
	switch {
	case s.busy:
		b.WriteString("\n" + mutedStyle.Render("Signing in..."))
	case s.err != "":
		b.WriteString("\n" + errorStyle.Render(s.err))
	}
	b.WriteString("\n" + helpLine(formKeyMap.Next, binding([]string{"enter"}, "enter", "sign in"), formKeyMap.Cancel))
	return boxStyle.Render(b.String())
}

func (s *loginScreen) close() {}
