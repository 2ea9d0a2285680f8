package console

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"omnia/internal/datatable"
	"omnia/internal/domain"
	"omnia/internal/domain/models"
	"omnia/internal/utils"
)

type intentCreatedMsg struct {
	intent models.Intent
	err    error
}

const (
	fieldName = iota
	fieldDescription
	fieldQuestions
	fieldResponses
	fieldCount
)

var formFields = [fieldCount]struct{ key, label string }{
	{"name", "Name"},
	{"description", "Description"},
	{"questions", "Questions"},
	{"responses", "Responses"},
}

type intentFormScreen struct {
	d         *deps
	name      textinput.Model
	desc      textinput.Model
	questions textarea.Model
	responses textarea.Model
	focus     int
	busy      bool
	err       string
	fields    domain.FieldErrors
}

func newIntentFormScreen(d *deps) (*intentFormScreen, tea.Cmd) {
	name := textinput.New()
	name.Placeholder = "At least 5 characters"
	name.CharLimit = 120

	desc := textinput.New()
	desc.CharLimit = 500

	questions := textarea.New()
	questions.Placeholder = "One question per line"
	questions.SetHeight(4)
	questions.ShowLineNumbers = false

	responses := textarea.New()
	responses.Placeholder = "One response per line"
	responses.SetHeight(4)
	responses.ShowLineNumbers = false

	s := &intentFormScreen{d: d, name: name, desc: desc, questions: questions, responses: responses}
	return s, tea.Batch(s.name.Focus(), textinput.Blink)
}

func (s *intentFormScreen) input() models.IntentInput {
	return models.IntentInput{
		Name:        s.name.Value(),
		Description: s.desc.Value(),
		Questions:   utils.SplitLines(s.questions.Value()),
		Responses:   utils.SplitLines(s.responses.Value()),
	}
}

func (s *intentFormScreen) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case intentCreatedMsg:
		s.busy = false
		if msg.err == nil {
			s.d.log.Info(s.d.ctx, "intent created", "intent_id", msg.intent.ID)
			q := datatable.DefaultQuery()
			if s.d.pageSize > 0 {
				q.Page.Size = s.d.pageSize
			}
			q.Sort = datatable.SortSpec{Column: "createdAt", Direction: datatable.Descending}
			return navigate(pathIntents + "?" + q.Values().Encode())
		}
		s.err, s.fields = "", nil
		switch fe, ok := domain.AsFieldErrors(msg.err); {
		case ok:
			s.fields = fe
		case domain.IsConflict(msg.err):
			s.fields = domain.FieldErrors{"name": "an intent with this name already exists"}
		default:
			s.err = msg.err.Error()
		}
		return nil

	case tea.KeyMsg:
		if s.busy {
			return nil
		}
		switch {
		case key.Matches(msg, formKeyMap.Submit):
			return s.submit()
		case key.Matches(msg, formKeyMap.Cancel):
			return navigate(pathIntents)
		case key.Matches(msg, formKeyMap.Next):
			return s.setFocus(s.focus + 1)
		case key.Matches(msg, formKeyMap.Prev):
			return s.setFocus(s.focus - 1)
		case msg.Type == tea.KeyEnter && s.focus < fieldQuestions:
			return s.setFocus(s.focus + 1)
		}
	}
	return s.forward(msg)
}

func (s *intentFormScreen) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch s.focus {
	case fieldName:
		s.name, cmd = s.name.Update(msg)
	case fieldDescription:
		s.desc, cmd = s.desc.Update(msg)
	case fieldQuestions:
		s.questions, cmd = s.questions.Update(msg)
	case fieldResponses:
		s.responses, cmd = s.responses.Update(msg)
	}
	return cmd
}

func (s *intentFormScreen) setFocus(i int) tea.Cmd {
	s.name.Blur()
	s.desc.Blur()
	s.questions.Blur()
	s.responses.Blur()
	s.focus = ((i % fieldCount) + fieldCount) % fieldCount
	switch s.focus {
	case fieldName:
		return s.name.Focus()
	case fieldDescription:
		return s.desc.Focus()
	case fieldQuestions:
		return s.questions.Focus()
	default:
		return s.responses.Focus()
	}
}

func (s *intentFormScreen) submit() tea.Cmd {
	s.busy, s.err = true, ""
	in := s.input()
	d := s.d
	return func() tea.Msg {
		it, err := d.api.CreateIntent(d.ctx, in)
		return intentCreatedMsg{intent: it, err: err}
	}
}

func (s *intentFormScreen) view() string {
	views := [fieldCount]string{s.name.View(), s.desc.View(), s.questions.View(), s.responses.View()}
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("New intent") + "\n\n")
	for i, f := range formFields {
		b.WriteString(labelStyle.Render(f.label) + "\n" + views[i] + "\n")
		if msg, ok := s.fields[f.key]; ok {
			b.WriteString(errorStyle.Render(msg) + "\n")
		}
	}
	switch {
	case s.busy:
		b.WriteString(mutedStyle.Render("Saving...") + "\n")
	case s.err != "":
		b.WriteString(errorStyle.Render(s.err) + "\n")
	}
	b.WriteString(helpLine(formKeyMap.Next, formKeyMap.Prev, formKeyMap.Submit, formKeyMap.Cancel))
	return b.String()
}

func (s *intentFormScreen) close() {}
