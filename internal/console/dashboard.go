package console

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"omnia/internal/guard"
	"omnia/internal/utils"
)

type dashboardScreen struct {
	d    *deps
	sess guard.Session
}

func newDashboardScreen(d *deps, sess guard.Session) (*dashboardScreen, tea.Cmd) {
	return &dashboardScreen{d: d, sess: sess}, nil
}

func (s *dashboardScreen) update(msg tea.Msg) tea.Cmd {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	switch {
	case key.Matches(km, dashboardKeyMap.Intents):
		return navigate(pathIntents)
	case key.Matches(km, dashboardKeyMap.NewIntent):
		return navigate(pathNewIntent)
	case key.Matches(km, dashboardKeyMap.Logout):
		return signOut(s.d)
	case key.Matches(km, dashboardKeyMap.Quit):
		return quit
	}
	return nil
}

func (s *dashboardScreen) view() string {
	u := s.sess.User
	if u == nil {
		return ""
	}
	name := u.Name
	if name == "" {
		name = u.Username
	}
	body := fmt.Sprintf("Welcome, %s\n\nRole:    %s\nEmail:   %s\nMember since %s",
		name, u.Role, u.Email, utils.FormatDate(u.CreatedAt))
	return boxStyle.Render(body) + "\n" + helpLine(
		dashboardKeyMap.Intents, dashboardKeyMap.NewIntent, dashboardKeyMap.Logout, dashboardKeyMap.Quit,
	)
}

func (s *dashboardScreen) close() {}
