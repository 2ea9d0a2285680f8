package console

import "github.com/charmbracelet/bubbles/key"

func binding(keys []string, display, help string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(display, help))
}

type globalKeys struct {
	Quit key.Binding
}

var global = globalKeys{
	Quit: binding([]string{"ctrl+c"}, "ctrl+c", "quit"),
}

type dashboardKeys struct {
	Intents   key.Binding
	NewIntent key.Binding
	Logout    key.Binding
	Quit      key.Binding
}

var dashboardKeyMap = dashboardKeys{
	Intents:   binding([]string{"i"}, "i", "intents"),
	NewIntent: binding([]string{"n"}, "n", "new intent"),
	Logout:    binding([]string{"o"}, "o", "sign out"),
	Quit:      binding([]string{"q"}, "q", "quit"),
}

type intentKeys struct {
	Search    key.Binding
	Blur      key.Binding
	Next      key.Binding
	Prev      key.Binding
	First     key.Binding
	Last      key.Binding
	Sort      key.Binding
	Bigger    key.Binding
	Smaller   key.Binding
	Reload    key.Binding
	NewIntent key.Binding
	Back      key.Binding
}

var intentKeyMap = intentKeys{
	Search:    binding([]string{"/"}, "/", "search"),
	Blur:      binding([]string{"esc", "enter"}, "esc", "done"),
	Next:      binding([]string{"right", "l"}, "→", "next page"),
	Prev:      binding([]string{"left", "h"}, "←", "prev page"),
	First:     binding([]string{"home", "g"}, "g", "first page"),
	Last:      binding([]string{"end", "G"}, "G", "last page"),
	Sort:      binding([]string{"1", "2", "3", "4", "5", "6"}, "1-6", "sort column"),
	Bigger:    binding([]string{"+", "="}, "+", "more rows"),
	Smaller:   binding([]string{"-"}, "-", "fewer rows"),
	Reload:    binding([]string{"r"}, "r", "reload"),
	NewIntent: binding([]string{"a"}, "a", "add intent"),
	Back:      binding([]string{"esc", "b"}, "esc", "dashboard"),
}

type formKeys struct {
	Next   key.Binding
	Prev   key.Binding
	Submit key.Binding
	Cancel key.Binding
}

var formKeyMap = formKeys{
	Next:   binding([]string{"tab"}, "tab", "next field"),
	Prev:   binding([]string{"shift+tab"}, "shift+tab", "previous field"),
	Submit: binding([]string{"ctrl+s"}, "ctrl+s", "save"),
	Cancel: binding([]string{"esc"}, "esc", "cancel"),
}

func helpLine(bindings ...key.Binding) string {
	out := ""
	for i, b := range bindings {
		if i > 0 {
			out += " • "
		}
		h := b.Help()
		out += h.Key + " " + h.Desc
	}
	return helpStyle.Render(out)
}
