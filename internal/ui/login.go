package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// loginForm holds the email and password inputs for [LoginView].
type loginForm struct {
	email      textinput.Model
	password   textinput.Model
	focus      int
	submitting bool
	err        string
}

func newLoginForm() loginForm {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.Prompt = "Email:    "
	email.CharLimit = 254

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = "Password: "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	f := loginForm{email: email, password: password}
	f.email.Focus()
	return f
}

func (f *loginForm) reset() {
	f.email.SetValue("")
	f.password.SetValue("")
	f.submitting = false
	f.err = ""
	f.setFocus(0)
}

func (f *loginForm) setFocus(i int) tea.Cmd {
	f.focus = i % 2
	if f.focus == 0 {
		f.password.Blur()
		return f.email.Focus()
	}
	f.email.Blur()
	return f.password.Focus()
}

func (f *loginForm) credentials() (string, string) {
	return strings.TrimSpace(f.email.Value()), f.password.Value()
}

func (f *loginForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if f.focus == 0 {
		f.email, cmd = f.email.Update(msg)
	} else {
		f.password, cmd = f.password.Update(msg)
	}
	return cmd
}

func (f *loginForm) view() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Log in"))
	b.WriteString("\n")
	b.WriteString(f.email.View())
	b.WriteString("\n")
	b.WriteString(f.password.View())
	b.WriteString("\n\n")

	switch {
	case f.submitting:
		b.WriteString(styles.help.Render("Signing in..."))
	case f.err != "":
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %s", f.err)))
	}
	return b.String()
}
