package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/shelf/internal/resources"
	"github.com/desertthunder/shelf/internal/session"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgResourceChanged MsgKind = iota
	MsgAdded
	MsgRemoved
	MsgLoggedIn
)

// resourceChangedMsg is the constructor for [MsgResourceChanged]
func resourceChangedMsg() Msg {
	return Msg{kind: MsgResourceChanged}
}

// addedMsg is the constructor for [MsgAdded]
func addedMsg(result resources.Result) Msg {
	return Msg{kind: MsgAdded, data: result}
}

// removedMsg is the constructor for [MsgRemoved]
func removedMsg(title string, result resources.Result) Msg {
	return Msg{
		kind: MsgRemoved,
		data: removal{title: title, result: result},
	}
}

// loggedInMsg is the constructor for [MsgLoggedIn]
func loggedInMsg(result session.LoginResult) Msg {
	return Msg{kind: MsgLoggedIn, data: result}
}

type removal struct {
	title  string
	result resources.Result
}
