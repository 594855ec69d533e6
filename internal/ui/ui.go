package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/shelf/internal/models"
	"github.com/desertthunder/shelf/internal/resources"
	"github.com/desertthunder/shelf/internal/services"
	"github.com/desertthunder/shelf/internal/session"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	CatalogView ViewState = iota
	DetailView
	LibraryView
	LoginView
)

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	view        ViewState
	back        ViewState // where esc leaves the detail view
	afterLogin  ViewState
	manager     *session.Manager
	catalog     *resources.Catalog
	detail      *resources.BookDetail
	library     *resources.Library
	changes     chan struct{}
	catalogList list.Model
	libraryList list.Model
	login       loginForm
	flash       string
	flashErr    bool
	width       int
	height      int
	help        help.Model
	keys        keyMap
}

// NewModel creates a new TUI model. Resource activity is logged to logger, which must not write to the terminal.
func NewModel(ctx context.Context, manager *session.Manager, client *services.Client, logger *log.Logger) *Model {
	m := &Model{
		ctx:         ctx,
		view:        CatalogView,
		manager:     manager,
		changes:     make(chan struct{}, 1),
		catalogList: newList("Public Catalog"),
		libraryList: newList("My Library"),
		login:       newLoginForm(),
		help:        help.New(),
		keys:        newKeyMap(),
	}

	opts := []resources.Option{resources.WithOnChange(m.notify), resources.WithLogger(logger)}
	m.catalog = resources.NewCatalog(client, opts...)
	m.detail = resources.NewBookDetail(client, opts...)
	m.library = resources.NewLibrary(client, opts...)
	return m
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	return l
}

// Init starts watching resources and loads the catalog.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForChange(), m.loadCatalog())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.catalogList.SetSize(msg.Width-4, msg.Height-8)
		m.libraryList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case Msg:
		return m.handleMsg(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.view {
		case CatalogView:
			return m.handleCatalogKeys(msg)
		case DetailView:
			return m.handleDetailKeys(msg)
		case LibraryView:
			return m.handleLibraryKeys(msg)
		case LoginView:
			return m.handleLoginKeys(msg)
		}
	}

	return m.updateActive(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgResourceChanged:
		return m, tea.Batch(m.sync(), m.waitForChange())

	case MsgAdded:
		result := msg.data.(resources.Result)
		if result.Success {
			m.setFlash("Added to your library", false)
		} else {
			m.setFlash(result.Error, true)
		}

	case MsgRemoved:
		r := msg.data.(removal)
		if r.result.Success {
			m.setFlash(fmt.Sprintf("Removed %s", r.title), false)
		} else {
			m.setFlash(r.result.Error, true)
		}

	case MsgLoggedIn:
		result := msg.data.(session.LoginResult)
		m.login.submitting = false
		if !result.Success {
			m.login.err = result.Error
			return m, nil
		}

		m.login.reset()
		m.setFlash("Signed in", false)
		m.view = m.afterLogin
		switch m.view {
		case LibraryView:
			return m, m.loadLibrary()
		case DetailView:
			return m, m.refetchDetail()
		}
	}
	return m, nil
}

// sync copies resource state into the list widgets.
func (m *Model) sync() tea.Cmd {
	catalog := m.catalog.State()
	library := m.library.State()
	return tea.Batch(
		m.catalogList.SetItems(bookItems(catalog.Books)),
		m.libraryList.SetItems(entryItems(library.Books)),
	)
}

func (m *Model) setFlash(text string, isErr bool) {
	m.flash = text
	m.flashErr = isErr
}

func (m *Model) openLogin(after ViewState) (tea.Model, tea.Cmd) {
	m.afterLogin = after
	m.view = LoginView
	m.login.reset()
	return m, m.login.setFocus(0)
}

func (m *Model) openDetail(id models.ID, from ViewState) (tea.Model, tea.Cmd) {
	m.back = from
	m.view = DetailView
	m.flash = ""
	return m, m.loadDetail(id)
}

func (m *Model) handleCatalogKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.catalogList.FilterState() == list.Filtering {
		return m.updateActive(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.catalogList.SelectedItem().(bookItem); ok {
			return m.openDetail(item.book.ID, CatalogView)
		}
		return m, nil
	case key.Matches(msg, m.keys.library):
		if !m.manager.Session().IsAuthenticated() {
			return m.openLogin(LibraryView)
		}
		m.view = LibraryView
		return m, m.loadLibrary()
	case key.Matches(msg, m.keys.login):
		if !m.manager.Session().IsAuthenticated() {
			return m.openLogin(CatalogView)
		}
		return m, nil
	case key.Matches(msg, m.keys.logout):
		m.logout()
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m, m.loadCatalog()
	}

	return m.updateActive(msg)
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = m.back
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m, m.refetchDetail()
	case key.Matches(msg, m.keys.add):
		if !m.manager.Session().IsAuthenticated() {
			return m.openLogin(DetailView)
		}
		state := m.detail.State()
		if state.Adding || state.Book == nil || state.Book.InLibrary {
			return m, nil
		}
		return m, m.addToLibrary()
	}
	return m, nil
}

func (m *Model) handleLibraryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.libraryList.FilterState() == list.Filtering {
		return m.updateActive(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = CatalogView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.libraryList.SelectedItem().(entryItem); ok {
			return m.openDetail(item.entry.DatoBookID, LibraryView)
		}
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if item, ok := m.libraryList.SelectedItem().(entryItem); ok {
			return m, m.removeEntry(item.entry)
		}
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m, m.loadLibrary()
	case key.Matches(msg, m.keys.logout):
		m.logout()
		m.view = CatalogView
		return m, nil
	}

	return m.updateActive(msg)
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.login.submitting {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.back):
		m.view = m.afterLogin
		if m.view == LibraryView {
			m.view = CatalogView
		}
		return m, nil
	case key.Matches(msg, m.keys.next):
		return m, m.login.setFocus(m.login.focus + 1)
	case msg.Type == tea.KeyEnter:
		if m.login.focus == 0 {
			return m, m.login.setFocus(1)
		}
		email, password := m.login.credentials()
		if email == "" || password == "" {
			m.login.err = "Email and password are required"
			return m, nil
		}
		m.login.submitting = true
		m.login.err = ""
		return m, m.submitLogin(email, password)
	}

	return m, m.login.update(msg)
}

func (m *Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case CatalogView:
		m.catalogList, cmd = m.catalogList.Update(msg)
	case LibraryView:
		m.libraryList, cmd = m.libraryList.Update(msg)
	case LoginView:
		cmd = m.login.update(msg)
	}
	return m, cmd
}

func (m *Model) logout() {
	if !m.manager.Session().IsAuthenticated() {
		return
	}
	m.manager.Logout(m.ctx)
	m.setFlash("Signed out", false)
}

// notify is the resources' change callback. It never blocks; one pending signal is enough to trigger a sync.
func (m *Model) notify() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

func (m *Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.changes:
			return resourceChangedMsg()
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) loadCatalog() tea.Cmd {
	return func() tea.Msg {
		m.catalog.Load(m.ctx)
		return nil
	}
}

func (m *Model) loadDetail(id models.ID) tea.Cmd {
	return func() tea.Msg {
		m.detail.Load(m.ctx, id)
		return nil
	}
}

func (m *Model) refetchDetail() tea.Cmd {
	return func() tea.Msg {
		m.detail.Refetch(m.ctx)
		return nil
	}
}

func (m *Model) loadLibrary() tea.Cmd {
	return func() tea.Msg {
		m.library.Load(m.ctx)
		return nil
	}
}

func (m *Model) addToLibrary() tea.Cmd {
	return func() tea.Msg {
		return addedMsg(m.detail.AddToLibrary(m.ctx))
	}
}

func (m *Model) removeEntry(entry models.LibraryEntry) tea.Cmd {
	return func() tea.Msg {
		return removedMsg(entry.Title, m.library.Remove(m.ctx, entry.ID))
	}
}

func (m *Model) submitLogin(email, password string) tea.Cmd {
	return func() tea.Msg {
		return loggedInMsg(m.manager.Login(m.ctx, email, password))
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case CatalogView:
		body = m.renderCatalog()
	case DetailView:
		body = m.renderDetail()
	case LibraryView:
		body = m.renderLibrary()
	case LoginView:
		body = m.login.view() + "\n\n" + m.help.ShortHelpView([]key.Binding{m.keys.next, m.keys.back})
	}

	header := styles.help.Render("Browsing as guest")
	if m.manager.Session().IsAuthenticated() {
		header = styles.ok.Render("Signed in")
	}

	var flash string
	if m.flash != "" {
		if m.flashErr {
			flash = styles.err.Render(m.flash) + "\n"
		} else {
			flash = styles.ok.Render(m.flash) + "\n"
		}
	}

	return fmt.Sprintf("%s\n%s\n%s", header, flash, body)
}

func (m *Model) renderCatalog() string {
	state := m.catalog.State()

	keys := []key.Binding{m.keys.enter, m.keys.library, m.keys.refresh, m.keys.quit}
	if m.manager.Session().IsAuthenticated() {
		keys = append(keys, m.keys.logout)
	} else {
		keys = append(keys, m.keys.login)
	}
	helpView := m.help.ShortHelpView(keys)

	switch {
	case state.Loading && len(state.Books) == 0:
		return fmt.Sprintf("%s\n\n%s", styles.help.Render("Loading public library..."), helpView)
	case state.Error != "" && len(state.Books) == 0:
		return fmt.Sprintf("%s\n\nPress r to try again\n\n%s", styles.err.Render("Error: "+state.Error), helpView)
	case len(state.Books) == 0:
		return fmt.Sprintf("No books in the catalog yet.\n\n%s", helpView)
	}
	return fmt.Sprintf("%s\n\n%s", m.catalogList.View(), helpView)
}

func (m *Model) renderDetail() string {
	state := m.detail.State()
	helpKeys := []key.Binding{m.keys.back, m.keys.refresh, m.keys.quit}

	switch {
	case state.Loading:
		return styles.help.Render("Loading book details...")
	case state.Error != "":
		return fmt.Sprintf("%s\n\nPress r to try again, esc to go back", styles.err.Render("Error: "+state.Error))
	case state.Book == nil:
		return fmt.Sprintf("Book not found.\n\n%s", m.help.ShortHelpView(helpKeys))
	}

	book := state.Book
	var b strings.Builder
	b.WriteString(styles.title.Render(book.Title))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s %s\n", styles.label.Render("Author:"), book.Author))
	if book.ISBN != "" {
		b.WriteString(fmt.Sprintf("%s %s\n", styles.label.Render("ISBN:"), book.ISBN))
	}
	if len(book.Tags) > 0 {
		b.WriteString(fmt.Sprintf("%s %s\n", styles.label.Render("Tags:"), strings.Join(book.Tags, ", ")))
	}
	b.WriteString(fmt.Sprintf("%s %s\n", styles.label.Render("Cover:"), book.CoverURL()))
	if book.Description != "" {
		b.WriteString(fmt.Sprintf("\n%s\n", book.Description))
	}
	b.WriteString("\n")

	if status, notes, ok := book.Library(); ok {
		b.WriteString(styles.ok.Render(fmt.Sprintf("✓ In your library (%s)", status.Label())))
		b.WriteString("\n")
		if notes != "" {
			b.WriteString(fmt.Sprintf("%s %s\n", styles.label.Render("Notes:"), notes))
		}
	} else {
		switch {
		case state.Adding:
			b.WriteString(styles.help.Render("Adding..."))
		case m.manager.Session().IsAuthenticated():
			helpKeys = append([]key.Binding{m.keys.add}, helpKeys...)
		default:
			b.WriteString(styles.warn.Render("Log in to add this book to your library"))
			helpKeys = append([]key.Binding{m.keys.add}, helpKeys...)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) renderLibrary() string {
	state := m.library.State()
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.remove, m.keys.refresh, m.keys.back, m.keys.logout})

	switch {
	case state.Loading && len(state.Books) == 0:
		return styles.help.Render("Loading your library...")
	case state.Error != "":
		return fmt.Sprintf("%s\n\nPress r to try again\n\n%s", styles.err.Render("Error: "+state.Error), helpView)
	case len(state.Books) == 0:
		return fmt.Sprintf("Your library is empty. Press esc to browse the catalog.\n\n%s", helpView)
	}
	return fmt.Sprintf("%s\n\n%s", m.libraryList.View(), helpView)
}
