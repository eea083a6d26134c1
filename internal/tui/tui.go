// Package tui is an interactive browser over an unlocked vault.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/illarion/passvault/internal/generator"
	"github.com/illarion/passvault/internal/vault"
)

// Vault is the part of *vault.Store the browser uses
type Vault interface {
	Search(keyword string) ([]vault.Match, error)
	Find(site string) (vault.Summary, bool, error)
	EntryAt(index int) (vault.Entry, error)
	AddOrUpdate(site, username, password string) error
	Delete(site string) error
}

type state int

const (
	stateTable state = iota
	stateFilter
	stateShow
	stateAdd
	stateConfirmDelete
	stateConfirmOverwrite
)

const revealFor = 10 * time.Second

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	msgStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("57")).Foreground(lipgloss.Color("0"))
	helpStyle     = lipgloss.NewStyle().Faint(true)
)

type clearClipboardMsg struct{ id int }

type hideSecretMsg struct{ id int }

// Options tune the browser
type Options struct {
	// ClearAfter clears a copied password; zero leaves it on the clipboard
	ClearAfter time.Duration
	// Copy writes to the clipboard (clipboard.WriteAll when nil)
	Copy func(string) error
	// Read returns the clipboard content (clipboard.ReadAll when nil)
	Read func() (string, error)
}

// pendingAdd is an add form waiting for overwrite confirmation
type pendingAdd struct {
	site      string
	username  string
	password  string
	generated bool
}

type model struct {
	vault Vault
	opts  Options

	rows   []vault.Match
	cursor int
	state  state

	filter   textinput.Model
	inputs   []textinput.Model
	selected *vault.Entry
	revealed bool

	// bumped on every copy/reveal so stale timers are ignored
	copyID   int
	revealID int
	// copied is what the last copy put on the clipboard, until cleared
	copied string

	pending *pendingAdd

	msg string
	err error
}

func newModel(v Vault, opts Options) model {
	if opts.Copy == nil {
		opts.Copy = clipboard.WriteAll
	}
	if opts.Read == nil {
		opts.Read = clipboard.ReadAll
	}

	filter := textinput.New()
	filter.Placeholder = "filter by site"
	filter.Prompt = "/ "

	m := model{
		vault:  v,
		opts:   opts,
		filter: filter,
		inputs: newAddInputs(),
	}
	m.refresh()
	return m
}

// Run starts the browser and blocks until the user quits
func Run(v Vault, opts Options) error {
	p := tea.NewProgram(newModel(v, opts), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("failed to run browser: %w", err)
	}
	// leave nothing on the clipboard after a timed copy
	if m, ok := final.(model); ok && m.opts.ClearAfter > 0 {
		m.clearClipboard()
	}
	return nil
}

// clearClipboard empties the clipboard if it still holds the last copied
// password. Anything copied since is left alone.
func (m *model) clearClipboard() bool {
	if m.copied == "" {
		return false
	}
	secret := m.copied
	m.copied = ""

	current, err := m.opts.Read()
	if err != nil || current != secret {
		return false
	}
	return m.opts.Copy("") == nil
}

func newAddInputs() []textinput.Model {
	labels := []string{"Site", "Username", "Password"}
	inputs := make([]textinput.Model, len(labels))
	for i, label := range labels {
		ti := textinput.New()
		ti.Placeholder = label
		ti.CharLimit = vault.MaxPasswordLength
		if label == "Password" {
			ti.EchoMode = textinput.EchoPassword
			ti.Placeholder = "Password (empty to generate)"
		}
		inputs[i] = ti
	}
	return inputs
}

func (m *model) refresh() {
	rows, err := m.vault.Search(m.filter.Value())
	if err != nil {
		m.err = err
		return
	}
	m.rows = rows
	if m.cursor >= len(m.rows) {
		m.cursor = max(len(m.rows)-1, 0)
	}
}

func (m model) current() (vault.Match, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return vault.Match{}, false
	}
	return m.rows[m.cursor], true
}

// --- Tea Model interface ---
func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case clearClipboardMsg:
		if msg.id == m.copyID && m.clearClipboard() {
			m.msg = "Clipboard cleared"
		}
		return m, nil
	case hideSecretMsg:
		if msg.id == m.revealID {
			m.revealed = false
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	}

	switch m.state {
	case stateTable:
		return m.updateTable(msg)
	case stateFilter:
		return m.updateFilter(msg)
	case stateShow:
		return m.updateShow(msg)
	case stateAdd:
		return m.updateAdd(msg)
	case stateConfirmDelete:
		return m.updateConfirmDelete(msg)
	case stateConfirmOverwrite:
		return m.updateConfirmOverwrite(msg)
	default:
		return m, nil
	}
}

func (m model) View() string {
	switch m.state {
	case stateShow:
		return m.viewShow()
	case stateAdd, stateConfirmOverwrite:
		return m.viewAdd()
	default:
		return m.viewTable()
	}
}

// --- Table ---
func (m model) updateTable(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "q":
		return m, tea.Quit
	case "j", "down":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "/":
		m.state = stateFilter
		return m, m.filter.Focus()
	case "enter":
		row, ok := m.current()
		if !ok {
			return m, nil
		}
		entry, err := m.vault.EntryAt(row.Index)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.selected = &entry
		m.revealed = false
		m.state = stateShow
	case "a":
		m.inputs = newAddInputs()
		m.state = stateAdd
		m.err = nil
		return m, m.inputs[0].Focus()
	case "d":
		if _, ok := m.current(); ok {
			m.state = stateConfirmDelete
		}
	case "c":
		row, ok := m.current()
		if !ok {
			return m, nil
		}
		entry, err := m.vault.EntryAt(row.Index)
		if err != nil {
			m.err = err
			return m, nil
		}
		return m.copy(entry)
	}
	return m, nil
}

func (m model) copy(entry vault.Entry) (tea.Model, tea.Cmd) {
	if err := m.opts.Copy(entry.Password); err != nil {
		m.err = fmt.Errorf("failed to copy to clipboard: %w", err)
		return m, nil
	}
	m.copyID++
	m.copied = entry.Password
	m.err = nil
	if m.opts.ClearAfter <= 0 {
		m.msg = fmt.Sprintf("Password for %s copied", entry.Site)
		return m, nil
	}

	m.msg = fmt.Sprintf("Password for %s copied (clears in %s)", entry.Site, m.opts.ClearAfter)
	id := m.copyID
	return m, tea.Tick(m.opts.ClearAfter, func(time.Time) tea.Msg {
		return clearClipboardMsg{id: id}
	})
}

func (m model) viewTable() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Vault Entries") + "\n\n")

	if m.state == stateFilter || m.filter.Value() != "" {
		b.WriteString(m.filter.View() + "\n\n")
	}

	if len(m.rows) == 0 {
		b.WriteString("No entries\n")
	}
	for i, r := range m.rows {
		line := fmt.Sprintf("%-32s  %-24s  %s", r.Site, r.Username, r.CreatedAt.Local().Format("2006-01-02 15:04"))
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	if m.state == stateConfirmDelete {
		if row, ok := m.current(); ok {
			b.WriteString("\n" + errStyle.Render(fmt.Sprintf("Delete %s? (y/n)", row.Site)) + "\n")
		}
	}
	b.WriteString(m.footer())
	b.WriteString("\n" + helpStyle.Render("j/k move  enter show  / filter  a add  d delete  c copy  q quit"))
	return b.String()
}

func (m model) footer() string {
	if m.err != nil {
		return "\n" + errStyle.Render("Error: "+m.err.Error()) + "\n"
	}
	if m.msg != "" {
		return "\n" + msgStyle.Render(m.msg) + "\n"
	}
	return ""
}

// --- Filter ---
func (m model) updateFilter(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.filter.Blur()
			m.state = stateTable
			return m, nil
		case tea.KeyEsc:
			m.filter.SetValue("")
			m.filter.Blur()
			m.state = stateTable
			m.refresh()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.cursor = 0
	m.refresh()
	return m, cmd
}

// --- Show Entry ---
func (m model) updateShow(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "esc", "q":
		m.state = stateTable
		m.selected = nil
		m.revealed = false
	case "v":
		m.revealed = !m.revealed
		if m.revealed {
			m.revealID++
			id := m.revealID
			return m, tea.Tick(revealFor, func(time.Time) tea.Msg {
				return hideSecretMsg{id: id}
			})
		}
	case "c":
		return m.copy(*m.selected)
	}
	return m, nil
}

func (m model) viewShow() string {
	e := m.selected
	secret := "********"
	if m.revealed {
		secret = e.Password
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(e.Site) + "\n\n")
	fmt.Fprintf(&b, "Username: %s\n", e.Username)
	fmt.Fprintf(&b, "Password: %s\n", secret)
	fmt.Fprintf(&b, "Strength: %s\n", generator.StrengthOf(e.Password))
	fmt.Fprintf(&b, "Saved:    %s\n", e.CreatedAt.Local().Format(time.RFC1123))
	b.WriteString(m.footer())
	b.WriteString("\n" + helpStyle.Render("v reveal  c copy  esc back"))
	return b.String()
}

// --- Add Entry ---
func (m model) updateAdd(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			m.state = stateTable
			return m, nil
		case "tab", "down":
			return m, m.focusNext(false)
		case "shift+tab", "up":
			return m, m.focusNext(true)
		case "enter":
			if !m.inputs[len(m.inputs)-1].Focused() {
				return m, m.focusNext(false)
			}
			return m.saveAdd()
		}
	}

	cmds := make([]tea.Cmd, len(m.inputs))
	for i := range m.inputs {
		m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
	}
	return m, tea.Batch(cmds...)
}

// focusNext moves focus to the next or previous input
func (m *model) focusNext(backward bool) tea.Cmd {
	n := len(m.inputs)
	for i := range m.inputs {
		if m.inputs[i].Focused() {
			m.inputs[i].Blur()
			if backward {
				return m.inputs[(i-1+n)%n].Focus()
			}
			return m.inputs[(i+1)%n].Focus()
		}
	}
	return m.inputs[0].Focus()
}

func (m model) saveAdd() (tea.Model, tea.Cmd) {
	p := pendingAdd{
		site:     strings.TrimSpace(m.inputs[0].Value()),
		username: strings.TrimSpace(m.inputs[1].Value()),
		password: m.inputs[2].Value(),
	}

	if p.password == "" {
		pw, err := generator.GenerateWith(generator.DefaultOptions())
		if err != nil {
			m.err = err
			return m, nil
		}
		p.password = pw
		p.generated = true
	}

	existing, found, err := m.vault.Find(p.site)
	if err != nil {
		m.err = err
		return m, nil
	}
	if found {
		p.site = existing.Site
		m.pending = &p
		m.state = stateConfirmOverwrite
		m.err = nil
		return m, nil
	}
	return m.commitAdd(p)
}

func (m model) commitAdd(p pendingAdd) (tea.Model, tea.Cmd) {
	if err := m.vault.AddOrUpdate(p.site, p.username, p.password); err != nil {
		var vErr *vault.ValidationError
		if errors.As(err, &vErr) {
			m.err = fmt.Errorf("%s %s", vErr.Field, vErr.Reason)
		} else {
			m.err = err
		}
		m.state = stateAdd
		return m, nil
	}

	m.err = nil
	m.msg = fmt.Sprintf("Saved %s", p.site)
	if p.generated {
		m.msg += " with a generated password"
	}
	m.state = stateTable
	m.refresh()
	return m, nil
}

func (m model) updateConfirmOverwrite(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || m.pending == nil {
		return m, nil
	}

	p := *m.pending
	m.pending = nil
	if key.String() == "y" {
		return m.commitAdd(p)
	}
	// back to the form so the site can be changed
	m.state = stateAdd
	m.msg = fmt.Sprintf("Kept existing entry for %s", p.site)
	return m, nil
}

func (m model) viewAdd() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Add or Update Entry") + "\n\n")
	for _, ti := range m.inputs {
		b.WriteString(ti.View() + "\n\n")
	}
	if m.state == stateConfirmOverwrite && m.pending != nil {
		b.WriteString(errStyle.Render(fmt.Sprintf("Overwrite existing entry for %s? (y/n)", m.pending.site)) + "\n")
	}
	b.WriteString(m.footer())
	b.WriteString("\n" + helpStyle.Render("tab next field  enter save  esc cancel"))
	return b.String()
}

// --- Delete ---
func (m model) updateConfirmDelete(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	m.state = stateTable
	if key.String() != "y" {
		return m, nil
	}

	row, ok := m.current()
	if !ok {
		return m, nil
	}
	if err := m.vault.Delete(row.Site); err != nil {
		m.err = err
		return m, nil
	}
	m.err = nil
	m.msg = fmt.Sprintf("Deleted %s", row.Site)
	m.refresh()
	return m, nil
}
