package view

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUISink shows the document in a full-screen scrollable viewer.
type TUISink struct{}

func (TUISink) Show(ctx context.Context, doc string) error {
	p := tea.NewProgram(NewPagerModel(doc), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}
	return nil
}

// PagerModel is the bubbletea model for viewing an indexed error.
type PagerModel struct {
	title string
	lines []string

	scrollOff int

	// search
	searching   bool
	searchInput string
	searchRegex *regexp.Regexp
	searchIdx   int
	matches     []int

	// gg detection
	lastGPress time.Time

	width  int
	height int

	quitting bool
}

// NewPagerModel creates a viewer for doc. The first line becomes the title.
func NewPagerModel(doc string) PagerModel {
	lines := strings.Split(strings.ReplaceAll(doc, "\t", "    "), "\n")
	title := ""
	if len(lines) > 0 {
		title = lines[0]
	}
	return PagerModel{
		title:  title,
		lines:  lines,
		width:  80,
		height: 24,
	}
}

// Init implements tea.Model.
func (m PagerModel) Init() tea.Cmd { return nil }

// Update handles messages.
func (m PagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.scrollOff = clamp(m.scrollOff, 0, m.maxScroll())
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateNormal(msg)
	}
	return m, nil
}

func (m PagerModel) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "j", "down":
		m.scrollOff = clamp(m.scrollOff+1, 0, m.maxScroll())

	case "k", "up":
		m.scrollOff = clamp(m.scrollOff-1, 0, m.maxScroll())

	case "d":
		m.scrollOff = clamp(m.scrollOff+m.paneHeight()/2, 0, m.maxScroll())

	case "u":
		m.scrollOff = clamp(m.scrollOff-m.paneHeight()/2, 0, m.maxScroll())

	case " ", "pgdown", "f":
		m.scrollOff = clamp(m.scrollOff+m.paneHeight(), 0, m.maxScroll())

	case "pgup", "b":
		m.scrollOff = clamp(m.scrollOff-m.paneHeight(), 0, m.maxScroll())

	case "G":
		m.scrollOff = m.maxScroll()

	case "g":
		now := time.Now()
		if now.Sub(m.lastGPress) < 500*time.Millisecond {
			m.scrollOff = 0
			m.lastGPress = time.Time{}
		} else {
			m.lastGPress = now
		}

	case "/":
		m.searching = true
		m.searchInput = ""

	case "n":
		m.nextMatch(1)

	case "N":
		m.nextMatch(-1)
	}
	return m, nil
}

func (m PagerModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		re, err := regexp.Compile(m.searchInput)
		if err == nil {
			m.searchRegex = re
			m.updateSearchMatches()
			m.searchIdx = 0
			if len(m.matches) > 0 {
				m.scrollOff = clamp(m.matches[0]-m.paneHeight()/2, 0, m.maxScroll())
			}
		}

	case "esc":
		m.searching = false
		m.searchInput = ""
		m.searchRegex = nil
		m.matches = nil

	case "backspace":
		if len(m.searchInput) > 0 {
			m.searchInput = m.searchInput[:len(m.searchInput)-1]
		}

	default:
		if len(msg.String()) == 1 {
			m.searchInput += msg.String()
		}
	}
	return m, nil
}

func (m *PagerModel) updateSearchMatches() {
	m.matches = nil
	if m.searchRegex == nil {
		return
	}
	for i, line := range m.lines {
		if m.searchRegex.MatchString(line) {
			m.matches = append(m.matches, i)
		}
	}
}

func (m *PagerModel) nextMatch(dir int) {
	if len(m.matches) == 0 {
		return
	}
	m.searchIdx = (m.searchIdx + dir + len(m.matches)) % len(m.matches)
	m.scrollOff = clamp(m.matches[m.searchIdx]-m.paneHeight()/2, 0, m.maxScroll())
}

// header(1) + separator(1) + status(1)
func (m PagerModel) paneHeight() int {
	h := m.height - 3
	if h < 1 {
		h = 1
	}
	return h
}

func (m PagerModel) maxScroll() int {
	max := len(m.lines) - m.paneHeight()
	if max < 0 {
		return 0
	}
	return max
}

// View renders the viewer.
func (m PagerModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(truncate("logsift index | "+m.title, m.width)))
	b.WriteString("\n")
	b.WriteString(sepStyle.Render(strings.Repeat("─", m.width)))
	b.WriteString("\n")

	paneH := m.paneHeight()
	start := m.scrollOff
	end := start + paneH
	if end > len(m.lines) {
		end = len(m.lines)
	}

	matchSet := make(map[int]bool, len(m.matches))
	for _, idx := range m.matches {
		matchSet[idx] = true
	}
	for i := start; i < end; i++ {
		line := truncate(m.lines[i], m.width)
		if matchSet[i] {
			b.WriteString(matchStyle.Render(line))
		} else {
			b.WriteString(line)
		}
		b.WriteString("\n")
	}
	for i := end - start; i < paneH; i++ {
		b.WriteString("\n")
	}

	var status strings.Builder
	if m.searching {
		status.WriteString(searchBadge.Render("/" + m.searchInput))
	} else if m.searchRegex != nil {
		status.WriteString(searchBadge.Render(fmt.Sprintf("[%d/%d] /%s", m.searchIdx+1, len(m.matches), m.searchRegex.String())))
		status.WriteString(" ")
	}
	status.WriteString(posBadge.Render(fmt.Sprintf("%d-%d/%d", start+1, end, len(m.lines))))
	b.WriteString(padLeft(status.String(), m.width))

	return b.String()
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	sepStyle    = lipgloss.NewStyle().Faint(true)
	matchStyle  = lipgloss.NewStyle().Background(lipgloss.Color("226")).Foreground(lipgloss.Color("0"))
	searchBadge = lipgloss.NewStyle().Background(lipgloss.Color("226")).Foreground(lipgloss.Color("0")).Padding(0, 1)
	posBadge    = lipgloss.NewStyle().Background(lipgloss.Color("33")).Foreground(lipgloss.Color("15")).Padding(0, 1)
)

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func padLeft(s string, w int) string {
	n := lipgloss.Width(s)
	if n >= w {
		return s
	}
	return strings.Repeat(" ", w-n) + s
}

func truncate(s string, w int) string {
	if w <= 0 || len(s) <= w {
		return s
	}
	return s[:w]
}
