package cli

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/limn/pkg/cassowary"
	apperr "github.com/matzehuels/limn/pkg/errors"
	"github.com/matzehuels/limn/pkg/layout"
	"github.com/matzehuels/limn/pkg/scene"
	"github.com/matzehuels/limn/pkg/tree"
)

var (
	dragSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan).Padding(0, 1)
	dragChangedStyle  = lipgloss.NewStyle().Foreground(colorGreen).Padding(0, 1)
	dragNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite).Padding(0, 1)
	dragHiddenStyle   = lipgloss.NewStyle().Foreground(colorDim).Padding(0, 1)
	dragHelpStyle     = lipgloss.NewStyle().Foreground(colorDim)
	dragErrorStyle    = lipgloss.NewStyle().Foreground(colorRed)
)

// dragCommand opens an interactive view that suggests new positions and
// sizes for widgets and highlights the widgets each update moved.
func (c *CLI) dragCommand() *cobra.Command {
	var step float64

	cmd := &cobra.Command{
		Use:   "drag <scene>",
		Short: "Move widgets interactively and watch the layout respond",
		Long: `Open an interactive table of the solved scene. Arrow keys suggest a new
position for the selected widget, +/- suggest a new width. Every keypress
runs one incremental update and highlights the widgets whose bounds changed.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: sceneArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scene.Load(args[0])
			if err != nil {
				return err
			}
			t, err := sc.Build(tree.WithLogger(c.Logger))
			if t == nil {
				return err
			}
			m := newDragModel(sc.Name, t, step)
			if err != nil {
				m.status = apperr.UserMessage(err)
				m.failed = true
			}
			_, err = tea.NewProgram(m, tea.WithContext(cmd.Context()), tea.WithAltScreen()).Run()
			if errors.Is(err, tea.ErrProgramKilled) {
				return cmd.Context().Err()
			}
			return err
		},
	}

	cmd.Flags().Float64Var(&step, "step", 10, "distance moved per keypress")
	return cmd
}

// dragRow is one widget in tree order.
type dragRow struct {
	widget *tree.Widget
	depth  int
}

// dragModel is the bubbletea model behind the drag command.
type dragModel struct {
	title   string
	tree    *tree.Tree
	rows    []dragRow
	cursor  int
	step    float64
	changed map[layout.EntityID]bool
	status  string
	failed  bool
}

func newDragModel(title string, t *tree.Tree, step float64) dragModel {
	m := dragModel{title: title, tree: t, step: step, changed: make(map[layout.EntityID]bool)}
	t.Walk(func(w *tree.Widget, depth int) bool {
		m.rows = append(m.rows, dragRow{widget: w, depth: depth})
		return true
	})
	if step <= 0 {
		m.step = 10
	}
	return m
}

func (m dragModel) Init() tea.Cmd {
	return nil
}

func (m dragModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "tab", "j":
		m.cursor = (m.cursor + 1) % len(m.rows)
	case "shift+tab", "k":
		m.cursor = (m.cursor + len(m.rows) - 1) % len(m.rows)
	case "left":
		m = m.nudge(layout.Left, -m.step)
	case "right":
		m = m.nudge(layout.Left, m.step)
	case "up":
		m = m.nudge(layout.Top, -m.step)
	case "down":
		m = m.nudge(layout.Top, m.step)
	case "+", "=":
		m = m.nudge(layout.Width, m.step)
	case "-":
		m = m.nudge(layout.Width, -m.step)
	case "h":
		m = m.toggleHidden()
	}
	return m, nil
}

func (m dragModel) selected() *tree.Widget {
	return m.rows[m.cursor].widget
}

// nudge suggests the selected widget's current value of k plus delta.
func (m dragModel) nudge(k layout.VarKind, delta float64) dragModel {
	w := m.selected()
	target := w.Bounds().Get(k) + delta
	if err := m.tree.Suggest(w.ID(), k, target, cassowary.Strong); err != nil {
		return m.fail(err)
	}
	return m.update(fmt.Sprintf("%s.%s → %s", w.Name(), k, num(target)))
}

func (m dragModel) toggleHidden() dragModel {
	w := m.selected()
	if w.ID() == m.tree.Root().ID() {
		m.status, m.failed = "the root cannot be hidden", true
		return m
	}
	action, toggle := "hid", m.tree.Hide
	if w.Hidden() {
		action, toggle = "unhid", m.tree.Unhide
	}
	err := toggle(w.ID())
	if err != nil {
		return m.fail(err)
	}
	return m.update(action + " " + w.Name())
}

// update runs one incremental update and records which widgets moved.
func (m dragModel) update(what string) dragModel {
	dirty, err := m.tree.Update()
	m.changed = make(map[layout.EntityID]bool, len(dirty))
	for _, w := range dirty {
		m.changed[w.ID()] = true
	}
	if err != nil {
		return m.fail(err)
	}
	m.status, m.failed = fmt.Sprintf("%s (%d changed)", what, len(dirty)), false
	return m
}

func (m dragModel) fail(err error) dragModel {
	m.status, m.failed = apperr.UserMessage(err), true
	return m
}

func (m dragModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.title))
	b.WriteString("\n")
	b.WriteString(dragHelpStyle.Render(fmt.Sprintf("tab/j/k select  ←↑↓→ move  +/- width  h hide  q quit  step %s", num(m.step))))
	b.WriteString("\n\n")

	rows := make([][]string, 0, len(m.rows))
	for i, r := range m.rows {
		cursor := " "
		if i == m.cursor {
			cursor = "▸"
		}
		bounds := r.widget.Bounds()
		name := strings.Repeat("  ", r.depth) + r.widget.Name()
		rows = append(rows, []string{cursor, name, num(bounds.Left), num(bounds.Top), num(bounds.Width), num(bounds.Height)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "WIDGET", "LEFT", "TOP", "WIDTH", "HEIGHT").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			if row < 0 || row >= len(m.rows) {
				return dragNormalStyle
			}
			w := m.rows[row].widget
			switch {
			case row == m.cursor:
				return dragSelectedStyle
			case m.changed[w.ID()]:
				return dragChangedStyle
			case w.Hidden():
				return dragHiddenStyle
			}
			return dragNormalStyle
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	if m.status != "" {
		style := dragHelpStyle
		if m.failed {
			style = dragErrorStyle
		}
		b.WriteString(style.Render(m.status))
		b.WriteString("\n")
	}
	return b.String()
}
