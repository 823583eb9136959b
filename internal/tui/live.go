// Package tui is the live terminal view of a running simulation. Reports
// reach the bubbletea program through Program.Send from the coordinator's
// observer.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/nemsim/internal/cluster"
	"github.com/san-kum/nemsim/internal/config"
	"github.com/san-kum/nemsim/internal/driver"
	"github.com/san-kum/nemsim/internal/reduce"
	"github.com/san-kum/nemsim/internal/viz"
)

const historyLen = 60

// ReportMsg carries one global report into the program.
type ReportMsg reduce.Result

// DoneMsg ends the run, successfully or not.
type DoneMsg struct {
	Outcome *cluster.Outcome
	Err     error
}

type Model struct {
	cfg    *config.Config
	cancel context.CancelFunc

	last    *reduce.Result
	order   []float64
	energy  []float64
	reports int

	done    bool
	outcome *cluster.Outcome
	err     error

	bar progress.Model
}

func NewModel(cfg *config.Config, cancel context.CancelFunc) Model {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(40))
	return Model{cfg: cfg, cancel: cancel, bar: bar}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			if m.done {
				return m, tea.Quit
			}
		}
	case tea.WindowSizeMsg:
		m.bar.Width = max(min(msg.Width-20, 60), 10)
	case ReportMsg:
		r := reduce.Result(msg)
		m.last = &r
		m.reports++
		m.order = appendBounded(m.order, r.Order)
		m.energy = appendBounded(m.energy, r.MeanEnergy)
	case DoneMsg:
		m.done = true
		m.outcome = msg.Outcome
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func appendBounded(s []float64, v float64) []float64 {
	s = append(s, v)
	if len(s) > historyLen {
		s = s[len(s)-historyLen:]
	}
	return s
}

// Progress is the fraction of sweeps covered by the latest report.
func (m Model) Progress() float64 {
	if m.done && m.err == nil {
		return 1
	}
	if m.last == nil || m.cfg.Sweeps == 0 {
		return 0
	}
	return float64(m.last.Sweep) / float64(m.cfg.Sweeps)
}

// Err is the run error, set once the program has received DoneMsg.
func (m Model) Err() error { return m.err }

func (m Model) Outcome() *cluster.Outcome { return m.outcome }

func (m Model) View() string {
	var b strings.Builder
	header := fmt.Sprintf("nematic lattice %d×%d  procs %d", m.cfg.Size, m.cfg.Size, m.cfg.Procs)
	b.WriteString(viz.Title.Render(header))
	b.WriteString("\n\n")

	status := viz.StatusRunning.Render("running")
	switch {
	case m.err != nil:
		status = viz.StatusError.Render("failed: " + m.err.Error())
	case m.done:
		status = viz.StatusRunning.Render("done")
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.bar.ViewAs(m.Progress()), "  ", status))
	b.WriteString("\n\n")

	if m.last != nil {
		fmt.Fprintf(&b, "%s%s\n", viz.MetricLabel.Render("sweep"), viz.MetricValue.Render(fmt.Sprintf("%d / %d", m.last.Sweep, m.cfg.Sweeps)))
		fmt.Fprintf(&b, "%s%s\n", viz.MetricLabel.Render("temperature"), viz.MetricValue.Render(fmt.Sprintf("%.4f", m.last.Temperature)))
		fmt.Fprintf(&b, "%s%s  %s\n", viz.MetricLabel.Render("order S"), viz.MetricValue.Render(fmt.Sprintf("%.4f", m.last.Order)), viz.Sparkline(m.order, 30))
		fmt.Fprintf(&b, "%s%s  %s\n", viz.MetricLabel.Render("energy / site"), viz.MetricValue.Render(fmt.Sprintf("%.4f", m.last.MeanEnergy)), viz.Sparkline(m.energy, 30))
		fmt.Fprintf(&b, "%s%s\n", viz.MetricLabel.Render("acceptance"), viz.MetricValue.Render(viz.FormatRatio(m.last.AcceptanceRatio)))
	} else {
		b.WriteString(viz.Subtle.Render("waiting for first report"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(viz.Separator(40))
	b.WriteString("\n")
	b.WriteString(viz.Subtle.Render("q quit"))
	b.WriteString("\n")
	return b.String()
}

// Run drives cluster.Run under a bubbletea program and returns the final
// model state once the run ends or the user quits.
func Run(ctx context.Context, cfg *config.Config, opts ...cluster.Option) (*cluster.Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(cfg, cancel))
	opts = append(opts, cluster.WithObserver(driver.ObserverFunc(func(r reduce.Result) {
		p.Send(ReportMsg(r))
	})))

	go func() {
		out, err := cluster.Run(ctx, cfg, opts...)
		p.Send(DoneMsg{Outcome: out, Err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m := final.(Model)
	if !m.done {
		return nil, driver.ErrStopped
	}
	return m.Outcome(), m.Err()
}
