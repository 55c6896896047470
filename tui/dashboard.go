// Package tui implements a terminal dashboard for watching a running
// evolution pipeline: one row per pipe and a scrolling log of best-score
// events, both fed by pipeline.EventSink callbacks.
package tui

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// pipeRow tracks the last known state of one registered pipe.
type pipeRow struct {
	name       string
	saturated  bool
	lastCycle  time.Time
	cycleCount int
}

// Dashboard is a single-screen tview application showing pipe status and
// best-score history. It implements pipeline.EventSink, so it can be
// passed to pipeline.New in place of api.Broadcaster.
type Dashboard struct {
	App   *tview.Application
	Pages *tview.Pages

	MainLayout *tview.Flex
	PipesView  *tview.TextView
	BestView   *tview.TextView
	HelpView   *tview.TextView

	mu        sync.Mutex
	pipes     map[string]*pipeRow
	bestLines []string
	bestScore float64
	haveBest  bool
}

// NewDashboard builds the dashboard's views, layout and key bindings. It
// does not start rendering until Run is called.
func NewDashboard() *Dashboard {
	d := &Dashboard{
		App:   tview.NewApplication(),
		pipes: make(map[string]*pipeRow),
	}

	d.initializeViews()
	d.buildLayout()
	d.setupKeyBindings()

	return d
}

func (d *Dashboard) initializeViews() {
	d.PipesView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	d.PipesView.SetBorder(true).SetTitle(" Pipes ")

	d.BestView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	d.BestView.SetBorder(true).SetTitle(" Best score history ")

	d.HelpView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	d.HelpView.SetBorder(true).SetTitle(" Keys ")
	d.HelpView.SetText("[yellow]Ctrl+L[white] redraw   [yellow]Ctrl+C[white] quit")
}

func (d *Dashboard) buildLayout() {
	d.MainLayout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(d.PipesView, 0, 1, false).
		AddItem(d.BestView, 0, 3, false).
		AddItem(d.HelpView, 3, 0, false)

	d.Pages = tview.NewPages().
		AddPage("main", d.MainLayout, true, true)
}

func (d *Dashboard) setupKeyBindings() {
	d.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			d.App.Stop()
			return nil
		case tcell.KeyCtrlL:
			d.RefreshAll()
			return nil
		}
		return event
	})
}

// PipeCycle implements pipeline.EventSink. It records the pipe's latest
// saturation state and schedules a redraw on the UI goroutine.
func (d *Dashboard) PipeCycle(name string, saturated bool) {
	d.mu.Lock()
	row, ok := d.pipes[name]
	if !ok {
		row = &pipeRow{name: name}
		d.pipes[name] = row
	}
	row.saturated = saturated
	row.lastCycle = time.Now()
	row.cycleCount++
	d.mu.Unlock()

	d.queueRefresh()
}

// BestScore implements pipeline.EventSink. It appends a line to the best-
// score history and schedules a redraw.
func (d *Dashboard) BestScore(name string, score float64) {
	d.mu.Lock()
	d.haveBest = true
	d.bestScore = score
	line := fmt.Sprintf("%s  %-10s %.4f", time.Now().Format("15:04:05"), name, score)
	d.bestLines = append(d.bestLines, line)
	if len(d.bestLines) > 500 {
		d.bestLines = d.bestLines[len(d.bestLines)-500:]
	}
	d.mu.Unlock()

	d.queueRefresh()
}

// queueRefresh asks the running application to redraw. Before Run is
// called (or after Stop), QueueUpdateDraw has no event loop to deliver to,
// so the redraw is dropped rather than blocking the caller.
func (d *Dashboard) queueRefresh() {
	d.App.QueueUpdateDraw(func() {
		d.renderPipes()
		d.renderBest()
	})
}

// RefreshAll redraws every panel immediately. Safe to call from the UI
// goroutine (it does not itself queue through QueueUpdateDraw).
func (d *Dashboard) RefreshAll() {
	d.renderPipes()
	d.renderBest()
	d.App.Draw()
}

func (d *Dashboard) renderPipes() {
	d.mu.Lock()
	names := make([]string, 0, len(d.pipes))
	for name := range d.pipes {
		names = append(names, name)
	}
	sort.Strings(names)

	var text string
	for _, name := range names {
		row := d.pipes[name]
		state := "[green]idle[white]"
		if row.saturated {
			state = "[red]saturated[white]"
		}
		text += fmt.Sprintf("%-12s %-20s cycles=%-8d last=%s\n",
			row.name, state, row.cycleCount, row.lastCycle.Format("15:04:05"))
	}
	d.mu.Unlock()

	d.PipesView.SetText(text)
}

func (d *Dashboard) renderBest() {
	d.mu.Lock()
	lines := make([]string, len(d.bestLines))
	copy(lines, d.bestLines)
	d.mu.Unlock()

	var text string
	for _, line := range lines {
		text += line + "\n"
	}
	d.BestView.SetText(text)
	d.BestView.ScrollToEnd()
}

// Run starts the dashboard's event loop. It blocks until Stop is called
// or the user presses Ctrl+C.
func (d *Dashboard) Run() error {
	d.RefreshAll()
	return d.App.SetRoot(d.Pages, true).SetFocus(d.PipesView).Run()
}

// Stop stops the dashboard's event loop.
func (d *Dashboard) Stop() {
	d.App.Stop()
}
