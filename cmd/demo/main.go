package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/kass/go-geo-grid/internal/logger"
	"github.com/kass/go-geo-grid/pkg/grid"
	"github.com/kass/go-geo-grid/pkg/index"
	"github.com/kass/go-geo-grid/pkg/models"
)

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF79C6")).
			Background(lipgloss.Color("#282A36")).
			Padding(0, 1).
			MarginTop(1).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8BE9FD"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F1FA8C"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#BD93F9")).
			Padding(1, 2).
			MarginTop(1).
			MarginBottom(1)

	statStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFB86C"))
)

type stage int

const (
	stageGenerate stage = iota
	stageFilter
	stageMap
	stageCount
	stageDone
)

var stageNames = [...]string{
	stageGenerate: "Generating trip samples",
	stageFilter:   "Filtering samples to the grid box",
	stageMap:      "Mapping samples to cells",
	stageCount:    "Counting occurrences",
}

type demoConfig struct {
	points  int
	size    int
	workers int
	seed    int64
	box     models.BoundingBox
}

type stageResult struct {
	stage    stage
	duration time.Duration
	detail   string
}

type summary struct {
	tess    *grid.Tessellation
	total   int
	inside  int
	outside int
	busiest []models.CellCount
	elapsed time.Duration
}

type progressMsg float64
type stageCompleteMsg stageResult
type doneMsg summary
type errMsg struct{ err error }

type model struct {
	stage           stage
	spinner         spinner.Model
	progress        progress.Model
	progressPercent float64
	completed       []stageResult
	summary         *summary
	err             error
	cancel          context.CancelFunc
}

func initialModel(cancel context.CancelFunc) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	return model{
		stage:    stageGenerate,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient()),
		cancel:   cancel,
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.progress.Width = msg.Width - 10
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case progressMsg:
		m.progressPercent = float64(msg)
		return m, m.progress.SetPercent(float64(msg))

	case stageCompleteMsg:
		m.completed = append(m.completed, stageResult(msg))
		m.stage = msg.stage + 1
		m.progressPercent = 0
		return m, m.progress.SetPercent(0)

	case doneMsg:
		s := summary(msg)
		m.summary = &s
		m.stage = stageDone
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, tea.Quit
	}

	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Go Geo-Grid Demo"))
	b.WriteString("\n\n")

	for _, r := range m.completed {
		b.WriteString(successStyle.Render("✓ " + stageNames[r.stage]))
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %s  %s", r.duration.Round(time.Millisecond), r.detail)))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render("Error: "+m.err.Error()) + "\n")
		return b.String()
	}

	if m.stage < stageDone {
		b.WriteString("\n")
		b.WriteString(subtitleStyle.Render(stageNames[m.stage]))
		b.WriteString("\n\n")
		b.WriteString(m.spinner.View() + " working...\n\n")
		b.WriteString(m.progress.ViewAs(m.progressPercent))
	} else if m.summary != nil {
		b.WriteString(renderSummary(*m.summary))
	}

	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("Press 'q' to quit"))
	return b.String()
}

func renderSummary(s summary) string {
	var busiest strings.Builder
	for _, c := range s.busiest {
		fmt.Fprintf(&busiest, "cell %s (x=%d, y=%d): %s\n",
			statStyle.Render(c.GridNr), c.GridX, c.GridY, statStyle.Render(fmt.Sprintf("%d", c.Count)))
	}

	return boxStyle.Render(
		infoStyle.Render("Binning Summary:\n\n") +
			fmt.Sprintf("Grid: %s cells (%.5f° x %.5f°)\n",
				statStyle.Render(fmt.Sprintf("%d", s.tess.Cells())), s.tess.XStep(), s.tess.YStep()) +
			fmt.Sprintf("Samples: %s generated, %s inside, %s dropped\n",
				statStyle.Render(fmt.Sprintf("%d", s.total)),
				statStyle.Render(fmt.Sprintf("%d", s.inside)),
				statStyle.Render(fmt.Sprintf("%d", s.outside))) +
			fmt.Sprintf("Total time: %s\n\n", statStyle.Render(s.elapsed.Round(time.Millisecond).String())) +
			subtitleStyle.Render("Busiest cells:\n") + busiest.String(),
	)
}

// runPipeline generates samples and bins them, reporting progress through
// send. It mirrors what `geogrid count` does on a real input file.
func runPipeline(ctx context.Context, cfg demoConfig, send func(tea.Msg)) (summary, error) {
	start := time.Now()

	tess, err := grid.NewFromBox(cfg.box, cfg.size)
	if err != nil {
		return summary{}, err
	}

	stageStart := time.Now()
	points := generatePoints(cfg, send)
	send(stageCompleteMsg{stage: stageGenerate, duration: time.Since(stageStart),
		detail: fmt.Sprintf("%d samples", len(points))})

	stageStart = time.Now()
	idx := index.NewPointIndex()
	if err := idx.IndexPoints(points); err != nil {
		return summary{}, err
	}
	send(progressMsg(0.5))
	inside, err := idx.QueryBox(tess.Box())
	if err != nil {
		return summary{}, err
	}
	send(stageCompleteMsg{stage: stageFilter, duration: time.Since(stageStart),
		detail: fmt.Sprintf("%d inside", len(inside))})

	stageStart = time.Now()
	lons := make([]float64, len(inside))
	lats := make([]float64, len(inside))
	for i, p := range inside {
		lons[i], lats[i] = p.Location.Lon, p.Location.Lat
	}
	cells := make([]models.Cell, 0, len(inside))
	const chunks = 20
	chunk := (len(inside) + chunks - 1) / chunks
	if chunk == 0 {
		chunk = 1
	}
	for lo := 0; lo < len(inside); lo += chunk {
		hi := min(lo+chunk, len(inside))
		xs, ys, err := tess.MapPointsParallel(ctx, lons[lo:hi], lats[lo:hi], cfg.workers)
		if err != nil {
			return summary{}, err
		}
		for i := range xs {
			cells = append(cells, models.Cell{X: xs[i], Y: ys[i]})
		}
		send(progressMsg(float64(hi) / float64(len(inside))))
	}
	send(stageCompleteMsg{stage: stageMap, duration: time.Since(stageStart),
		detail: fmt.Sprintf("%d workers", cfg.workers)})

	stageStart = time.Now()
	counts, outside := tess.CountCells(cells)
	send(stageCompleteMsg{stage: stageCount, duration: time.Since(stageStart),
		detail: fmt.Sprintf("%d cells", len(counts))})

	busiest := append([]models.CellCount(nil), counts...)
	sort.SliceStable(busiest, func(i, j int) bool { return busiest[i].Count > busiest[j].Count })
	if len(busiest) > 5 {
		busiest = busiest[:5]
	}

	return summary{
		tess:    tess,
		total:   len(points),
		inside:  len(inside) - outside,
		outside: len(points) - len(inside) + outside,
		busiest: busiest,
		elapsed: time.Since(start),
	}, nil
}

// generatePoints draws a dense hotspot around the box centre plus uniform
// background noise over a slightly larger area.
func generatePoints(cfg demoConfig, send func(tea.Msg)) []*models.Point {
	r := rand.New(rand.NewSource(cfg.seed))
	points := make([]*models.Point, cfg.points)

	minLon, minLat := cfg.box.BottomLeft.Lon, cfg.box.BottomLeft.Lat
	width := cfg.box.TopRight.Lon - minLon
	height := cfg.box.TopRight.Lat - minLat
	step := max(cfg.points/20, 1)

	for i := range points {
		var lon, lat float64
		if r.Intn(3) == 0 {
			lon = minLon + width/2 + r.NormFloat64()*width/8
			lat = minLat + height/2 + r.NormFloat64()*height/8
		} else {
			lon = minLon - width*0.05 + r.Float64()*width*1.1
			lat = minLat - height*0.05 + r.Float64()*height*1.1
		}
		points[i] = &models.Point{
			ID:       fmt.Sprintf("taxi_%d", r.Intn(450)),
			Location: &models.Location{Lat: lat, Lon: lon},
		}
		if (i+1)%step == 0 {
			send(progressMsg(float64(i+1) / float64(cfg.points)))
		}
	}
	return points
}

func main() {
	var (
		numPoints = flag.Int("n", 500000, "Number of samples to generate")
		size      = flag.Int("size", 10, "Grid size")
		workers   = flag.Int("w", runtime.NumCPU(), "Mapping workers")
		seed      = flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	)
	flag.Parse()

	log, err := logger.New("info", true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	box, _ := models.NewBoundingBox(-8.73, 41.10, -8.52, 41.25)
	cfg := demoConfig{points: *numPoints, size: *size, workers: max(*workers, 1), seed: *seed, box: box}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !isatty.IsTerminal(os.Stdout.Fd()) {
		s, err := runPipeline(ctx, cfg, func(msg tea.Msg) {
			if r, ok := msg.(stageCompleteMsg); ok {
				log.Info(stageNames[r.stage], zap.Duration("took", r.duration), zap.String("detail", r.detail))
			}
		})
		if err != nil {
			log.Fatal("demo failed", zap.Error(err))
		}
		fmt.Println(renderSummary(s))
		return
	}

	program := tea.NewProgram(initialModel(cancel))
	go func() {
		s, err := runPipeline(ctx, cfg, program.Send)
		if err != nil {
			program.Send(errMsg{err: err})
			return
		}
		program.Send(doneMsg(s))
	}()

	if _, err := program.Run(); err != nil {
		log.Fatal("demo failed", zap.Error(err))
	}
}
