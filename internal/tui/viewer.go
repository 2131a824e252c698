// Package tui draws a running game on a terminal screen.
package tui

import (
	"context"
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"

	"github.com/talgya/extended-life/internal/cells"
	"github.com/talgya/extended-life/internal/engine"
	"github.com/talgya/extended-life/internal/world"
)

const deadGlyph = '.'

var variantGlyphs = map[cells.Variant]rune{
	cells.Standard:    world.AliveGlyph,
	cells.Territorial: 'T',
	cells.Gregarious:  'G',
	cells.Resilient:   'R',
}

var variantColors = map[cells.Variant]tcell.Color{
	cells.Standard:    tcell.ColorGreen,
	cells.Territorial: tcell.ColorBlue,
	cells.Gregarious:  tcell.ColorYellow,
	cells.Resilient:   tcell.ColorPurple,
}

type glyph struct {
	r     rune
	style tcell.Style
}

// frame is an immutable copy of one generation, safe to draw off the engine goroutine.
type frame struct {
	width, height int
	glyphs        []glyph
	summary       engine.StepSummary
}

// Viewer renders each committed generation of one game.
type Viewer struct {
	screen tcell.Screen
	game   *world.Game

	frames chan frame
	done   chan struct{}
	once   sync.Once
}

// Open initializes the terminal and returns a viewer for game.
func Open(game *world.Game) (*Viewer, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("open terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("init terminal: %w", err)
	}
	return NewViewer(screen, game), nil
}

// NewViewer wraps an initialized screen.
func NewViewer(screen tcell.Screen, game *world.Game) *Viewer {
	return &Viewer{
		screen: screen,
		game:   game,
		frames: make(chan frame, 1),
		done:   make(chan struct{}),
	}
}

// Observe is an engine OnStep callback. It captures the latest generation and
// hands it to the draw loop, replacing any frame not yet drawn. It must be
// called from the goroutine that advances the game.
func (v *Viewer) Observe(s engine.StepSummary) {
	f := v.capture(s)
	select {
	case <-v.frames:
	default:
	}
	select {
	case v.frames <- f:
	default:
	}
}

func (v *Viewer) capture(s engine.StepSummary) frame {
	b := v.game.Board
	gen := v.game.Latest()
	f := frame{
		width:   b.Width,
		height:  b.Height,
		glyphs:  make([]glyph, b.Len()),
		summary: s,
	}
	for _, c := range b.Cells() {
		if gen == nil || !gen.Alive(c.ID) {
			f.glyphs[c.ID] = glyph{r: deadGlyph, style: tcell.StyleDefault.Foreground(tcell.ColorGray)}
			continue
		}
		style := tcell.StyleDefault.Foreground(variantColors[c.Variant])
		if c.Predatory() {
			style = style.Foreground(tcell.ColorRed).Bold(true)
		}
		if c.Infected {
			style = style.Underline(true)
		}
		f.glyphs[c.ID] = glyph{r: variantGlyphs[c.Variant], style: style}
	}
	return f
}

// Done is closed once the user quits.
func (v *Viewer) Done() <-chan struct{} {
	return v.done
}

// Run draws frames until the user presses Esc, q or Ctrl-C, or ctx ends.
func (v *Viewer) Run(ctx context.Context) {
	defer v.quit()

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-v.done:
				return
			}
		}
	}()

	var last frame
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-v.frames:
			last = f
			v.draw(f)
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
					(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
					return
				}
			case *tcell.EventResize:
				v.screen.Sync()
				if last.glyphs != nil {
					v.draw(last)
				}
			}
		}
	}
}

func (v *Viewer) quit() {
	v.once.Do(func() { close(v.done) })
}

// Close restores the terminal.
func (v *Viewer) Close() {
	v.quit()
	v.screen.Fini()
}

func (v *Viewer) draw(f frame) {
	v.screen.Clear()
	sw, sh := v.screen.Size()
	for y := 0; y < f.height && y < sh-1; y++ {
		for x := 0; x < f.width && x < sw; x++ {
			g := f.glyphs[y*f.width+x]
			v.screen.SetContent(x, y, g.r, nil, g.style)
		}
	}
	drawText(v.screen, 0, min(f.height, sh-1), tcell.StyleDefault.Reverse(true), statusLine(f.summary))
	v.screen.Show()
}

func statusLine(s engine.StepSummary) string {
	line := fmt.Sprintf(" step %s  alive %s  born %s  died %s  predators %s  energy %s ",
		humanize.Comma(int64(s.Step)),
		humanize.Comma(int64(s.Alive)),
		humanize.Comma(int64(s.Born)),
		humanize.Comma(int64(s.Died)),
		humanize.Comma(int64(s.Predators)),
		humanize.Comma(int64(s.TotalEnergy)),
	)
	if s.Event != world.NoEvent {
		line += " [" + s.Event.String() + "] "
	}
	return line + " q to quit "
}

func drawText(screen tcell.Screen, x, y int, style tcell.Style, text string) {
	for i, r := range []rune(text) {
		screen.SetContent(x+i, y, r, nil, style)
	}
}
