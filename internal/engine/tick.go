package engine

import (
	"context"
	"errors"
	"time"

	"github.com/talgya/extended-life/internal/world"
)

// ErrAlreadyPlaying is returned when Play is called on an engine that is
// already playing a game.
var ErrAlreadyPlaying = errors.New("engine is already playing")

// Play advances game one step per Interval (scaled by Speed), applying events
// from schedule, until ctx is done, Stop is called, or maxSteps steps have run
// (0 = no limit). Blocks until then. Cancelling ctx is the reliable way to end
// playback from another goroutine; Stop only reaches a Play already running.
func (e *Engine) Play(ctx context.Context, game *world.Game, schedule world.Schedule, maxSteps int) error {
	if game == nil {
		return ErrNilGame
	}
	e.mu.Lock()
	if e.running != nil {
		e.mu.Unlock()
		return ErrAlreadyPlaying
	}
	stop := make(chan struct{})
	e.running = stop
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		if e.running == stop {
			e.running = nil
		}
		e.mu.Unlock()
	}()

	if schedule != nil {
		game.Schedule = schedule.Clone()
	}
	current := game.Latest()
	if current == nil {
		return ErrUnconfigured
	}
	if current.Step == 0 {
		if err := current.Snapshot(); err != nil {
			return err
		}
	}

	e.logger.Info("playback started", "game", game.ID, "step", current.Step, "speed", e.Speed)

	// wait blocks for d, reporting false when playback should end.
	wait := func(d time.Duration) bool {
		if d <= 0 {
			select {
			case <-ctx.Done():
				return false
			case <-stop:
				return false
			default:
				return true
			}
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false
		case <-stop:
			return false
		case <-timer.C:
			return true
		}
	}

	for n := 0; maxSteps <= 0 || n < maxSteps; {
		if e.Speed <= 0 {
			// Paused; check again shortly.
			if !wait(100 * time.Millisecond) {
				break
			}
			continue
		}
		if !wait(0) {
			break
		}

		start := time.Now()
		next, err := e.Step(game, current, game.Schedule.At(current.Step))
		if err != nil {
			return err
		}
		current = next
		n++
		if maxSteps > 0 && n >= maxSteps {
			break
		}

		// Sleep for the remainder of the step interval, adjusted for speed.
		target := time.Duration(float64(e.Interval) / e.Speed)
		if !wait(target - time.Since(start)) {
			break
		}
	}

	e.logger.Info("playback finished", "game", game.ID, "step", current.Step)
	return nil
}

// Stop halts Play. Safe to call when not playing.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running != nil {
		close(e.running)
		e.running = nil
	}
}
