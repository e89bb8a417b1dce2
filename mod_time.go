package scenecore

import (
	"time"
)

// Time is the frame clock. Elapsed is the world time the light environments
// and the streaming scheduler compare render times against.
type Time struct {
	Time    time.Time
	Dt      time.Duration
	Elapsed time.Duration
	Frame   uint64

	fixedStep time.Duration
}

// DtSeconds is the last frame duration in seconds.
func (t *Time) DtSeconds() float32 { return float32(t.Dt.Seconds()) }

// Now is the world time in seconds.
func (t *Time) Now() float64 { return t.Elapsed.Seconds() }

// TimeModule installs the Time resource. A non zero FixedStep advances the
// clock by that amount every frame instead of following the wall clock.
type TimeModule struct {
	FixedStep time.Duration
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Time{
		Time:      time.Now(),
		fixedStep: mod.FixedStep,
	})
	app.UseSystem(System(timeSystem).InStage(Prelude))
}

func timeSystem(t *Time) {
	now := time.Now()
	if t.fixedStep > 0 {
		now = t.Time.Add(t.fixedStep)
	}

	t.Dt = now.Sub(t.Time)
	t.Time = now
	t.Elapsed += t.Dt
	t.Frame++
}
