package state

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/m3rciful/bookbot/core/logger"
)

// Sweeper removes expired sessions.
type Sweeper interface {
	Sweep() int
}

// StartSweeper schedules periodic sweeps on a cron spec such as "@every 5m".
// The returned cron must be stopped by the caller.
func StartSweeper(s Sweeper, spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if n := s.Sweep(); n > 0 {
			logger.Sessions.Info("sessions swept",
				slog.String("event", "sweep"),
				slog.Int("expired", n),
			)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("state: invalid sweep schedule %q: %w", spec, err)
	}
	c.Start()
	logger.Sessions.Debug("sweeper started",
		slog.String("event", "sweep.start"),
		slog.String("schedule", spec),
	)
	return c, nil
}
