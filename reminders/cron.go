package reminders

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// StartJobs schedules the two reminder horizons: hourly for the 24-hour
// window, every 15 minutes for the 1-hour window. Each pass is a pure
// claim → notify → log loop, so running extra instances elsewhere is safe.
func StartJobs(svc *Service) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc("0 * * * *", func() {
		if _, err := svc.Run(context.Background(), Horizon24h); err != nil {
			log.Error().Err(err).Msg("24h reminder run failed")
		}
	})
	if err != nil {
		return nil, err
	}

	_, err = c.AddFunc("*/15 * * * *", func() {
		if _, err := svc.Run(context.Background(), Horizon1h); err != nil {
			log.Error().Err(err).Msg("1h reminder run failed")
		}
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	log.Info().Msg("reminder jobs scheduled")
	return c, nil
}
