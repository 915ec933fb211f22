package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
)

const defaultRefreshTimeout = 30 * time.Second

// startRefresher keeps the cached user fresh while the service runs so a
// long lived browser tab sees balance and plan changes.
func (s *Server) startRefresher() error {
	interval := s.Config.Server.RefreshInterval
	if interval <= 0 {
		return nil
	}

	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()

	if _, err := scheduler.Every(interval).WaitForSchedule().Do(s.refreshUser); err != nil {
		return fmt.Errorf("failed to schedule user refresh: %w", err)
	}

	scheduler.StartAsync()
	s.scheduler = scheduler

	logrus.WithFields(logrus.Fields{
		"interval": interval.String(),
	}).Debugln("Scheduled user refresh")

	return nil
}

func (s *Server) stopRefresher() {
	if s.scheduler != nil {
		s.scheduler.Stop()
		s.scheduler = nil
	}
}

func (s *Server) refreshUser() {
	if !s.Manager.IsAuthenticated() {
		return
	}

	timeout := s.Config.API.Timeout
	if timeout <= 0 {
		timeout = defaultRefreshTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Manager.RefreshUser(ctx); err != nil {
		logrus.WithError(err).Warnln("Scheduled user refresh failed")
	}
}
