package services

import (
	"fmt"

	"github.com/containrrr/shoutrrr"
	"github.com/containrrr/shoutrrr/pkg/types"
	"github.com/sirupsen/logrus"

	"github.com/Wikid82/ipguard/internal/logger"
	"github.com/Wikid82/ipguard/internal/util"
)

// Notifier delivers an operator alert. Implementations must not block the
// caller on delivery failures.
type Notifier interface {
	Notify(title, message string)
}

type sender interface {
	Send(message string, params *types.Params) []error
}

// AlertService fans alerts out to the configured shoutrrr URLs.
type AlertService struct {
	sender sender
	log    *logrus.Entry
}

// NewAlertService validates urls and returns an AlertService. With no urls the
// service is a no-op.
func NewAlertService(urls []string, log *logrus.Entry) (*AlertService, error) {
	s := &AlertService{log: logger.OrDefault(log, "alerts")}
	if len(urls) == 0 {
		return s, nil
	}
	router, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, fmt.Errorf("create notification sender: %w", err)
	}
	s.sender = router
	return s, nil
}

// Notify sends title and message to every destination, logging failures.
func (s *AlertService) Notify(title, message string) {
	if s == nil || s.sender == nil {
		return
	}
	// Use newline for better formatting in chat apps
	msg := fmt.Sprintf("%s\n\n%s", title, message)
	for _, err := range s.sender.Send(msg, nil) {
		if err != nil {
			s.log.WithError(err).WithField("title", util.SanitizeForLog(title)).Error("Failed to send notification")
		}
	}
}
