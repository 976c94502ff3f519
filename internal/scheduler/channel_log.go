package scheduler

import (
	"context"

	"dentalcrm_backend/platform/logger"
)

// LogChannel records notifications instead of delivering them. It is the
// last-resort channel for environments without WhatsApp or SMTP configured,
// so the dispatcher still drains the queue.
type LogChannel struct {
	log *logger.Logger
}

func NewLogChannel(log *logger.Logger) *LogChannel {
	return &LogChannel{log: log}
}

func (c *LogChannel) Name() string {
	return "log"
}

func (c *LogChannel) Send(_ context.Context, title, content string) error {
	c.log.Info("notification delivered to log channel", "title", title, "content", content)
	return nil
}
