// Package notify dispatches user notifications after moderation decisions.
// Delivery is best-effort: a failed notification is logged and never fails
// the decision that triggered it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/extmarket/modgate/models"
	"github.com/extmarket/modgate/moderation/schema"
)

// Notifier informs the user whose edit was decided on.
type Notifier interface {
	InformUser(ctx context.Context, subject schema.Subject, user string, status models.DecisionStatus, reason string) error
}

// LogNotifier only records the notification; useful for development and as
// a default when no delivery channel is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) InformUser(ctx context.Context, subject schema.Subject, user string, status models.DecisionStatus, reason string) error {
	n.Logger.Info("user notification",
		"user", user,
		"subjectType", subject.SubjectType(),
		"subjectID", subject.SubjectID(),
		"status", status,
		"reason", reason)
	return nil
}

type webhookBody struct {
	User        string `json:"user"`
	SubjectType string `json:"subject_type"`
	SubjectID   string `json:"subject_id"`
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
}

// WebhookNotifier POSTs decision notifications to an external delivery
// service (mail sender, chat bridge). Requests are retried on transient
// failures and rate limited so a burst of bulk decisions cannot hammer the
// receiver.
type WebhookNotifier struct {
	URL     string
	Client  *http.Client
	Limiter *rate.Limiter
	Logger  *slog.Logger
}

func NewWebhookNotifier(url string, perSecond float64, logger *slog.Logger) *WebhookNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 10 * time.Second
	rc.Logger = leveledSlog{logger.With("component", "notify")}
	return &WebhookNotifier{
		URL:     url,
		Client:  rc.StandardClient(),
		Limiter: rate.NewLimiter(rate.Limit(perSecond), int(perSecond)+1),
		Logger:  logger,
	}
}

func (n *WebhookNotifier) InformUser(ctx context.Context, subject schema.Subject, user string, status models.DecisionStatus, reason string) error {
	if !n.Limiter.Allow() {
		n.Logger.Warn("notification rate limit exceeded, dropping", "user", user, "subjectType", subject.SubjectType())
		return nil
	}
	body, err := json.Marshal(webhookBody{
		User:        user,
		SubjectType: subject.SubjectType(),
		SubjectID:   subject.SubjectID(),
		Status:      string(status),
		Reason:      reason,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	resp, err := n.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notification webhook POST failed. status=%d", resp.StatusCode)
	}
	return nil
}

// leveledSlog adapts slog to the retryable client's logger, dropping client
// ERROR to WARN (retries make most errors transient).
type leveledSlog struct {
	inner *slog.Logger
}

func (l leveledSlog) Error(msg string, keysAndValues ...interface{}) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledSlog) Warn(msg string, keysAndValues ...interface{}) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledSlog) Info(msg string, keysAndValues ...interface{}) {
	l.inner.Info(msg, keysAndValues...)
}

func (l leveledSlog) Debug(msg string, keysAndValues ...interface{}) {
	l.inner.Debug(msg, keysAndValues...)
}
