package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/follow-comb/app/tracker"
)

type Notifier interface {
	Notify(ctx context.Context, summary tracker.RunSummary) error
}

var (
	_ Notifier = (*MailNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = Multi(nil)
)

// Sender delivers one prepared message.
type Sender interface {
	Send(ctx context.Context, from string, to []string, msg []byte) error
}

// Options are read on every notification so settings edits apply without a
// restart.
type Options struct {
	Enabled         bool
	Recipients      []string
	Subject         string
	SpreadsheetLink string
}

type MailNotifier struct {
	sender  Sender
	from    string
	options func() Options
	now     func() time.Time
	logger  *slog.Logger
}

func NewMailNotifier(sender Sender, from string, options func() Options, logger *slog.Logger) *MailNotifier {
	return &MailNotifier{
		sender:  sender,
		from:    from,
		options: options,
		now:     time.Now,
		logger:  logger,
	}
}

func (n *MailNotifier) Notify(ctx context.Context, summary tracker.RunSummary) error {
	opts := n.options()
	if !opts.Enabled || len(opts.Recipients) == 0 {
		n.logger.Debug("Summary mail disabled", "run_id", summary.RunID)
		return nil
	}

	body, err := RenderSummary(summary, opts.SpreadsheetLink)
	if err != nil {
		return err
	}

	msg := n.compose(opts, body)
	if err := n.sender.Send(ctx, n.from, opts.Recipients, msg); err != nil {
		return fmt.Errorf("failed to send summary mail: %w", err)
	}

	n.logger.Info("Summary mail sent",
		"run_id", summary.RunID,
		"recipients", len(opts.Recipients))
	return nil
}

func (n *MailNotifier) compose(opts Options, body string) []byte {
	var b bytes.Buffer
	header := func(k, v string) {
		b.WriteString(k + ": " + v + "\r\n")
	}

	header("From", n.from)
	header("To", strings.Join(opts.Recipients, ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", opts.Subject))
	header("Date", n.now().Format(time.RFC1123Z))
	header("Message-ID", "<"+uuid.NewString()+"@follow-comb>")
	header("MIME-Version", "1.0")
	header("Content-Type", `text/html; charset="utf-8"`)
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return b.Bytes()
}

// LogNotifier writes the summary to the log. It is used when no mail server
// is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, summary tracker.RunSummary) error {
	n.logger.Info("Run summary",
		"run_id", summary.RunID,
		"profiles", summary.ProfilesProcessed,
		"follows", summary.FollowCount(),
		"unfollows", summary.UnfollowCount(),
		"failures", len(summary.Failures),
		"duration", summary.Duration())

	for _, f := range summary.NewFollows {
		n.logger.Info("New follow",
			"company", f.CompanyName,
			"follower", f.FollowerName,
			"date", f.DateFollowed)
	}
	for _, u := range summary.NewUnfollows {
		n.logger.Info("New unfollow",
			"company", u.CompanyName,
			"follower", u.FollowerName,
			"date", u.UnfollowedDate)
	}
	return nil
}

// Multi fans a summary out to several notifiers and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, summary tracker.RunSummary) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, summary); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
