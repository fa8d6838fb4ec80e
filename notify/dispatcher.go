package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"challenges/models"

	"golang.org/x/sync/errgroup"
)

// Outcome summarises a notification round.
type Outcome string

const (
	OutcomeSent          Outcome = "sent"
	OutcomePartiallySent Outcome = "partially-sent"
	OutcomeSkipped       Outcome = "skipped-no-subscribers"
	OutcomeFailed        Outcome = "failed"
)

// Transport delivers a single message.
type Transport interface {
	Send(ctx context.Context, to, subject, html string) error
}

type Failure struct {
	Recipient string
	Err       error
}

type Report struct {
	Outcome  Outcome
	Sent     int
	Failures []Failure
}

type Options struct {
	Workers      int
	SendTimeout  time.Duration
	// RoundTimeout caps a whole NotifyNewPost call. Recipients not reached
	// by then are reported as failed.
	RoundTimeout time.Duration
	SiteURL      string
}

// Dispatcher mails every recipient once. Failed sends are collected, not retried.
type Dispatcher struct {
	transport Transport
	opts      Options
}

func NewDispatcher(transport Transport, opts Options) *Dispatcher {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	opts.SiteURL = strings.TrimRight(opts.SiteURL, "/")
	return &Dispatcher{transport: transport, opts: opts}
}

// NotifyNewPost sends the new-post email to recipients and waits for every
// send to settle.
func (d *Dispatcher) NotifyNewPost(ctx context.Context, post *models.Post, recipients []string) Report {
	if len(recipients) == 0 {
		return Report{Outcome: OutcomeSkipped}
	}

	html, err := renderNewPost(post, d.opts.SiteURL)
	if err != nil {
		failures := make([]Failure, len(recipients))
		for i, r := range recipients {
			failures[i] = Failure{Recipient: r, Err: fmt.Errorf("failed to render email: %w", err)}
		}
		return Report{Outcome: OutcomeFailed, Failures: failures}
	}

	if d.opts.RoundTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.RoundTimeout)
		defer cancel()
	}

	var (
		mu     sync.Mutex
		report Report
	)
	g := new(errgroup.Group)
	g.SetLimit(d.opts.Workers)

	for _, recipient := range recipients {
		recipient := recipient
		g.Go(func() error {
			var err error
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = fmt.Errorf("mail round ended before sending: %w", ctxErr)
			} else {
				err = d.send(ctx, recipient, html)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failures = append(report.Failures, Failure{Recipient: recipient, Err: err})
			} else {
				report.Sent++
			}
			return nil
		})
	}
	g.Wait()

	switch {
	case len(report.Failures) == 0:
		report.Outcome = OutcomeSent
	case report.Sent == 0:
		report.Outcome = OutcomeFailed
	default:
		report.Outcome = OutcomePartiallySent
	}
	return report
}

func (d *Dispatcher) send(ctx context.Context, recipient, html string) error {
	if d.opts.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.SendTimeout)
		defer cancel()
	}
	return d.transport.Send(ctx, recipient, newPostSubject, html)
}
