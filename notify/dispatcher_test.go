package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"challenges/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeTransport struct {
	mu      sync.Mutex
	sent    map[string]string
	failFor map[string]bool

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	delay       time.Duration
}

func newFakeTransport(failing ...string) *fakeTransport {
	f := &fakeTransport{sent: map[string]string{}, failFor: map[string]bool{}}
	for _, r := range failing {
		f.failFor[r] = true
	}
	return f
}

func (f *fakeTransport) Send(ctx context.Context, to, subject, html string) error {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.maxInFlight.Load()
		if n <= peak || f.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.failFor[to] {
		return errors.New("mailbox unavailable")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[to] = subject + "\n" + html
	return nil
}

func testPost() *models.Post {
	return &models.Post{
		ID:       primitive.NewObjectID(),
		Kind:     models.KindBlog,
		Title:    "Build a <Go> service",
		ImageURL: "https://res.cloudinary.com/demo/image/upload/sample.jpg",
	}
}

func TestDispatcherNotifyNewPost(t *testing.T) {
	ctx := context.Background()
	post := testPost()

	t.Run("no recipients", func(t *testing.T) {
		transport := newFakeTransport()
		d := NewDispatcher(transport, Options{Workers: 2})

		report := d.NotifyNewPost(ctx, post, nil)
		assert.Equal(t, OutcomeSkipped, report.Outcome)
		assert.Empty(t, transport.sent)
	})

	t.Run("all sent", func(t *testing.T) {
		transport := newFakeTransport()
		d := NewDispatcher(transport, Options{Workers: 2, SiteURL: "https://example.com/"})

		report := d.NotifyNewPost(ctx, post, []string{"a@example.com", "b@example.com"})
		assert.Equal(t, OutcomeSent, report.Outcome)
		assert.Equal(t, 2, report.Sent)
		require.Len(t, transport.sent, 2)

		body := transport.sent["a@example.com"]
		assert.True(t, strings.HasPrefix(body, newPostSubject))
		assert.Contains(t, body, "https://example.com/openedblog?id="+post.ID.Hex())
		assert.Contains(t, body, post.ImageURL)
		assert.Contains(t, body, "Build a &lt;Go&gt; service")
	})

	t.Run("partial failure", func(t *testing.T) {
		transport := newFakeTransport("b@example.com")
		d := NewDispatcher(transport, Options{Workers: 2})

		report := d.NotifyNewPost(ctx, post, []string{"a@example.com", "b@example.com", "c@example.com"})
		assert.Equal(t, OutcomePartiallySent, report.Outcome)
		assert.Equal(t, 2, report.Sent)
		require.Len(t, report.Failures, 1)
		assert.Equal(t, "b@example.com", report.Failures[0].Recipient)
	})

	t.Run("total failure", func(t *testing.T) {
		transport := newFakeTransport("a@example.com")
		d := NewDispatcher(transport, Options{Workers: 2})

		report := d.NotifyNewPost(ctx, post, []string{"a@example.com"})
		assert.Equal(t, OutcomeFailed, report.Outcome)
		assert.Zero(t, report.Sent)
	})

	t.Run("send timeout", func(t *testing.T) {
		transport := newFakeTransport()
		transport.delay = time.Second
		d := NewDispatcher(transport, Options{Workers: 1, SendTimeout: 10 * time.Millisecond})

		report := d.NotifyNewPost(ctx, post, []string{"slow@example.com"})
		assert.Equal(t, OutcomeFailed, report.Outcome)
		require.Len(t, report.Failures, 1)
		assert.ErrorIs(t, report.Failures[0].Err, context.DeadlineExceeded)
	})
}

func TestDispatcherBoundsConcurrency(t *testing.T) {
	transport := newFakeTransport()
	transport.delay = 5 * time.Millisecond
	d := NewDispatcher(transport, Options{Workers: 3})

	recipients := make([]string, 12)
	for i := range recipients {
		recipients[i] = fmt.Sprintf("user%d@example.com", i)
	}

	report := d.NotifyNewPost(context.Background(), testPost(), recipients)
	assert.Equal(t, OutcomeSent, report.Outcome)
	assert.Equal(t, 12, report.Sent)
	assert.LessOrEqual(t, transport.maxInFlight.Load(), int32(3))
}

func TestDispatcherRoundTimeout(t *testing.T) {
	transport := newFakeTransport()
	transport.delay = time.Hour
	d := NewDispatcher(transport, Options{
		Workers:      4,
		SendTimeout:  50 * time.Millisecond,
		RoundTimeout: 60 * time.Millisecond,
	})

	recipients := make([]string, 40)
	for i := range recipients {
		recipients[i] = fmt.Sprintf("user%d@example.com", i)
	}

	start := time.Now()
	report := d.NotifyNewPost(context.Background(), testPost(), recipients)
	elapsed := time.Since(start)

	// Ten rounds of 50ms sends would take 500ms without the cap.
	assert.Less(t, elapsed, 300*time.Millisecond)
	assert.Equal(t, OutcomeFailed, report.Outcome)
	require.Len(t, report.Failures, 40)
	for _, f := range report.Failures {
		assert.ErrorIs(t, f.Err, context.DeadlineExceeded)
	}
}

