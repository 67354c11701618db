package notification_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"chrona/internal/notification"
	id "chrona/pkg/domain"
	"chrona/pkg/platform/circuit"
)

// =============================================================================
// Email Sink Test Suite
// =============================================================================
// Justification for unit tests: the breaker must shed load while the mail
// transport is down and recover on its own once it comes back. Both halves
// are timing-dependent and need a stepped clock to pin down.

type scriptedMailer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *scriptedMailer) Send(context.Context, string, string, string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.err
}

func (m *scriptedMailer) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *scriptedMailer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type staticAddresses struct {
	address string
}

func (a *staticAddresses) EmailFor(context.Context, id.UserID) (string, error) {
	return a.address, nil
}

type steppedClock struct {
	t time.Time
}

func (c *steppedClock) now() time.Time          { return c.t }
func (c *steppedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type EmailSinkSuite struct {
	suite.Suite
	mailer *scriptedMailer
	clock  *steppedClock
	sink   *notification.EmailSink
}

func TestEmailSinkSuite(t *testing.T) {
	suite.Run(t, new(EmailSinkSuite))
}

func (s *EmailSinkSuite) SetupTest() {
	s.mailer = &scriptedMailer{}
	s.clock = &steppedClock{t: time.Unix(0, 0)}
	s.sink = notification.NewEmailSink(
		s.mailer,
		&staticAddresses{address: "jane.doe@example.com"},
		newTestLogger(),
		circuit.WithFailureThreshold(3),
		circuit.WithSuccessThreshold(1),
		circuit.WithOpenTimeout(10*time.Second),
		circuit.WithClock(s.clock.now),
	)
}

func (s *EmailSinkSuite) deliver() error {
	return s.sink.Deliver(context.Background(), notification.Notification{
		ID:        id.NewNotificationID(),
		Recipient: id.NewUserID(),
		Type:      notification.TypeLeaveApproved,
		Title:     "Leave request approved",
		Message:   "Your leave request was approved.",
	})
}

// -----------------------------------------------------------------------------
// Breaker behavior
// -----------------------------------------------------------------------------

func (s *EmailSinkSuite) TestOpenCircuitShedsMailerCalls() {
	s.mailer.setErr(errors.New("smtp down"))

	for i := 0; i < 3; i++ {
		s.Error(s.deliver())
	}
	s.Equal(3, s.mailer.callCount())

	// Further deliveries are rejected without touching the transport
	s.Error(s.deliver())
	s.Error(s.deliver())
	s.Equal(3, s.mailer.callCount())
}

func (s *EmailSinkSuite) TestChannelRecoversAfterTransportComesBack() {
	s.mailer.setErr(errors.New("smtp down"))
	for i := 0; i < 3; i++ {
		s.Error(s.deliver())
	}

	// Transport recovers, but the open timeout has not elapsed yet
	s.mailer.setErr(nil)
	s.Error(s.deliver())
	s.Equal(3, s.mailer.callCount())

	// Past the timeout a trial send goes through and closes the circuit
	s.clock.advance(11 * time.Second)
	s.NoError(s.deliver())
	s.Equal(4, s.mailer.callCount())

	// Subsequent deliveries flow without waiting
	s.NoError(s.deliver())
	s.Equal(5, s.mailer.callCount())
}

func (s *EmailSinkSuite) TestFailedTrialKeepsCircuitOpen() {
	s.mailer.setErr(errors.New("smtp down"))
	for i := 0; i < 3; i++ {
		s.Error(s.deliver())
	}

	// The trial reaches the transport, fails, and the wait starts over
	s.clock.advance(11 * time.Second)
	s.Error(s.deliver())
	s.Equal(4, s.mailer.callCount())

	s.Error(s.deliver())
	s.Equal(4, s.mailer.callCount())
}

func (s *EmailSinkSuite) TestDeliverySucceedsWhileClosed() {
	s.NoError(s.deliver())
	s.Equal(1, s.mailer.callCount())
}
