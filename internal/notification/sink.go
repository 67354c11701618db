package notification

import (
	"context"
	"fmt"
	"log/slog"

	id "chrona/pkg/domain"
	"chrona/pkg/email"
	"chrona/pkg/platform/circuit"
)

//go:generate mockgen -source=sink.go -destination=mocks/mocks.go -package=mocks Sink,Mailer,AddressBook

// Sink delivers a rendered notification through one channel. Implementations
// must be safe for concurrent use; the dispatcher fans work across workers.
type Sink interface {
	Channel() Channel
	Deliver(ctx context.Context, n Notification) error
}

// InAppSink treats the persisted notification row as the in-app message
// itself, so delivery always succeeds once the record exists.
type InAppSink struct{}

func NewInAppSink() *InAppSink { return &InAppSink{} }

func (s *InAppSink) Channel() Channel { return ChannelInApp }

func (s *InAppSink) Deliver(context.Context, Notification) error { return nil }

// Mailer is the external email transport. Rendering to HTML and SMTP
// configuration live entirely outside the engine.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// AddressBook resolves a recipient's email address. Supplied by the identity
// collaborator.
type AddressBook interface {
	EmailFor(ctx context.Context, userID id.UserID) (string, error)
}

// EmailSink sends notifications through a Mailer behind a circuit breaker so
// a dead mail transport sheds load instead of burning through every retry.
type EmailSink struct {
	mailer    Mailer
	addresses AddressBook
	breaker   *circuit.Breaker
	logger    *slog.Logger
}

func NewEmailSink(mailer Mailer, addresses AddressBook, logger *slog.Logger, breakerOpts ...circuit.Option) *EmailSink {
	opts := append([]circuit.Option{
		circuit.WithFailureThreshold(5),
		circuit.WithSuccessThreshold(2),
	}, breakerOpts...)
	return &EmailSink{
		mailer:    mailer,
		addresses: addresses,
		breaker:   circuit.New("email-sink", opts...),
		logger:    logger,
	}
}

func (s *EmailSink) Channel() Channel { return ChannelEmail }

// Deliver sends through the mailer unless the breaker is shedding load. An
// open breaker still lets periodic trial sends through so the channel comes
// back on its own once the transport recovers.
func (s *EmailSink) Deliver(ctx context.Context, n Notification) error {
	if !s.breaker.Allow() {
		return fmt.Errorf("email sink circuit open")
	}

	address, err := s.addresses.EmailFor(ctx, n.Recipient)
	if err != nil {
		return fmt.Errorf("resolve recipient address: %w", err)
	}

	body := fmt.Sprintf("Hi %s,\n\n%s\n", email.GreetingName(address), n.Message)

	if err := s.mailer.Send(ctx, address, n.Title, body); err != nil {
		if _, change := s.breaker.RecordFailure(); change.Opened {
			s.logger.Warn("email sink circuit opened", "breaker", s.breaker.Name())
		}
		return fmt.Errorf("send email: %w", err)
	}
	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.Info("email sink circuit closed", "breaker", s.breaker.Name())
	}
	return nil
}

// LogMailer writes emails to the log instead of a wire. Used in development
// and tests.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer { return &LogMailer{logger: logger} }

func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.logger.Info("email", "to", to, "subject", subject, "body", body)
	return nil
}
