//go:build integration

package relay_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"chrona/internal/auditlog"
	"chrona/internal/auditlog/relay"
	"chrona/internal/workflow/models"
	id "chrona/pkg/domain"
	"chrona/pkg/testutil/containers"
)

const testTopic = "workflow.log"

// Justification for integration tests:
// The relay's contract is cross-system: rows committed to the outbox table
// must come out of a Kafka topic exactly keyed and marked published. That path
// runs real SQL locking and a real producer, neither of which fakes can show.
type RelaySuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	redpanda *containers.RedpandaContainer
	log      *auditlog.Log
	relay    *relay.Relay
}

func TestRelaySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.redpanda = containers.NewRedpandaContainer(s.T())

	chain, err := auditlog.NewChain([]byte("integration-chain-key"))
	s.Require().NoError(err)
	s.log = auditlog.NewLog(auditlog.NewPostgres(s.postgres.DB), chain)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r, err := relay.New(s.postgres.DB, s.redpanda.Brokers, testTopic, logger,
		relay.WithInterval(50*time.Millisecond))
	s.Require().NoError(err)
	s.relay = r
	s.Require().NoError(s.relay.EnsureTopic(context.Background()))
}

func (s *RelaySuite) TearDownSuite() {
	if s.relay != nil {
		s.relay.Close()
	}
}

func (s *RelaySuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background()))
}

func (s *RelaySuite) appendEntry(subjectID id.SubjectID, to models.Status) *auditlog.Entry {
	entry := &auditlog.Entry{
		ID:          id.NewEntryID(),
		SubjectKind: models.KindLeave,
		SubjectID:   subjectID,
		OldStatus:   models.StatusPending,
		NewStatus:   to,
		ActorID:     id.NewUserID(),
		Timestamp:   time.Now().UTC().Truncate(time.Microsecond),
	}
	s.Require().NoError(s.log.Append(context.Background(), entry))
	return entry
}

func (s *RelaySuite) TestOutboxRowsReachTheTopic() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subjectID := id.NewSubjectID()
	entry := s.appendEntry(subjectID, models.StatusApproved)

	go func() { _ = s.relay.Run(ctx) }()

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(testTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	var record *kgo.Record
	s.Require().Eventually(func() bool {
		pollCtx, pollCancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer pollCancel()
		fetches := consumer.PollFetches(pollCtx)
		fetches.EachRecord(func(r *kgo.Record) {
			if string(r.Key) == subjectID.String() {
				record = r
			}
		})
		return record != nil
	}, 15*time.Second, 100*time.Millisecond, "published record should arrive")

	s.Equal(subjectID.String(), string(record.Key), "records are keyed by subject")
	s.Require().Len(record.Headers, 1)
	s.Equal("event_type", record.Headers[0].Key)
	s.Equal("transition_APPROVED", string(record.Headers[0].Value))

	var payload map[string]any
	s.Require().NoError(json.Unmarshal(record.Value, &payload))
	s.Equal(entry.ID.String(), payload["ID"])
	s.Equal(string(models.StatusApproved), payload["NewStatus"])

	// The claimed row is marked so the next drain skips it.
	s.Require().Eventually(func() bool {
		var unpublished int
		err := s.postgres.DB.QueryRowContext(context.Background(),
			`SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&unpublished)
		return err == nil && unpublished == 0
	}, 5*time.Second, 100*time.Millisecond)
}

func (s *RelaySuite) TestDrainPreservesPerSubjectOrder() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subjectID := id.NewSubjectID()
	first := s.appendEntry(subjectID, models.StatusRejected)
	second := s.appendEntry(subjectID, models.StatusApproved)

	go func() { _ = s.relay.Run(ctx) }()

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(testTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	var got []string
	s.Require().Eventually(func() bool {
		pollCtx, pollCancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer pollCancel()
		fetches := consumer.PollFetches(pollCtx)
		fetches.EachRecord(func(r *kgo.Record) {
			if string(r.Key) != subjectID.String() {
				return
			}
			var payload map[string]any
			if json.Unmarshal(r.Value, &payload) == nil {
				got = append(got, payload["ID"].(string))
			}
		})
		return len(got) >= 2
	}, 15*time.Second, 100*time.Millisecond, "both records should arrive")

	s.Equal([]string{first.ID.String(), second.ID.String()}, got[:2],
		"same-key records must keep commit order")
}
