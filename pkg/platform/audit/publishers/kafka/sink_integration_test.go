//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go/modules/redpanda"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "asamblea/pkg/platform/audit"
	"asamblea/pkg/platform/audit/publishers/kafka"
)

type KafkaSinkSuite struct {
	suite.Suite
	container *redpanda.Container
	broker    string
}

func TestKafkaSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSinkSuite))
}

func (s *KafkaSinkSuite) SetupSuite() {
	ctx := context.Background()
	container, err := redpanda.Run(ctx, "docker.redpanda.com/redpandadata/redpanda:v24.1.7")
	s.Require().NoError(err)
	s.container = container

	broker, err := container.KafkaSeedBroker(ctx)
	s.Require().NoError(err)
	s.broker = broker
}

func (s *KafkaSinkSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *KafkaSinkSuite) TestAppendProducesKeyedRecord() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sink, err := kafka.New(ctx, kafka.Config{Brokers: []string{s.broker}, Topic: "asamblea.audit"})
	s.Require().NoError(err)
	defer sink.Close()

	// Creating the sink twice must tolerate the existing topic.
	again, err := kafka.New(ctx, kafka.Config{Brokers: []string{s.broker}, Topic: "asamblea.audit"})
	s.Require().NoError(err)
	again.Close()

	event := audit.Event{
		Category:   audit.CategoryCompliance,
		AssemblyID: "asm-kafka",
		Action:     string(audit.EventBallotSubmitted),
		Timestamp:  time.Now().UTC(),
	}
	s.Require().NoError(sink.Append(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker),
		kgo.ConsumeTopics("asamblea.audit"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().NoError(fetches.Err())
	records := fetches.Records()
	s.Require().NotEmpty(records)

	s.Equal("asm-kafka", string(records[0].Key))
	var got audit.Event
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal(event.Action, got.Action)
}
