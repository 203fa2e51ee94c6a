//go:build integration

package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	assemblyModels "asamblea/internal/assembly/models"
	"asamblea/internal/registration/wizard"
	"asamblea/internal/session"
	"asamblea/pkg/platform/sentinel"
	"asamblea/pkg/testutil/containers"
)

type RedisSessionStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *session.RedisStore
}

func TestRedisSessionStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisSessionStoreSuite))
}

func (s *RedisSessionStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = session.NewRedisStore(s.redis.Client)
}

func (s *RedisSessionStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisSessionStoreSuite) TestSaveAndFind() {
	ctx := context.Background()
	sess := &session.Session{
		ID:         "sess-1",
		AssemblyID: "asm-1",
		Document:   "12345",
		Wizard:     wizard.New(),
		VotingMode: assemblyModels.VotingModeBlock,
		CreatedAt:  time.Now(),
		ExpiresAt:  time.Now().Add(time.Hour),
	}
	s.Require().NoError(s.store.Save(ctx, sess))

	got, err := s.store.FindByID(ctx, "sess-1")
	s.Require().NoError(err)
	s.Equal(assemblyModels.VotingModeBlock, got.VotingMode)
	s.Equal(wizard.StepAwaitingDocument, got.Wizard.Step)

	ttl, err := s.redis.Client.TTL(ctx, "asamblea:session:sess-1").Result()
	s.Require().NoError(err)
	s.Greater(ttl, 50*time.Minute)
}

func (s *RedisSessionStoreSuite) TestMissing() {
	_, err := s.store.FindByID(context.Background(), "nope")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
