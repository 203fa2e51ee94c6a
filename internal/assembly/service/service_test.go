package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"asamblea/internal/assembly/models"
	"asamblea/internal/assembly/store"
	"asamblea/internal/changefeed"
	audit "asamblea/pkg/platform/audit"
	"asamblea/pkg/platform/audit/publisher"
	auditmemory "asamblea/pkg/platform/audit/store/memory"
	dErrors "asamblea/pkg/domain-errors"
)

type AssemblyServiceSuite struct {
	suite.Suite
	service *Service
	audit   *auditmemory.InMemoryStore
	feed    *changefeed.Memory
	ctx     context.Context
}

func TestAssemblyServiceSuite(t *testing.T) {
	suite.Run(t, new(AssemblyServiceSuite))
}

func (s *AssemblyServiceSuite) SetupTest() {
	s.audit = auditmemory.NewInMemoryStore()
	s.feed = changefeed.NewMemory()
	svc, err := New(store.NewInMemory(),
		WithAuditPublisher(publisher.NewPublisher(s.audit)),
		WithChangePublisher(s.feed),
	)
	s.Require().NoError(err)
	s.service = svc
	s.ctx = context.Background()
}

func (s *AssemblyServiceSuite) TestNew() {
	s.Run("requires a store", func() {
		_, err := New(nil)
		s.Error(err)
	})
}

func (s *AssemblyServiceSuite) TestCreate() {
	s.Run("starts in create status", func() {
		asm, err := s.service.Create(s.ctx, "Annual meeting", "list-1", models.Config{RequireEmail: true})
		s.Require().NoError(err)
		s.Equal(models.StatusCreate, asm.Status)
		s.Empty(asm.BlockedVoters)

		events, err := s.audit.ListByAssembly(s.ctx, asm.ID)
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(string(audit.EventAssemblyCreated), events[0].Action)
	})

	s.Run("rejects an invalid voting mode", func() {
		mode := models.VotingMode("weighted")
		_, err := s.service.Create(s.ctx, "x", "list-1", models.Config{VotingMode: &mode})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects a missing entity", func() {
		_, err := s.service.Create(s.ctx, "x", " ", models.Config{})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *AssemblyServiceSuite) TestTransition() {
	asm, err := s.service.Create(s.ctx, "Annual meeting", "list-1", models.Config{})
	s.Require().NoError(err)

	s.Run("walks the lifecycle and may reopen registrations", func() {
		for _, next := range []models.Status{
			models.StatusStarted,
			models.StatusRegistriesFinalized,
			models.StatusStarted,
			models.StatusRegistriesFinalized,
			models.StatusFinished,
		} {
			got, err := s.service.Transition(s.ctx, asm.ID, next)
			s.Require().NoError(err)
			s.Equal(next, got.Status)
		}
	})

	s.Run("rejects transitions outside the graph", func() {
		_, err := s.service.Transition(s.ctx, asm.ID, models.StatusStarted)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("unknown assembly is not found", func() {
		_, err := s.service.Transition(s.ctx, "missing", models.StatusStarted)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *AssemblyServiceSuite) TestSetVoterBlocked() {
	asm, err := s.service.Create(s.ctx, "Annual meeting", "list-1", models.Config{})
	s.Require().NoError(err)

	changes := make(chan changefeed.Change, 8)
	cancel, err := s.feed.Subscribe(s.ctx, changefeed.EntityAssembly, asm.ID, func(c changefeed.Change) { changes <- c })
	s.Require().NoError(err)
	defer cancel()

	s.Run("blocking twice keeps one entry", func() {
		_, err := s.service.SetVoterBlocked(s.ctx, asm.ID, "apt-101", true)
		s.Require().NoError(err)
		got, err := s.service.SetVoterBlocked(s.ctx, asm.ID, "apt-101", true)
		s.Require().NoError(err)
		s.Equal([]string{"apt-101"}, got.BlockedVoters)
		s.True(got.IsVoterBlocked("apt-101"))
	})

	s.Run("publishes a change when the list changes", func() {
		select {
		case c := <-changes:
			s.Equal("blocked_voters_changed", c.Action)
		case <-time.After(time.Second):
			s.Fail("expected a change notification")
		}
	})

	s.Run("unblocking removes the entry", func() {
		got, err := s.service.SetVoterBlocked(s.ctx, asm.ID, "apt-101", false)
		s.Require().NoError(err)
		s.Empty(got.BlockedVoters)
	})

	s.Run("requires a property id", func() {
		_, err := s.service.SetVoterBlocked(s.ctx, asm.ID, "", true)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *AssemblyServiceSuite) TestUpdateConfig() {
	asm, err := s.service.Create(s.ctx, "Annual meeting", "list-1", models.Config{})
	s.Require().NoError(err)

	mode := models.VotingModeIndividual
	got, err := s.service.UpdateConfig(s.ctx, asm.ID, models.Config{RequirePhone: true, VotingMode: &mode})
	s.Require().NoError(err)
	fixed, ok := got.Config.FixedVotingMode()
	s.True(ok)
	s.Equal(models.VotingModeIndividual, fixed)
	s.True(got.Config.RequiresContactInfo())
	s.True(got.Config.RequiresDatabaseMatch())
}
