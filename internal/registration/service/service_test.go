package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	assemblyModels "asamblea/internal/assembly/models"
	assemblyStore "asamblea/internal/assembly/store"
	"asamblea/internal/blobstore"
	jwttoken "asamblea/internal/jwt_token"
	"asamblea/internal/registration/models"
	"asamblea/internal/registration/resolver"
	"asamblea/internal/registration/service/mocks"
	attendeeStore "asamblea/internal/registration/store"
	"asamblea/internal/registration/wizard"
	registryModels "asamblea/internal/registry/models"
	registryStore "asamblea/internal/registry/store"
	"asamblea/internal/session"
	audit "asamblea/pkg/platform/audit"
	"asamblea/pkg/platform/audit/publisher"
	auditmemory "asamblea/pkg/platform/audit/store/memory"
	dErrors "asamblea/pkg/domain-errors"
	"asamblea/pkg/platform/sentinel"
	"asamblea/pkg/requestcontext"
)

const listID = "list-1"

var fixedNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

type RegistrationServiceSuite struct {
	suite.Suite
	ctx        context.Context
	assemblies *assemblyStore.InMemoryAssemblyStore
	registry   *registryStore.InMemoryRegistryStore
	attendees  *attendeeStore.InMemoryAttendeeStore
	sessions   *session.InMemoryStore
	blobs      *blobstore.Memory
	audit      *auditmemory.InMemoryStore
	tokens     *jwttoken.JWTService
	service    *Service
}

func TestRegistrationServiceSuite(t *testing.T) {
	suite.Run(t, new(RegistrationServiceSuite))
}

func (s *RegistrationServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), fixedNow)
	s.assemblies = assemblyStore.NewInMemory()
	s.registry = registryStore.NewInMemory()
	s.attendees = attendeeStore.NewInMemory()
	s.sessions = session.NewInMemoryStore()
	s.blobs = blobstore.NewMemory("http://files.test")
	s.audit = auditmemory.NewInMemoryStore()
	s.tokens = jwttoken.NewJWTService("test-key", "asamblea", "attendee")

	svc, err := New(Stores{
		Assemblies: s.assemblies,
		Registry:   s.registry,
		Attendees:  s.attendees,
		Sessions:   s.sessions,
		Blobs:      s.blobs,
	}, s.tokens, WithAuditPublisher(publisher.NewPublisher(s.audit)))
	s.Require().NoError(err)
	s.service = svc

	s.Require().NoError(s.registry.Import(s.ctx, listID, []registryModels.PropertyRecord{
		{ID: "apt-101", OwnerDocument: "12345", Group: "Tower A", Property: "Apt 101", Coefficient: 10, Votes: 1},
		{ID: "apt-201", OwnerDocument: "99999", Group: "Tower A", Property: "Apt 201", Coefficient: 5, Votes: 1},
		{ID: "apt-202", OwnerDocument: " 99999 ", Group: "Tower A", Property: "Apt 202", Coefficient: 5, Votes: 1},
		{ID: "apt-203", OwnerDocument: "99999", Group: "Tower A", Property: "Apt 203", Coefficient: 5, Votes: 1},
		{ID: "apt-301", OwnerDocument: "55555", Group: "Tower B", Property: "Apt 301", Coefficient: 7, Votes: 1, IsDeleted: true},
	}))
}

func (s *RegistrationServiceSuite) createAssembly(id string, status assemblyModels.Status, cfg assemblyModels.Config) {
	asm, err := assemblyModels.NewAssembly(id, listID, "Annual meeting", cfg, fixedNow)
	s.Require().NoError(err)
	switch status {
	case assemblyModels.StatusStarted:
		s.Require().NoError(asm.TransitionTo(assemblyModels.StatusStarted, fixedNow))
	case assemblyModels.StatusRegistriesFinalized:
		s.Require().NoError(asm.TransitionTo(assemblyModels.StatusStarted, fixedNow))
		s.Require().NoError(asm.TransitionTo(assemblyModels.StatusRegistriesFinalized, fixedNow))
	}
	s.Require().NoError(s.assemblies.Create(s.ctx, asm))
}

func (s *RegistrationServiceSuite) setStatus(id string, status assemblyModels.Status) {
	_, err := s.assemblies.Execute(s.ctx, id, func(a *assemblyModels.Assembly) error {
		return a.TransitionTo(status, fixedNow)
	})
	s.Require().NoError(err)
}

func (s *RegistrationServiceSuite) TestNew() {
	s.Run("requires every store", func() {
		_, err := New(Stores{}, s.tokens)
		s.Error(err)
	})
	s.Run("requires a token issuer", func() {
		_, err := New(Stores{
			Assemblies: s.assemblies, Registry: s.registry, Attendees: s.attendees,
			Sessions: s.sessions, Blobs: s.blobs,
		}, nil)
		s.Error(err)
	})
}

// =============================================================================
// Resolve
// =============================================================================

func (s *RegistrationServiceSuite) TestResolveRejections() {
	s.createAssembly("asm-new", assemblyModels.StatusCreate, assemblyModels.Config{})
	s.createAssembly("asm-open", assemblyModels.StatusStarted, assemblyModels.Config{})
	s.createAssembly("asm-closed", assemblyModels.StatusRegistriesFinalized, assemblyModels.Config{})

	cases := []struct {
		name       string
		assemblyID string
		document   string
		code       dErrors.Code
	}{
		{"empty document", "asm-open", "  ", dErrors.CodeValidation},
		{"unknown assembly", "asm-missing", "12345", dErrors.CodeNotFound},
		{"not started", "asm-new", "12345", dErrors.CodeNotStarted},
		{"registration closed", "asm-closed", "12345", dErrors.CodeRegistrationClosed},
		{"no match in database-only assembly", "asm-open", "00000", dErrors.CodeNotFound},
		{"soft-deleted record does not match", "asm-open", "55555", dErrors.CodeNotFound},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.service.Resolve(s.ctx, tc.assemblyID, tc.document)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, tc.code), "got %v", err)
		})
	}

	s.Run("rejections are audited without the raw document", func() {
		events, err := s.audit.ListByAssembly(s.ctx, "asm-closed")
		s.Require().NoError(err)
		s.Require().NotEmpty(events)
		s.Equal(string(audit.EventResolveRejected), events[0].Action)
		s.Equal(audit.HashDocument("12345"), events[0].DocumentHash)
		s.Equal(string(dErrors.CodeRegistrationClosed), events[0].Reason)
	})
}

func (s *RegistrationServiceSuite) TestResolveStartsSession() {
	s.createAssembly("asm-1", assemblyModels.StatusStarted, assemblyModels.Config{})

	s.Run("one pending property goes to verification", func() {
		res, err := s.service.Resolve(s.ctx, "asm-1", " 12345 ")
		s.Require().NoError(err)
		s.Equal(resolver.KindVerificationRequired, res.Kind)
		s.Equal(1, res.MatchedCount)
		s.Equal(wizard.StepVerifyingProperty, res.Session.Wizard.Step)
		s.Equal("12345", res.Session.Document)
		s.Equal(fixedNow.Add(defaultSessionTTL), res.Session.ExpiresAt)

		claims, err := s.tokens.ValidateToken(res.Token)
		s.Require().NoError(err)
		s.Equal(res.Session.ID, claims.SessionID)
		s.Equal("asm-1", claims.AssemblyID)

		stored, err := s.service.Session(s.ctx, res.Session.ID)
		s.Require().NoError(err)
		s.Equal(wizard.StepVerifyingProperty, stored.Wizard.Step)
	})

	s.Run("resolve is repeatable", func() {
		first, err := s.service.Resolve(s.ctx, "asm-1", "99999")
		s.Require().NoError(err)
		second, err := s.service.Resolve(s.ctx, "asm-1", "99999")
		s.Require().NoError(err)
		s.Equal(first.Kind, second.Kind)
		s.NotEqual(first.Session.ID, second.Session.ID)
	})

	s.Run("unknown session is unauthorized", func() {
		_, err := s.service.Session(s.ctx, "missing")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

// =============================================================================
// Full flows
// =============================================================================

func (s *RegistrationServiceSuite) TestContactThenVerifyThenCommit() {
	s.createAssembly("asm-1", assemblyModels.StatusStarted, assemblyModels.Config{RequireFullName: true, RequireEmail: true})

	res, err := s.service.Resolve(s.ctx, "asm-1", "12345")
	s.Require().NoError(err)
	s.Equal(wizard.StepAwaitingContactInfo, res.Session.Wizard.Step)
	id := res.Session.ID

	_, err = s.service.SubmitContact(s.ctx, id, models.ContactInfo{FirstName: "Ana"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	sess, err := s.service.SubmitContact(s.ctx, id, models.ContactInfo{FirstName: "Ana", LastName: "Ruiz", Email: "ANA@example.com"})
	s.Require().NoError(err)
	s.Equal(wizard.StepVerifyingProperty, sess.Wizard.Step)

	_, err = s.service.Verify(s.ctx, id, "", nil)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	sess, err = s.service.Verify(s.ctx, id, registryModels.RoleProxy, &models.Attachment{
		Filename: "poder firmado.pdf", ContentType: "application/pdf", Data: []byte("%PDF"),
	})
	s.Require().NoError(err)
	s.Equal(wizard.StepAdditionOrFinish, sess.Wizard.Step)

	_, err = s.service.Commit(s.ctx, id)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState), "commit before finishing")

	sess, err = s.service.Choose(s.ctx, id, ChoiceFinish)
	s.Require().NoError(err)
	s.Equal(wizard.StepCommitting, sess.Wizard.Step)

	result, err := s.service.Commit(s.ctx, id)
	s.Require().NoError(err)
	s.False(result.Partial())
	s.Empty(result.FailedUploads)

	attendee := result.Attendee
	s.Require().Len(attendee.Entries, 1)
	entry := attendee.Entries[0]
	s.True(entry.IsIdentified)
	s.False(entry.IsManual)
	s.Equal(registryModels.RoleProxy, entry.Role)
	s.Equal(10.0, entry.Coefficient)
	s.Nil(entry.Attachment)
	s.True(strings.HasPrefix(entry.PowerURL, "http://files.test/files/assemblies/asm-1/12345/apt-101/"), entry.PowerURL)
	s.True(strings.HasSuffix(entry.PowerURL, "-poder_firmado.pdf"), entry.PowerURL)
	s.Equal(1, s.blobs.Len())
	s.Equal("ana@example.com", attendee.Contact.Email)

	rec, err := s.registry.FindByID(s.ctx, listID, "apt-101")
	s.Require().NoError(err)
	s.True(rec.RegisteredInAssembly)
	s.Require().NotNil(rec.Registration)
	s.Equal(attendee.ID, rec.Registration.AttendeeID)
	s.Equal(registryModels.RoleProxy, rec.Registration.Role)
	s.Equal(entry.PowerURL, rec.Registration.PowerURL)
	s.Equal("Ruiz", rec.Registration.LastName)

	sess, err = s.service.Session(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(attendee.ID, sess.AttendeeID)
	s.Equal(wizard.StepDone, sess.Wizard.Step)

	s.Run("session cannot change after commit", func() {
		_, err := s.service.Choose(s.ctx, id, ChoiceAdd)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		_, err = s.service.Commit(s.ctx, id)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("resolving again is already registered even once closed", func() {
		s.setStatus("asm-1", assemblyModels.StatusRegistriesFinalized)
		again, err := s.service.Resolve(s.ctx, "asm-1", "12345")
		s.Require().NoError(err)
		s.Equal(resolver.KindAlreadyRegistered, again.Kind)
		s.Equal(attendee.ID, again.Attendee.ID)
		s.Equal(attendee.ID, again.Session.AttendeeID)
		s.Equal(wizard.StepDone, again.Session.Wizard.Step)
	})

	s.Run("registration and stamp are audited", func() {
		events, err := s.audit.ListByAssembly(s.ctx, "asm-1")
		s.Require().NoError(err)
		var actions []string
		for _, e := range events {
			actions = append(actions, e.Action)
		}
		s.Contains(actions, string(audit.EventAttendeeRegistered))
		s.Contains(actions, string(audit.EventPropertyStamped))
	})
}

func (s *RegistrationServiceSuite) TestAutoVerifiedPropertiesCommit() {
	s.createAssembly("asm-1", assemblyModels.StatusStarted, assemblyModels.Config{})

	res, err := s.service.Resolve(s.ctx, "asm-1", "99999")
	s.Require().NoError(err)
	s.Equal(3, res.MatchedCount)
	s.Equal(wizard.StepAdditionOrFinish, res.Session.Wizard.Step)
	s.Len(res.Session.Wizard.Entries, 3)

	_, err = s.service.Choose(s.ctx, res.Session.ID, ChoiceFinish)
	s.Require().NoError(err)
	result, err := s.service.Commit(s.ctx, res.Session.ID)
	s.Require().NoError(err)
	s.Len(result.Attendee.Entries, 3)
	for _, e := range result.Attendee.Entries {
		s.Equal(registryModels.RoleOwner, e.Role)
		s.Empty(e.PowerURL)
	}

	for _, id := range []string{"apt-201", "apt-202", "apt-203"} {
		rec, err := s.registry.FindByID(s.ctx, listID, id)
		s.Require().NoError(err)
		s.True(rec.RegisteredInAssembly, id)
	}

	s.Run("a second session for the same document is already registered", func() {
		again, err := s.service.Resolve(s.ctx, "asm-1", "99999")
		s.Require().NoError(err)
		s.Equal(resolver.KindAlreadyRegistered, again.Kind)
	})
}

func (s *RegistrationServiceSuite) TestManualRegistration() {
	s.createAssembly("asm-1", assemblyModels.StatusStarted, assemblyModels.Config{AccessMethod: assemblyModels.AccessDatabaseOrManual})

	res, err := s.service.Resolve(s.ctx, "asm-1", "77777")
	s.Require().NoError(err)
	s.Equal(resolver.KindManualEntryRequired, res.Kind)
	s.Equal(wizard.StepAdditionOrFinish, res.Session.Wizard.Step)
	id := res.Session.ID

	_, err = s.service.Choose(s.ctx, id, ChoiceFinish)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation), "finishing with no properties")

	_, err = s.service.Choose(s.ctx, id, Choice("maybe"))
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	sess, err := s.service.Choose(s.ctx, id, ChoiceAdd)
	s.Require().NoError(err)
	s.Equal(wizard.StepManualPropertyEntry, sess.Wizard.Step)

	sess, err = s.service.SubmitManual(s.ctx, id, ManualInput{Group: "Tower C", Property: "Local 4", Coefficient: 2.5, Role: registryModels.RoleOwner})
	s.Require().NoError(err)
	s.Equal(wizard.StepCommitting, sess.Wizard.Step)
	s.Require().Len(sess.Wizard.Entries, 1)
	s.True(sess.Wizard.Entries[0].Ref.IsManual())

	before, err := s.registry.List(s.ctx, listID)
	s.Require().NoError(err)

	result, err := s.service.Commit(s.ctx, id)
	s.Require().NoError(err)
	s.False(result.Partial())
	s.Require().Len(result.Attendee.Entries, 1)
	s.True(result.Attendee.Entries[0].IsManual)
	s.True(strings.HasPrefix(result.Attendee.Entries[0].Ref.Key(), models.ManualKeyPrefix))

	after, err := s.registry.List(s.ctx, listID)
	s.Require().NoError(err)
	s.Equal(before, after, "manual entries never touch the registry")
}

func (s *RegistrationServiceSuite) TestRemoveEntry() {
	s.createAssembly("asm-1", assemblyModels.StatusStarted, assemblyModels.Config{})

	res, err := s.service.Resolve(s.ctx, "asm-1", "99999")
	s.Require().NoError(err)

	sess, err := s.service.RemoveEntry(s.ctx, res.Session.ID, "apt-202")
	s.Require().NoError(err)
	s.Len(sess.Wizard.Entries, 2)
	s.Equal(wizard.StepAdditionOrFinish, sess.Wizard.Step)

	_, err = s.service.RemoveEntry(s.ctx, res.Session.ID, "apt-999")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.service.Choose(s.ctx, res.Session.ID, ChoiceFinish)
	s.Require().NoError(err)
	result, err := s.service.Commit(s.ctx, res.Session.ID)
	s.Require().NoError(err)
	s.Len(result.Attendee.Entries, 2)

	rec, err := s.registry.FindByID(s.ctx, listID, "apt-202")
	s.Require().NoError(err)
	s.False(rec.RegisteredInAssembly)
}

// =============================================================================
// Commit failure handling
// =============================================================================

type commitMocks struct {
	assemblies *mocks.MockAssemblyStore
	registry   *mocks.MockRegistryStore
	attendees  *mocks.MockAttendeeStore
	sessions   *mocks.MockSessionStore
	blobs      *mocks.MockBlobStore
	tokens     *mocks.MockTokenIssuer
	service    *Service
}

func (s *RegistrationServiceSuite) newMockedService() commitMocks {
	ctrl := gomock.NewController(s.T())
	m := commitMocks{
		assemblies: mocks.NewMockAssemblyStore(ctrl),
		registry:   mocks.NewMockRegistryStore(ctrl),
		attendees:  mocks.NewMockAttendeeStore(ctrl),
		sessions:   mocks.NewMockSessionStore(ctrl),
		blobs:      mocks.NewMockBlobStore(ctrl),
		tokens:     mocks.NewMockTokenIssuer(ctrl),
	}
	svc, err := New(Stores{
		Assemblies: m.assemblies,
		Registry:   m.registry,
		Attendees:  m.attendees,
		Sessions:   m.sessions,
		Blobs:      m.blobs,
	}, m.tokens)
	s.Require().NoError(err)
	m.service = svc
	return m
}

func startedAssembly() *assemblyModels.Assembly {
	return &assemblyModels.Assembly{ID: "asm-1", EntityID: listID, Status: assemblyModels.StatusStarted}
}

func commitRequest() CommitRequest {
	return CommitRequest{
		AssemblyID: "asm-1",
		Document:   "99999",
		Entries: []models.RegistrationEntry{
			{Ref: models.Registered("apt-201"), Role: registryModels.RoleOwner, IsIdentified: true},
			{Ref: models.Registered("apt-202"), Role: registryModels.RoleOwner, IsIdentified: true},
			{Ref: models.Manual("tok", "Local 4"), Role: registryModels.RoleProxy, IsManual: true},
		},
	}
}

func (s *RegistrationServiceSuite) TestCommitPartialStampFailure() {
	m := s.newMockedService()
	m.assemblies.EXPECT().FindByID(gomock.Any(), "asm-1").Return(startedAssembly(), nil)
	m.attendees.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	m.registry.EXPECT().StampIfUnclaimed(gomock.Any(), listID, "apt-201", gomock.Any()).
		Return(&registryModels.PropertyRecord{ID: "apt-201"}, nil)
	m.registry.EXPECT().StampIfUnclaimed(gomock.Any(), listID, "apt-202", gomock.Any()).
		Return(nil, errors.New("connection reset"))

	result, err := m.service.CommitEntries(s.ctx, commitRequest())
	s.Require().NoError(err)
	s.True(result.Partial())
	s.Equal([]string{"apt-202"}, result.FailedPropertyIDs())
	s.Equal("connection reset", result.FailedStamps[0].Reason)
	s.NotEmpty(result.Attendee.ID)
	s.Len(result.Attendee.Entries, 3)
}

func (s *RegistrationServiceSuite) TestCommitDoesNotStampStaleRecords() {
	m := s.newMockedService()
	m.assemblies.EXPECT().FindByID(gomock.Any(), "asm-1").Return(startedAssembly(), nil)
	m.attendees.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	m.registry.EXPECT().StampIfUnclaimed(gomock.Any(), listID, "apt-201", gomock.Any()).
		Return(nil, fmt.Errorf("apt-201: %w", sentinel.ErrInvalidState))
	m.registry.EXPECT().StampIfUnclaimed(gomock.Any(), listID, "apt-202", gomock.Any()).
		Return(nil, fmt.Errorf("apt-202: %w", sentinel.ErrConflict))

	result, err := m.service.CommitEntries(s.ctx, commitRequest())
	s.Require().NoError(err)
	s.Equal([]string{"apt-201", "apt-202"}, result.FailedPropertyIDs())
	s.Equal("property was removed from the registry", result.FailedStamps[0].Reason)
	s.Equal("property is already registered by another attendee", result.FailedStamps[1].Reason)
}

func (s *RegistrationServiceSuite) TestCommitStampsCarryRegistration() {
	m := s.newMockedService()
	m.assemblies.EXPECT().FindByID(gomock.Any(), "asm-1").Return(startedAssembly(), nil)

	var created *models.Attendee
	m.attendees.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, a *models.Attendee) error {
			created = a
			return nil
		})
	m.registry.EXPECT().StampIfUnclaimed(gomock.Any(), listID, gomock.Any(), gomock.Any()).Times(2).DoAndReturn(
		func(_ context.Context, _, id string, stamp registryModels.RegistrationStamp) (*registryModels.PropertyRecord, error) {
			if s.NotNil(created, "stamp issued before the attendee was written") {
				s.Equal(created.ID, stamp.AttendeeID)
				s.Equal(fixedNow, stamp.RegisteredAt)
				s.Equal(registryModels.RoleOwner, stamp.Role)
			}
			return &registryModels.PropertyRecord{ID: id}, nil
		})

	result, err := m.service.CommitEntries(s.ctx, commitRequest())
	s.Require().NoError(err)
	s.False(result.Partial())
}

func (s *RegistrationServiceSuite) TestCommitFailureBeforeWriteIsRetryable() {
	s.Run("attendee write fails", func() {
		m := s.newMockedService()
		m.assemblies.EXPECT().FindByID(gomock.Any(), "asm-1").Return(startedAssembly(), nil)
		m.attendees.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("timeout"))
		// no registry expectations: nothing may be stamped

		_, err := m.service.CommitEntries(s.ctx, commitRequest())
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("assembly lookup fails", func() {
		m := s.newMockedService()
		m.assemblies.EXPECT().FindByID(gomock.Any(), "asm-1").Return(nil, errors.New("timeout"))

		_, err := m.service.CommitEntries(s.ctx, commitRequest())
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("duplicate registration is a conflict", func() {
		m := s.newMockedService()
		m.assemblies.EXPECT().FindByID(gomock.Any(), "asm-1").Return(startedAssembly(), nil)
		m.attendees.EXPECT().Create(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict)

		_, err := m.service.CommitEntries(s.ctx, commitRequest())
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *RegistrationServiceSuite) TestCommitUploadFailureIsBestEffort() {
	m := s.newMockedService()
	req := commitRequest()
	req.Entries[0].Attachment = &models.Attachment{Filename: "a.pdf", Data: []byte("a")}
	req.Entries[1].Attachment = &models.Attachment{Filename: "b.pdf", Data: []byte("b")}

	m.assemblies.EXPECT().FindByID(gomock.Any(), "asm-1").Return(startedAssembly(), nil)
	m.blobs.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, key string, blob blobstore.Blob) (string, error) {
			if strings.Contains(key, "/apt-202/") {
				return "", errors.New("storage down")
			}
			return "http://files.test/files/" + key, nil
		}).Times(2)
	m.attendees.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	m.registry.EXPECT().StampIfUnclaimed(gomock.Any(), listID, gomock.Any(), gomock.Any()).Times(2).
		Return(&registryModels.PropertyRecord{}, nil)

	result, err := m.service.CommitEntries(s.ctx, req)
	s.Require().NoError(err)
	s.Equal([]string{"apt-202"}, result.FailedUploads)
	s.NotEmpty(result.Attendee.Entries[0].PowerURL)
	s.Empty(result.Attendee.Entries[1].PowerURL)
	for _, e := range result.Attendee.Entries {
		s.Nil(e.Attachment)
	}
}

func (s *RegistrationServiceSuite) TestCommitValidation() {
	m := s.newMockedService()
	cases := map[string]func(*CommitRequest){
		"no entries":      func(r *CommitRequest) { r.Entries = nil },
		"no document":     func(r *CommitRequest) { r.Document = "" },
		"missing role":    func(r *CommitRequest) { r.Entries[0].Role = "" },
		"duplicate entry": func(r *CommitRequest) { r.Entries[1] = r.Entries[0] },
	}
	for name, mutate := range cases {
		s.Run(name, func() {
			req := commitRequest()
			mutate(&req)
			_, err := m.service.CommitEntries(s.ctx, req)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), "got %v", err)
		})
	}
}

func (s *RegistrationServiceSuite) TestResolveTransientFailure() {
	m := s.newMockedService()
	m.attendees.EXPECT().FindByDocument(gomock.Any(), "asm-1", "12345").Return(nil, errors.New("timeout"))

	_, err := m.service.Resolve(s.ctx, "asm-1", "12345")
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func TestUploadKey(t *testing.T) {
	key := UploadKey("asm-1", "CC 123", "manual:01abc", "01token", "poder.pdf")
	assert.Equal(t, "assemblies/asm-1/CC_123/manual_01abc/01token-poder.pdf", key)
}
