package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"asamblea/internal/registration/handler/mocks"
	"asamblea/internal/registration/models"
	"asamblea/internal/registration/resolver"
	"asamblea/internal/registration/service"
	"asamblea/internal/registration/wizard"
	registryModels "asamblea/internal/registry/models"
	"asamblea/internal/session"
	dErrors "asamblea/pkg/domain-errors"
	"asamblea/pkg/requestcontext"
)

type RegistrationHandlerSuite struct {
	suite.Suite
	svc    *mocks.MockService
	router chi.Router
}

func TestRegistrationHandlerSuite(t *testing.T) {
	suite.Run(t, new(RegistrationHandlerSuite))
}

func (s *RegistrationHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.svc = mocks.NewMockService(ctrl)
	h := New(s.svc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	s.router = chi.NewRouter()
	h.RegisterPublic(s.router)
	s.router.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(requestcontext.WithSessionID(r.Context(), "sess-1")))
			})
		})
		h.RegisterSession(r)
	})
}

func (s *RegistrationHandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RegistrationHandlerSuite) TestResolve() {
	s.Run("starts a session", func() {
		s.svc.EXPECT().Resolve(gomock.Any(), "asm-1", "12345").Return(&service.ResolveResult{
			Kind:         resolver.KindVerificationRequired,
			MatchedCount: 2,
			Token:        "tok",
			Session:      &session.Session{ID: "sess-1", AssemblyID: "asm-1"},
		}, nil)

		w := s.do(http.MethodPost, "/assemblies/asm-1/registration/resolve", `{"document":"12345"}`)
		s.Equal(http.StatusOK, w.Code)
		var resp resolveResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Equal(resolver.KindVerificationRequired, resp.Kind)
		s.Equal(2, resp.MatchedCount)
		s.Equal("tok", resp.Token)
	})

	s.Run("rejections map to status codes", func() {
		cases := []struct {
			err    error
			status int
		}{
			{dErrors.New(dErrors.CodeNotStarted, "not started"), http.StatusForbidden},
			{dErrors.New(dErrors.CodeRegistrationClosed, "closed"), http.StatusForbidden},
			{dErrors.New(dErrors.CodeNotFound, "no properties"), http.StatusNotFound},
			{dErrors.New(dErrors.CodeValidation, "document required"), http.StatusBadRequest},
			{dErrors.New(dErrors.CodeUnavailable, "retry"), http.StatusServiceUnavailable},
		}
		for _, tc := range cases {
			s.svc.EXPECT().Resolve(gomock.Any(), "asm-1", "x").Return(nil, tc.err)
			w := s.do(http.MethodPost, "/assemblies/asm-1/registration/resolve", `{"document":"x"}`)
			s.Equal(tc.status, w.Code, dErrors.CodeOf(tc.err))
		}
	})

	s.Run("malformed body", func() {
		w := s.do(http.MethodPost, "/assemblies/asm-1/registration/resolve", `{`)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *RegistrationHandlerSuite) TestWizardSteps() {
	step := &session.Session{ID: "sess-1", Wizard: wizard.State{Step: wizard.StepAdditionOrFinish}}

	s.Run("verify carries role and attachment", func() {
		s.svc.EXPECT().Verify(gomock.Any(), "sess-1", registryModels.RoleProxy, gomock.Not(gomock.Nil())).
			DoAndReturn(func(_ any, _ string, _ registryModels.Role, a *models.Attachment) (*session.Session, error) {
				s.Equal("poder.pdf", a.Filename)
				s.Equal([]byte("pdf"), a.Data)
				return step, nil
			})
		body, err := json.Marshal(verifyRequest{
			Role:       registryModels.RoleProxy,
			Attachment: &models.Attachment{Filename: "poder.pdf", ContentType: "application/pdf", Data: []byte("pdf")},
		})
		s.Require().NoError(err)
		w := s.do(http.MethodPost, "/registration/verify", string(body))
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("choice", func() {
		s.svc.EXPECT().Choose(gomock.Any(), "sess-1", service.ChoiceFinish).Return(step, nil)
		w := s.do(http.MethodPost, "/registration/choice", `{"choice":"finish"}`)
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("remove requires a key", func() {
		w := s.do(http.MethodPost, "/registration/remove", `{}`)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("wrong step is a conflict", func() {
		s.svc.EXPECT().SubmitContact(gomock.Any(), "sess-1", models.ContactInfo{Email: "a@b.co"}).
			Return(nil, dErrors.New(dErrors.CodeInvalidState, "not awaiting contact"))
		w := s.do(http.MethodPost, "/registration/contact", `{"email":"a@b.co"}`)
		s.Equal(http.StatusConflict, w.Code)
	})

	s.Run("expired session", func() {
		s.svc.EXPECT().Session(gomock.Any(), "sess-1").Return(nil, dErrors.New(dErrors.CodeUnauthorized, "expired"))
		w := s.do(http.MethodGet, "/registration/session", "")
		s.Equal(http.StatusUnauthorized, w.Code)
	})
}

func (s *RegistrationHandlerSuite) TestCommitReportsPartialFailure() {
	s.svc.EXPECT().Commit(gomock.Any(), "sess-1").Return(&service.CommitResult{
		Attendee:     &models.Attendee{ID: "att-1"},
		FailedStamps: []service.StampFailure{{PropertyID: "apt-202", Reason: "timeout"}},
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/registration/commit", bytes.NewReader(nil))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusOK, w.Code)
	var resp commitResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.True(resp.Partial)
	s.Require().Len(resp.FailedStamps, 1)
	s.Equal("apt-202", resp.FailedStamps[0].PropertyID)
}
