package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	assemblyModels "asamblea/internal/assembly/models"
	"asamblea/internal/voting/ballot"
	"asamblea/internal/voting/handler/mocks"
	"asamblea/internal/voting/models"
	"asamblea/internal/voting/service"
	dErrors "asamblea/pkg/domain-errors"
	"asamblea/pkg/requestcontext"
)

func newTestRouter(t *testing.T) (chi.Router, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	h := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(requestcontext.WithSessionID(req.Context(), "sess-1")))
		})
	})
	h.Register(r)
	return r, svc
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
	return w
}

func TestSubmitBallot(t *testing.T) {
	r, svc := newTestRouter(t)

	t.Run("individual ballot", func(t *testing.T) {
		svc.EXPECT().Submit(gomock.Any(), "sess-1", "q-1", service.BallotRequest{
			Mode: assemblyModels.VotingModeIndividual,
			Selections: map[string]models.Selection{
				"apt-201": {Options: []string{"A"}},
			},
		}).Return(&service.BallotResult{
			QuestionID: "q-1",
			Mode:       assemblyModels.VotingModeIndividual,
			Answered:   []string{"apt-201"},
			Skipped:    []string{"apt-202"},
		}, nil)

		w := serve(r, http.MethodPost, "/voting/questions/q-1/ballots",
			`{"mode":"individual","selections":{"apt-201":{"options":["A"]}}}`)
		require.Equal(t, http.StatusOK, w.Code)
		var res service.BallotResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, []string{"apt-201"}, res.Answered)
		assert.Equal(t, []string{"apt-202"}, res.Skipped)
	})

	t.Run("closed question", func(t *testing.T) {
		svc.EXPECT().Submit(gomock.Any(), "sess-1", "q-1", gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInvalidState, "question is not open for voting"))
		w := serve(r, http.MethodPost, "/voting/questions/q-1/ballots", `{"selection":{"options":["Sí"]}}`)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "invalid_state")
	})

	t.Run("empty body", func(t *testing.T) {
		w := serve(r, http.MethodPost, "/voting/questions/q-1/ballots", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMode(t *testing.T) {
	r, svc := newTestRouter(t)

	svc.EXPECT().Mode(gomock.Any(), "sess-1").Return(ballot.ModeResolution{}, nil)
	w := serve(r, http.MethodGet, "/voting/mode", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp modeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.MustChoose)

	svc.EXPECT().SetMode(gomock.Any(), "sess-1", assemblyModels.VotingModeBlock).
		Return(ballot.ModeResolution{Mode: assemblyModels.VotingModeBlock, Source: ballot.SourceSession}, nil)
	w = serve(r, http.MethodPost, "/voting/mode", `{"mode":"block"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.MustChoose)
	assert.Equal(t, ballot.SourceSession, resp.Source)
}

func TestPropertiesAndQuestions(t *testing.T) {
	r, svc := newTestRouter(t)

	svc.EXPECT().ActiveProperties(gomock.Any(), "sess-1").Return(nil, nil)
	w := serve(r, http.MethodGet, "/voting/properties", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"properties":[]}`, w.Body.String())

	svc.EXPECT().ListForAttendee(gomock.Any(), "sess-1").Return([]service.QuestionView{{ID: "q-1", Status: models.StatusLive}}, nil)
	w = serve(r, http.MethodGet, "/voting/questions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"q-1"`)

	svc.EXPECT().ActiveProperties(gomock.Any(), "sess-1").Return(nil, dErrors.New(dErrors.CodeUnauthorized, "session not found or expired"))
	w = serve(r, http.MethodGet, "/voting/properties", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
