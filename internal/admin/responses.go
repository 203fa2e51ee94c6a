package admin

import (
	registryModels "asamblea/internal/registry/models"
	"asamblea/internal/voting/models"
)

// ImportResponse reports how many registry records a bulk import created.
type ImportResponse struct {
	ListID   string `json:"list_id"`
	Imported int    `json:"imported"`
}

// QuorumResponse is the registry quorum with both ratios precomputed.
type QuorumResponse struct {
	registryModels.Quorum
	CountRatio       float64 `json:"count_ratio"`
	CoefficientRatio float64 `json:"coefficient_ratio"`
}

func NewQuorumResponse(q registryModels.Quorum) QuorumResponse {
	return QuorumResponse{Quorum: q, CountRatio: q.CountRatio(), CoefficientRatio: q.CoefficientRatio()}
}

// QuestionsListResponse wraps an assembly's questions.
type QuestionsListResponse struct {
	Questions []*models.Question `json:"questions"`
	Total     int                `json:"total"`
}
