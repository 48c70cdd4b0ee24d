package model

type KeyTerm struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

type AnalysisResult struct {
	Summary        string    `json:"summary"`
	KeyTerms       []KeyTerm `json:"keyTerms"`
	PotentialRisks []string  `json:"potentialRisks"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}
