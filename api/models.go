package api

// RunRequest configures and launches a new evolutionary pipeline via
// POST /api/v1/run. Any field left zero falls back to a fixed default
// set in the run handler (server.go), not to the loaded config.Config.
type RunRequest struct {
	PopulationSize   int     `json:"populationSize,omitempty"`
	VariableCount    int     `json:"variableCount,omitempty"`
	InstructionCount int     `json:"instructionCount,omitempty"`
	ConstantRange    int32   `json:"constantRange,omitempty"`
	MutationRate     float64 `json:"mutationRate,omitempty"`
	TournamentSize   int     `json:"tournamentSize,omitempty"`
	BufferSize       int     `json:"bufferSize,omitempty"`
}

// RunResponse acknowledges a successful POST /api/v1/run.
type RunResponse struct {
	Started bool `json:"started"`
}

// StatusResponse answers GET /api/v1/status.
type StatusResponse struct {
	Running           bool `json:"running"`
	SubscriptionCount int  `json:"subscriptionCount"`
}

// BestResponse answers GET /api/v1/best: the best-scoring candidate the
// sink pipe has observed so far, hex-encoded bytecode.
type BestResponse struct {
	Found   bool    `json:"found"`
	Score   float64 `json:"score,omitempty"`
	Program string  `json:"program,omitempty"`
}

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// SubscriptionRequest is sent by a WebSocket client to select which event
// types it wants to receive. An empty Events list means all types.
type SubscriptionRequest struct {
	Type   string   `json:"type"`
	Events []string `json:"events"`
}
