package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/disdain-project/beast/config"
	"github.com/disdain-project/beast/evaluator"
	"github.com/disdain-project/beast/generator"
	"github.com/disdain-project/beast/pipe"
	"github.com/disdain-project/beast/pipeline"
	"github.com/disdain-project/beast/vm"
)

// Server is the HTTP+WebSocket observability API for one running
// pipeline.Pipeline per process. It owns at most one pipeline at a time:
// POST /api/v1/run stops any pipeline already running and starts a fresh
// one.
type Server struct {
	cfg         *config.Config
	broadcaster *Broadcaster
	mux         *http.ServeMux
	server      *http.Server
	port        int

	mu       sync.Mutex
	cancel   context.CancelFunc
	pl       *pipeline.Pipeline
	sink     *pipe.SinkPipe
	running  bool
	rngSeed  uint64
}

// NewServer creates a new API server around cfg.
func NewServer(cfg *config.Config) *Server {
	s := &Server{
		cfg:         cfg,
		broadcaster: NewBroadcaster(),
		mux:         http.NewServeMux(),
		port:        cfg.API.Port,
		rngSeed:     1,
	}
	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler with CORS middleware applied.
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/v1/ws", s.handleWebSocket)
	s.mux.HandleFunc("/api/v1/status", s.handleStatus)
	s.mux.HandleFunc("/api/v1/run", s.handleRun)
	s.mux.HandleFunc("/api/v1/best", s.handleBest)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("API server starting on http://127.0.0.1:%d", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server and stops any running pipeline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopPipeline()

	if s.broadcaster != nil {
		s.broadcaster.Close()
	}

	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if isAllowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isAllowedOrigin(origin string) bool {
	if origin == "" {
		return true
	}
	if strings.HasPrefix(origin, "file://") {
		return true
	}
	return strings.HasPrefix(origin, "http://localhost") ||
		strings.HasPrefix(origin, "https://localhost") ||
		strings.HasPrefix(origin, "http://127.0.0.1") ||
		strings.HasPrefix(origin, "https://127.0.0.1")
}

// startPipeline stops any running pipeline and wires a fresh
// source -> evolution -> sink chain from req and s.cfg, then starts it.
func (s *Server) startPipeline(req RunRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pl != nil {
		s.cancel()
		_ = s.pl.Stop()
	}

	populationSize := firstNonZeroInt(req.PopulationSize, s.cfg.Pipeline.PopulationSize)
	variableCount := firstNonZeroInt(req.VariableCount, s.cfg.VM.VariableCount)
	instructionCount := firstNonZeroInt(req.InstructionCount, 20)
	constantRange := req.ConstantRange
	if constantRange == 0 {
		constantRange = 100
	}
	mutationRate := req.MutationRate
	if mutationRate == 0 {
		mutationRate = s.cfg.Pipeline.MutationRate
	}
	tournamentSize := firstNonZeroInt(req.TournamentSize, 3)
	bufferSize := firstNonZeroInt(req.BufferSize, s.cfg.Pipeline.BufferSize)

	s.rngSeed++
	rng := rand.New(rand.NewPCG(s.rngSeed, s.rngSeed^0xa5a5a5a5))

	newSession := func(program []byte) *vm.VmSession {
		return vm.NewVmSession(vm.NewProgram(program), s.cfg.VM.VariableCount, s.cfg.VM.StringTableCount, s.cfg.VM.MaxStringSize, s.rngSeed)
	}

	scorer := evaluator.RuntimeStatisticsEvaluator{
		DynNoopWeight:  s.cfg.Evaluator.DynNoopWeight,
		StatNoopWeight: s.cfg.Evaluator.StatNoopWeight,
		PrgExecWeight:  s.cfg.Evaluator.PrgExecWeight,
	}

	source := generator.NewSourcePipe(rng, generator.RandomOptions{
		VariableCount:    variableCount,
		InstructionCount: instructionCount,
		ConstantRange:    constantRange,
	}, populationSize)
	evolution := pipe.NewEvolutionPipe(populationSize, scorer, newSession, mutationRate, tournamentSize, rng)
	sink := pipe.NewSinkPipe(scorer, newSession)

	pl := pipeline.New(s.broadcaster)
	if err := pl.AddPipe("source", source); err != nil {
		return err
	}
	if err := pl.AddPipe("evolution", evolution); err != nil {
		return err
	}
	if err := pl.AddPipe("sink", sink); err != nil {
		return err
	}
	if err := pl.ConnectPipes("source", 0, "evolution", 0, bufferSize); err != nil {
		return err
	}
	if err := pl.ConnectPipes("evolution", 0, "sink", 0, bufferSize); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := pl.Start(ctx); err != nil {
		cancel()
		return err
	}

	s.pl = pl
	s.sink = sink
	s.cancel = cancel
	s.running = true
	return nil
}

func (s *Server) stopPipeline() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pl == nil {
		return
	}
	s.cancel()
	_ = s.pl.Stop()
	s.pl = nil
	s.sink = nil
	s.running = false
}

func firstNonZeroInt(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleStatus handles GET /api/v1/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, StatusResponse{
		Running:           running,
		SubscriptionCount: s.broadcaster.SubscriptionCount(),
	})
}

// handleRun handles POST /api/v1/run.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RunRequest
	if r.ContentLength != 0 {
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
	}

	if err := s.startPipeline(req); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, RunResponse{Started: true})
}

// handleBest handles GET /api/v1/best.
func (s *Server) handleBest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()

	if sink == nil {
		writeJSON(w, http.StatusOK, BestResponse{Found: false})
		return
	}

	program, score, ok := sink.Best()
	if !ok {
		writeJSON(w, http.StatusOK, BestResponse{Found: false})
		return
	}

	writeJSON(w, http.StatusOK, BestResponse{
		Found:   true,
		Score:   score,
		Program: hex.EncodeToString(program),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

func readJSON(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1024*1024))
	return decoder.Decode(v)
}
