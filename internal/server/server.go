// Package server implements the §6 HTTP interface: synchronous POST
// /analyze plus the streaming GET /analyze/stream websocket upgrade. Routing
// follows the teacher's internal/network.HTTPServer shape (one *http.Server
// over an *http.ServeMux, JSON in/out) simplified to plain net/http handlers
// since this server has a fixed, small route table rather than the
// teacher's dynamically-registered-at-runtime one.
package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"compiscript/internal/ast"
	"compiscript/internal/cache"
	"compiscript/internal/diagnostics"
	"compiscript/internal/frontend"
	"compiscript/internal/mips"
	"compiscript/internal/tac"
)

// Server wires the pipeline (frontend → tac → mips) behind the §6 contract.
// Cache is optional; a nil Cache just means every request recompiles.
type Server struct {
	Cache    *cache.Store
	upgrader websocket.Upgrader
}

func New(store *cache.Store) *Server {
	return &Server{
		Cache: store,
		// CheckOrigin mirrors the teacher's network.WebSocketListen, which
		// also allows all origins - this endpoint serves a local editor
		// plugin, not a public multi-tenant API.
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/analyze", s.handleAnalyze)
	mux.HandleFunc("/analyze/stream", s.handleAnalyzeStream)
	return mux
}

type analyzeRequest struct {
	Code          string `json:"code"`
	ReturnASTDot  bool   `json:"return_ast_dot"`
	GenerateTAC   bool   `json:"generate_tac"`
	CacheKey      string `json:"cache_key"`
}

type diagnosticJSON struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Length  int    `json:"length,omitempty"`
}

type tacResult struct {
	Code                []string `json:"code"`
	InstructionCount    int      `json:"instruction_count"`
	TemporariesUsed     int      `json:"temporaries_used"`
	FunctionsRegistered int      `json:"functions_registered"`
	ValidationErrors    []string `json:"validation_errors"`
}

type analyzeResponse struct {
	OK          bool              `json:"ok"`
	Diagnostics []diagnosticJSON  `json:"diagnostics"`
	ASTDot      string            `json:"ast_dot,omitempty"`
	TAC         *tacResult        `json:"tac,omitempty"`
	Cached      bool              `json:"cached"`
	CompileID   string            `json:"compile_id,omitempty"`
}

func diagToJSON(d *diagnostics.Diagnostic) diagnosticJSON {
	return diagnosticJSON{Kind: string(d.Kind), Message: d.Message, Line: d.Line, Column: d.Column, Length: d.Length}
}

// frontendDiag wraps a lexer/parser error (a plain error, not a
// diagnostics.Diagnostic, since internal/frontend has no dependency on
// internal/diagnostics) into the same JSON shape, classifying it by
// message prefix - "lex error"/"parse error" are the only two internal/
// frontend ever produces.
func frontendDiag(err error) diagnosticJSON {
	kind := string(diagnostics.KindParser)
	msg := err.Error()
	if strings.HasPrefix(msg, "lex error") {
		kind = string(diagnostics.KindLexer)
	}
	return diagnosticJSON{Kind: kind, Message: msg}
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.CacheKey != "" && s.Cache != nil {
		if artifact, hit, err := s.Cache.Get(req.CacheKey); err == nil && hit {
			writeJSON(w, http.StatusOK, cachedResponse(artifact))
			return
		}
	}

	resp, artifact := s.analyze(req)
	writeJSON(w, http.StatusOK, resp)

	if artifact != nil && s.Cache != nil {
		key := req.CacheKey
		if key == "" {
			key = cache.HashSource(req.Code)
		}
		_ = s.Cache.Put(key, artifact, time.Now())
	}
}

func cachedResponse(a *cache.Artifact) analyzeResponse {
	return analyzeResponse{
		OK:     true,
		Cached: true,
		CompileID: a.CompileID.String(),
		TAC: &tacResult{
			Code:                strings.Split(a.TACText, "\n"),
			InstructionCount:    a.Stats.InstructionCount,
			TemporariesUsed:     a.Stats.TemporariesUsed,
			FunctionsRegistered: a.Stats.FunctionsRegistered,
		},
	}
}

// analyze runs the full frontend→tac→mips pipeline once. The returned
// *cache.Artifact is non-nil only on a fully successful compile (TAC and
// MIPS both produced), since a partial artifact would poison future cache
// hits with missing data.
func (s *Server) analyze(req analyzeRequest) (analyzeResponse, *cache.Artifact) {
	prog, err := frontend.Parse(req.Code)
	if err != nil {
		return analyzeResponse{OK: false, Diagnostics: []diagnosticJSON{frontendDiag(err)}}, nil
	}

	gen := tac.NewGenerator()
	code, err := gen.GenerateProgram(prog)
	diags := make([]diagnosticJSON, 0, len(gen.Diags.Items))
	for _, d := range gen.Diags.Items {
		diags = append(diags, diagToJSON(d))
	}
	if err != nil {
		return analyzeResponse{OK: false, Diagnostics: diags}, nil
	}

	resp := analyzeResponse{OK: true, Diagnostics: diags, CompileID: uuid.New().String()}
	if req.ReturnASTDot {
		resp.ASTDot = ast.RenderDOT(prog)
	}

	stats := gen.GetCompleteStatistics()
	warnings := gen.ValidateTAC()
	resp.TAC = &tacResult{
		Code:                code,
		InstructionCount:    stats.InstructionCount,
		TemporariesUsed:     stats.TemporariesUsed,
		FunctionsRegistered: stats.FunctionsRegistered,
		ValidationErrors:    warnings,
	}

	var artifact *cache.Artifact
	mipsGen := mips.NewGenerator(gen.Instrs, gen.Classes)
	if nodes, err := mipsGen.Generate(); err == nil {
		id, parseErr := uuid.Parse(resp.CompileID)
		if parseErr == nil {
			artifact = &cache.Artifact{
				TACText:   strings.Join(code, "\n"),
				MIPSText:  strings.Join(mips.RenderProgram(nodes), "\n"),
				Stats:     stats,
				CompileID: id,
			}
		}
	}
	return resp, artifact
}

// streamMessage is one frame of the GET /analyze/stream protocol (§6's
// "(NEW) HTTP streaming"): one message per pipeline stage as it completes.
type streamMessage struct {
	Stage       string           `json:"stage"`
	OK          bool             `json:"ok"`
	Diagnostics []diagnosticJSON `json:"diagnostics"`
}

func (s *Server) handleAnalyzeStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	_, payload, err := conn.ReadMessage()
	if err != nil {
		return
	}
	var req analyzeRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		conn.WriteJSON(streamMessage{Stage: "tac", OK: false, Diagnostics: []diagnosticJSON{{Kind: "parser", Message: "invalid request: " + err.Error()}}})
		return
	}

	prog, err := frontend.Parse(req.Code)
	if err != nil {
		conn.WriteJSON(streamMessage{Stage: "tac", OK: false, Diagnostics: []diagnosticJSON{frontendDiag(err)}})
		return
	}

	gen := tac.NewGenerator()
	_, err = gen.GenerateProgram(prog)
	tacDiags := make([]diagnosticJSON, 0, len(gen.Diags.Items))
	for _, d := range gen.Diags.Items {
		tacDiags = append(tacDiags, diagToJSON(d))
	}
	conn.WriteJSON(streamMessage{Stage: "tac", OK: err == nil, Diagnostics: tacDiags})
	if err != nil {
		return
	}

	mipsGen := mips.NewGenerator(gen.Instrs, gen.Classes)
	_, mipsErr := mipsGen.Generate()
	var mipsDiags []diagnosticJSON
	if mipsErr != nil {
		mipsDiags = []diagnosticJSON{{Kind: string(diagnostics.KindMIPS), Message: mipsErr.Error()}}
	}
	conn.WriteJSON(streamMessage{Stage: "mips", OK: mipsErr == nil, Diagnostics: mipsDiags})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
