package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func postAnalyze(t *testing.T, srv *Server, body analyzeRequest) (*httptest.ResponseRecorder, analyzeResponse) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(string(payload)))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	var resp analyzeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rec.Body.String())
	}
	return rec, resp
}

func TestHandleAnalyzeSuccess(t *testing.T) {
	srv := New(nil)
	rec, resp := postAnalyze(t, srv, analyzeRequest{Code: `var x: integer = 1 + 2;`})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !resp.OK {
		t.Fatalf("expected OK response, got diagnostics: %+v", resp.Diagnostics)
	}
	if resp.TAC == nil || resp.TAC.InstructionCount == 0 {
		t.Fatalf("expected a non-empty TAC result, got %+v", resp.TAC)
	}
}

func TestHandleAnalyzeParseError(t *testing.T) {
	srv := New(nil)
	_, resp := postAnalyze(t, srv, analyzeRequest{Code: `var x integer = ;`})

	if resp.OK {
		t.Fatal("expected a parse failure to report OK: false")
	}
	if len(resp.Diagnostics) == 0 {
		t.Fatal("expected at least one diagnostic for invalid source")
	}
	if resp.Diagnostics[0].Kind != "parser" {
		t.Errorf("expected a parser diagnostic, got %q", resp.Diagnostics[0].Kind)
	}
}

func TestHandleAnalyzeReturnsASTDotWhenRequested(t *testing.T) {
	srv := New(nil)
	_, resp := postAnalyze(t, srv, analyzeRequest{Code: `var x: integer = 1;`, ReturnASTDot: true})

	if !resp.OK {
		t.Fatalf("expected OK, got diagnostics: %+v", resp.Diagnostics)
	}
	if !strings.Contains(resp.ASTDot, "digraph AST") {
		t.Errorf("expected ast_dot to contain a digraph, got %q", resp.ASTDot)
	}
}

func TestHandleAnalyzeInvalidBody(t *testing.T) {
	srv := New(nil)
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid body, got %d", rec.Code)
	}
}
