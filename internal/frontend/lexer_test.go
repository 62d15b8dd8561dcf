package frontend

import "testing"

func scanTypes(t *testing.T, src string) []TokenType {
	t.Helper()
	toks, err := NewLexer(src).ScanAll()
	if err != nil {
		t.Fatalf("unexpected lex error for %q: %v", src, err)
	}
	var types []TokenType
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	return types
}

func TestLexerKeywordsAndOperators(t *testing.T) {
	got := scanTypes(t, `var x: integer = 1 + 2 * (3 - 4) / 5 % 6;`)
	want := []TokenType{
		TokVar, TokIdent, TokColon, TokTypeInteger, TokAssign, TokInt, TokPlus,
		TokInt, TokStar, TokLParen, TokInt, TokMinus, TokInt, TokRParen,
		TokSlash, TokInt, TokPercent, TokInt, TokSemi, TokEOF,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestLexerTwoCharOperators(t *testing.T) {
	got := scanTypes(t, `a == b != c <= d >= e && f || !g`)
	want := []TokenType{
		TokIdent, TokEq, TokIdent, TokNeq, TokIdent, TokLe, TokIdent, TokGe,
		TokIdent, TokAndAnd, TokIdent, TokOrOr, TokBang, TokIdent, TokEOF,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestLexerStringEscapes(t *testing.T) {
	toks, err := NewLexer(`"hello\nworld\t\"quoted\""`).ScanAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(toks) != 2 || toks[0].Type != TokString {
		t.Fatalf("expected a single STRING token, got %v", toks)
	}
	want := "hello\nworld\t\"quoted\""
	if toks[0].Lexeme != want {
		t.Errorf("got lexeme %q, want %q", toks[0].Lexeme, want)
	}
}

func TestLexerUnterminatedString(t *testing.T) {
	if _, err := NewLexer(`"unterminated`).ScanAll(); err == nil {
		t.Fatal("expected error for unterminated string literal")
	}
}

func TestLexerFloatVsIntVsDotAccess(t *testing.T) {
	got := scanTypes(t, `3.14 42 obj.field`)
	want := []TokenType{TokFloat, TokInt, TokIdent, TokDot, TokIdent, TokEOF}
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestLexerComments(t *testing.T) {
	got := scanTypes(t, "var x = 1; // trailing comment\n/* block\ncomment */ var y = 2;")
	want := []TokenType{
		TokVar, TokIdent, TokAssign, TokInt, TokSemi,
		TokVar, TokIdent, TokAssign, TokInt, TokSemi, TokEOF,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestLexerUnexpectedCharacter(t *testing.T) {
	if _, err := NewLexer(`var x = 1 @ 2;`).ScanAll(); err == nil {
		t.Fatal("expected error for unexpected character '@'")
	}
}

func TestLexerKeywordClassification(t *testing.T) {
	toks, err := NewLexer(`this true false null new foreach in`).ScanAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []TokenType{TokThis, TokTrue, TokFalse, TokNull, TokNew, TokForeach, TokIn, TokEOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, tt := range want {
		if toks[i].Type != tt {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, tt)
		}
	}
}
