package tac

import "compiscript/internal/ast"

// BuiltinSignature documents one builtin's accepted shape for diagnostics
// and tooling (e.g. a --list-builtins CLI flag); arity is never checked
// against it. print/println/input accept any number of arguments; the
// conversion builtins str/int/float/bool/len take exactly one, checked by
// lowerTypedBuiltin in expr_generator.go.
type BuiltinSignature struct {
	Name        string
	Params      string // human-readable, e.g. "any..." or "array|string"
	Returns     *ast.TypeRef
	Description string
}

// builtinTable is the fixed builtin registry (§4.16), read only through
// LookupBuiltin; call lowering does not consult it. Keys mirror the
// Builtins set in generator.go, which is what VisitCallExpr checks before
// the user function registry; this table carries the descriptive metadata
// diagnostics and CLI tooling want.
var builtinTable = map[string]BuiltinSignature{
	"print":   {Name: "print", Params: "any...", Returns: &ast.TypeRef{Base: ast.TypeVoid}, Description: "writes each argument to stdout with no separator or trailing newline"},
	"println": {Name: "println", Params: "any...", Returns: &ast.TypeRef{Base: ast.TypeVoid}, Description: "like print, followed by a newline"},
	"input":   {Name: "input", Params: "", Returns: &ast.TypeRef{Base: ast.TypeString}, Description: "reads one line from stdin"},
	"str":     {Name: "str", Params: "any", Returns: &ast.TypeRef{Base: ast.TypeString}, Description: "converts its argument to its string representation"},
	"int":     {Name: "int", Params: "any", Returns: &ast.TypeRef{Base: ast.TypeInteger}, Description: "converts its argument to an integer, truncating floats"},
	"float":   {Name: "float", Params: "any", Returns: &ast.TypeRef{Base: ast.TypeFloat}, Description: "converts its argument to a float"},
	"bool":    {Name: "bool", Params: "any", Returns: &ast.TypeRef{Base: ast.TypeBoolean}, Description: "converts its argument to a boolean"},
	"len":     {Name: "len", Params: "array|string", Returns: &ast.TypeRef{Base: ast.TypeInteger}, Description: "element count of an array, or byte length of a string"},
}

// LookupBuiltin reports a builtin's documented signature, if name names one.
func LookupBuiltin(name string) (BuiltinSignature, bool) {
	sig, ok := builtinTable[name]
	return sig, ok
}

// BuiltinNames returns the fixed builtin name set in a stable order, for
// CLI listing and documentation generation.
func BuiltinNames() []string {
	return []string{"print", "println", "input", "str", "int", "float", "bool", "len"}
}
