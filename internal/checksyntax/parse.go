package checksyntax

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/file"
	"github.com/dop251/goja/parser"
	"github.com/dop251/goja/token"
)

// Supported ECMAScript versions.
const (
	MinECMAVersion = 5
	MaxECMAVersion = 2024
)

// syntaxIssue is the first problem found in a code unit.
type syntaxIssue struct {
	message string
	line    int
	column  int
}

// parseUnit parses code as a script and reports the first construct that
// does not exist in version. nil means the code is valid.
func parseUnit(code string, version int) *syntaxIssue {
	program, err := parser.ParseFile(nil, "", code, 0, parser.WithDisableSourceMaps)
	if err != nil {
		issue := &syntaxIssue{message: err.Error(), line: 1, column: 1}
		var list parser.ErrorList
		if errors.As(err, &list) && len(list) > 0 {
			issue = &syntaxIssue{message: list[0].Message, line: list[0].Position.Line, column: list[0].Position.Column}
		}
		return checkLaterSyntax(code, version, issue)
	}
	if version >= MaxECMAVersion {
		return nil
	}
	s := &featureScan{version: version}
	s.walk(reflect.ValueOf(program.Body))
	if s.found == nil {
		return nil
	}
	pos := program.File.Position(int(s.idx) - program.File.Base())
	return &syntaxIssue{
		message: fmt.Sprintf("%s is not available in %s", s.found.name, versionName(version)),
		line:    pos.Line,
		column:  pos.Column,
	}
}

type feature struct {
	name    string
	version int
}

var (
	featArrow          = feature{"arrow function", 2015}
	featClass          = feature{"class", 2015}
	featTemplate       = feature{"template literal", 2015}
	featLexical        = feature{"let/const declaration", 2015}
	featForOf          = feature{"for...of loop", 2015}
	featSpread         = feature{"spread element", 2015}
	featDestructuring  = feature{"destructuring pattern", 2015}
	featGenerator      = feature{"generator function", 2015}
	featNewTarget      = feature{"new.target", 2015}
	featSuper          = feature{"super", 2015}
	featShorthand      = feature{"shorthand property", 2015}
	featComputedKey    = feature{"computed property key", 2015}
	featMethod         = feature{"method definition", 2015}
	featRestParam      = feature{"rest parameter", 2015}
	featDefaultParam   = feature{"default parameter", 2015}
	featBinaryOctal    = feature{"binary or octal literal", 2015}
	featRegExpSticky   = feature{"regular expression flag u or y", 2015}
	featExponent       = feature{"exponentiation operator (**)", 2016}
	featAsync          = feature{"async function", 2017}
	featAwait          = feature{"await expression", 2017}
	featObjectRest     = feature{"object rest property", 2018}
	featObjectSpread   = feature{"object spread property", 2018}
	featAsyncGenerator = feature{"async generator", 2018}
	featRegExpDotAll   = feature{"regular expression flag s", 2018}
	featOptionalCatch  = feature{"optional catch binding", 2019}
	featOptionalChain  = feature{"optional chaining (?.)", 2020}
	featCoalesce       = feature{"nullish coalescing (??)", 2020}
	featImportMeta     = feature{"import.meta", 2020}
	featNumericSep     = feature{"numeric separator", 2021}
	featClassField     = feature{"class field", 2022}
	featPrivateName    = feature{"private class member", 2022}
	featStaticBlock    = feature{"class static block", 2022}
	featRegExpIndices  = feature{"regular expression flag d", 2022}
	featRegExpSets     = feature{"regular expression flag v", 2024}
)

var nodeType = reflect.TypeOf((*ast.Node)(nil)).Elem()

// featureScan walks an AST and records the first node, in source order,
// whose syntax is newer than version.
type featureScan struct {
	version int
	found   *feature
	idx     file.Idx
}

func (s *featureScan) report(f feature, idx file.Idx) {
	if f.version <= s.version {
		return
	}
	if s.found == nil || idx < s.idx {
		ff := f
		s.found = &ff
		s.idx = idx
	}
}

func (s *featureScan) walk(v reflect.Value) {
	switch v.Kind() {
	case reflect.Interface:
		if !v.IsNil() {
			s.walk(v.Elem())
		}
	case reflect.Pointer:
		if v.IsNil() {
			return
		}
		if v.Type().Implements(nodeType) {
			s.visit(v.Interface().(ast.Node))
		}
		s.walk(v.Elem())
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			s.walk(v.Index(i))
		}
	case reflect.Struct:
		// Nodes held by value, such as the declaration of a for loop
		// initializer.
		if v.CanAddr() && v.Addr().Type().Implements(nodeType) {
			s.visit(v.Addr().Interface().(ast.Node))
		}
		for i := 0; i < v.NumField(); i++ {
			if v.Type().Field(i).IsExported() {
				s.walk(v.Field(i))
			}
		}
	}
}

func (s *featureScan) visit(n ast.Node) {
	idx := n.Idx0()
	switch t := n.(type) {
	case *ast.ArrowFunctionLiteral:
		s.report(featArrow, idx)
		if t.Async {
			s.report(featAsync, idx)
		}
	case *ast.FunctionLiteral:
		switch {
		case t.Async && t.Generator:
			s.report(featAsyncGenerator, idx)
		case t.Async:
			s.report(featAsync, idx)
		case t.Generator:
			s.report(featGenerator, idx)
		}
	case *ast.ClassLiteral:
		s.report(featClass, idx)
	case *ast.TemplateLiteral:
		s.report(featTemplate, idx)
	case *ast.LexicalDeclaration:
		s.report(featLexical, idx)
	case *ast.ForDeclaration:
		s.report(featLexical, idx)
	case *ast.ForOfStatement:
		s.report(featForOf, idx)
	case *ast.SpreadElement:
		s.report(featSpread, idx)
	case *ast.ArrayPattern:
		s.report(featDestructuring, idx)
	case *ast.ObjectPattern:
		s.report(featDestructuring, idx)
		if t.Rest != nil {
			s.report(featObjectRest, t.Rest.Idx0())
		}
	case *ast.ObjectLiteral:
		for _, p := range t.Value {
			if _, ok := p.(*ast.SpreadElement); ok {
				s.report(featObjectSpread, p.Idx0())
			}
		}
	case *ast.YieldExpression:
		s.report(featGenerator, idx)
	case *ast.AwaitExpression:
		s.report(featAwait, idx)
	case *ast.MetaProperty:
		if t.Meta != nil && t.Meta.Name == "import" {
			s.report(featImportMeta, idx)
		} else {
			s.report(featNewTarget, idx)
		}
	case *ast.SuperExpression:
		s.report(featSuper, idx)
	case *ast.PropertyShort:
		s.report(featShorthand, idx)
	case *ast.PropertyKeyed:
		if t.Computed {
			s.report(featComputedKey, idx)
		}
		if t.Kind == ast.PropertyKindMethod {
			s.report(featMethod, idx)
		}
	case *ast.ParameterList:
		if t.Rest != nil {
			s.report(featRestParam, t.Rest.Idx0())
		}
		for _, b := range t.List {
			if b.Initializer != nil {
				s.report(featDefaultParam, b.Idx0())
			}
		}
	case *ast.NumberLiteral:
		lit := strings.ToLower(t.Literal)
		if strings.HasPrefix(lit, "0b") || strings.HasPrefix(lit, "0o") {
			s.report(featBinaryOctal, idx)
		}
		if strings.Contains(lit, "_") {
			s.report(featNumericSep, idx)
		}
	case *ast.RegExpLiteral:
		if strings.ContainsAny(t.Flags, "uy") {
			s.report(featRegExpSticky, idx)
		}
		if strings.Contains(t.Flags, "s") {
			s.report(featRegExpDotAll, idx)
		}
		if strings.Contains(t.Flags, "d") {
			s.report(featRegExpIndices, idx)
		}
		if strings.Contains(t.Flags, "v") {
			s.report(featRegExpSets, idx)
		}
	case *ast.BinaryExpression:
		switch t.Operator {
		case token.EXPONENT:
			s.report(featExponent, idx)
		case token.COALESCE:
			s.report(featCoalesce, idx)
		}
	case *ast.AssignExpression:
		if t.Operator == token.EXPONENT || t.Operator == token.EXPONENT_ASSIGN {
			s.report(featExponent, idx)
		}
	case *ast.CatchStatement:
		if t.Parameter == nil {
			s.report(featOptionalCatch, idx)
		}
	case *ast.OptionalChain:
		s.report(featOptionalChain, idx)
	case *ast.FieldDefinition:
		s.report(featClassField, idx)
	case *ast.ClassStaticBlock:
		s.report(featStaticBlock, idx)
	case *ast.PrivateDotExpression:
		s.report(featPrivateName, idx)
	}
}

func versionName(v int) string {
	if v <= MinECMAVersion {
		return "ES5"
	}
	return fmt.Sprintf("ES%d", v)
}
