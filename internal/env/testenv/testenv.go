// Package testenv provides a minimal, deterministic in-memory
// implementation of env.Environment, env.ASTStore, env.Parser and
// env.Analyzer for use in tests of the dispatcher, pipeline, and lookup
// cache. It implements no real type theory: types are compared by name,
// and "parsing" a source just records it as an AST holding raw text plus
// any pre-registered symbols for the path.
package testenv

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkraison/pyre-check/internal/env"
	"github.com/pkraison/pyre-check/internal/errs"
	"github.com/pkraison/pyre-check/internal/handle"
)

// Class is a fake class definition: attributes, methods, superclasses.
type Class struct {
	Attributes   []env.Attribute
	Methods      []env.Method
	Superclasses []env.Type
}

// AST is the fake parsed representation: the raw source plus any
// annotations/definitions at fixed positions, and top-level define
// names, all pre-registered by tests via Fixture.
type AST struct {
	Source      string
	Annotations map[env.Position]annotated
	Defines     []string
}

type annotated struct {
	loc  env.Location
	typ  env.Type
	def  env.Location
	hasD bool
}

// Fixture is the seed data for one file, registered before parsing.
type Fixture struct {
	Source      string
	Annotations map[env.Position]struct {
		Type       env.Type
		Definition *env.Location
	}
	Defines []string
}

// Env is the fake environment plus AST store plus parser plus analyzer,
// all in one struct for test convenience (tests type-assert whichever
// interface they need).
type Env struct {
	mu sync.Mutex

	types   map[string]struct{} // tracked type-order members
	joins   map[[2]string]string
	meets   map[[2]string]string
	leq     map[[2]string]bool
	classes map[string]Class
	globals map[string]env.Symbol
	sigs    map[string][]env.Overload
	deps    map[handle.Qualifier][]handle.Handle
	modDefs map[handle.Qualifier]handle.Handle

	asts     map[handle.Handle]env.AST
	fixtures map[string]Fixture // keyed by path, consumed by Parse

	analyzeErrors map[handle.Handle][]env.ErrorRecord

	purged                []handle.Handle
	memoCleared           int
	purgedResolutionNames []string
	ignored               []handle.Handle
	repopulated           []handle.Handle
}

// New builds an empty fake environment. "unknown"/"object" are
// pre-tracked so tests have a baseline type-order member without extra
// setup.
func New() *Env {
	e := &Env{
		types:         map[string]struct{}{"object": {}, "unknown": {}},
		joins:         map[[2]string]string{},
		meets:         map[[2]string]string{},
		leq:           map[[2]string]bool{},
		classes:       map[string]Class{},
		globals:       map[string]env.Symbol{},
		sigs:          map[string][]env.Overload{},
		deps:          map[handle.Qualifier][]handle.Handle{},
		modDefs:       map[handle.Qualifier]handle.Handle{},
		asts:          map[handle.Handle]env.AST{},
		fixtures:      map[string]Fixture{},
		analyzeErrors: map[handle.Handle][]env.ErrorRecord{},
	}
	return e
}

// TrackType adds a type to the type-order.
func (e *Env) TrackType(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.types[name] = struct{}{}
}

// SetClass registers a class definition.
func (e *Env) SetClass(name string, c Class) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.types[name] = struct{}{}
	e.classes[name] = c
}

// SetGlobal registers a resolvable global.
func (e *Env) SetGlobal(name string, s env.Symbol) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.globals[name] = s
}

// SetSignature registers a callable's overloads.
func (e *Env) SetSignature(name string, overloads []env.Overload) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sigs[name] = overloads
}

// SetJoin/SetMeet/SetLessOrEqual register type-order relations for a and
// b in both orders queried.
func (e *Env) SetJoin(a, b, result string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.joins[[2]string{a, b}] = result
	e.joins[[2]string{b, a}] = result
}

func (e *Env) SetMeet(a, b, result string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.meets[[2]string{a, b}] = result
	e.meets[[2]string{b, a}] = result
}

func (e *Env) SetLessOrEqual(a, b string, v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.leq[[2]string{a, b}] = v
}

// SetDependents registers the file handles that depend on the module
// qualifier of.
func (e *Env) SetDependents(of handle.Qualifier, dependents ...handle.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deps[of] = dependents
}

// SetModuleDefinition registers the canonical handle a qualifier
// currently resolves to.
func (e *Env) SetModuleDefinition(q handle.Qualifier, h handle.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.modDefs[q] = h
}

// SetFixture registers the parse fixture for a path, consumed the next
// time Parse(path, ...) is called.
func (e *Env) SetFixture(path string, f Fixture) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fixtures[path] = f
}

// SetAnalyzeErrors registers the errors Analyze will return for h.
func (e *Env) SetAnalyzeErrors(h handle.Handle, errs []env.ErrorRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.analyzeErrors[h] = errs
}

// PurgedHandles returns the handles passed to Purge, in call order.
func (e *Env) PurgedHandles() []handle.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]handle.Handle(nil), e.purged...)
}

// AttributeMemoClears returns how many times ClearAttributeMemo ran.
func (e *Env) AttributeMemoClears() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.memoCleared
}

// -- env.Parser --

func (e *Env) Parse(path, source string) (env.AST, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fx, ok := e.fixtures[path]
	if !ok {
		fx = Fixture{Source: source}
	}
	ast := &AST{
		Source:      fx.Source,
		Annotations: map[env.Position]annotated{},
		Defines:     fx.Defines,
	}
	for pos, a := range fx.Annotations {
		rec := annotated{typ: a.Type}
		if a.Definition != nil {
			rec.def = *a.Definition
			rec.hasD = true
		}
		ast.Annotations[pos] = rec
	}
	return ast, nil
}

// -- env.ASTStore --

func (e *Env) Get(h handle.Handle) (env.AST, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.asts[h]
	return a, ok
}

func (e *Env) Put(h handle.Handle, ast env.AST) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.asts[h] = ast
}

func (e *Env) Delete(handles []handle.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, h := range handles {
		delete(e.asts, h)
	}
}

func (e *Env) GC() {}

// -- env.Analyzer --

func (e *Env) AnalyzeFile(_ context.Context, h handle.Handle) ([]env.ErrorRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]env.ErrorRecord(nil), e.analyzeErrors[h]...), nil
}

// -- env.Environment --

func (e *Env) ParseAnnotation(expr string) (env.Type, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.types[expr]; !ok {
		return env.Type{}, untracked(expr)
	}
	return env.Type{Name: expr}, nil
}

func (e *Env) HasClassDefinition(t env.Type) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.classes[t.Name]
	return ok
}

func (e *Env) Attributes(t env.Type) ([]env.Attribute, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.classes[t.Name]
	if !ok {
		return nil, false
	}
	return c.Attributes, true
}

func (e *Env) Methods(t env.Type) ([]env.Method, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.classes[t.Name]
	if !ok {
		return nil, false
	}
	return c.Methods, true
}

func (e *Env) Superclasses(t env.Type) ([]env.Type, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.classes[t.Name]
	if !ok {
		return nil, false
	}
	return c.Superclasses, true
}

func (e *Env) Join(a, b env.Type) (env.Type, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.types[a.Name]; !ok {
		return env.Type{}, untracked(a.Name)
	}
	if _, ok := e.types[b.Name]; !ok {
		return env.Type{}, untracked(b.Name)
	}
	if r, ok := e.joins[[2]string{a.Name, b.Name}]; ok {
		return env.Type{Name: r}, nil
	}
	return env.Type{Name: "object"}, nil
}

func (e *Env) Meet(a, b env.Type) (env.Type, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.types[a.Name]; !ok {
		return env.Type{}, untracked(a.Name)
	}
	if _, ok := e.types[b.Name]; !ok {
		return env.Type{}, untracked(b.Name)
	}
	if r, ok := e.meets[[2]string{a.Name, b.Name}]; ok {
		return env.Type{Name: r}, nil
	}
	return env.Type{Name: "unknown"}, nil
}

func (e *Env) LessOrEqual(a, b env.Type) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.types[a.Name]; !ok {
		return false, untracked(a.Name)
	}
	if _, ok := e.types[b.Name]; !ok {
		return false, untracked(b.Name)
	}
	return e.leq[[2]string{a.Name, b.Name}], nil
}

func (e *Env) ResolveGlobal(name string) (env.Symbol, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.globals[name]
	return s, ok
}

func (e *Env) Signature(name string) ([]env.Overload, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sigs[name]
	return s, ok
}

func (e *Env) Dependencies(q handle.Qualifier) []handle.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deps[q]
}

func (e *Env) Purge(handles []handle.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.purged = append(e.purged, handles...)
}

func (e *Env) ModuleDefinition(q handle.Qualifier) (handle.Handle, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.modDefs[q]
	return h, ok
}

func (e *Env) Repopulate(h handle.Handle, ast env.AST) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.repopulated = append(e.repopulated, h)
}

func (e *Env) InferProtocols(handles []handle.Handle) {}

func (e *Env) RegisterIgnores(handles []handle.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ignored = append(e.ignored, handles...)
}

func (e *Env) TopLevelDefines(ast env.AST) []string {
	a, ok := ast.(*AST)
	if !ok {
		return nil
	}
	return a.Defines
}

func (e *Env) PurgeResolutionMemo(names []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.purgedResolutionNames = append(e.purgedResolutionNames, names...)
}

// PurgedResolutionNames returns the define names passed to
// PurgeResolutionMemo, in call order.
func (e *Env) PurgedResolutionNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.purgedResolutionNames...)
}

func (e *Env) ClearAttributeMemo() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.memoCleared++
}

func (e *Env) BuildPositionIndex(h handle.Handle, ast env.AST) (env.PositionIndex, error) {
	a, ok := ast.(*AST)
	if !ok {
		return nil, fmt.Errorf("testenv: not an *AST: %T", ast)
	}
	return &positionIndex{h: h, ast: a}, nil
}

type positionIndex struct {
	h   handle.Handle
	ast *AST
}

func (p *positionIndex) AnnotationAt(pos env.Position) (env.Location, env.Type, bool) {
	rec, ok := p.ast.Annotations[pos]
	if !ok {
		return env.Location{}, env.Type{}, false
	}
	loc := env.Location{Path: p.h, Pos: pos}
	return loc, rec.typ, true
}

func (p *positionIndex) DefinitionAt(pos env.Position) (env.Location, bool) {
	rec, ok := p.ast.Annotations[pos]
	if !ok || !rec.hasD {
		return env.Location{}, false
	}
	return rec.def, true
}

func untracked(name string) error {
	return errs.Untracked(name)
}
