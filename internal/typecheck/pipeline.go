// Package typecheck implements the incremental type-check pipeline
// (spec.md §4.4, component C4): partial re-parse, environment
// repopulation, re-analysis, error bookkeeping, and dependency-driven
// deferred-work fan-out.
package typecheck

import (
	"context"
	"os"
	"strings"

	"github.com/pkraison/pyre-check/internal/config"
	"github.com/pkraison/pyre-check/internal/depgraph"
	"github.com/pkraison/pyre-check/internal/env"
	"github.com/pkraison/pyre-check/internal/errs"
	"github.com/pkraison/pyre-check/internal/errstore"
	"github.com/pkraison/pyre-check/internal/handle"
	"github.com/pkraison/pyre-check/internal/lookup"
	"github.com/pkraison/pyre-check/internal/scheduler"
)

// Pipeline holds every collaborator the twelve stages in spec.md §4.4
// need: the AST store, the environment, the parser and analyzer, the
// error store, the lookup cache (for eviction), and the scheduler.
type Pipeline struct {
	ASTs              env.ASTStore
	Environment       env.Environment
	Parser            env.Parser
	Analyzer          env.Analyzer
	Errors            *errstore.Store
	Cache             *lookup.Cache
	Scheduler         *scheduler.Scheduler
	StubSuffix        string
	ParallelThreshold int

	// Exclude drops configured paths (spec.md §4.4, .tychk.kdl's exclude
	// globs) before they reach any stage. Nil means nothing is excluded.
	Exclude *config.ExcludeMatcher
}

// Request is the incoming (update_environment_with, check) pair.
type Request struct {
	UpdateEnvironmentWith []handle.File
	Check                 []handle.File
}

// Outcome is everything Process hands back to the dispatcher: the
// TypeCheckResponse payload (already deterministically ordered), the
// deferred dependents fan-out (a single follow-up check set, empty when
// there's nothing to defer), and the handles that resolved from Check so
// the dispatcher can merge them into ServerState.handles (spec.md §3
// invariant 3).
type Outcome struct {
	Response []errstore.FileErrors
	Deferred []handle.Handle
	Resolved []handle.Handle
}

// Process runs stages 1-11 of spec.md §4.4 against p's collaborators.
// Stage 12 (merging state.handles, installing deferred_requests) is the
// dispatcher's job, since Pipeline has no access to ServerState.
//
// The only errors Process returns are fatal per spec.md §7.6: scheduler
// or shared-memory failures. Parse failures and analyzer-detected type
// errors are absorbed into the pipeline's own bookkeeping.
func (p *Pipeline) Process(ctx context.Context, req Request) (Outcome, error) {
	req.UpdateEnvironmentWith = p.dropExcluded(req.UpdateEnvironmentWith)
	req.Check = p.dropExcluded(req.Check)

	// Stage 1: clear derived caches.
	p.Environment.ClearAttributeMemo()

	updateFiles, updateHandles := resolveAll(req.UpdateEnvironmentWith)
	_, checkHandles := resolveAll(req.Check)

	// Stage 2: choose parallelism.
	sched := p.Scheduler.WithParallel(len(req.Check) > p.ParallelThreshold)

	// Stage 3: compute deferred dependents.
	var deferred []handle.Handle
	if len(updateHandles) > 0 {
		deferred = depgraph.ComputeDeferred(p.Environment, updateHandles, checkHandles, p.StubSuffix)
	}

	// Stage 4: purge & evict.
	if len(updateHandles) > 0 {
		p.ASTs.Delete(updateHandles)
		p.Environment.Purge(updateHandles)
		for _, f := range updateFiles {
			p.Cache.Evict(f)
		}
	}

	// Stage 5: parse.
	repopulateHandles, err := p.parseAndRepopulateCandidates(ctx, sched, req.UpdateEnvironmentWith)
	if err != nil {
		return Outcome{}, &errs.PipelineError{Stage: "parse", Err: err}
	}

	// Stage 6: repopulate environment.
	for _, h := range repopulateHandles {
		if ast, ok := p.ASTs.Get(h); ok {
			p.Environment.Repopulate(h, ast)
		}
	}
	p.Environment.InferProtocols(repopulateHandles)

	// Stage 7: register ignores.
	p.Environment.RegisterIgnores(repopulateHandles)

	// Stage 8: invalidate type resolution memoization.
	var defines []string
	for _, h := range checkHandles {
		if ast, ok := p.ASTs.Get(h); ok {
			defines = append(defines, p.Environment.TopLevelDefines(ast)...)
		}
	}
	p.Environment.PurgeResolutionMemo(defines)

	// Stage 9: re-analyze.
	newErrors, err := analyze(ctx, sched, p.Analyzer, checkHandles)
	if err != nil {
		return Outcome{}, &errs.PipelineError{Stage: "analyze", Err: err}
	}

	// Stage 10: update error store.
	for _, h := range checkHandles {
		p.Errors.Remove(h)
	}
	for _, e := range newErrors {
		p.Errors.Insert(e)
	}

	// Stage 11: build response.
	response := p.Errors.BuildFileToErrorMap(checkHandles, newErrors)

	return Outcome{Response: response, Deferred: deferred, Resolved: checkHandles}, nil
}

// parseAndRepopulateCandidates runs Stage 5: partition into stubs and
// sources, parse stubs first, then sources — dropping any source whose
// qualifier already resolves to a different canonical handle (the
// shadowed-by-stub rule) — and returns the union of handles that should
// feed Stage 6. sched is the Stage-2 parallelism decision, threaded
// through rather than recomputed, since stage 5 and stage 9 share it
// (spec.md §5).
func (p *Pipeline) parseAndRepopulateCandidates(ctx context.Context, sched *scheduler.Scheduler, files []handle.File) ([]handle.Handle, error) {
	var stubs, sources []handle.File
	for _, f := range files {
		h, ok := handle.Resolve(f)
		if !ok {
			continue
		}
		if strings.HasSuffix(string(h), p.StubSuffix) {
			stubs = append(stubs, f)
		} else {
			sources = append(sources, f)
		}
	}

	stubHandles, err := p.parseInto(ctx, sched, stubs)
	if err != nil {
		return nil, err
	}

	sourceHandles, err := p.parseInto(ctx, sched, sources)
	if err != nil {
		return nil, err
	}

	repopulate := append([]handle.Handle(nil), stubHandles...)
	for _, h := range sourceHandles {
		q := handle.QualifierFor(h, p.StubSuffix)
		if canonical, ok := p.Environment.ModuleDefinition(q); ok && canonical != h {
			// Shadowed by a stub: drop it from repopulation and shared
			// memory both, so the stub is the only truth for this module.
			p.ASTs.Delete([]handle.Handle{h})
			continue
		}
		repopulate = append(repopulate, h)
	}
	return repopulate, nil
}

// parseInto parses each file, stores successful ASTs, and returns the
// handles that parsed. sched is the Stage-2 parallelism decision (spec.md
// §4.4 Stage 2, §5: stages 5 and 9 share the same fan-out mode).
func (p *Pipeline) parseInto(ctx context.Context, sched *scheduler.Scheduler, files []handle.File) ([]handle.Handle, error) {
	if len(files) == 0 {
		return nil, nil
	}
	type parsed struct {
		h  handle.Handle
		ok bool
	}
	results, err := scheduler.Map(ctx, sched, files, func(_ context.Context, f handle.File) (parsed, error) {
		h, ok := handle.Resolve(f)
		if !ok {
			return parsed{}, nil
		}
		source := readSource(f)
		ast, perr := p.Parser.Parse(string(h), source)
		if perr != nil {
			// Parse errors are silently absorbed (spec.md §4.4 "Failure
			// semantics"): the file simply doesn't contribute.
			return parsed{}, nil
		}
		p.ASTs.Put(h, ast)
		return parsed{h: h, ok: true}, nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]handle.Handle, 0, len(results))
	for _, r := range results {
		if r.ok {
			out = append(out, r.h)
		}
	}
	return out, nil
}

func analyze(ctx context.Context, sched *scheduler.Scheduler, analyzer env.Analyzer, handles []handle.Handle) ([]env.ErrorRecord, error) {
	if len(handles) == 0 {
		return nil, nil
	}
	perFile, err := scheduler.Map(ctx, sched, handles, func(c context.Context, h handle.Handle) ([]env.ErrorRecord, error) {
		return analyzer.AnalyzeFile(c, h)
	})
	if err != nil {
		return nil, err
	}
	var out []env.ErrorRecord
	for _, errsFor := range perFile {
		out = append(out, errsFor...)
	}
	return out, nil
}

// dropExcluded filters files against p.Exclude's configured globs
// (spec.md §4.4: excluded paths never reach update_environment_with or
// check). A nil Exclude matches nothing.
func (p *Pipeline) dropExcluded(files []handle.File) []handle.File {
	if p.Exclude == nil {
		return files
	}
	out := make([]handle.File, 0, len(files))
	for _, f := range files {
		if !p.Exclude.Excluded(f.RelPath) {
			out = append(out, f)
		}
	}
	return out
}

// resolveAll drops files that fail to resolve to a handle (spec.md §9
// Open Question) and returns the surviving files alongside their
// handles, index-aligned.
func resolveAll(files []handle.File) ([]handle.File, []handle.Handle) {
	resolvedFiles := make([]handle.File, 0, len(files))
	handles := make([]handle.Handle, 0, len(files))
	for _, f := range files {
		if h, ok := handle.Resolve(f); ok {
			resolvedFiles = append(resolvedFiles, f)
			handles = append(handles, h)
		}
	}
	return resolvedFiles, handles
}

// readSource reads f's content: the in-memory override if present,
// otherwise the file on disk rooted at f.Root, or "" if it cannot be
// read.
func readSource(f handle.File) string {
	if f.Override != nil {
		return *f.Override
	}
	b, err := os.ReadFile(f.AbsPath())
	if err != nil {
		return ""
	}
	return string(b)
}
