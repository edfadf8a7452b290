package dispatch

import (
	"sync"

	"github.com/pkraison/pyre-check/internal/config"
	"github.com/pkraison/pyre-check/internal/env"
	"github.com/pkraison/pyre-check/internal/errstore"
	"github.com/pkraison/pyre-check/internal/handle"
	"github.com/pkraison/pyre-check/internal/lookup"
	"github.com/pkraison/pyre-check/internal/scheduler"
	"github.com/pkraison/pyre-check/internal/typecheck"
	"github.com/pkraison/pyre-check/internal/watch"
)

// ServerState is the process-wide state the dispatcher owns exclusively,
// except for Notifiers, which is separately mutex-guarded (spec.md §3).
type ServerState struct {
	lock sync.Mutex

	Environment env.Environment
	Errors      *errstore.Store
	Lookups     *lookup.Cache
	Scheduler   *scheduler.Scheduler
	Notifiers   *watch.Registry

	handles  map[handle.Handle]struct{}
	deferred []Request

	// documents tracks in-memory content overrides for currently-open
	// files, so a later request (definition, hover, save) can rebuild the
	// same File the didOpen/didSave supplied without the client resending
	// the text.
	documents map[handle.Handle]*string
}

// NewServerState builds an empty server state over the given
// collaborators. sched drives the type-check pipeline's parse/analyze
// fan-out (spec.md §4.4 Stage 2).
func NewServerState(environment env.Environment, asts env.ASTStore, sched *scheduler.Scheduler) *ServerState {
	return &ServerState{
		Environment: environment,
		Errors:      errstore.New(),
		Lookups:     lookup.New(asts, environment),
		Scheduler:   sched,
		Notifiers:   watch.NewRegistry(),
		handles:     map[handle.Handle]struct{}{},
		documents:   map[handle.Handle]*string{},
	}
}

// Lock/Unlock expose the state's critical section for the paths spec.md
// §5 names explicitly: connections access and teardown.
func (s *ServerState) Lock()   { s.lock.Lock() }
func (s *ServerState) Unlock() { s.lock.Unlock() }

// Handles returns a snapshot of every handle ever successfully resolved
// from a Check set.
func (s *ServerState) Handles() []handle.Handle {
	out := make([]handle.Handle, 0, len(s.handles))
	for h := range s.handles {
		out = append(out, h)
	}
	return out
}

func (s *ServerState) mergeHandles(hs []handle.Handle) {
	for _, h := range hs {
		s.handles[h] = struct{}{}
	}
}

// rememberDocument records or clears the in-memory override for h,
// resolving f against any previously known override when f itself
// carries none (definition/hover requests never carry text).
func (s *ServerState) rememberDocument(f handle.File) handle.File {
	h := f.Handle()
	if f.Override != nil {
		s.documents[h] = f.Override
		return f
	}
	if override, ok := s.documents[h]; ok {
		f.Override = override
		return f
	}
	return f
}

func (s *ServerState) forgetDocument(h handle.Handle) {
	delete(s.documents, h)
}

// Pipeline lazily builds a typecheck.Pipeline bound to this state's
// collaborators — split out so tests can construct one ServerState and
// drive many TypeCheckRequests through the same Errors/Lookups.
func (s *ServerState) pipeline(asts env.ASTStore, parser env.Parser, analyzer env.Analyzer, stubSuffix string, parallelThreshold int, exclude *config.ExcludeMatcher) *typecheck.Pipeline {
	return &typecheck.Pipeline{
		ASTs:              asts,
		Environment:       s.Environment,
		Parser:            parser,
		Analyzer:          analyzer,
		Errors:            s.Errors,
		Cache:             s.Lookups,
		Scheduler:         s.Scheduler,
		StubSuffix:        stubSuffix,
		ParallelThreshold: parallelThreshold,
		Exclude:           exclude,
	}
}
