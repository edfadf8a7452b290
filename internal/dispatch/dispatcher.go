package dispatch

import (
	"context"
	"time"

	"github.com/pkraison/pyre-check/internal/config"
	"github.com/pkraison/pyre-check/internal/diag"
	"github.com/pkraison/pyre-check/internal/env"
	"github.com/pkraison/pyre-check/internal/errs"
	"github.com/pkraison/pyre-check/internal/handle"
	"github.com/pkraison/pyre-check/internal/lspwire"
	"github.com/pkraison/pyre-check/internal/typecheck"
	"github.com/pkraison/pyre-check/internal/typequery"
)

// Socket is the outbound half of the client connection a Dispatcher
// serves: process() needs it directly for StopRequest, which must write
// its response before teardown runs (spec.md §4.5).
type Socket interface {
	Send(Response) error
}

// Config carries the per-server settings the dispatcher's handlers
// consult: the project root (for LSP path rewriting and TypeAtLocation),
// the stub suffix, and the parallel-fan-out threshold.
type Config struct {
	LocalRoot         string
	StubSuffix        string
	ParallelThreshold int
	Exclude           *config.ExcludeMatcher
}

// StopFunc tears the surrounding server down for the given reason,
// invoked under State's lock.
type StopFunc func(reason string)

// Dispatcher implements process() (spec.md §4.5, component C5): the
// top-level state machine routing every Request variant to its handler.
type Dispatcher struct {
	State    *ServerState
	ASTs     env.ASTStore
	Parser   env.Parser
	Analyzer env.Analyzer
	Config   Config
	Stop     StopFunc
	decoder  Decoder
}

// SetDecoder installs the LSP decoder used by LanguageServerProtocolRequest
// (spec.md §4.5's "parse JSON, call §4.1, and if a request is produced,
// recurse"). Split from the constructor so internal/lsp — which imports
// this package for its Request/Response vocabulary — can supply it
// without dispatch importing lsp back.
func (d *Dispatcher) SetDecoder(decode Decoder) { d.decoder = decode }

// Process routes req to its handler and returns the response to write
// back, or nil for "no response" (spec.md §3). The only errors returned
// are fatal: ErrInvalidRequest for ClientConnectionRequest, or a
// PipelineError propagated from the type-check pipeline.
//
// Every call records a performance event keyed by request kind and
// elapsed time (spec.md §4.5), logged through internal/diag rather than
// a dedicated metrics sink — the teacher's own internal/debug plays the
// same role for its request timings.
func (d *Dispatcher) Process(ctx context.Context, sock Socket, req Request) (resp Response, err error) {
	start := time.Now()
	defer func() {
		diag.Verbose("dispatch: %s took %s", req.Kind(), time.Since(start))
	}()

	switch r := req.(type) {

	case TypeCheckRequest:
		d.ASTs.GC()
		return d.processTypeCheck(ctx, r)

	case TypeQueryRequest:
		result := typequery.Process(d.State.Environment, d.State.Lookups, d.Config.LocalRoot, r.Query)
		return TypeQueryResponse{Result: result}, nil

	case DisplayTypeErrorsRequest:
		handles := resolveHandles(r.Files)
		return TypeCheckResponse{Files: d.State.Errors.Report(handles)}, nil

	case FlushTypeErrorsRequest:
		return d.processFlush(ctx, sock)

	case StopRequest:
		if err := sock.Send(StopResponse{}); err != nil {
			diag.Info("dispatch: stop response write failed: %v", err)
		}
		d.State.Lock()
		if d.Stop != nil {
			d.Stop("explicit request")
		}
		d.State.Unlock()
		return nil, nil

	case LanguageServerProtocolRequest:
		return d.processLSP(ctx, sock, r)

	case ClientShutdownRequest:
		return LanguageServerProtocolResponse{Raw: lspwire.EncodeShutdownResponse(r.ID)}, nil

	case ClientExitRequest:
		diag.Info("dispatch: client exit (%s)", r.Client)
		return ClientExitResponse{Client: r.Client}, nil

	case RageRequest:
		return LanguageServerProtocolResponse{Raw: lspwire.EncodeRageResponse(r.ID, diag.RecentLines())}, nil

	case GetDefinitionRequest:
		f := d.State.rememberDocument(r.File)
		loc, ok := d.State.Lookups.FindDefinition(f, r.Position)
		return LanguageServerProtocolResponse{Raw: lspwire.EncodeDefinitionResponse(r.ID, loc, ok)}, nil

	case HoverRequest:
		f := d.State.rememberDocument(r.File)
		_, typ, ok := d.State.Lookups.FindAnnotation(f, r.Position)
		return LanguageServerProtocolResponse{Raw: lspwire.EncodeHoverResponse(r.ID, typ.String(), ok)}, nil

	case OpenDocumentRequest:
		f := d.State.rememberDocument(r.File)
		d.State.Lookups.Evict(f)
		d.State.Lookups.Get(f)
		return nil, nil

	case CloseDocumentRequest:
		d.State.Lookups.Evict(r.File)
		d.State.forgetDocument(r.File.Handle())
		return nil, nil

	case SaveDocumentRequest:
		f := d.State.rememberDocument(r.File)
		d.State.Lookups.Evict(f)

		d.State.Lock()
		hasNotifier := d.State.Notifiers.Any()
		d.State.Unlock()
		if hasNotifier {
			return nil, nil
		}
		return d.processTypeCheck(ctx, TypeCheckRequest{
			UpdateEnvironmentWith: []handle.File{f},
			Check:                 []handle.File{f},
		})

	case ClientConnectionRequest:
		return nil, errs.NewInvalidRequest(r.Kind())

	default:
		return nil, errs.NewInvalidRequest(req.Kind())
	}
}

func (d *Dispatcher) processTypeCheck(ctx context.Context, r TypeCheckRequest) (Response, error) {
	pipeline := d.State.pipeline(d.ASTs, d.Parser, d.Analyzer, d.Config.StubSuffix, d.Config.ParallelThreshold, d.Config.Exclude)
	outcome, err := pipeline.Process(ctx, typecheck.Request{
		UpdateEnvironmentWith: r.UpdateEnvironmentWith,
		Check:                 r.Check,
	})
	if err != nil {
		return nil, err
	}

	d.State.mergeHandles(outcome.Resolved)
	if len(outcome.Deferred) > 0 {
		files := make([]handle.File, len(outcome.Deferred))
		for i, h := range outcome.Deferred {
			files[i] = handle.New(d.Config.LocalRoot, string(h))
		}
		d.State.deferred = append(d.State.deferred, TypeCheckRequest{Check: files})
	}

	return TypeCheckResponse{Files: outcome.Response}, nil
}

// processFlush implements spec.md §4.5's FlushTypeErrorsRequest: drain
// deferred_requests to empty, fold-processing each one through process
// (updating state along the way), then return every error currently in
// the store. Implemented iteratively per §9's design note against
// unbounded recursion from a long deferred-request chain.
func (d *Dispatcher) processFlush(ctx context.Context, sock Socket) (Response, error) {
	for len(d.State.deferred) > 0 {
		pending := d.State.deferred
		d.State.deferred = nil
		for _, req := range pending {
			if _, err := d.Process(ctx, sock, req); err != nil {
				return nil, err
			}
		}
	}
	return TypeCheckResponse{Files: d.State.Errors.Report(nil)}, nil
}

// processLSP implements spec.md §4.5's LanguageServerProtocolRequest:
// decode raw via the caller-supplied decoder and, if it produces a
// request, recurse through process.
func (d *Dispatcher) processLSP(ctx context.Context, sock Socket, r LanguageServerProtocolRequest) (Response, error) {
	inner, ok := d.decode(r.Raw)
	if !ok {
		return nil, nil
	}
	return d.Process(ctx, sock, inner)
}

// Decoder decodes one raw LSP JSON message into a dispatch request,
// implemented by internal/lsp to avoid an import cycle (lsp depends on
// dispatch for its Request/Response vocabulary).
type Decoder func(root, rawJSON string) (Request, bool)

func (d *Dispatcher) decode(raw string) (Request, bool) {
	if d.decoder == nil {
		return nil, false
	}
	return d.decoder(d.Config.LocalRoot, raw)
}

// resolveHandles resolves files to handles, producing the nil-vs-empty
// distinction Store.Report relies on: a nil or empty files yields nil
// ("no files requested" — report everything), while a non-empty files
// that resolves to nothing yields a non-nil empty slice ("files
// requested but none resolved" — report nothing).
func resolveHandles(files []handle.File) []handle.Handle {
	if len(files) == 0 {
		return nil
	}
	out := make([]handle.Handle, 0, len(files))
	for _, f := range files {
		if h, ok := handle.Resolve(f); ok {
			out = append(out, h)
		}
	}
	return out
}
