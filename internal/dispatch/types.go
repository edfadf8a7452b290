// Package dispatch implements the request dispatcher (spec.md §4.5,
// component C5): the top-level state machine that routes each request
// variant to its handler, threads server state, and emits an optional
// response.
package dispatch

import (
	"github.com/pkraison/pyre-check/internal/env"
	"github.com/pkraison/pyre-check/internal/errstore"
	"github.com/pkraison/pyre-check/internal/handle"
	"github.com/pkraison/pyre-check/internal/typequery"
)

// Request is the tagged union of everything the dispatcher accepts
// (spec.md §3). Every concrete variant below implements it; the set is
// closed — Kind() is used both for logging/metrics (spec.md §4.5 "Every
// call records a performance event keyed by request kind") and for wire
// encoding in internal/lsp and internal/socket.
type Request interface {
	Kind() string
}

// ClientKind distinguishes the two exit-notification targets spec.md's
// ClientExitRequest/ClientExitResponse carry.
type ClientKind string

const (
	ClientPersistent ClientKind = "persistent"
	ClientEphemeral  ClientKind = "ephemeral"
)

type TypeCheckRequest struct {
	UpdateEnvironmentWith []handle.File
	Check                 []handle.File
}

func (TypeCheckRequest) Kind() string { return "type_check" }

type TypeQueryRequest struct {
	Query typequery.Query
}

func (TypeQueryRequest) Kind() string { return "type_query" }

type DisplayTypeErrorsRequest struct {
	Files []handle.File
}

func (DisplayTypeErrorsRequest) Kind() string { return "display_type_errors" }

type FlushTypeErrorsRequest struct{}

func (FlushTypeErrorsRequest) Kind() string { return "flush_type_errors" }

type StopRequest struct{}

func (StopRequest) Kind() string { return "stop" }

// LanguageServerProtocolRequest carries one raw LSP JSON message, decoded
// by internal/lsp and re-dispatched.
type LanguageServerProtocolRequest struct {
	Raw string
}

func (LanguageServerProtocolRequest) Kind() string { return "lsp" }

type ClientShutdownRequest struct {
	ID string
}

func (ClientShutdownRequest) Kind() string { return "client_shutdown" }

type ClientExitRequest struct {
	Client ClientKind
}

func (ClientExitRequest) Kind() string { return "client_exit" }

type RageRequest struct {
	ID string
}

func (RageRequest) Kind() string { return "rage" }

type GetDefinitionRequest struct {
	ID       string
	File     handle.File
	Position env.Position
}

func (GetDefinitionRequest) Kind() string { return "get_definition" }

type HoverRequest struct {
	ID       string
	File     handle.File
	Position env.Position
}

func (HoverRequest) Kind() string { return "hover" }

type OpenDocumentRequest struct {
	File handle.File
}

func (OpenDocumentRequest) Kind() string { return "open_document" }

type CloseDocumentRequest struct {
	File handle.File
}

func (CloseDocumentRequest) Kind() string { return "close_document" }

type SaveDocumentRequest struct {
	File handle.File
}

func (SaveDocumentRequest) Kind() string { return "save_document" }

// ClientConnectionRequest must never reach Process: it fails with
// errs.ErrInvalidRequest (spec.md §3, §4.5, §7.5).
type ClientConnectionRequest struct{}

func (ClientConnectionRequest) Kind() string { return "client_connection" }

// Response is the tagged union of everything the dispatcher can emit. A
// nil Response means "no response" (spec.md §3).
type Response interface {
	Kind() string
}

type TypeCheckResponse struct {
	Files []errstore.FileErrors
}

func (TypeCheckResponse) Kind() string { return "type_check" }

type TypeQueryResponse struct {
	Result typequery.Result
}

func (TypeQueryResponse) Kind() string { return "type_query" }

type LanguageServerProtocolResponse struct {
	Raw string
}

func (LanguageServerProtocolResponse) Kind() string { return "lsp" }

type StopResponse struct{}

func (StopResponse) Kind() string { return "stop" }

type ClientExitResponse struct {
	Client ClientKind
}

func (ClientExitResponse) Kind() string { return "client_exit" }
