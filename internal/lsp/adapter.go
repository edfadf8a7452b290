// Package lsp implements the LSP adapter (spec.md §4.1, component C1):
// decoding a subset of Language Server Protocol JSON messages into
// dispatch.Request variants. The LSP responses the dispatcher produces
// are encoded by internal/lspwire.
package lsp

import (
	"encoding/json"
	"strings"

	"github.com/pkraison/pyre-check/internal/diag"
	"github.com/pkraison/pyre-check/internal/dispatch"
	"github.com/pkraison/pyre-check/internal/env"
	"github.com/pkraison/pyre-check/internal/handle"
)

type envelope struct {
	Method string          `json:"method"`
	ID     json.RawMessage `json:"id,omitempty"`
	Params json.RawMessage `json:"params"`
}

type textDocumentID struct {
	URI  string `json:"uri"`
	Text string `json:"text,omitempty"`
}

type position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type textDocumentPositionParams struct {
	TextDocument textDocumentID `json:"textDocument"`
	Position     position       `json:"position"`
}

type documentParams struct {
	TextDocument textDocumentID `json:"textDocument"`
}

type didSaveParams struct {
	TextDocument textDocumentID `json:"textDocument"`
	Text         *string        `json:"text,omitempty"`
}

// Parse decodes one raw LSP JSON message into the matching dispatch
// request, rooted at root for URI rewriting. It returns ok=false for any
// parse failure or unhandled method — never an error, per spec.md §7's
// "malformed LSP message: logged, swallowed, no response".
func Parse(root, rawJSON string) (dispatch.Request, bool) {
	var msg envelope
	if err := json.Unmarshal([]byte(rawJSON), &msg); err != nil {
		diag.Info("lsp: malformed message: %v", err)
		return nil, false
	}

	id := idString(msg.ID)

	switch msg.Method {
	case "textDocument/definition":
		p, ok := decodePosition(msg.Params)
		if !ok {
			return nil, false
		}
		return dispatch.GetDefinitionRequest{
			ID:       id,
			File:     fileFromURI(root, p.TextDocument.URI),
			Position: wirePosition(p.Position),
		}, true

	case "textDocument/hover":
		p, ok := decodePosition(msg.Params)
		if !ok {
			return nil, false
		}
		return dispatch.HoverRequest{
			ID:       id,
			File:     fileFromURI(root, p.TextDocument.URI),
			Position: wirePosition(p.Position),
		}, true

	case "textDocument/didOpen":
		var p documentParams
		if err := json.Unmarshal(msg.Params, &p); err != nil {
			diag.Info("lsp: bad didOpen params: %v", err)
			return nil, false
		}
		return dispatch.OpenDocumentRequest{File: fileFromURIWithText(root, p.TextDocument.URI, p.TextDocument.Text, true)}, true

	case "textDocument/didClose":
		var p documentParams
		if err := json.Unmarshal(msg.Params, &p); err != nil {
			diag.Info("lsp: bad didClose params: %v", err)
			return nil, false
		}
		return dispatch.CloseDocumentRequest{File: fileFromURI(root, p.TextDocument.URI)}, true

	case "textDocument/didSave":
		var p didSaveParams
		if err := json.Unmarshal(msg.Params, &p); err != nil {
			diag.Info("lsp: bad didSave params: %v", err)
			return nil, false
		}
		f := fileFromURI(root, p.TextDocument.URI)
		if p.Text != nil {
			f.Override = p.Text
		}
		return dispatch.SaveDocumentRequest{File: f}, true

	case "shutdown":
		return dispatch.ClientShutdownRequest{ID: id}, true

	case "exit":
		return dispatch.ClientExitRequest{Client: dispatch.ClientPersistent}, true

	case "telemetry/rage":
		return dispatch.RageRequest{ID: id}, true

	default:
		diag.Info("lsp: unhandled method %q", msg.Method)
		return nil, false
	}
}

func decodePosition(raw json.RawMessage) (textDocumentPositionParams, bool) {
	var p textDocumentPositionParams
	if err := json.Unmarshal(raw, &p); err != nil {
		diag.Info("lsp: bad position params: %v", err)
		return p, false
	}
	return p, true
}

// wirePosition converts a 0-based wire line to the 1-based internal
// line; the column stays 0-based on both sides (spec.md §3 invariant 5).
func wirePosition(p position) env.Position {
	return env.Position{Line: p.Line + 1, Column: p.Character}
}

// fileFromURI strips the "file://" scheme and, if the remainder is
// rooted at root, makes it root-relative; otherwise the URI passes
// through unchanged as the relative path (spec.md §4.1 "URI rewriting").
func fileFromURI(root, uri string) handle.File {
	return handle.New(root, relFromURI(root, uri))
}

func fileFromURIWithText(root, uri, text string, withOverride bool) handle.File {
	if !withOverride {
		return fileFromURI(root, uri)
	}
	return handle.NewWithContent(root, relFromURI(root, uri), text)
}

func relFromURI(root, uri string) string {
	path := strings.TrimPrefix(uri, "file://")
	prefix := root + "/"
	if strings.HasPrefix(path, prefix) {
		return strings.TrimPrefix(path, prefix)
	}
	return path
}

func idString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return strings.Trim(string(raw), `"`)
}
