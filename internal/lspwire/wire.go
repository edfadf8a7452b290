// Package lspwire holds the JSON result shapes and encoders shared by
// the request dispatcher (which produces LSP responses) and the LSP
// adapter (which decodes LSP requests) without letting either import the
// other.
package lspwire

import (
	"encoding/json"

	"github.com/pkraison/pyre-check/internal/env"
)

type jsonRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Result  interface{} `json:"result"`
}

type wireLocation struct {
	URI   string    `json:"uri"`
	Range wireRange `json:"range"`
}

type wireRange struct {
	Start wirePos `json:"start"`
	End   wirePos `json:"end"`
}

type wirePos struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// EncodeDefinitionResponse builds the `textDocument/definition` result:
// the location as produced by the environment, reported without any
// off-by-one adjustment on the way out (spec.md §8's LSP round-trip
// property), or null when nothing resolved.
func EncodeDefinitionResponse(id string, loc env.Location, ok bool) string {
	var result interface{}
	if ok {
		result = locationToWire(loc)
	}
	return encode(id, result)
}

// EncodeHoverResponse builds the `textDocument/hover` result: a
// {contents} object carrying the annotation's string form, or null.
func EncodeHoverResponse(id string, contents string, ok bool) string {
	var result interface{}
	if ok {
		result = struct {
			Contents string `json:"contents"`
		}{Contents: contents}
	}
	return encode(id, result)
}

// EncodeShutdownResponse builds the standard LSP shutdown result: a null
// payload echoing id.
func EncodeShutdownResponse(id string) string {
	return encode(id, nil)
}

// EncodeRageResponse builds a telemetry/rage result carrying diagnostic
// log lines.
func EncodeRageResponse(id string, items []string) string {
	return encode(id, struct {
		Items []string `json:"items"`
	}{Items: items})
}

func locationToWire(loc env.Location) wireLocation {
	return wireLocation{
		URI: "file://" + string(loc.Path),
		Range: wireRange{
			Start: wirePos{Line: loc.Pos.Line, Character: loc.Pos.Column},
			End:   wirePos{Line: loc.Pos.Line, Character: loc.Pos.Column},
		},
	}
}

func encode(id string, result interface{}) string {
	b, err := json.Marshal(jsonRPCResponse{JSONRPC: "2.0", ID: id, Result: result})
	if err != nil {
		return `{"jsonrpc":"2.0","id":"` + id + `","result":null}`
	}
	return string(b)
}
