package socket

import (
	"encoding/json"
	"fmt"

	"github.com/pkraison/pyre-check/internal/dispatch"
	"github.com/pkraison/pyre-check/internal/env"
	"github.com/pkraison/pyre-check/internal/typequery"
)

type envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeRequest serializes a dispatch.Request tagged-union value into one
// wire frame's payload bytes.
func EncodeRequest(req dispatch.Request) ([]byte, error) {
	var payload interface{} = req
	if tq, ok := req.(dispatch.TypeQueryRequest); ok {
		payload = struct {
			Query wireQuery `json:"query"`
		}{Query: encodeQuery(tq.Query)}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("socket: encode request %s: %w", req.Kind(), err)
	}
	return json.Marshal(envelope{Kind: req.Kind(), Payload: body})
}

// DecodeRequest deserializes one wire frame's payload back into its
// concrete dispatch.Request variant.
func DecodeRequest(data []byte) (dispatch.Request, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("socket: decode envelope: %w", err)
	}
	switch env.Kind {
	case "type_check":
		var r dispatch.TypeCheckRequest
		return r, unmarshal(env.Payload, &r)
	case "type_query":
		var body struct {
			Query wireQuery `json:"query"`
		}
		if err := json.Unmarshal(env.Payload, &body); err != nil {
			return nil, fmt.Errorf("socket: decode type_query: %w", err)
		}
		q, err := decodeQuery(body.Query)
		if err != nil {
			return nil, err
		}
		return dispatch.TypeQueryRequest{Query: q}, nil
	case "display_type_errors":
		var r dispatch.DisplayTypeErrorsRequest
		return r, unmarshal(env.Payload, &r)
	case "flush_type_errors":
		return dispatch.FlushTypeErrorsRequest{}, nil
	case "stop":
		return dispatch.StopRequest{}, nil
	case "lsp":
		var r dispatch.LanguageServerProtocolRequest
		return r, unmarshal(env.Payload, &r)
	case "client_shutdown":
		var r dispatch.ClientShutdownRequest
		return r, unmarshal(env.Payload, &r)
	case "client_exit":
		var r dispatch.ClientExitRequest
		return r, unmarshal(env.Payload, &r)
	case "rage":
		var r dispatch.RageRequest
		return r, unmarshal(env.Payload, &r)
	case "get_definition":
		var r dispatch.GetDefinitionRequest
		return r, unmarshal(env.Payload, &r)
	case "hover":
		var r dispatch.HoverRequest
		return r, unmarshal(env.Payload, &r)
	case "open_document":
		var r dispatch.OpenDocumentRequest
		return r, unmarshal(env.Payload, &r)
	case "close_document":
		var r dispatch.CloseDocumentRequest
		return r, unmarshal(env.Payload, &r)
	case "save_document":
		var r dispatch.SaveDocumentRequest
		return r, unmarshal(env.Payload, &r)
	case "client_connection":
		return dispatch.ClientConnectionRequest{}, nil
	default:
		return nil, fmt.Errorf("socket: unknown request kind %q", env.Kind)
	}
}

// EncodeResponse serializes a dispatch.Response tagged-union value.
func EncodeResponse(resp dispatch.Response) ([]byte, error) {
	body, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("socket: encode response %s: %w", resp.Kind(), err)
	}
	return json.Marshal(envelope{Kind: resp.Kind(), Payload: body})
}

// DecodeResponse deserializes one wire frame's payload back into its
// concrete dispatch.Response variant.
func DecodeResponse(data []byte) (dispatch.Response, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("socket: decode envelope: %w", err)
	}
	switch env.Kind {
	case "type_check":
		var r dispatch.TypeCheckResponse
		return r, unmarshal(env.Payload, &r)
	case "type_query":
		var r dispatch.TypeQueryResponse
		return r, unmarshal(env.Payload, &r)
	case "lsp":
		var r dispatch.LanguageServerProtocolResponse
		return r, unmarshal(env.Payload, &r)
	case "stop":
		return dispatch.StopResponse{}, nil
	case "client_exit":
		var r dispatch.ClientExitResponse
		return r, unmarshal(env.Payload, &r)
	default:
		return nil, fmt.Errorf("socket: unknown response kind %q", env.Kind)
	}
}

func unmarshal(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("socket: decode payload: %w", err)
	}
	return nil
}

// wireQuery is a flat superset of every typequery.Query variant's
// fields, tagged by kind — simpler than nine tiny envelope types for a
// query vocabulary this small.
type wireQuery struct {
	Kind  string      `json:"kind"`
	Class string      `json:"class,omitempty"`
	A     string      `json:"a,omitempty"`
	B     string      `json:"b,omitempty"`
	Expr  string      `json:"expr,omitempty"`
	Name  string      `json:"name,omitempty"`
	Path  string      `json:"path,omitempty"`
	Start env.Position `json:"start,omitempty"`
}

func encodeQuery(q typequery.Query) wireQuery {
	switch v := q.(type) {
	case typequery.AttributesQuery:
		return wireQuery{Kind: "attributes", Class: v.Class}
	case typequery.MethodsQuery:
		return wireQuery{Kind: "methods", Class: v.Class}
	case typequery.JoinQuery:
		return wireQuery{Kind: "join", A: v.A, B: v.B}
	case typequery.MeetQuery:
		return wireQuery{Kind: "meet", A: v.A, B: v.B}
	case typequery.LessOrEqualQuery:
		return wireQuery{Kind: "less_or_equal", A: v.A, B: v.B}
	case typequery.NormalizeTypeQuery:
		return wireQuery{Kind: "normalize_type", Expr: v.Expr}
	case typequery.SignatureQuery:
		return wireQuery{Kind: "signature", Name: v.Name}
	case typequery.SuperclassesQuery:
		return wireQuery{Kind: "superclasses", Class: v.Class}
	case typequery.TypeAtLocationQuery:
		return wireQuery{Kind: "type_at_location", Path: v.Path, Start: v.Start}
	default:
		return wireQuery{Kind: "unknown"}
	}
}

func decodeQuery(w wireQuery) (typequery.Query, error) {
	switch w.Kind {
	case "attributes":
		return typequery.AttributesQuery{Class: w.Class}, nil
	case "methods":
		return typequery.MethodsQuery{Class: w.Class}, nil
	case "join":
		return typequery.JoinQuery{A: w.A, B: w.B}, nil
	case "meet":
		return typequery.MeetQuery{A: w.A, B: w.B}, nil
	case "less_or_equal":
		return typequery.LessOrEqualQuery{A: w.A, B: w.B}, nil
	case "normalize_type":
		return typequery.NormalizeTypeQuery{Expr: w.Expr}, nil
	case "signature":
		return typequery.SignatureQuery{Name: w.Name}, nil
	case "superclasses":
		return typequery.SuperclassesQuery{Class: w.Class}, nil
	case "type_at_location":
		return typequery.TypeAtLocationQuery{Path: w.Path, Start: w.Start}, nil
	default:
		return nil, fmt.Errorf("socket: unknown query kind %q", w.Kind)
	}
}
