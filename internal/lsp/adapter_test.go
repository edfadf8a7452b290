package lsp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pkraison/pyre-check/internal/dispatch"
	"github.com/pkraison/pyre-check/internal/env"
	"github.com/pkraison/pyre-check/internal/lspwire"
)

const root = "/r"

func TestParseDefinitionConvertsWireLineToOneBased(t *testing.T) {
	raw := `{"method":"textDocument/definition","id":1,"params":{"textDocument":{"uri":"file:///r/a.py"},"position":{"line":3,"character":5}}}`
	req, ok := Parse(root, raw)
	require.True(t, ok)
	def, isDef := req.(dispatch.GetDefinitionRequest)
	require.True(t, isDef)
	require.Equal(t, env.Position{Line: 4, Column: 5}, def.Position)
	require.Equal(t, "a.py", string(def.File.Handle()))
	require.Equal(t, "1", def.ID)
}

func TestParseHoverBuildsRequest(t *testing.T) {
	raw := `{"method":"textDocument/hover","id":"h1","params":{"textDocument":{"uri":"file:///r/a.py"},"position":{"line":0,"character":0}}}`
	req, ok := Parse(root, raw)
	require.True(t, ok)
	hover, isHover := req.(dispatch.HoverRequest)
	require.True(t, isHover)
	require.Equal(t, env.Position{Line: 1, Column: 0}, hover.Position)
	require.Equal(t, "h1", hover.ID)
}

func TestParseDidOpenAttachesTextOverride(t *testing.T) {
	raw := `{"method":"textDocument/didOpen","params":{"textDocument":{"uri":"file:///r/a.py","text":"x = 1"}}}`
	req, ok := Parse(root, raw)
	require.True(t, ok)
	open, isOpen := req.(dispatch.OpenDocumentRequest)
	require.True(t, isOpen)
	require.NotNil(t, open.File.Override)
	require.Equal(t, "x = 1", *open.File.Override)
}

func TestParseDidSaveWithoutTextHasNoOverride(t *testing.T) {
	raw := `{"method":"textDocument/didSave","params":{"textDocument":{"uri":"file:///r/a.py"}}}`
	req, ok := Parse(root, raw)
	require.True(t, ok)
	save, isSave := req.(dispatch.SaveDocumentRequest)
	require.True(t, isSave)
	require.Nil(t, save.File.Override)
}

func TestParseExitProducesPersistentClientExit(t *testing.T) {
	req, ok := Parse(root, `{"method":"exit"}`)
	require.True(t, ok)
	require.Equal(t, dispatch.ClientExitRequest{Client: dispatch.ClientPersistent}, req)
}

func TestParseUnhandledMethodReturnsFalse(t *testing.T) {
	_, ok := Parse(root, `{"method":"workspace/symbol","params":{}}`)
	require.False(t, ok)
}

func TestParseMalformedJSONReturnsFalse(t *testing.T) {
	_, ok := Parse(root, `not json`)
	require.False(t, ok)
}

func TestURIOutsideRootPassesThrough(t *testing.T) {
	req, ok := Parse(root, `{"method":"textDocument/didClose","params":{"textDocument":{"uri":"file:///elsewhere/b.py"}}}`)
	require.True(t, ok)
	close, isClose := req.(dispatch.CloseDocumentRequest)
	require.True(t, isClose)
	require.Equal(t, "/elsewhere/b.py", string(close.File.Handle()))
}

func TestEncodeDefinitionResponseOmitsAdjustmentOnTheWayOut(t *testing.T) {
	loc := env.Location{Path: "a.py", Pos: env.Position{Line: 4, Column: 5}}
	out := lspwire.EncodeDefinitionResponse("1", loc, true)
	require.Contains(t, out, `"line":4`)
	require.Contains(t, out, `"character":5`)
}

func TestEncodeDefinitionResponseEmptyResultIsNull(t *testing.T) {
	out := lspwire.EncodeDefinitionResponse("1", env.Location{}, false)
	require.Contains(t, out, `"result":null`)
}
