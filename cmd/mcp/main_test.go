package main

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fps2me/fpsqr/emv"
	"github.com/fps2me/fpsqr/generation"
	"github.com/fps2me/fpsqr/identifier"
	"github.com/fps2me/fpsqr/internal/config"
	"github.com/fps2me/fpsqr/rules"
)

func newTestTools(t *testing.T) *tools {
	t.Helper()
	engine, err := rules.NewEngineWithRules(rules.DefaultRules())
	require.NoError(t, err)
	return &tools{cfg: config.Default(), engine: engine, encoder: emv.NewEncoder()}
}

func callRequest(t *testing.T, args any) *mcp.CallToolRequest {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	return &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: raw}}
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "first content is %T", res.Content[0])
	return text.Text
}

func TestServerRegistersTools(t *testing.T) {
	assert.NotNil(t, newServer(newTestTools(t)))
}

func TestClassifyTool(t *testing.T) {
	tl := newTestTools(t)

	t.Run("should classify with the matched rule", func(t *testing.T) {
		res, err := tl.classify(context.Background(), callRequest(t, map[string]any{"value": "pay@example.com", "confirm": "pay@example.com"}))
		require.NoError(t, err)
		require.False(t, res.IsError)

		var out classifyResult
		require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &out))
		assert.Equal(t, identifier.KindEmail, out.Identifier.Kind)
		assert.Equal(t, "email", out.MatchedRule)
		require.NotNil(t, out.Confirmation)
		assert.True(t, out.Confirmation.Matches)
	})

	t.Run("should report missing arguments as a tool error", func(t *testing.T) {
		res, err := tl.classify(context.Background(), &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{}})
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})
}

func TestGenerateTool(t *testing.T) {
	tl := newTestTools(t)

	t.Run("should return a verifiable payload and image", func(t *testing.T) {
		res, err := tl.generate(context.Background(), callRequest(t, map[string]any{
			"value": "91234567", "confirm": "91234567", "amount": 12.5, "currency": "CNY", "include_image": true,
		}))
		require.NoError(t, err)
		require.False(t, res.IsError, textOf(t, res))

		var snap generation.Snapshot
		require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &snap))
		assert.Equal(t, generation.StateSucceeded, snap.State)

		p, err := emv.Parse(snap.Payload)
		require.NoError(t, err)
		assert.Equal(t, "+852-91234567", p.Account)
		assert.Equal(t, generation.CurrencyCNY, p.Currency)

		require.Len(t, res.Content, 2)
		img, ok := res.Content[1].(*mcp.ImageContent)
		require.True(t, ok)
		assert.Equal(t, "image/png", img.MIMEType)
		assert.NotEmpty(t, img.Data)
	})

	t.Run("should refuse mismatched entries", func(t *testing.T) {
		res, err := tl.generate(context.Background(), callRequest(t, map[string]any{"value": "91234567", "confirm": "91234568"}))
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, textOf(t, res), "confirm")
	})

	t.Run("should refuse unsupported currencies", func(t *testing.T) {
		res, err := tl.generate(context.Background(), callRequest(t, map[string]any{"value": "91234567", "confirm": "91234567", "currency": "EUR"}))
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})

	t.Run("should surface encoder failures", func(t *testing.T) {
		res, err := tl.generate(context.Background(), callRequest(t, map[string]any{"value": "a@", "confirm": "a@"}))
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, textOf(t, res), "encoding failed")
	})
}
