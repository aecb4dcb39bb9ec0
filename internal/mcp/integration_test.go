package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pdf-excel-mapper/internal/pdf/pdftest"
)

// rpc sends one JSON-RPC message through the MCP server and returns the
// encoded response
func rpc(t *testing.T, s *Server, message string) map[string]any {
	t.Helper()

	resp := s.mcpServer.HandleMessage(context.Background(), json.RawMessage(message))
	require.NotNil(t, resp)

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestServerIntegration_ListTools(t *testing.T) {
	env := newTestEnv(t)

	rpc(t, env.server, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0.0"}}}`)
	out := rpc(t, env.server, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)

	result, ok := out["result"].(map[string]any)
	require.True(t, ok, "unexpected response: %v", out)
	tools := result["tools"].([]any)

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.(map[string]any)["name"].(string))
	}
	assert.ElementsMatch(t, []string{
		"pdf_extract_fields",
		"registry_lookup",
		"pdf_fill_template",
		"pdf_validate_file",
		"mapper_server_info",
	}, names)
}

func TestServerIntegration_CallTool(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "acme.pdf", pdftest.Build("Company Name: Acme AS"))

	rpc(t, env.server, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0.0"}}}`)
	out := rpc(t, env.server, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"pdf_extract_fields","arguments":{"path":"acme.pdf"}}}`)

	result, ok := out["result"].(map[string]any)
	require.True(t, ok, "unexpected response: %v", out)
	content := result["content"].([]any)
	require.NotEmpty(t, content)

	var payload map[string]any
	text := content[0].(map[string]any)["text"].(string)
	require.NoError(t, json.Unmarshal([]byte(text), &payload))
	assert.Equal(t, "Acme AS", payload["fields"].(map[string]any)["company_name"])
}
