package anthropic

import (
	"testing"

	"shopassist/pkg/aiinterface"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertMessagesGroupsToolResults(t *testing.T) {
	system, msgs := convertMessages([]aiinterface.Message{
		{Role: aiinterface.RoleSystem, Content: "you are a shop assistant"},
		{Role: aiinterface.RoleUser, Content: "compare 1 and 2"},
		{Role: aiinterface.RoleAssistant, ToolCalls: []aiinterface.ToolCall{
			{ID: "a", Function: aiinterface.FunctionCall{Name: "get_product_details", Arguments: `{"product_id":1}`}},
			{ID: "b", Function: aiinterface.FunctionCall{Name: "get_product_details", Arguments: `{"product_id":2}`}},
		}},
		{Role: aiinterface.RoleTool, ToolCallID: "a", Content: `{"id":1}`},
		{Role: aiinterface.RoleTool, ToolCallID: "b", Content: `{"id":2}`},
		{Role: aiinterface.RoleAssistant, Content: "Product 1 is cheaper."},
	})

	assert.Equal(t, "you are a shop assistant", system)
	// user, assistant(tool_use x2), user(tool_result x2), assistant
	require.Len(t, msgs, 4)
	assert.Len(t, msgs[1].Content, 2)
	assert.Len(t, msgs[2].Content, 2)
	require.NotNil(t, msgs[2].Content[0].OfToolResult)
	assert.Equal(t, "a", msgs[2].Content[0].OfToolResult.ToolUseID)
	require.NotNil(t, msgs[1].Content[1].OfToolUse)
	assert.Equal(t, "get_product_details", msgs[1].Content[1].OfToolUse.Name)
}

func TestConvertToolsKeepsRequired(t *testing.T) {
	tools := convertTools([]aiinterface.Tool{{
		Type: "function",
		Function: aiinterface.FunctionDef{
			Name:        "get_products_in_category",
			Description: "list products",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"category_slug": map[string]any{"type": "string"}},
				"required":   []any{"category_slug"},
			},
		},
	}})

	require.Len(t, tools, 1)
	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, "get_products_in_category", tools[0].OfTool.Name)
	assert.Equal(t, []string{"category_slug"}, tools[0].OfTool.InputSchema.Required)
}
