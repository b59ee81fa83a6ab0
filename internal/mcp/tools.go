package mcp

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// ToolDefinitions contains all available MCP tools
var ToolDefinitions = []Tool{
	{
		Name:        "resolve_latest",
		Description: "Find the latest Netflix temporary access code or household update email sent to an alias. Returns the message kind, headers, the household link when present and the message body.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"alias": map[string]interface{}{
					"type":        "string",
					"description": "Recipient address, e.g. owner+tv@gmail.com",
				},
				"skip_cache": map[string]interface{}{
					"type":        "boolean",
					"description": "Ignore a result cached in the last minute (default: false)",
				},
			},
			"required": []string{"alias"},
		},
	},
	{
		Name:        "auth_status",
		Description: "Report whether a Gmail mailbox is authorized and which account it is.",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
	},
}
