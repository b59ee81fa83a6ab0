package mcp

// Resource defines an MCP resource
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

const authResourceURI = "mailcode://auth"

// ResourceDefinitions lists all available resources
var ResourceDefinitions = []Resource{
	{
		URI:         authResourceURI,
		Name:        "Mailbox Authorization",
		Description: "Authorized account and access token expiry",
		MimeType:    "text/plain",
	},
}

// resourcesListResult is the response for resources/list
type resourcesListResult struct {
	Resources []Resource `json:"resources"`
}

// readResourceParams is the params for resources/read
type readResourceParams struct {
	URI string `json:"uri"`
}

// readResourceResult is the response for resources/read
type readResourceResult struct {
	Contents []resourceContent `json:"contents"`
}

type resourceContent struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
}
