package mcpjsonrpc

import "encoding/json"

// Based on JSON-RPC 2.0 Specification: https://www.jsonrpc.org/specification

// Version is the only JSON-RPC version MCP speaks.
const Version = "2.0"

// Request represents a JSON-RPC request object.
type Request struct {
	Version string      `json:"jsonrpc"`          // MUST be "2.0"
	Method  string      `json:"method"`           // Method to be invoked
	Params  interface{} `json:"params,omitempty"` // Parameters (structured value or array)
	ID      interface{} `json:"id,omitempty"`     // Request identifier (string, number, or null)
}

// NewRequest builds a 2.0 request.
func NewRequest(id interface{}, method string, params interface{}) Request {
	return Request{Version: Version, Method: method, Params: params, ID: id}
}

// Response represents a JSON-RPC response object. Result is left raw so the
// caller decodes it into the shape the method returns.
type Response struct {
	Version string          `json:"jsonrpc"`          // MUST be "2.0"
	Result  json.RawMessage `json:"result,omitempty"` // Required on success
	Error   *Error          `json:"error,omitempty"`  // Required on error
	ID      interface{}     `json:"id"`               // Must match request ID (or null if could not be determined)
}

// Error represents a JSON-RPC error object.
type Error struct {
	Code    int         `json:"code"`           // Error code
	Message string      `json:"message"`        // Error message
	Data    interface{} `json:"data,omitempty"` // Additional data about the error
}

// Error codes, based on the JSON-RPC spec.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// CallToolParams is the "params" member of a tools/call request.
type CallToolParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// ReadResourceParams is the "params" member of a resources/read request.
type ReadResourceParams struct {
	URI string `json:"uri"`
}

// TextContent is one text item of a tool result.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallToolResult is the result of a tools/call request.
type CallToolResult struct {
	Content []TextContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}
