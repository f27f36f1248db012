package protocol

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// CodeNotInitialized rejects tool methods issued before the lifecycle
// handshake has completed.
const CodeNotInitialized = -32002

const notInitializedMessage = "Server not initialized. Send initialize and notifications/initialized first."

// Response is one JSON-RPC reply. Exactly one of Result and Error is set.
type Response struct {
	ID     mcp.RequestId
	Result any
	Error  *mcp.JSONRPCErrorDetails
}

// MarshalJSON renders the response in its JSON-RPC 2.0 wire form.
func (r *Response) MarshalJSON() ([]byte, error) {
	if r.Error != nil {
		return json.Marshal(mcp.JSONRPCError{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      r.ID,
			Error:   *r.Error,
		})
	}
	result := r.Result
	if result == nil {
		result = struct{}{}
	}
	return json.Marshal(mcp.JSONRPCResponse{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      r.ID,
		Result:  result,
	})
}

// IsError reports whether r carries an error object.
func (r *Response) IsError() bool {
	return r != nil && r.Error != nil
}

func resultResponse(id mcp.RequestId, result any) *Response {
	return &Response{ID: id, Result: result}
}

func errorResponse(id mcp.RequestId, code int, message string) *Response {
	return &Response{ID: id, Error: &mcp.JSONRPCErrorDetails{Code: code, Message: message}}
}
