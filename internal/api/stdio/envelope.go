package stdioapi

import (
	"encoding/json"
	"fmt"
)

const (
	typeRequest  = "request"
	typeResponse = "response"

	// unknownID keys responses to requests whose id could not be read.
	unknownID = "unknown"
)

// Request is one inbound line.
//
//	{ type: "request", id: string, tool: string, params: { city: string } }
type Request struct {
	Type   string          `json:"type"`
	ID     json.RawMessage `json:"id"`
	Tool   string          `json:"tool"`
	Params json.RawMessage `json:"params"`
}

// Response is one outbound line. Exactly one of Result and Error is set.
type Response struct {
	Type   string          `json:"type"`
	ID     json.RawMessage `json:"id"`
	Result *ToolResult     `json:"result,omitempty"`
	Error  *ErrorBody      `json:"error,omitempty"`
}

// ToolResult carries the tool output.
type ToolResult struct {
	Content []Content `json:"content"`
}

// Content is a typed output block; only "text" is produced.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ErrorBody describes a failed invocation.
type ErrorBody struct {
	Message string `json:"message"`
}

// TextResult wraps text in a single-block ToolResult.
func TextResult(text string) ToolResult {
	return ToolResult{Content: []Content{{Type: "text", Text: text}}}
}

func newResult(id json.RawMessage, result ToolResult) Response {
	return Response{Type: typeResponse, ID: id, Result: &result}
}

func newError(id json.RawMessage, err error) Response {
	return Response{Type: typeResponse, ID: id, Error: &ErrorBody{Message: err.Error()}}
}

// ParseError reports an inbound line that is not a valid request object.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Failed to parse request: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UnknownToolError reports a request for a tool that is not registered.
type UnknownToolError struct {
	Tool string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("Unknown tool: %s", e.Tool)
}

// InvalidParamsError reports tool parameters that failed validation.
type InvalidParamsError struct {
	Err error
}

func (e *InvalidParamsError) Error() string {
	return fmt.Sprintf("Invalid params: %v", e.Err)
}

func (e *InvalidParamsError) Unwrap() error {
	return e.Err
}
