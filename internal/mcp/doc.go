// Package mcp binds internal/tools.Dispatcher to the Model Context
// Protocol, so an MCP client (an IDE, an agent harness) can drive every
// retrieval, ingestion, and memory operation over stdio. Each operation is
// registered once via mcp.AddTool and forwarded to the dispatcher as raw
// JSON; the dispatcher owns decoding, validation, and error classification,
// this package only adapts its envelope to the wire protocol.
package mcp
