package main

import "office_word_mcp_server/internal/cli"

//STDIO transport (default)
//word_mcp_server
//
//SSE transport on port 8000
//word_mcp_server serve --transport=sse --port=8000
//
//Streamable HTTP transport
//MCP_TRANSPORT=streamable-http MCP_PATH=/mcp word_mcp_server

func main() {
	cli.Execute()
}
