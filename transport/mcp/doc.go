// Package mcp exposes the Tout va bien board as Model Context Protocol tools.
//
// The Client is a thin proxy: every tool call becomes a REST request against
// the API server, and the JSON answer is rendered as text for the agent.
//
// MCP Tools:
//
//   - create_session, list_sessions, get_session: session management
//   - board_state: the board as rows of cells plus victory diagnostics
//   - drag_start, drop_card, remove_card: card moves
//   - reset_board, check_victory, apply_victory: board control
//   - list_levels, get_level, refresh_levels: level catalog
//   - submit_level: publish a board built in create mode
//   - game_instructions: rules of the game
//
// Transport Modes:
//
// The server supports two transport modes:
//   - Stdio: server.ServeStdio on GetMCPServer() for local MCP clients
//   - HTTP: POST /mcp, forwarded to the MCP server's HandleMessage
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal(err)
//	}
package mcp
