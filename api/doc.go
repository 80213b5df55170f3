// Package api provides the HTTP REST API of the Tout va bien server.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session, body {"level": "1" | "create" | "<level id>"}
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=n)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Board Operations:
//   - GET /api/sessions/{id}/board - Board snapshot with victory evaluation
//   - POST /api/sessions/{id}/drag-start - {"card_id", "source_cell_id"}
//   - POST /api/sessions/{id}/drop - {"card_id", "source_cell_id", "target"}
//   - POST /api/sessions/{id}/remove - {"cell_id", "card_id"}
//   - POST /api/sessions/{id}/reset - Back to the initial board
//   - GET /api/sessions/{id}/victory - Victory evaluation
//   - POST /api/sessions/{id}/apply-victory/{index} - Load a victory state
//   - POST /api/sessions/{id}/submit - Publish the board as a level, {"title"}
//
// Levels:
//   - GET /api/levels - Level catalog
//   - GET /api/levels/{id} - One level, by id or selector
//   - POST /api/levels/community/refresh - Fetch community levels
//
// Level Publishing API:
//   - GET /levels - {"success": true, "levels": [...]}
//   - POST /createlevel - Store any JSON document, answers 201
//
// Other:
//   - GET /ws?session={id} - WebSocket board updates
//   - GET /health
//
// A drop target is the droppable identifier seen by the client: "cell-2"
// for a cell, "cell-2-left" for a named position on the location of that
// cell. target_cell_id and target_position may be sent instead.
//
// Error Handling:
//
// Errors are returned as JSON: {"error": "message"}. Unknown sessions and
// levels answer 404, invalid requests 400, a missing publishing backend
// 503, anything else 500.
package api
