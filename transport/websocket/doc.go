// Package websocket pushes live board updates to players.
//
// A central Hub owns every connection; one goroutine (Run) registers and
// unregisters clients and fans messages out, so the client sets are never
// shared. Each connection has a read pump and a write pump.
//
// Clients connect with their session id (GET /ws?session=ab12) and first
// receive the current board. After that the server sends:
//
//	{"session_id": "ab12", "event": "board_update", "snapshot": {...}}
//	{"session_id": "ab12", "event": "notification", "notification": {...}}
//	{"session_id": "ab12", "event": "notification_dismissed"}
//
// Notifications are dismissed when they expire.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	hub.ServeWS(w, r, sessionID, snapshot)
//	hub.BroadcastToSession(sessionID, snapshot)
package websocket
