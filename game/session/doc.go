// Package session provides play sessions for "Tout va bien !".
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session expiry after inactivity
//
// Core Types:
//
// Manager is the in-memory session manager. Each service.Session owns its
// own engine, so every player works on a separate board store. Boards are
// never written to disk: a restarted server starts with no sessions.
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs generated from crypto/rand and are
// looked up case-insensitively.
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create("", level)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Periodically drop idle sessions
//	manager.CleanupExpiredSessions(2 * time.Hour)
package session
