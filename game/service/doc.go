// Package service provides the business logic layer for the Tout va bien puzzle game.
//
// The service package implements:
//   - Multi-session board management
//   - Level selection and community level refresh
//   - Drag and drop processing through the board engine
//   - Level creation and submission with player notifications
//   - The level publishing API backed by a LevelStore
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// LevelCatalog resolves level selectors and lists the playable levels.
// Publisher fetches and submits community levels; LevelStore keeps the
// documents received by the publishing API.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. Each session owns one engine; a service-wide lock
// serializes board changes. Network calls to the publisher run outside
// that lock.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	levelMgr, _ := config.NewManager("levels")
//	gameService := service.NewGameService(sessionMgr, levelMgr,
//		service.WithPublisher(levelapi.NewClient(apiURL)))
//
//	info, err := gameService.CreateSession(ctx, "1")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	resp, err := gameService.Drop(ctx, info.ID, service.DropRequest{
//		CardID: "cafe",
//		Target: "cell-1",
//	})
package service
