// Package levelapi is the HTTP client of the level publishing API.
//
// The API exposes two endpoints:
//
//	GET  /levels       -> {"success": true, "levels": [...]}
//	POST /createlevel  <- a level document
//
// Client implements service.Publisher, so the game service can refresh
// community levels and submit created ones through it. The server side of
// the same API lives in the api package.
package levelapi
