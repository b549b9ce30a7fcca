// Package routes defines HTTP route constants for the console API.
package routes

// API Routes
const (
	// Root
	HealthPath = "/healthz"

	// Staging
	APIStage   = "POST /api/{entity}/images"
	APIUnstage = "DELETE /api/images/{purpose}/{entity}/{index}"
	APIPreview = "GET /preview/{token}"

	// Drafts
	APIDraftGet   = "GET /api/drafts/{namespace}"
	APIDraftSave  = "PUT /api/drafts/{namespace}"
	APIDraftClear = "DELETE /api/drafts/{namespace}"
	APIRowRemove  = "DELETE /api/{entity}/rows/{index}"
	APIClearAll   = "DELETE /api/staged/{entity}"

	// Entity create/update, followed by the commit pipeline
	APICreate = "POST /api/{entity}"
	APIUpdate = "PUT /api/{entity}/{id}"

	// Console state
	APIState = "GET /api/state"
)
