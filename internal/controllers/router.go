package controllers

import "net/http"

// RegisterRoutes wires the HTTP routes for this controller.
func (c *DefinitionsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/definitions", c.handleCreateDefinition)
	mux.HandleFunc("GET /api/definitions", c.handleListDefinitions)
	mux.HandleFunc("GET /api/definitions/{id}", c.handleGetDefinitionById)
	mux.HandleFunc("POST /api/definitions/{id}/activate", c.handleActivateDefinition)
	mux.HandleFunc("POST /api/definitions/{id}/deactivate", c.handleDeactivateDefinition)
}

func (c *EventsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/events", c.handlePostEvent)
}

func (c *ExecutionsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/executions/{id}", c.handleGetExecutionById)
	mux.HandleFunc("POST /api/executions/search", c.handleSearchExecutions)
	mux.HandleFunc("GET /api/executions/{id}/actions", c.handleGetExecutionActions)
	mux.HandleFunc("POST /api/executions/{id}/cancel", c.handleCancelExecution)
	mux.HandleFunc("GET /api/executions/overview", c.handleExecutionsOverview)
}

func (c *NotificationsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/notifications", c.handleGetNotifications)
}
