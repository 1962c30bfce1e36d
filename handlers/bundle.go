package handlers

import (
	"goodfoods/services/agent"
	"goodfoods/services/availability"
	"goodfoods/services/dialogue"
	"goodfoods/services/search"

	"go.uber.org/zap"
)

// HandlerBundle aggregates the services the HTTP layer fronts. Routes pull
// their handlers from here so main wires dependencies exactly once.
type HandlerBundle struct {
	Tracker    *dialogue.Tracker
	Dispatcher *agent.Dispatcher
	Confirmer  *agent.Confirmer
	Engine     *availability.Engine
	Search     *search.Service
	Logger     *zap.Logger
}
