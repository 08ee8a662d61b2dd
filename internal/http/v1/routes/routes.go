package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/tasku/tasku/internal/http/health"
	"github.com/tasku/tasku/internal/http/v1/tasku"
)

// Register wires all huma operations into the provided API.
func Register(api huma.API) {
	health.Register(api)
	tasku.Register(api)
}
