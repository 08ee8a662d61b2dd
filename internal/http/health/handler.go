package health

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	appmiddleware "github.com/tasku/tasku/internal/middleware"
)

// Data is the payload for the health endpoint.
type Data struct {
	Message string `json:"message" doc:"Health status message" example:"healthy"`
}

// Output is the response wrapper for the health endpoint.
type Output struct {
	Body Data
}

// Register wires GET /health into the API.
func Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Report service health",
		Tags:        []string{"Health"},
	}, handler)
}

func handler(ctx context.Context, _ *struct{}) (*Output, error) {
	appmiddleware.LogInfo(ctx, "health check", zap.String("path", "/health"))
	return &Output{Body: Data{Message: "healthy"}}, nil
}
