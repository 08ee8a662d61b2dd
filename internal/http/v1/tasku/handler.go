// Package tasku serves the Tasku API status endpoint.
package tasku

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	appmiddleware "github.com/tasku/tasku/internal/middleware"
)

// Register wires GET /taskus into the API.
func Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-tasku-status",
		Method:      http.MethodGet,
		Path:        "/taskus",
		Summary:     "Report that the Tasku API is running",
		Tags:        []string{"Tasku"},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Plain-text status line",
				Content: map[string]*huma.MediaType{
					"text/plain": {
						Schema: &huma.Schema{Type: huma.TypeString, Examples: []any{StatusMessage}},
					},
				},
			},
		},
	}, statusHandler)
}

func statusHandler(ctx context.Context, _ *struct{}) (*StatusOutput, error) {
	appmiddleware.LogInfo(ctx, "tasku status", zap.String("path", "/taskus"))
	return &StatusOutput{ContentType: contentTypeText, Body: []byte(StatusMessage)}, nil
}
