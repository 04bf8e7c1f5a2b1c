package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"visioncloud-backend/internal/bootstrap"
	"visioncloud-backend/internal/shared/config"
	"visioncloud-backend/internal/shared/server/respond"
	"visioncloud-backend/internal/shared/telemetry"
)

var (
	initOnce  sync.Once
	initErr   error
	ginLambda *ginadapter.GinLambdaV2
)

func initApp() {
	cfg := config.Load()
	if cfg.ObjectStoreType == "local" {
		// The function filesystem does not outlive the instance.
		telemetry.Warn("lambda.local_store", map[string]any{"dir": cfg.LocalStoreDir})
	}
	app, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		return
	}
	ginLambda = ginadapter.NewV2(app.Router)
}

func errorResponse(code, message string) events.APIGatewayV2HTTPResponse {
	body, _ := json.Marshal(respond.ErrorResponse{Error: respond.ErrorBody{Code: code, Message: message}})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": initErr.Error()})
		return errorResponse("bootstrap_failed", "service unavailable"), initErr
	}
	if ginLambda == nil {
		return errorResponse("internal", "router not initialized"), nil
	}
	return ginLambda.ProxyWithContext(ctx, req)
}

func main() {
	lambda.Start(handler)
}
