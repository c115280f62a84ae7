package handler

import (
	"context"

	"github.com/aws/aws-lambda-go/events"

	"aws-gateway/internal/model"
	"aws-gateway/internal/service"
)

// LambdaHandler adapts the gateway to API Gateway proxy integration events.
type LambdaHandler struct {
	gateway *service.Gateway
}

// NewLambdaHandler creates a LambdaHandler.
func NewLambdaHandler(gw *service.Gateway) *LambdaHandler {
	return &LambdaHandler{gateway: gw}
}

// Invoke handles one API Gateway event. Failures are reported in the
// response, so the returned error is always nil.
func (h *LambdaHandler) Invoke(ctx context.Context, evt events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	resp := h.gateway.Handle(ctx, model.FromProxyEvent(evt))
	return resp.ProxyEvent(), nil
}
