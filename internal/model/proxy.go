// Package model defines the request and response shapes passed through the gateway.
package model

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
)

// InboundRequest is a single request received by the gateway.
// Headers and Query keep the keys exactly as received.
type InboundRequest struct {
	RequestID string
	Method    string
	Path      string
	Headers   map[string]string
	Query     map[string]string
	Body      string
}

// OutboundResponse is the single response produced for an InboundRequest.
type OutboundResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

// OK reports whether a validator outcome allows the request to proceed.
func (r *OutboundResponse) OK() bool {
	return r != nil && r.StatusCode == http.StatusOK
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse builds the gateway's error response carrying the
// status/code/message triple.
func ErrorResponse(status int, code, message string) *OutboundResponse {
	body, err := json.Marshal(errorBody{Code: code, Message: message})
	if err != nil {
		body = []byte(`{"code":"` + strconv.Itoa(status) + `"}`)
	}
	return &OutboundResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

// FromProxyEvent converts an API Gateway proxy event into an InboundRequest.
func FromProxyEvent(evt events.APIGatewayProxyRequest) *InboundRequest {
	return &InboundRequest{
		RequestID: evt.RequestContext.RequestID,
		Method:    evt.HTTPMethod,
		Path:      evt.Path,
		Headers:   evt.Headers,
		Query:     evt.QueryStringParameters,
		Body:      evt.Body,
	}
}

// ProxyEvent converts the request back into the API Gateway event shape
// used by validators that expect the original payload.
func (r *InboundRequest) ProxyEvent() events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		RequestContext:        events.APIGatewayProxyRequestContext{RequestID: r.RequestID},
		HTTPMethod:            r.Method,
		Path:                  r.Path,
		Headers:               r.Headers,
		QueryStringParameters: r.Query,
		Body:                  r.Body,
	}
}

// FromProxyResponse converts an API Gateway proxy response into an OutboundResponse.
func FromProxyResponse(evt events.APIGatewayProxyResponse) *OutboundResponse {
	return &OutboundResponse{
		StatusCode: evt.StatusCode,
		Headers:    evt.Headers,
		Body:       evt.Body,
	}
}

// ProxyEvent converts the response into the API Gateway proxy response shape.
func (r *OutboundResponse) ProxyEvent() events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: r.StatusCode,
		Headers:    r.Headers,
		Body:       r.Body,
	}
}
