package model

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
)

func TestErrorResponse(t *testing.T) {
	resp := ErrorResponse(http.StatusMethodNotAllowed, "405", "Http Method is invalid")

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
	if ct := resp.Headers["Content-Type"]; ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var body map[string]string
	if err := json.Unmarshal([]byte(resp.Body), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["code"] != "405" {
		t.Errorf("code = %q, want %q", body["code"], "405")
	}
	if body["message"] != "Http Method is invalid" {
		t.Errorf("message = %q, want %q", body["message"], "Http Method is invalid")
	}
}

func TestOutboundResponse_OK(t *testing.T) {
	tests := []struct {
		name string
		resp *OutboundResponse
		want bool
	}{
		{"nil", nil, false},
		{"200", &OutboundResponse{StatusCode: http.StatusOK}, true},
		{"201", &OutboundResponse{StatusCode: http.StatusCreated}, false},
		{"401", &OutboundResponse{StatusCode: http.StatusUnauthorized}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.OK(); got != tt.want {
				t.Errorf("OK() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFromProxyEvent(t *testing.T) {
	evt := events.APIGatewayProxyRequest{
		RequestContext:        events.APIGatewayProxyRequestContext{RequestID: "c6af9ac6-7b61"},
		HTTPMethod:            http.MethodPost,
		Path:                  "/wallet/balance",
		Headers:               map[string]string{"Authorization": "Bearer abc"},
		QueryStringParameters: map[string]string{"a": "1"},
		Body:                  `{"x":1}`,
	}

	req := FromProxyEvent(evt)
	if req.Method != http.MethodPost || req.Path != "/wallet/balance" || req.Body != `{"x":1}` {
		t.Errorf("FromProxyEvent() = %+v", req)
	}
	if req.Headers["Authorization"] != "Bearer abc" {
		t.Errorf("Authorization = %q, want %q", req.Headers["Authorization"], "Bearer abc")
	}
	if req.RequestID != "c6af9ac6-7b61" {
		t.Errorf("RequestID = %q, want %q", req.RequestID, "c6af9ac6-7b61")
	}

	back := req.ProxyEvent()
	if back.Path != evt.Path || back.HTTPMethod != evt.HTTPMethod || back.QueryStringParameters["a"] != "1" || back.RequestContext.RequestID != evt.RequestContext.RequestID {
		t.Errorf("ProxyEvent() = %+v", back)
	}
}
