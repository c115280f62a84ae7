// Package validator talks to the external signature and token validator.
//
// A validator answers with an API Gateway style response: status 200 allows
// the request, anything else is returned to the caller unchanged. Token
// validation also returns the headers the backend should receive.
package validator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	awslambda "github.com/aws/aws-sdk-go/service/lambda"

	"aws-gateway/internal/client"
	"aws-gateway/internal/config"
	"aws-gateway/internal/model"
)

// ErrEmptyResponse is returned when the validator answers without a status code.
var ErrEmptyResponse = errors.New("validator returned an empty response")

// Validator checks inbound requests before they are forwarded.
type Validator interface {
	ValidateSignature(ctx context.Context, body, path string) (*model.OutboundResponse, error)
	ValidateToken(ctx context.Context, req *model.InboundRequest) (*model.OutboundResponse, error)
}

// signatureRequest is the payload sent for signature validation.
type signatureRequest struct {
	Body string `json:"body"`
	Path string `json:"path"`
}

// New returns the Validator selected by cfg.Validator.Mode.
func New(cfg *config.Config, logger *slog.Logger) (Validator, error) {
	switch cfg.Validator.Mode {
	case config.ValidatorHTTP:
		hc := client.NewHTTPClient(time.Duration(cfg.Validator.TimeoutSeconds)*time.Second, cfg.Upstream.IdleConnections)
		return NewHTTPValidator(hc, cfg.Validator.BaseURL, logger), nil
	case config.ValidatorLambda, "":
		sess, err := session.NewSession(aws.NewConfig().WithRegion(cfg.Validator.Region))
		if err != nil {
			return nil, fmt.Errorf("validator session: %w", err)
		}
		return NewLambdaValidator(awslambda.New(sess), cfg.Validator.SignatureFunction, cfg.Validator.TokenFunction, logger), nil
	default:
		return nil, fmt.Errorf("unknown validator mode %q", cfg.Validator.Mode)
	}
}

// decodeResponse parses a validator answer into an OutboundResponse.
func decodeResponse(payload []byte) (*model.OutboundResponse, error) {
	var resp events.APIGatewayProxyResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("decode validator response: %w", err)
	}
	if resp.StatusCode == 0 {
		return nil, ErrEmptyResponse
	}
	return model.FromProxyResponse(resp), nil
}
