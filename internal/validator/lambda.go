package validator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go/aws"
	awslambda "github.com/aws/aws-sdk-go/service/lambda"
	"github.com/aws/aws-sdk-go/service/lambda/lambdaiface"

	"aws-gateway/internal/model"
)

// LambdaValidator invokes validator functions synchronously through AWS Lambda.
type LambdaValidator struct {
	api         lambdaiface.LambdaAPI
	signatureFn string
	tokenFn     string
	logger      *slog.Logger
}

// NewLambdaValidator creates a LambdaValidator for the given function names.
func NewLambdaValidator(api lambdaiface.LambdaAPI, signatureFn, tokenFn string, logger *slog.Logger) *LambdaValidator {
	return &LambdaValidator{
		api:         api,
		signatureFn: signatureFn,
		tokenFn:     tokenFn,
		logger:      logger.With("component", "lambda_validator"),
	}
}

// ValidateSignature sends the raw body and path to the signature function.
func (v *LambdaValidator) ValidateSignature(ctx context.Context, body, path string) (*model.OutboundResponse, error) {
	return v.invoke(ctx, v.signatureFn, signatureRequest{Body: body, Path: path})
}

// ValidateToken sends the full inbound request to the token function.
func (v *LambdaValidator) ValidateToken(ctx context.Context, req *model.InboundRequest) (*model.OutboundResponse, error) {
	return v.invoke(ctx, v.tokenFn, req.ProxyEvent())
}

func (v *LambdaValidator) invoke(ctx context.Context, fn string, payload any) (*model.OutboundResponse, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode validator request: %w", err)
	}

	v.logger.Debug("invoking validator", "function", fn)

	out, err := v.api.InvokeWithContext(ctx, &awslambda.InvokeInput{
		FunctionName:   aws.String(fn),
		InvocationType: aws.String(awslambda.InvocationTypeRequestResponse),
		Payload:        data,
	})
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", fn, err)
	}
	if out.FunctionError != nil {
		return nil, fmt.Errorf("invoke %s: function error %s: %s", fn, aws.StringValue(out.FunctionError), out.Payload)
	}

	return decodeResponse(out.Payload)
}
