// Package lambda provides an AWS Lambda adapter for the scoring function.
package lambda

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"

	"audio-scoring-service/internal/service/classifier"
)

// InvokeAPI is the subset of the Lambda client used by the adapter.
type InvokeAPI interface {
	Invoke(ctx context.Context, params *awslambda.InvokeInput, optFns ...func(*awslambda.Options)) (*awslambda.InvokeOutput, error)
}

// Adapter implements classifier.Invoker using AWS Lambda.
type Adapter struct {
	client   InvokeAPI
	function string
}

// New creates a Lambda adapter for the given function name.
func New(client InvokeAPI, function string) *Adapter {
	return &Adapter{client: client, function: function}
}

// Invoke performs one synchronous Lambda invocation and decodes its
// payload. Transport and function errors are returned as plain errors;
// the caller collapses them into the bad-response path.
func (a *Adapter) Invoke(ctx context.Context, req classifier.Request) (*classifier.Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal scoring request: %w", err)
	}

	out, err := a.client.Invoke(ctx, &awslambda.InvokeInput{
		FunctionName: aws.String(a.function),
		Payload:      payload,
	})
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", a.function, err)
	}
	if out.FunctionError != nil {
		return nil, fmt.Errorf("invoke %s: function error: %s", a.function, aws.ToString(out.FunctionError))
	}

	var resp classifier.Response
	if err := json.Unmarshal(out.Payload, &resp); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", a.function, err)
	}
	return &resp, nil
}
