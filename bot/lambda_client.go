package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/domino14/tilepairs/board"
)

type lambdaInvoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaClient asks a deployed solver lambda (cmd/lambda) for solutions
// and waits for the function's return value.
type LambdaClient struct {
	api      lambdaInvoker
	function string
}

// NewLambdaClient uses the default AWS credential chain.
func NewLambdaClient(ctx context.Context, function string) (*LambdaClient, error) {
	awscfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return &LambdaClient{api: lambda.NewFromConfig(awscfg), function: function}, nil
}

func (c *LambdaClient) RequestSolve(ctx context.Context, b board.Board, accumulated, turn, plies int) (*SolveResponse, error) {
	evt := LambdaEvent{
		SolveRequest: newSolveRequest(b, accumulated, turn, plies),
		RequestID:    strconv.FormatUint(frand.Uint64n(math.MaxUint64), 36),
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	out, err := c.api.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(c.function),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        data,
	})
	if err != nil {
		return nil, err
	}
	if out.FunctionError != nil {
		return nil, fmt.Errorf("lambda %s: %s: %s", c.function, *out.FunctionError, string(out.Payload))
	}
	log.Debug().Str("requestID", evt.RequestID).Msgf("res: %v", string(out.Payload))
	// The handler returns the response JSON as a string.
	var body string
	if err := json.Unmarshal(out.Payload, &body); err != nil {
		return nil, err
	}
	return decodeResponse([]byte(body))
}
