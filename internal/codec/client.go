package codec

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region types

// ServiceName is the gRPC service exposed by a judge sidecar.
const ServiceName = "rednote.judge.v1.JudgeService"

const completeMethod = "/" + ServiceName + "/Complete"

// Request and response field names carried in the structpb payload.
const (
	fieldSystem  = "system_prompt"
	fieldUser    = "user_prompt"
	fieldModel   = "model"
	fieldText    = "text"
	fieldElapsed = "elapsed_ms"
)

// ErrEmptyCompletion is returned when the sidecar answers without text.
var ErrEmptyCompletion = errors.New("codec: empty completion")

// CompleteResult holds the response from a Complete RPC call.
type CompleteResult struct {
	Text    string
	Elapsed time.Duration
}

// #endregion types

// #region client-struct
// CodecClient wraps the gRPC connection to an inference sidecar.
type CodecClient struct {
	conn   *grpc.ClientConn
	client grpc.ClientConnInterface
	model  string
}

// #endregion client-struct

// #region constructor
// NewCodecClient connects to the inference sidecar at addr.
func NewCodecClient(addr, model string) (*CodecClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &CodecClient{
		conn:   conn,
		client: conn,
		model:  model,
	}, nil
}

// NewCodecClientWithService creates a CodecClient over an injected connection.
// Used for testing without a real network listener.
func NewCodecClientWithService(svc grpc.ClientConnInterface, model string) *CodecClient {
	return &CodecClient{client: svc, model: model}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *CodecClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region complete
// Complete sends a system+user prompt pair and returns the completion text.
func (c *CodecClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	res, err := c.CompleteDetailed(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// CompleteDetailed is Complete plus server-reported timing.
func (c *CodecClient) CompleteDetailed(ctx context.Context, systemPrompt, userPrompt string) (CompleteResult, error) {
	req, err := structpb.NewStruct(map[string]interface{}{
		fieldSystem: systemPrompt,
		fieldUser:   userPrompt,
		fieldModel:  c.model,
	})
	if err != nil {
		return CompleteResult{}, fmt.Errorf("build request: %w", err)
	}

	resp := &structpb.Struct{}
	if err := c.client.Invoke(ctx, completeMethod, req, resp); err != nil {
		return CompleteResult{}, fmt.Errorf("complete rpc: %w", err)
	}

	text := resp.GetFields()[fieldText].GetStringValue()
	if text == "" {
		return CompleteResult{}, ErrEmptyCompletion
	}
	elapsed := time.Duration(resp.GetFields()[fieldElapsed].GetNumberValue()) * time.Millisecond
	return CompleteResult{Text: text, Elapsed: elapsed}, nil
}

// #endregion complete
