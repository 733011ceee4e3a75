package codec

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region server

// Completer is the backend a JudgeServer forwards to.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// JudgeServer serves Complete calls from a Completer.
type JudgeServer interface {
	complete(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type judgeServer struct {
	backend Completer
}

// RegisterJudgeServer exposes backend on s under ServiceName.
func RegisterJudgeServer(s grpc.ServiceRegistrar, backend Completer) {
	s.RegisterService(&serviceDesc, &judgeServer{backend: backend})
}

func (j *judgeServer) complete(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	user := fields[fieldUser].GetStringValue()
	if user == "" {
		return nil, status.Error(codes.InvalidArgument, "user_prompt is required")
	}

	start := time.Now()
	text, err := j.backend.Complete(ctx, fields[fieldSystem].GetStringValue(), user)
	if err != nil {
		return nil, status.Error(codes.Unavailable, fmt.Sprintf("backend: %v", err))
	}

	return structpb.NewStruct(map[string]interface{}{
		fieldText:    text,
		fieldElapsed: float64(time.Since(start).Milliseconds()),
	})
}

// #endregion server

// #region service-desc

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*JudgeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Complete", Handler: completeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rednote/judge/v1/judge.proto",
}

func completeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(JudgeServer).complete(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: completeMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(JudgeServer).complete(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// #endregion service-desc
