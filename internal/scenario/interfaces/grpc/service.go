package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName 完整服务名
const ServiceName = "scenario.v1.ScenarioService"

const (
	RunScenarioFullMethod    = "/" + ServiceName + "/RunScenario"
	GetScenarioRunFullMethod = "/" + ServiceName + "/GetScenarioRun"
)

// ScenarioServiceServer 服务端接口，请求与响应均为 google.protobuf.Struct
type ScenarioServiceServer interface {
	RunScenario(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetScenarioRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedScenarioServiceServer 嵌入后未实现的方法返回 codes.Unimplemented
type UnimplementedScenarioServiceServer struct{}

func (UnimplementedScenarioServiceServer) RunScenario(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method RunScenario not implemented")
}

func (UnimplementedScenarioServiceServer) GetScenarioRun(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetScenarioRun not implemented")
}

// RegisterScenarioServiceServer 注册服务
func RegisterScenarioServiceServer(s grpc.ServiceRegistrar, srv ScenarioServiceServer) {
	s.RegisterService(&ScenarioServiceDesc, srv)
}

// ScenarioServiceDesc 服务描述
var ScenarioServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ScenarioServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RunScenario", Handler: runScenarioHandler},
		{MethodName: "GetScenarioRun", Handler: getScenarioRunHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "api/scenario/v1/scenario.proto",
}

func runScenarioHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScenarioServiceServer).RunScenario(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RunScenarioFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ScenarioServiceServer).RunScenario(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getScenarioRunHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScenarioServiceServer).GetScenarioRun(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetScenarioRunFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ScenarioServiceServer).GetScenarioRun(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ScenarioServiceClient 客户端
type ScenarioServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewScenarioServiceClient 创建客户端
func NewScenarioServiceClient(cc grpc.ClientConnInterface) *ScenarioServiceClient {
	return &ScenarioServiceClient{cc: cc}
}

func (c *ScenarioServiceClient) RunScenario(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, RunScenarioFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ScenarioServiceClient) GetScenarioRun(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetScenarioRunFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
