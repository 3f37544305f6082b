// Package rpc exposes the summarizer over gRPC. Messages are
// google.protobuf.Struct values so the service needs no generated code.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "summarizer.v1.Summarizer"

	generateSummaryMethod = "/" + ServiceName + "/GenerateSummary"
	getStatusMethod       = "/" + ServiceName + "/GetStatus"
)

// SummarizerServer is the server side of summarizer.v1.Summarizer.
type SummarizerServer interface {
	GenerateSummary(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetStatus(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes summarizer.v1.Summarizer for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SummarizerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GenerateSummary", Handler: generateSummaryHandler},
		{MethodName: "GetStatus", Handler: getStatusHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "summarizer/v1/summarizer.proto",
}

// RegisterSummarizerServer registers srv on s.
func RegisterSummarizerServer(s grpc.ServiceRegistrar, srv SummarizerServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func generateSummaryHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SummarizerServer).GenerateSummary(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: generateSummaryMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SummarizerServer).GenerateSummary(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getStatusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SummarizerServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getStatusMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SummarizerServer).GetStatus(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Client is a thin client for summarizer.v1.Summarizer.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) GenerateSummary(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, generateSummaryMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetStatus(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getStatusMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
