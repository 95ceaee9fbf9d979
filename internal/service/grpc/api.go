package grpcsvc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Сервис описан вручную поверх well-known types: сообщения корзины
// передаются как google.protobuf.Struct, идентификаторы: как StringValue.

const (
	CartServiceName = "cartstate.v1.CartService"

	CartServiceOpenCartMethod  = "/" + CartServiceName + "/OpenCart"
	CartServiceGetCartMethod   = "/" + CartServiceName + "/GetCart"
	CartServiceAddToCartMethod = "/" + CartServiceName + "/AddToCart"
	CartServiceIncrementMethod = "/" + CartServiceName + "/Increment"
	CartServiceDecrementMethod = "/" + CartServiceName + "/Decrement"
)

// CartServiceServer: серверная сторона cartstate.v1.CartService.
type CartServiceServer interface {
	OpenCart(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetCart(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	AddToCart(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Increment(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Decrement(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

// UnimplementedCartServiceServer отвечает Unimplemented на все методы.
type UnimplementedCartServiceServer struct{}

func (UnimplementedCartServiceServer) OpenCart(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method OpenCart not implemented")
}

func (UnimplementedCartServiceServer) GetCart(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetCart not implemented")
}

func (UnimplementedCartServiceServer) AddToCart(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method AddToCart not implemented")
}

func (UnimplementedCartServiceServer) Increment(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Increment not implemented")
}

func (UnimplementedCartServiceServer) Decrement(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Decrement not implemented")
}

// RegisterCartServiceServer регистрирует реализацию на gRPC-сервере.
func RegisterCartServiceServer(s grpc.ServiceRegistrar, srv CartServiceServer) {
	s.RegisterService(&CartServiceDesc, srv)
}

func unaryHandler[Req any](
	method string,
	newReq func() *Req,
	call func(CartServiceServer, context.Context, *Req) (*structpb.Struct, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CartServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CartServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// CartServiceDesc: grpc.ServiceDesc для cartstate.v1.CartService.
var CartServiceDesc = grpc.ServiceDesc{
	ServiceName: CartServiceName,
	HandlerType: (*CartServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "OpenCart",
			Handler: unaryHandler(CartServiceOpenCartMethod,
				func() *wrapperspb.StringValue { return new(wrapperspb.StringValue) },
				CartServiceServer.OpenCart),
		},
		{
			MethodName: "GetCart",
			Handler: unaryHandler(CartServiceGetCartMethod,
				func() *emptypb.Empty { return new(emptypb.Empty) },
				CartServiceServer.GetCart),
		},
		{
			MethodName: "AddToCart",
			Handler: unaryHandler(CartServiceAddToCartMethod,
				func() *structpb.Struct { return new(structpb.Struct) },
				CartServiceServer.AddToCart),
		},
		{
			MethodName: "Increment",
			Handler: unaryHandler(CartServiceIncrementMethod,
				func() *wrapperspb.StringValue { return new(wrapperspb.StringValue) },
				CartServiceServer.Increment),
		},
		{
			MethodName: "Decrement",
			Handler: unaryHandler(CartServiceDecrementMethod,
				func() *wrapperspb.StringValue { return new(wrapperspb.StringValue) },
				CartServiceServer.Decrement),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cartstate/v1/cart.proto",
}

// CartServiceClient: клиентская сторона cartstate.v1.CartService.
type CartServiceClient interface {
	OpenCart(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetCart(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	AddToCart(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Increment(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	Decrement(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type cartServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewCartServiceClient создаёт клиента поверх соединения.
func NewCartServiceClient(cc grpc.ClientConnInterface) CartServiceClient {
	return &cartServiceClient{cc: cc}
}

func (c *cartServiceClient) invoke(ctx context.Context, method string, in any, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *cartServiceClient) OpenCart(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, CartServiceOpenCartMethod, in, opts)
}

func (c *cartServiceClient) GetCart(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, CartServiceGetCartMethod, in, opts)
}

func (c *cartServiceClient) AddToCart(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, CartServiceAddToCartMethod, in, opts)
}

func (c *cartServiceClient) Increment(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, CartServiceIncrementMethod, in, opts)
}

func (c *cartServiceClient) Decrement(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, CartServiceDecrementMethod, in, opts)
}
