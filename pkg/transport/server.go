package transport

import (
	"context"
	"net"

	"google.golang.org/grpc"
)

const methodLearnerCompletedTask = "/" + serviceName + "CompletedTask/LearnerCompletedTask"

// CompletedTaskHandler is the Controller Facade method the inbound gRPC
// service dispatches to.
type CompletedTaskHandler func(ctx context.Context, req *LearnerCompletedTaskRequest) (*LearnerCompletedTaskResponse, error)

// Server hosts the inbound LearnerCompletedTask RPC the Controller exposes
// to remote Learners (spec.md §6's "single call"). This is the in-scope
// leg of the interface spec.md itself defines — not the excluded
// admin/RPC wrapper (SPEC_FULL.md §6.1).
type Server struct {
	grpcServer *grpc.Server
	handler    CompletedTaskHandler
}

// NewServer builds a Server that dispatches inbound calls to handler.
func NewServer(handler CompletedTaskHandler) *Server {
	s := &Server{handler: handler}
	s.grpcServer = grpc.NewServer()
	desc := serviceDesc(s)
	s.grpcServer.RegisterService(&desc, s)
	return s
}

func serviceDesc(s *Server) grpc.ServiceDesc {
	return grpc.ServiceDesc{
		ServiceName: serviceName + "CompletedTask",
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "LearnerCompletedTask",
				Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
					req := new(LearnerCompletedTaskRequest)
					if err := dec(req); err != nil {
						return nil, err
					}
					return s.handler(ctx, req)
				},
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "fedgo.proto",
	}
}

// Serve blocks accepting connections on lis until the server is stopped.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

// Stop gracefully stops the gRPC server, allowing in-flight calls to
// finish.
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}
