// Package visualiser streams render states to remote viewers over gRPC.
package visualiser

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/ridealong/internal/monitoring"
	"github.com/banshee-data/ridealong/internal/render"
)

var logf = monitoring.Component("Visualiser")

// WatchMethod is the full method name of the render-state stream.
const WatchMethod = "/ridealong.RenderStateService/Watch"

// RenderStateServer is the server API of RenderStateService.
type RenderStateServer interface {
	// Watch streams every render state, starting with the latest one. The
	// request may carry a "client" name used in logs.
	Watch(req *structpb.Struct, stream grpc.ServerStream) error
}

// ServiceDesc describes RenderStateService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "ridealong.RenderStateService",
	HandlerType: (*RenderStateServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "ridealong/render_state.proto",
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	req := new(structpb.Struct)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(RenderStateServer).Watch(req, stream)
}

// RegisterService registers srv with a gRPC server.
func RegisterService(gs grpc.ServiceRegistrar, srv RenderStateServer) {
	gs.RegisterService(&ServiceDesc, srv)
}

// Config configures the listener.
type Config struct {
	ListenAddr string
}

// DefaultConfig listens on localhost:50061.
func DefaultConfig() Config {
	return Config{ListenAddr: "localhost:50061"}
}

// Server serves the render states pushed to a Fanout.
type Server struct {
	fanout *render.Fanout
	config Config

	server   *grpc.Server
	listener net.Listener
	running  atomic.Bool
	wg       sync.WaitGroup
	clients  atomic.Int64
}

var _ RenderStateServer = (*Server)(nil)

// NewServer creates a server streaming from fanout.
func NewServer(fanout *render.Fanout, cfg Config) *Server {
	return &Server{fanout: fanout, config: cfg}
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	logf("gRPC server listening on %s", lis.Addr())
	return s.Serve(lis)
}

// Serve serves on lis in the background.
func (s *Server) Serve(lis net.Listener) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("visualiser already running")
	}
	s.listener = lis
	s.server = grpc.NewServer()
	RegisterService(s.server, s)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.Serve(lis); err != nil && s.running.Load() {
			logf("gRPC server error: %v", err)
		}
	}()
	return nil
}

// Stop ends every stream and waits for the server to exit.
func (s *Server) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	s.server.Stop()
	s.wg.Wait()
	logf("gRPC server stopped")
}

// Clients returns the number of connected watchers.
func (s *Server) Clients() int { return int(s.clients.Load()) }

// Watch implements RenderStateServer.
func (s *Server) Watch(req *structpb.Struct, stream grpc.ServerStream) error {
	id := "grpc-" + uuid.New().String()
	if name := req.GetFields()["client"].GetStringValue(); name != "" {
		id = name + "-" + id
	}
	sub := s.fanout.Subscribe(id)
	defer sub.Close()
	s.clients.Add(1)
	defer s.clients.Add(-1)

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sub.Done():
			return status.Error(codes.Aborted, "subscription replaced")
		case st := <-sub.C():
			msg, err := EncodeState(st)
			if err != nil {
				return status.Errorf(codes.Internal, "encode render state: %v", err)
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}

// WatchClient receives render states.
type WatchClient struct {
	stream grpc.ClientStream
}

// Watch opens a render-state stream on conn.
func Watch(ctx context.Context, conn grpc.ClientConnInterface, client string) (*WatchClient, error) {
	stream, err := conn.NewStream(ctx, &ServiceDesc.Streams[0], WatchMethod)
	if err != nil {
		return nil, err
	}
	req, err := structpb.NewStruct(map[string]any{"client": client})
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &WatchClient{stream: stream}, nil
}

// Recv blocks for the next render state.
func (c *WatchClient) Recv() (render.State, error) {
	msg := new(structpb.Struct)
	if err := c.stream.RecvMsg(msg); err != nil {
		return render.State{}, err
	}
	return DecodeState(msg)
}
