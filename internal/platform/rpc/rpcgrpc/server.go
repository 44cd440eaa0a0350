// Package rpcgrpc exposes a procedure router as a gRPC service and provides
// the matching client.
//
// Every procedure is a unary method of ServiceName named after the procedure,
// so accounts.create is called as /formrpc.v1.Procedures/accounts.create.
// Payloads are JSON frames sent with the CodecName content subtype.
package rpcgrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"

	apperrors "github.com/louisbranch/formrpc/internal/platform/errors"
	"github.com/louisbranch/formrpc/internal/platform/httpconst"
	"github.com/louisbranch/formrpc/internal/platform/i18n"
	"github.com/louisbranch/formrpc/internal/platform/i18n/i18nhttp"
	"github.com/louisbranch/formrpc/internal/platform/identity"
	"github.com/louisbranch/formrpc/internal/platform/requestctx"
	"github.com/louisbranch/formrpc/internal/platform/rpc"
	"github.com/louisbranch/formrpc/internal/platform/telemetry/metrics"
)

// ServiceName is the gRPC service procedures are registered under.
const ServiceName = "formrpc.v1.Procedures"

// Metadata keys read from incoming calls.
const (
	MetadataAuthorization  = "authorization"
	MetadataAcceptLanguage = "accept-language"
	MetadataRequestID      = "x-request-id"
)

// procedureService is the handler type of the generated service description.
type procedureService interface {
	call(ctx context.Context, name string, in *Frame) (*Frame, error)
}

// Options configures the gRPC procedure server.
type Options struct {
	Repositories any
	// Provider resolves the caller identity from call metadata. Nil treats
	// every call as anonymous.
	Provider identity.Provider
	Logger   zerolog.Logger
}

// Server hosts the procedure router and a health service.
type Server struct {
	router       *rpc.Router
	repositories any
	provider     identity.Provider
	logger       zerolog.Logger
	grpcServer   *grpc.Server
	health       *health.Server
}

// NewServer registers every procedure of router on a new gRPC server.
func NewServer(router *rpc.Router, opts Options) *Server {
	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(metrics.UnaryServerInterceptor()),
	)
	s := &Server{
		router:       router,
		repositories: opts.Repositories,
		provider:     opts.Provider,
		logger:       opts.Logger,
		grpcServer:   grpcServer,
		health:       health.NewServer(),
	}
	grpcServer.RegisterService(ServiceDesc(router.Names()), s)
	grpc_health_v1.RegisterHealthServer(grpcServer, s.health)
	s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return s
}

// ServiceDesc describes one unary method per procedure name.
func ServiceDesc(names []string) *grpc.ServiceDesc {
	desc := &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*procedureService)(nil),
		Streams:     []grpc.StreamDesc{},
		Metadata:    "formrpc/v1/procedures",
	}
	for _, name := range names {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: name,
			Handler:    methodHandler(name),
		})
	}
	return desc
}

// MethodPath is the full gRPC method of a procedure.
func MethodPath(name string) string {
	return "/" + ServiceName + "/" + name
}

func methodHandler(name string) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Frame)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return srv.(procedureService).call(ctx, name, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodPath(name)}
		handler := func(ctx context.Context, req any) (any, error) {
			return srv.(procedureService).call(ctx, name, req.(*Frame))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func (s *Server) call(ctx context.Context, name string, in *Frame) (*Frame, error) {
	r := requestFromMetadata(ctx)
	lang, _ := i18nhttp.Resolve(r)
	tr := i18n.NewTranslator(lang)

	requestID := r.Header.Get(httpconst.HeaderRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx = requestctx.WithRequestID(i18n.WithTranslator(ctx, tr), requestID)

	var id identity.Identity
	if s.provider != nil {
		resolved, err := s.provider.Authenticate(r)
		if err != nil {
			s.logger.Debug().Err(err).Str("procedure", name).Msg("anonymous call")
		} else {
			id = resolved
		}
	}
	if id.User != nil {
		ctx = requestctx.WithUserID(ctx, id.User.ID)
	}

	pc := rpc.NewContext(rpc.Locals{Repositories: s.repositories, Identity: id, Translator: tr})
	var input []byte
	if in != nil && string(in.Data) != "null" {
		input = in.Data
	}
	out, err := s.router.Invoke(identity.WithIdentity(ctx, id), pc, name, input)
	if errors.Is(err, rpc.ErrProcedureNotFound) {
		return nil, apperrors.New(apperrors.CodeInternalServerError, i18n.InternalServerError(tr)).ToGRPCStatus(lang.String())
	}
	if err != nil {
		return nil, apperrors.Normalize(err, tr).ToGRPCStatus(lang.String())
	}
	data, err := json.Marshal(out)
	if err != nil {
		s.logger.Error().Err(err).Str("procedure", name).Msg("encode procedure output")
		return nil, apperrors.New(apperrors.CodeInternalServerError, i18n.InternalServerError(tr)).ToGRPCStatus(lang.String())
	}
	return &Frame{Data: data}, nil
}

// requestFromMetadata lifts call metadata into request headers so the HTTP
// identity and language resolvers apply unchanged.
func requestFromMetadata(ctx context.Context) *http.Request {
	r := &http.Request{Header: http.Header{}}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return r.WithContext(ctx)
	}
	copyHeader := func(key, header string) {
		if values := md.Get(key); len(values) > 0 {
			r.Header.Set(header, strings.TrimSpace(values[0]))
		}
	}
	copyHeader(MetadataAuthorization, httpconst.HeaderAuthorization)
	copyHeader(MetadataAcceptLanguage, httpconst.HeaderAcceptLanguage)
	copyHeader(MetadataRequestID, httpconst.HeaderRequestID)
	return r.WithContext(ctx)
}

// GRPC returns the underlying server so callers can register more services.
func (s *Server) GRPC() *grpc.Server {
	if s == nil {
		return nil
	}
	return s.grpcServer
}

// Serve accepts calls on listener until context cancellation.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if listener == nil {
		return errors.New("listener is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.logger.Info().Str("addr", listener.Addr().String()).Msg("grpc server listening")
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}

// Stop closes all connections immediately.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	s.health.Shutdown()
	s.grpcServer.Stop()
}
