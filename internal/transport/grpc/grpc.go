// Package grpc implements the gRPC transport for aidoctor.
//
// The Consultations service takes and returns google.protobuf.Struct
// messages, so clients such as grpcurl can call it without generated stubs.
//
// Request fields:
//
//	audio        base64 WAV, or raw s16le PCM (optional)
//	sample_rate  rate of raw PCM; omitted means 44100
//	channels     channel count of raw PCM; omitted means 1
//	image        base64 image bytes (optional)
//	image_name   uploaded file name, used for its extension
//
// The standard gRPC health service is registered alongside it.
package grpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"math"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nadzzz/aidoctor/internal/audio"
	"github.com/nadzzz/aidoctor/internal/message"
	"github.com/nadzzz/aidoctor/internal/transport"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "aidoctor.v1.Consultations"

// ConsultMethod is the full method path of Consult.
const ConsultMethod = "/" + ServiceName + "/Consult"

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port      int
	limiter   *transport.Limiter
	uploadDir string
	server    *grpc.Server
	health    *health.Server
}

// New creates a gRPC transport on the given port.
func New(port int, limiter *transport.Limiter, uploadDir string) *Transport {
	return &Transport{port: port, limiter: limiter, uploadDir: uploadDir}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Listen starts the gRPC server and routes incoming requests to the handler.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	slog.Info("grpc transport listening", "port", t.port)
	return t.serve(ctx, lis, handler)
}

func (t *Transport) serve(ctx context.Context, lis net.Listener, handler transport.Handler) error {
	t.server = grpc.NewServer()
	t.server.RegisterService(&consultationsDesc, &service{
		handler:   handler,
		limiter:   t.limiter,
		uploadDir: t.uploadDir,
	})

	t.health = health.NewServer()
	healthpb.RegisterHealthServer(t.server, t.health)
	t.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	t.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		t.health.Shutdown()
		t.server.GracefulStop()
	}()

	return t.server.Serve(lis)
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	if t.health != nil {
		t.health.Shutdown()
	}
	if t.server != nil {
		t.server.GracefulStop()
	}
	return nil
}

type consultationsServer interface {
	Consult(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var consultationsDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*consultationsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Consult", Handler: consultHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "aidoctor/v1/consultations.proto",
}

func consultHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(consultationsServer).Consult(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ConsultMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(consultationsServer).Consult(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type service struct {
	handler   transport.Handler
	limiter   *transport.Limiter
	uploadDir string
}

func (s *service) Consult(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	c := &message.Consultation{ID: uuid.NewString(), ReceivedAt: time.Now()}

	if raw := fields["audio"].GetStringValue(); raw != "" {
		data, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "audio is not base64: %v", err)
		}
		rate, err := positiveInt(fields, "sample_rate", 0)
		if err != nil {
			return nil, err
		}
		channels, err := positiveInt(fields, "channels", 1)
		if err != nil {
			return nil, err
		}
		in, err := audio.DecodeCapture(bytes.NewReader(data), rate, channels)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "audio: %v", err)
		}
		c.Audio = in
	}

	if raw := fields["image"].GetStringValue(); raw != "" {
		path, err := s.stageImage(raw, fields["image_name"].GetStringValue())
		if err != nil {
			return nil, err
		}
		defer os.Remove(path)
		c.ImagePath = path
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, status.FromContextError(err).Err()
	}
	defer s.limiter.Release()

	b := s.handler(ctx, c)

	resp, err := structpb.NewStruct(map[string]any{
		"request_id":    b.RequestID,
		"transcript":    b.Transcript,
		"language":      b.Language,
		"response":      b.Response,
		"patient_voice": optional(b.PatientVoicePath),
		"doctor_voice":  optional(b.DoctorVoicePath),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding result: %v", err)
	}
	return resp, nil
}

func (s *service) stageImage(b64, name string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", status.Errorf(codes.InvalidArgument, "image is not base64: %v", err)
	}
	f, err := os.CreateTemp(s.uploadDir, "image-*"+filepath.Ext(filepath.Base(name)))
	if err != nil {
		return "", status.Errorf(codes.Internal, "staging image: %v", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", status.Errorf(codes.Internal, "staging image: %v", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", status.Errorf(codes.Internal, "staging image: %v", err)
	}
	return f.Name(), nil
}

// positiveInt reads an optional whole positive number field.
func positiveInt(fields map[string]*structpb.Value, name string, def int) (int, error) {
	v, ok := fields[name]
	if !ok {
		return def, nil
	}
	n, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum || n.NumberValue <= 0 || n.NumberValue != math.Trunc(n.NumberValue) || n.NumberValue > math.MaxInt32 {
		return 0, status.Errorf(codes.InvalidArgument, "invalid %s %v", name, v.AsInterface())
	}
	return int(n.NumberValue), nil
}

// optional maps an absent path to a null value.
func optional(path string) any {
	if path == "" {
		return nil
	}
	return path
}
