package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/google/uuid"
	"github.com/mindhaven/support-core/internal/application"
	"github.com/mindhaven/support-core/internal/domain"
)

// AuthInternalService is the mesh-internal surface other services call to
// validate access tokens and raise incident alerts without going through the
// public HTTP edge.
type AuthInternalService interface {
	ValidateToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RaiseAlert(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type AuthInternalServer struct {
	service *application.Service
}

func NewAuthInternalServer(service *application.Service) *AuthInternalServer {
	return &AuthInternalServer{service: service}
}

func Register(server grpc.ServiceRegistrar, svc AuthInternalService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: "mindhaven.auth.v1.AuthInternalService",
		HandlerType: (*AuthInternalService)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "ValidateToken",
				Handler:    validateTokenHandler(svc),
			},
			{
				MethodName: "RaiseAlert",
				Handler:    raiseAlertHandler(svc),
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "proto/auth/v1/auth_internal.proto",
	}, svc)
}

func (s *AuthInternalServer) ValidateToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	tokenVal := req.GetFields()["token"]
	if tokenVal == nil || tokenVal.GetStringValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "missing token")
	}

	claims, err := s.service.Authenticate(ctx, tokenVal.GetStringValue(), "")
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, "token expired")
		}
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	roles := make([]any, 0, len(claims.Roles))
	for _, role := range claims.Roles {
		roles = append(roles, role)
	}
	resp, err := structpb.NewStruct(map[string]any{
		"valid":        true,
		"principal_id": claims.PrincipalID.String(),
		"username":     claims.Username,
		"roles":        roles,
		"expires_at":   claims.ExpiresAt.Unix(),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func (s *AuthInternalServer) RaiseAlert(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	alertType := fields["type"].GetStringValue()
	severity := fields["severity"].GetStringValue()
	if alertType == "" || severity == "" {
		return nil, status.Error(codes.InvalidArgument, "missing type or severity")
	}

	raise := application.RaiseAlertRequest{
		Type:        alertType,
		Severity:    severity,
		TriggerData: fields["trigger_data"].GetStringValue(),
	}
	if raw := fields["principal_id"].GetStringValue(); raw != "" {
		principalID, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			return nil, status.Error(codes.InvalidArgument, "invalid principal_id")
		}
		raise.PrincipalID = &principalID
	}

	item, err := s.service.Raise(ctx, raise)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Errorf(codes.Internal, "raise alert: %v", err)
	}

	resp, err := structpb.NewStruct(map[string]any{
		"alert_id": item.AlertID.String(),
		"severity": item.Severity,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func validateTokenHandler(svc AuthInternalService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return unaryStructHandler(svc.ValidateToken, "/mindhaven.auth.v1.AuthInternalService/ValidateToken")
}

func raiseAlertHandler(svc AuthInternalService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return unaryStructHandler(svc.RaiseAlert, "/mindhaven.auth.v1.AuthInternalService/RaiseAlert")
}

func unaryStructHandler(
	method func(context.Context, *structpb.Struct) (*structpb.Struct, error),
	fullMethod string,
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return method(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return method(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}
