package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/validation"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AccountService is the set of account operations served over gRPC.
type AccountService interface {
	Register(ctx context.Context, p validation.Payload) error
	SignIn(ctx context.Context, p validation.Payload) (string, error)
	Fetch(ctx context.Context, p validation.Payload) (*models.PublicAccount, error)
	Update(ctx context.Context, p validation.Payload) error
}

// Reply is the response of every account method.
type Reply struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message"`
}

// Full method names.
const (
	MethodRegisterUser = "/" + ServiceName + "/RegisterUser"
	MethodSignIn       = "/" + ServiceName + "/SignIn"
	MethodFetchUser    = "/" + ServiceName + "/FetchUser"
	MethodUpdateUser   = "/" + ServiceName + "/UpdateUser"
)

type accountCall func(ctx context.Context, s AccountService, p validation.Payload) (*Reply, error)

func registerUser(ctx context.Context, s AccountService, p validation.Payload) (*Reply, error) {
	if err := s.Register(ctx, p); err != nil {
		return nil, err
	}
	return &Reply{Status: "success", Message: httpapi.MsgRegistered}, nil
}

func signIn(ctx context.Context, s AccountService, p validation.Payload) (*Reply, error) {
	token, err := s.SignIn(ctx, p)
	if err != nil {
		return nil, err
	}
	return &Reply{Status: "success", Data: token, Message: httpapi.MsgLoggedIn}, nil
}

func fetchUser(ctx context.Context, s AccountService, p validation.Payload) (*Reply, error) {
	account, err := s.Fetch(ctx, p)
	if err != nil {
		return nil, err
	}
	return &Reply{Status: "success", Data: account, Message: httpapi.MsgFetched}, nil
}

func updateUser(ctx context.Context, s AccountService, p validation.Payload) (*Reply, error) {
	if err := s.Update(ctx, p); err != nil {
		return nil, err
	}
	return &Reply{Status: "success", Message: httpapi.MsgUpdated}, nil
}

func (s *GRPCServer) unary(fullMethod string, call accountCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(validation.Payload)
		if err := dec(in); err != nil {
			return nil, status.Error(codes.InvalidArgument, httpapi.MsgMalformed)
		}

		handler := func(ctx context.Context, req any) (any, error) {
			reply, err := call(ctx, srv.(AccountService), *req.(*validation.Payload))
			if err != nil {
				return nil, s.toStatus(ctx, fullMethod, err)
			}
			return reply, nil
		}
		if interceptor == nil {
			return handler(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, handler)
	}
}

func (s *GRPCServer) accountServiceDesc() *grpc.ServiceDesc {
	method := func(full string, call accountCall) grpc.MethodDesc {
		return grpc.MethodDesc{MethodName: full[len(ServiceName)+2:], Handler: s.unary(full, call)}
	}
	return &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*AccountService)(nil),
		Methods: []grpc.MethodDesc{
			method(MethodRegisterUser, registerUser),
			method(MethodSignIn, signIn),
			method(MethodFetchUser, fetchUser),
			method(MethodUpdateUser, updateUser),
		},
		Streams: []grpc.StreamDesc{},
	}
}

// toStatus maps a service error onto one gRPC status. Validation failures
// carry every message as a BadRequest field violation.
func (s *GRPCServer) toStatus(ctx context.Context, method string, err error) error {
	var verr *validation.Error

	switch {
	case errors.As(err, &verr):
		st := status.New(codes.InvalidArgument, verr.Error())
		br := &errdetails.BadRequest{}
		for _, m := range verr.Messages {
			br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{Description: m})
		}
		if withDetails, derr := st.WithDetails(br); derr == nil {
			st = withDetails
		}
		return st.Err()
	case errors.Is(err, common.ErrorSessionExpired):
		return status.Error(codes.Unauthenticated, httpapi.MsgLoginAgain)
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, httpapi.MsgUserNotFound)
	case errors.Is(err, common.ErrorInvalidCredentials):
		return status.Error(codes.Unauthenticated, httpapi.MsgBadCredentials)
	case errors.Is(err, common.ErrorAlreadyExists):
		return status.Error(codes.AlreadyExists, httpapi.MsgAlreadyRegistered)
	default:
		s.logger.Error(ctx, "rpc failed", "method", method, "error", err)
		return status.Error(codes.Internal, httpapi.MsgInternal)
	}
}
