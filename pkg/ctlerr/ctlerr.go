// Package ctlerr defines the structural error kinds the Controller facade
// returns, mirroring the absl::Status kinds the original controller used
// (InvalidArgument, AlreadyExists, NotFound, Unauthenticated,
// PermissionDenied, Internal, Unavailable) translated into idiomatic Go
// errors.
package ctlerr

import (
	"errors"

	"google.golang.org/grpc/codes"
)

// Kind classifies an error the way a caller would map it onto an RPC status
// code. This package depends on grpc/codes only for that mapping (GRPCCode
// below); it never touches a grpc.Server or grpc.ClientConn itself.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidArgument
	KindAlreadyExists
	KindNotFound
	KindUnauthenticated
	KindPermissionDenied
	KindInternal
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindAlreadyExists:
		return "already_exists"
	case KindNotFound:
		return "not_found"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindPermissionDenied:
		return "permission_denied"
	case KindInternal:
		return "internal"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error is a Kind-tagged error. Callers use errors.As to recover the Kind.
type Error struct {
	Kind Kind
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Is lets errors.Is(err, ctlerr.NotFound) work against a bare sentinel of
// the same kind without requiring equal messages.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

func new_(k Kind, msg string) *Error { return &Error{Kind: k, msg: msg} }

// InvalidArgument, AlreadyExists, NotFound, Unauthenticated,
// PermissionDenied, Internal and Unavailable construct an *Error of the
// matching Kind.
func InvalidArgument(msg string) error  { return new_(KindInvalidArgument, msg) }
func AlreadyExists(msg string) error    { return new_(KindAlreadyExists, msg) }
func NotFound(msg string) error         { return new_(KindNotFound, msg) }
func Unauthenticated(msg string) error  { return new_(KindUnauthenticated, msg) }
func PermissionDenied(msg string) error { return new_(KindPermissionDenied, msg) }
func Internal(msg string) error         { return new_(KindInternal, msg) }
func Unavailable(msg string) error      { return new_(KindUnavailable, msg) }

// KindOf extracts the Kind of err, or KindUnknown if err is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// GRPCCode maps k onto the gRPC status code a transport-facing caller would
// return it as. This package otherwise knows nothing about RPC transport;
// the mapping lives here only so a wire adapter never has to duplicate it.
func (k Kind) GRPCCode() codes.Code {
	switch k {
	case KindInvalidArgument:
		return codes.InvalidArgument
	case KindAlreadyExists:
		return codes.AlreadyExists
	case KindNotFound:
		return codes.NotFound
	case KindUnauthenticated:
		return codes.Unauthenticated
	case KindPermissionDenied:
		return codes.PermissionDenied
	case KindInternal:
		return codes.Internal
	case KindUnavailable:
		return codes.Unavailable
	default:
		return codes.Unknown
	}
}
