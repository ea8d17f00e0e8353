package backend

import (
	"context"
	"errors"

	"github.com/sony/gobreaker"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/spec-kit/storefront-bff/pkg/util"
)

// mapError translates a backend call failure into the gateway error
// taxonomy. Anything that is not a recognised application status becomes
// UpstreamUnavailable so transport detail never reaches clients.
func mapError(resource string, err error) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.NewUpstreamUnavailable(err)
	}

	st, ok := status.FromError(err)
	if !ok {
		return apperrors.NewUpstreamUnavailable(err)
	}
	switch st.Code() {
	case codes.NotFound:
		return apperrors.NewNotFound(resource, nil)
	case codes.AlreadyExists, codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return apperrors.NewUpstreamRejected(st.Message(), err)
	case codes.Unauthenticated:
		return apperrors.NewUnauthorized("invalid credentials")
	case codes.PermissionDenied:
		return apperrors.NewForbidden("permission denied")
	default:
		return apperrors.NewUpstreamUnavailable(err)
	}
}

// isApplicationError reports whether err is a well-formed answer from the
// backend, as opposed to a transport fault. Application errors never trip
// the circuit breaker.
func isApplicationError(err error) bool {
	if err == nil {
		return true
	}
	var abandoned *abandonedCall
	if errors.As(err, &abandoned) || errors.Is(err, context.Canceled) {
		return true
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Canceled, codes.NotFound, codes.AlreadyExists, codes.InvalidArgument, codes.FailedPrecondition,
		codes.OutOfRange, codes.Unauthenticated, codes.PermissionDenied:
		return true
	}
	return false
}
