package http

import (
	"errors"
	stdhttp "net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/bank-auth-service/internal/auth"
	"github.com/spec-kit/bank-auth-service/internal/service"
	apperrors "github.com/spec-kit/bank-auth-service/pkg/util"
)

const msgTokenInvalid = "Access token is missing or invalid"

// internal codes, logged but never sent to clients.
const (
	internalTokenInvalid = "TOKEN_INVALID"
	internalTokenExpired = "TOKEN_EXPIRED"
)

// toDomainError maps any handler error onto the response envelope. The
// second return value is an internal code for logs, empty when it equals
// the public code.
func toDomainError(err error) (*apperrors.DomainError, string) {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr, ""
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fromFiberError(fiberErr), ""
	}

	switch auth.KindOf(err) {
	case auth.KindNone:
		return nil, ""
	case auth.KindInvalidCredentials:
		return apperrors.NewUnauthorized(apperrors.CodeInvalidCredentials, "Invalid credentials", err).(*apperrors.DomainError), ""
	case auth.KindTokenInvalid:
		return apperrors.NewUnauthorized(apperrors.CodeUnauthorized, msgTokenInvalid, err).(*apperrors.DomainError), internalTokenInvalid
	case auth.KindTokenExpired:
		return apperrors.NewUnauthorized(apperrors.CodeUnauthorized, msgTokenInvalid, err).(*apperrors.DomainError), internalTokenExpired
	case auth.KindInfrastructure:
		return fromServiceError(err), ""
	}
	return apperrors.ToDomainError(err), ""
}

func fromServiceError(err error) *apperrors.DomainError {
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		return apperrors.NewInvalidRequest("Invalid user details provided.").(*apperrors.DomainError)
	case errors.Is(err, service.ErrUserNotFound):
		return apperrors.NewNotFound("User", nil).(*apperrors.DomainError)
	}
	return apperrors.ToDomainError(err)
}

func fromFiberError(err *fiber.Error) *apperrors.DomainError {
	code := apperrors.CodeInvalidRequest
	switch {
	case err.Code == stdhttp.StatusNotFound:
		code = apperrors.CodeNotFound
	case err.Code == stdhttp.StatusUnauthorized:
		code = apperrors.CodeUnauthorized
	case err.Code == stdhttp.StatusForbidden:
		code = apperrors.CodeForbidden
	case err.Code >= stdhttp.StatusInternalServerError:
		code = apperrors.CodeInternal
	}
	return apperrors.NewDomainError(code, err.Message, err.Code, nil)
}
