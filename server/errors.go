package main

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeNotFound     = "NOT_FOUND"
	textCodeForbidden    = "FORBIDDEN"
	textCodeUnauthorized = "UNAUTHORIZED"
	textCodeBadRequest   = "BAD_REQUEST"
)

func notFound(what string) error {
	return goerrors.New(what+" not found", goerrors.CategoryNotFound).
		WithCode(goerrors.CodeNotFound).
		WithTextCode(textCodeNotFound)
}

func forbidden(msg string) error {
	return goerrors.New(msg, goerrors.CategoryAuthz).
		WithCode(goerrors.CodeForbidden).
		WithTextCode(textCodeForbidden)
}

func unauthorized(msg string) error {
	return goerrors.New(msg, goerrors.CategoryAuth).
		WithCode(goerrors.CodeUnauthorized).
		WithTextCode(textCodeUnauthorized)
}

func badRequest(msg string) error {
	return goerrors.New(msg, goerrors.CategoryValidation).
		WithCode(goerrors.CodeBadRequest).
		WithTextCode(textCodeBadRequest)
}

func hasCategory(err error, cat goerrors.Category) bool {
	var rich *goerrors.Error
	return goerrors.As(err, &rich) && rich.Category == cat
}

func isNotFound(err error) bool { return hasCategory(err, goerrors.CategoryNotFound) }

// errorStatus maps a categorized error to the response status and message.
// ok is false for anything that is not one of the request-scoped kinds.
func errorStatus(err error) (status int, msg string, ok bool) {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return http.StatusInternalServerError, "internal error", false
	}
	switch rich.Category {
	case goerrors.CategoryNotFound:
		return http.StatusNotFound, rich.Message, true
	case goerrors.CategoryAuthz:
		return http.StatusForbidden, rich.Message, true
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized, rich.Message, true
	case goerrors.CategoryValidation:
		return http.StatusBadRequest, rich.Message, true
	}
	return http.StatusInternalServerError, "internal error", false
}
