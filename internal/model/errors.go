package model

import (
	"errors"
	"fmt"
)

// AppError is a business failure carrying a stable code and the HTTP status it maps to.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any AppError with the same code, so errors.Is(err, ErrNotFound)
// holds for every NotFound(...) instance.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrNotFound              = &AppError{Code: "NOT_FOUND", Message: "not found", Status: 404}
	ErrUnavailable           = &AppError{Code: "UNAVAILABLE", Message: "item is not available", Status: 409}
	ErrInvalidAmount         = &AppError{Code: "INVALID_AMOUNT", Message: "amount must be positive", Status: 400}
	ErrInvalidQuantity       = &AppError{Code: "INVALID_QUANTITY", Message: "quantity must be positive", Status: 400}
	ErrInsufficientInventory = &AppError{Code: "INSUFFICIENT_INVENTORY", Message: "not enough tickets remaining", Status: 409}
	ErrInsufficientBalance   = &AppError{Code: "INSUFFICIENT_BALANCE", Message: "insufficient balance", Status: 402}
	ErrUnauthorized          = &AppError{Code: "UNAUTHORIZED", Message: "resource belongs to another user", Status: 403}
	ErrInvalidTransition     = &AppError{Code: "INVALID_TRANSITION", Message: "status transition not allowed", Status: 409}
	ErrValidation            = &AppError{Code: "VALIDATION_ERROR", Message: "invalid request", Status: 400}
)

func NotFound(entity, id string) *AppError {
	return &AppError{Code: ErrNotFound.Code, Message: fmt.Sprintf("%s %s not found", entity, id), Status: ErrNotFound.Status}
}

func Unavailable(entity, id string) *AppError {
	return &AppError{Code: ErrUnavailable.Code, Message: fmt.Sprintf("%s %s is not available", entity, id), Status: ErrUnavailable.Status}
}

func InvalidTransition(entity string, from, to fmt.Stringer) *AppError {
	return &AppError{
		Code:    ErrInvalidTransition.Code,
		Message: fmt.Sprintf("%s cannot move from %s to %s", entity, from, to),
		Status:  ErrInvalidTransition.Status,
	}
}

func Validation(msg string) *AppError {
	return &AppError{Code: ErrValidation.Code, Message: msg, Status: ErrValidation.Status}
}
