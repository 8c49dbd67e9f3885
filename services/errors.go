package services

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

type ErrorKind string

const (
	KindNotFound          ErrorKind = "not_found"
	KindInvalidState      ErrorKind = "invalid_state"
	KindInsufficientStock ErrorKind = "insufficient_stock"
	KindDiscountRejected  ErrorKind = "discount_rejected"
	KindValidation        ErrorKind = "validation_error"
)

// DiscountReason narrows a KindDiscountRejected error.
type DiscountReason string

const (
	ReasonInactive           DiscountReason = "inactive"
	ReasonNotStarted         DiscountReason = "not_started"
	ReasonExpired            DiscountReason = "expired"
	ReasonUsageExhausted     DiscountReason = "usage_exhausted"
	ReasonBelowMinimum       DiscountReason = "below_minimum_order"
	ReasonProductScope       DiscountReason = "scope_product"
	ReasonCategoryScope      DiscountReason = "scope_category"
	ReasonTierScope          DiscountReason = "scope_tier"
	ReasonRoleScope          DiscountReason = "scope_role"
	ReasonFreeProductMissing DiscountReason = "free_product_missing"
)

type Error struct {
	Kind    ErrorKind
	Reason  DiscountReason
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState, KindInsufficientStock:
		return http.StatusConflict
	case KindDiscountRejected:
		return http.StatusUnprocessableEntity
	case KindValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func notFound(entity string, id uint) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s %d not found", entity, id),
		Details: map[string]any{"entity": entity, "id": id},
	}
}

func invalidState(message string, details map[string]any) *Error {
	return &Error{Kind: KindInvalidState, Message: message, Details: details}
}

func validationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func insufficientStock(productID uint, name string, requested, available int) *Error {
	return &Error{
		Kind:    KindInsufficientStock,
		Message: fmt.Sprintf("insufficient stock for %s: requested %d, available %d", name, requested, available),
		Details: map[string]any{"product_id": productID, "requested": requested, "available": available},
	}
}

func discountRejected(reason DiscountReason, message string, details map[string]any) *Error {
	return &Error{Kind: KindDiscountRejected, Reason: reason, Message: message, Details: details}
}

// IsKind reports whether err is a service error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var svcErr *Error
	return errors.As(err, &svcErr) && svcErr.Kind == kind
}

// DiscountReasonOf returns the rejection reason carried by err, if any.
func DiscountReasonOf(err error) DiscountReason {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Reason
	}
	return ""
}

// findOrNotFound loads one row by primary key and maps a missing row to KindNotFound.
func findOrNotFound(tx *gorm.DB, dest interface{}, entity string, id uint) error {
	if err := tx.First(dest, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(entity, id)
		}
		return fmt.Errorf("load %s %d: %w", entity, id, err)
	}
	return nil
}
