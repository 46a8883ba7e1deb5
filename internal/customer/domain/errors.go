package domain

import "errors"

var (
	ErrInvalidTenant   = errors.New("invalid_tenant")
	ErrInvalidCustomer = errors.New("invalid_customer")
	ErrNotFound        = errors.New("not_found")
)
