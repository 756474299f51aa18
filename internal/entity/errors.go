package entity

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrTransfer      = errors.New("transfer failed")
	ErrRateNotFound  = errors.New("rate not found")
	ErrMalformedData = errors.New("malformed data")
)

type TransferError struct {
	URL string
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer %s: %v", e.URL, e.Err)
}

func (e *TransferError) Unwrap() []error { return []error{ErrTransfer, e.Err} }

type RateNotFoundError struct {
	Currency string
	Date     time.Time
}

func (e *RateNotFoundError) Error() string {
	return fmt.Sprintf("rate not found for currency %s on %s (bad code, date too old, offline/not cached)",
		e.Currency, e.Date.Format(DateFormat))
}

func (e *RateNotFoundError) Unwrap() error { return ErrRateNotFound }

type MalformedDataError struct {
	What string
	Err  error
}

func (e *MalformedDataError) Error() string {
	if e.Err == nil {
		return "malformed data: " + e.What
	}
	return fmt.Sprintf("malformed data: %s: %v", e.What, e.Err)
}

func (e *MalformedDataError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedData}
	}
	return []error{ErrMalformedData, e.Err}
}
