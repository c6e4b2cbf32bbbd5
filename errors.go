// SPDX-License-Identifier: GPL-3.0-or-later

package svcres

import (
	"errors"
	"fmt"

	"github.com/bassosimone/svcres/dtab"
)

// EndpointMarkedDownError is returned by [*FailFastFactory.Acquire] when the
// endpoint is currently in the Retrying state. It carries a
// stable Kind so upstream layers (e.g. a load balancer) can recognize it and
// skip the endpoint without counting it as a request-level failure.
type EndpointMarkedDownError struct {
	// HelpURL is a stable link for operator diagnosis.
	HelpURL string
}

// HelpURL used by [NewEndpointMarkedDownError] when none is supplied.
const defaultEndpointMarkedDownHelpURL = "https://github.com/bassosimone/svcres/wiki/EndpointMarkedDown"

// NewEndpointMarkedDownError returns an [*EndpointMarkedDownError] with the
// default help URL.
func NewEndpointMarkedDownError() *EndpointMarkedDownError {
	return &EndpointMarkedDownError{HelpURL: defaultEndpointMarkedDownHelpURL}
}

// Error implements error.
func (e *EndpointMarkedDownError) Error() string {
	return fmt.Sprintf("svcres: endpoint marked down, not retrying yet (see %s)", e.HelpURL)
}

// Kind returns the stable error-kind identifier, independent of e's message.
func (e *EndpointMarkedDownError) Kind() string { return "EndpointMarkedDown" }

// NoBrokersAvailableError is returned when resolving a [dtab.Path] under a
// [dtab.Dtab] yields no bound name.
type NoBrokersAvailableError struct {
	Path      dtab.Path
	LocalDtab dtab.Dtab
}

// Error implements error.
func (e *NoBrokersAvailableError) Error() string {
	if len(e.LocalDtab) == 0 {
		return fmt.Sprintf("svcres: no brokers available for %s", e.Path.String())
	}
	return fmt.Sprintf("svcres: no brokers available for %s (local dtab: %s)", e.Path.String(), e.LocalDtab.String())
}

// Kind returns the stable error-kind identifier.
func (e *NoBrokersAvailableError) Kind() string { return "NoBrokersAvailable" }

// WithLocalDtab returns a copy of e annotated with local: re-raise the
// same error kind annotated with the offending path and the local table.
func (e *NoBrokersAvailableError) WithLocalDtab(local dtab.Dtab) *NoBrokersAvailableError {
	return &NoBrokersAvailableError{Path: e.Path, LocalDtab: local}
}

// ServiceClosedError is returned by any acquire attempted against (or
// queued on) a factory that has been closed.
type ServiceClosedError struct{}

// Error implements error.
func (*ServiceClosedError) Error() string { return "svcres: service closed" }

// Kind returns the stable error-kind identifier.
func (*ServiceClosedError) Kind() string { return "ServiceClosed" }

// CancelledConnectionError wraps the caller's cancellation cause when a
// queued [DynNameFactory] acquire is cancelled before the name resolves.
type CancelledConnectionError struct {
	Cause error
}

// Error implements error.
func (e *CancelledConnectionError) Error() string {
	return fmt.Sprintf("svcres: connection attempt cancelled: %v", e.Cause)
}

// Kind returns the stable error-kind identifier.
func (*CancelledConnectionError) Kind() string { return "CancelledConnection" }

// Unwrap returns the caller's cancellation cause.
func (e *CancelledConnectionError) Unwrap() error { return e.Cause }

// NamingError wraps a reactive-name failure as it flows out of a
// [DynNameFactory], distinguishing a naming-resolution failure from a
// downstream endpoint failure. [*BindingFactory.AcquireWithLocalDtab]
// unwraps it via errors.As before returning to its own caller, so
// callers of [BindingFactory] never observe a *NamingError directly.
type NamingError struct {
	Cause error
}

// Error implements error.
func (e *NamingError) Error() string {
	return fmt.Sprintf("svcres: naming failed: %v", e.Cause)
}

// Unwrap returns the underlying naming failure.
func (e *NamingError) Unwrap() error { return e.Cause }

// kindError is implemented by every error type in this package that
// carries a stable, message-independent identifier.
type kindError interface {
	Kind() string
}

// errKind returns err's stable kind identifier: the Kind() of the first
// error in err's Unwrap chain that implements [kindError], or err.Error()
// if none does.
func errKind(err error) string {
	var ke kindError
	if errors.As(err, &ke) {
		return ke.Kind()
	}
	return err.Error()
}
