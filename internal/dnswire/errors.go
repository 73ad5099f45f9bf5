// Package dnswire implements the DNS wire-format codec: header, question and
// resource-record parsing/serialization, domain-name compression, and
// presentation-form IPv4/IPv6 parsing (RFC 1035, RFC 3596).
//
// Every error returned from this package wraps ErrWireFormat so callers can
// distinguish protocol violations from other failure modes with errors.Is.
package dnswire

import "errors"

// ErrWireFormat is the sentinel error for DNS wire-format violations.
// Wrap it with fmt.Errorf("context: %w", ErrWireFormat) to add detail.
var ErrWireFormat = errors.New("dns wire error")
