package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindTransient
	KindPermanent
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Error carries a transience decision made where the failure happened.
type Error struct {
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.StatusCode > 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s (http %d): %v", e.Kind, e.StatusCode, e.Err)
		}
		return fmt.Sprintf("%s: http %d %s", e.Kind, e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func Transient(err error) error {
	return &Error{Kind: KindTransient, Err: err}
}

func Permanent(err error) error {
	return &Error{Kind: KindPermanent, Err: err}
}

// FromStatus tags an upstream HTTP failure; 502/503/504 are transient.
func FromStatus(status int, err error) error {
	kind := KindPermanent
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		kind = KindTransient
	}
	return &Error{Kind: kind, StatusCode: status, Err: err}
}

// sqlStater matches driver errors such as *pgconn.PgError.
type sqlStater interface {
	SQLState() string
}

// Classify walks the chain for a typed signal.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var re *Error
	if errors.As(err, &re) && re.Kind != KindUnknown {
		return re.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindPermanent
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EPIPE) {
		return KindTransient
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTransient
	}
	var st sqlStater
	if errors.As(err, &st) {
		return classifySQLState(st.SQLState())
	}
	return KindPermanent
}

func IsTransient(err error) bool {
	return Classify(err) == KindTransient
}

// Class 08 is connection exceptions; 57P01-57P03 are admin/crash shutdowns;
// 40001/40P01 are serialization failure and deadlock.
func classifySQLState(code string) Kind {
	if len(code) < 2 {
		return KindPermanent
	}
	switch {
	case code[:2] == "08":
		return KindTransient
	case code == "57P01", code == "57P02", code == "57P03":
		return KindTransient
	case code == "40001", code == "40P01":
		return KindTransient
	}
	return KindPermanent
}
