package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError marks a collaborator failure that may succeed if repeated
// later: a dropped connection, a locked database, an FTP server busy reply.
type TransientError struct {
	Err error
	// Op names the collaborator call, e.g. "provision" or "upload".
	Op string
}

func (e *TransientError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a TransientError. A nil err stays nil.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err, Op: op}
}

// transientPatterns are lower-case fragments of driver and network error
// messages that indicate a temporary condition.
var transientPatterns = []string{
	"connection reset by peer",
	"connection refused",
	"broken pipe",
	"i/o timeout",
	"no such host",
	"temporary failure in name resolution",
	"database is locked",
	"sqlite_busy",
	"too many connections",
	"the database system is starting up",
	"conn closed",
	"421 ", // FTP service not available
	"425 ", // FTP can't open data connection
	"450 ", // FTP file busy
}

// IsTransient reports whether err, or anything it wraps, is temporary.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
