package sink

import (
	"context"
	"errors"
	"time"

	"github.com/nordichpc/sonar/pkg/sonarerrors"
)

// Kind names which of the four data kinds a Record carries; used to build
// directory-sink file names and broker topics.
type Kind string

const (
	KindSample  Kind = "sample"
	KindSysinfo Kind = "sysinfo"
	KindJobs    Kind = "jobs"
	KindCluster Kind = "cluster"
)

// Record is one already-serialized envelope plus the routing metadata every
// sink needs, matching spec.md §4.6's write(envelope, {kind, node, time})
// contract. Producers marshal their own Envelope[T]; the sink never knows
// the generic payload type, only its bytes.
type Record struct {
	Kind    Kind
	Node    string
	Cluster string
	Time    time.Time
	// Ext is the file extension of the encoding; the probe wrapper always
	// sets "json" (the newfmt wire format). No CSV emitter exists.
	Ext     string
	Payload []byte
}

// Sink is the common contract every delivery target implements. Write must
// be safe to call from the scheduler's probe goroutines; blocking is
// permitted but implementations must honour ctx and return promptly with a
// retryable error on cancellation (spec.md §4.7's 1s suspension-point rule).
type Sink interface {
	Write(ctx context.Context, rec Record) error
	Close() error
}

// retryableKey is the StructuredError context key IsRetryable inspects.
const retryableKey = "retryable"

// retryableError wraps cause as a sink failure the caller should retry
// (spec.md §6's SinkError{retryable}).
func retryableError(op string, cause error) error {
	return sonarerrors.WrapWithContext(sonarerrors.ErrCodeSink, op, cause, map[string]any{retryableKey: true})
}

// terminalError wraps cause as a sink failure that will never succeed on
// retry (e.g. a 4xx rejection other than 408/413/429).
func terminalError(op string, cause error) error {
	return sonarerrors.WrapWithContext(sonarerrors.ErrCodeSink, op, cause, map[string]any{retryableKey: false})
}

// IsRetryable reports whether err (if it carries sink classification) should
// be retried rather than treated as a permanent delivery failure.
func IsRetryable(err error) bool {
	var se *sonarerrors.StructuredError
	if !errors.As(err, &se) {
		return false
	}
	v, _ := se.Context[retryableKey].(bool)
	return v
}
