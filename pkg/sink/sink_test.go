package sink

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryableClassifiesWrappedErrors(t *testing.T) {
	cause := errors.New("connection reset")
	assert.True(t, IsRetryable(retryableError("post", cause)))
	assert.False(t, IsRetryable(terminalError("post", cause)))
	assert.False(t, IsRetryable(cause))
}
