package xlimit

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_Classification(t *testing.T) {
	t.Parallel()

	limitErr := fmt.Errorf("call failed: %w", &LimitError{Limit: 1111, Remaining: 0})
	headerErr := &HeaderError{Header: HeaderName, StatusCode: 200}
	valuesErr := &ValuesError{Raw: "x", Missing: []string{LimitKey}}

	assert.True(t, IsDenied(limitErr))
	assert.False(t, IsDenied(headerErr))
	assert.False(t, IsProtocolError(limitErr))
	assert.True(t, IsProtocolError(headerErr))
	assert.True(t, IsProtocolError(valuesErr))
	assert.False(t, IsDenied(errors.New("other")))

	var le *LimitError
	assert.True(t, errors.As(limitErr, &le))
	assert.Equal(t, 1111, le.Limit)
	assert.False(t, le.Retryable())
	assert.False(t, headerErr.Retryable())

	assert.Equal(t, "xlimit: rate limit exceeded, remaining=0 of 1111", le.Error())
	assert.Contains(t, headerErr.Error(), `"x-rate-limit"`)
}
