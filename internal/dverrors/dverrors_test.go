package dverrors

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		status int
		want   interface{}
	}{
		{400, &ValidationError{}},
		{401, &AuthError{}},
		{403, &AuthError{}},
		{404, &NotFoundError{}},
		{429, &RateLimitError{}},
		{500, &TransportError{}},
		{418, &TransportError{}},
	}

	for _, c := range cases {
		err := ClassifyStatus(c.status, "body")
		require.IsType(t, c.want, err)
	}
}

func TestRetryable(t *testing.T) {
	require.True(t, Retryable(&TransportError{}))
	require.True(t, Retryable(&RateLimitError{}))
	require.False(t, Retryable(&ValidationError{}))
	require.False(t, Retryable(&AuthError{}))
	require.False(t, Retryable(&NotFoundError{}))
}

func TestIsZipLimit(t *testing.T) {
	require.True(t, IsZipLimit(&ValidationError{Message: ZipLimitPrefix + ": 42"}))
	require.False(t, IsZipLimit(&ValidationError{Message: "some other validation failure"}))
	require.False(t, IsZipLimit(&TransportError{}))
}
