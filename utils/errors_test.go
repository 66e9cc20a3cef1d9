package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(NotFoundf("gone")))
	assert.Equal(t, CodePermissionDenied, CodeOf(PermissionDeniedf("no")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain error")))

	// Wrapped AppErrors keep their code through the chain.
	wrapped := fmt.Errorf("handler: %w", AlreadyExistsf("dup"))
	assert.Equal(t, CodeAlreadyExists, CodeOf(wrapped))
}

func TestInternalfUnwraps(t *testing.T) {
	cause := errors.New("socket closed")
	err := Internalf(cause, "failed to talk to storage")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to talk to storage")
	assert.Contains(t, err.Error(), "socket closed")
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodePermissionDenied, http.StatusForbidden},
		{CodeInvalidArgument, http.StatusBadRequest},
		{CodeFailedPrecondition, http.StatusPreconditionFailed},
		{CodeResourceExhausted, http.StatusInsufficientStorage},
		{CodeAlreadyExists, http.StatusConflict},
		{CodeInternal, http.StatusInternalServerError},
		{ErrorCode("unknown"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.code), string(tt.code))
	}
}
