package sources

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnavailable(t *testing.T) {
	err := Unavailable("thingspeak", context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualError(t, err, "thingspeak: data unavailable: context deadline exceeded")

	err = Unavailable("mqtt", nil)
	assert.True(t, errors.Is(err, ErrDataUnavailable))
	assert.EqualError(t, err, "mqtt: data unavailable")
}
