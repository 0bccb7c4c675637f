package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurations(t *testing.T) {
	i, d, s := "250ms", "3s", "1m"
	interval, deadline, steady, err := durations(&mainArgs{interval: &i, deadline: &d, steady: &s})
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, interval)
	assert.Equal(t, 3*time.Second, deadline)
	assert.Equal(t, time.Minute, steady)

	bad := "soon"
	_, _, _, err = durations(&mainArgs{interval: &i, deadline: &bad, steady: &s})
	assert.Error(t, err)
}
