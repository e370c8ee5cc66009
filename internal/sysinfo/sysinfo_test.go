package sysinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollect(t *testing.T) {
	s := Collect()
	assert.NotEmpty(t, s.Platform)
	assert.NotEmpty(t, s.CPU)
	assert.NotEmpty(t, s.RAM)
	assert.Contains(t, s.String(), s.CPU)
}
