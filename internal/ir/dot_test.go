package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"arkoi/internal/ir"
)

func TestDotRendersClusterPerFunction(t *testing.T) {
	mod := buildAddModule(t)
	out := ir.Dot(mod)
	assert.Contains(t, out, "digraph arkoi")
	assert.Contains(t, out, "cluster_0")
	assert.Contains(t, out, "f0_entry")
}
