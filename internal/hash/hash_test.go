package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContent(t *testing.T) {
	t.Parallel()

	digest := Content("hello world")
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", digest)
	assert.Equal(t, digest, Content("hello world"), "digest must be deterministic")
	assert.NotEqual(t, digest, Content("hello worlds"))
}

func TestContentEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Content(""))
}
