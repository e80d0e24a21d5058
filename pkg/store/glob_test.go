package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchGlobRequiresOneOrMoreForStar(t *testing.T) {
	assert.True(t, MatchGlob("lib*", "libfoo"))
	assert.False(t, MatchGlob("lib*", "lib"))
	assert.True(t, MatchGlob("*foo*", "xfoox"))
	assert.False(t, MatchGlob("[", "anything"))
}
