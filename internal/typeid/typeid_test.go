package typeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDsCarryPrefix(t *testing.T) {
	id := NewArrowID()
	require.NoError(t, Validate(id, PrefixArrow))
	assert.Equal(t, PrefixArrow, Prefix(id))
	assert.NotEqual(t, id, NewArrowID())
}

func TestValidateRejectsWrongPrefix(t *testing.T) {
	err := Validate(NewBoxID(), PrefixComment)
	assert.ErrorContains(t, err, `expected prefix "cmt"`)

	assert.Error(t, Validate("not an id", PrefixBox))
	assert.Empty(t, Prefix("not an id"))
}
