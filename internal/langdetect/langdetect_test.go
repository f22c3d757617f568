package langdetect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect_English(t *testing.T) {
	tag := Detect("this is the best support team and the fastest response")
	assert.Equal(t, "en", tag)
}

func TestDetect_EmptyInput(t *testing.T) {
	assert.Equal(t, "", Detect(""))
}

func TestDetect_NonLatinScriptReturnsUnknown(t *testing.T) {
	tag := Detect("これはテストです")
	assert.Equal(t, "", tag)
}

func TestIsEnglish(t *testing.T) {
	assert.True(t, IsEnglish(""))
	assert.True(t, IsEnglish("en"))
	assert.False(t, IsEnglish("fr"))
}
