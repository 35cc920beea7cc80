package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<p>Hello</p>", "Hello"},
		{"<strong>Trip Cost</strong><br/><ul>\n<li>Budget: 10 &euro;</li></ul>", "Trip Cost Budget: 10 €"},
		{"  plain   text ", "plain text"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripHTML(tt.in))
	}
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "ab\ncd", SanitizeString("a\x00b\ncd\x7f"))
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(0))
	assert.NoError(t, ValidateAmount(125.5))
	assert.Error(t, ValidateAmount(-1))
	assert.Error(t, ValidateAmount(math.NaN()))
	assert.Error(t, ValidateAmount(math.Inf(1)))
}
