package htmlutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInputValue(t *testing.T) {
	testCases := []struct {
		name     string
		html     string
		expected string
		found    bool
	}{
		{
			name:     "hidden input",
			html:     `<form><input type="hidden" name="csrf_token" value="abc123"></form>`,
			expected: "abc123",
			found:    true,
		},
		{
			name:     "first of many",
			html:     `<input name="csrf_token" value="one"><input name="csrf_token" value="two">`,
			expected: "one",
			found:    true,
		},
		{
			name: "missing input",
			html: `<form><input name="username"></form>`,
		},
		{
			name: "empty value",
			html: `<input name="csrf_token" value="">`,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			doc, err := Parse([]byte(test.html))
			require.NoError(t, err)

			value, found := InputValue(doc, "csrf_token")
			require.Equal(t, test.found, found)
			require.Equal(t, test.expected, value)
		})
	}
}
