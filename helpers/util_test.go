package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitRight(t *testing.T) {
	testCases := []struct {
		input    string
		n        int
		expected []string
		wantErr  bool
	}{
		{"Woburn MA 01801", 3, []string{"Woburn", "MA", "01801"}, false},
		{"North  Andover MA 01845", 3, []string{"North Andover", "MA", "01845"}, false},
		{"  Boston   MA   02116 ", 3, []string{"Boston", "MA", "02116"}, false},
		{"MA 01801", 3, nil, true},
		{"", 3, nil, true},
		{"a b", 0, nil, true},
	}

	for _, tc := range testCases {
		parts, err := SplitRight(tc.input, tc.n)
		if tc.wantErr {
			assert.Error(t, err, tc.input)
			continue
		}
		assert.NoError(t, err, tc.input)
		assert.Equal(t, tc.expected, parts)
	}
}
