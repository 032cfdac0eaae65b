package helpers

import (
	"errors"
	"strings"
)

// SplitRight splits target on whitespace from the right into at most n
// parts, keeping the leftover prefix (with its inner spaces) as the first
// part. It returns an error when fewer than n parts exist.
func SplitRight(target string, n int) ([]string, error) {
	fields := strings.Fields(target)
	if n <= 0 || len(fields) < n {
		return nil, errors.New("not enough parts")
	}
	head := strings.Join(fields[:len(fields)-n+1], " ")
	return append([]string{head}, fields[len(fields)-n+1:]...), nil
}
