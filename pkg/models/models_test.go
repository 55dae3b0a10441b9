package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAxisString(t *testing.T) {
	for _, tc := range []struct {
		name string
		axis Axis
		want string
	}{
		{"nil", nil, ""},
		{"mixed", Axis{10, 12.5, 0.03125}, "10 12.5 0.03125"},
		{"rounded", Axis{1234.5678}, "1235"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.axis.String())
			assert.Equal(t, tc.want, fmt.Sprintf("%s", tc.axis))
		})
	}
}
