package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabTestDurationMinutes(t *testing.T) {
	ptr := func(s string) *string { return &s }
	cases := []struct {
		duration *string
		want     int
	}{
		{nil, 1},
		{ptr("30"), 30},
		{ptr("00:30"), 30},
		{ptr("30 min"), 30},
		{ptr("soon"), 1},
	}
	for _, tc := range cases {
		test := LabTest{Name: "cbc", Category: TestCategoryNormal, Duration: tc.duration}
		assert.Equal(t, tc.want, test.DurationMinutes())
	}
}
