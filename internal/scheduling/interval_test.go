package scheduling

import (
	"testing"

	"github.com/Freeeeeet/therapy_scheduler/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b spanArgs
		want bool
	}{
		{"touching is not overlapping", spanArgs{10, 0, 45}, spanArgs{10, 45, 45}, false},
		{"strict overlap", spanArgs{10, 0, 45}, spanArgs{10, 30, 30}, true},
		{"contained", spanArgs{9, 0, 180}, spanArgs{10, 0, 15}, true},
		{"identical", spanArgs{10, 0, 45}, spanArgs{10, 0, 45}, true},
		{"disjoint", spanArgs{8, 0, 30}, spanArgs{11, 0, 30}, false},
		{"one minute overlap", spanArgs{10, 0, 46}, spanArgs{10, 45, 45}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := tt.a.span(), tt.b.span()
			assert.Equal(t, tt.want, Overlaps(a, b))
			// симметричность
			assert.Equal(t, Overlaps(a, b), Overlaps(b, a))
		})
	}
}

func TestSessionsOverlap(t *testing.T) {
	a := session(1, at(20, 9, 0), 45)
	b := session(2, at(20, 9, 45), 45)
	c := session(3, at(20, 9, 30), 45)

	assert.False(t, SessionsOverlap(a, b))
	assert.True(t, SessionsOverlap(a, c))
	assert.True(t, SessionsOverlap(c, b))
}

type spanArgs struct {
	hour, minute, duration int
}

func (s spanArgs) span() model.Span {
	return span(at(19, s.hour, s.minute), s.duration)
}
