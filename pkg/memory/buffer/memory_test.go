package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindow(t *testing.T) {
	m := Memories{}
	for _, q := range []string{"a", "b", "c", "d"} {
		m.Add(Memory{Question: q, Answer: q + "!"})
	}

	assert.Len(t, m.Window(2), 2)
	assert.Equal(t, "c", m.Window(2)[0].Question)
	assert.Len(t, m.Window(0), 4, "non-positive window keeps everything")
	assert.Len(t, m.Window(10), 4)
}
