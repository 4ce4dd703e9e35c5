package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_PrefixesOutputWithTag(t *testing.T) {
	var buf bytes.Buffer
	lg := New("route", &buf)
	lg.Printf("found %d candidates", 3)

	assert.Contains(t, buf.String(), "[route] found 3 candidates")
}

func TestWith_SharesWriterButChangesTag(t *testing.T) {
	var buf bytes.Buffer
	lg := New("route", &buf)
	shove := lg.With("shove")
	shove.Println("displaced seg 4")

	out := buf.String()
	assert.Contains(t, out, "[shove] displaced seg 4")
	assert.False(t, strings.Contains(out, "[route]"))
}

func TestDiscard_WritesNothing(t *testing.T) {
	lg := Discard()
	assert.NotPanics(t, func() { lg.Printf("ignored %s", "message") })
}
