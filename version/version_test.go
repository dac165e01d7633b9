package version

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFprintVersion(t *testing.T) {
	var buf bytes.Buffer
	FprintVersion(&buf)

	fields := strings.Fields(buf.String())
	assert.Contains(t, fields, Package)
	assert.Contains(t, fields, Version)
}

func TestVersionCmd(t *testing.T) {
	var buf bytes.Buffer
	Cmd.SetOut(&buf)
	Cmd.Run(Cmd, nil)
	assert.Contains(t, buf.String(), Version)
}
