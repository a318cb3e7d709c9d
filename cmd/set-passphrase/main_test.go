package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptTwice(t *testing.T) {
	var out bytes.Buffer
	got, err := promptTwice(strings.NewReader("s3cret\ns3cret\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)
	assert.Contains(t, out.String(), "Repeat passphrase")
}

func TestPromptTwiceMismatch(t *testing.T) {
	_, err := promptTwice(strings.NewReader("one\ntwo\n"), &bytes.Buffer{})
	assert.EqualError(t, err, "passphrases do not match")
}

func TestPromptTwiceWithoutTrailingNewline(t *testing.T) {
	got, err := promptTwice(strings.NewReader("abcd\nabcd"), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "abcd", got)
}

func TestRunRejectsBlankPassphrase(t *testing.T) {
	err := run(nil, strings.NewReader("  \n  \n"), &bytes.Buffer{}, &bytes.Buffer{})
	assert.EqualError(t, err, "passphrase cannot be empty")
}
