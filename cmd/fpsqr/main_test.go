package main

import (
	"bytes"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fps2me/fpsqr/emv"
	"github.com/fps2me/fpsqr/generation"
	"github.com/fps2me/fpsqr/identifier"
)

func runCLI(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(append([]string{"-lang", "en"}, args...), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRunGenerate(t *testing.T) {
	t.Run("should print a verifiable payload", func(t *testing.T) {
		code, stdout, stderr := runCLI("-id", "8613812345678", "-confirm", "+86-13812345678", "-amount", "20", "-currency", "CNY")
		require.Equal(t, exitOK, code, stderr)
		assert.Contains(t, stderr, "Mobile number")

		p, err := emv.Parse(strings.TrimSpace(stdout))
		require.NoError(t, err)
		assert.Equal(t, "+86-13812345678", p.Account)
		assert.Equal(t, generation.CurrencyCNY, p.Currency)
		assert.Equal(t, "20", p.Amount)
	})

	t.Run("should strip non-digits when asked", func(t *testing.T) {
		code, stdout, stderr := runCLI("-digits", "-id", "9123 4567", "-confirm", "9123-4567")
		require.Equal(t, exitOK, code, stderr)
		assert.Contains(t, stdout, "+852-91234567")
	})

	t.Run("should print json", func(t *testing.T) {
		code, stdout, _ := runCLI("-json", "-id", "123456789", "-confirm", "123456789")
		require.Equal(t, exitOK, code)

		var snap generation.Snapshot
		require.NoError(t, json.Unmarshal([]byte(stdout), &snap))
		assert.Equal(t, generation.StateSucceeded, snap.State)
		assert.Equal(t, identifier.KindFPSID, snap.Kind)
	})

	t.Run("should write a png", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "qr.png")
		code, _, stderr := runCLI("-id", "a@b.com", "-confirm", "a@b.com", "-png", path)
		require.Equal(t, exitOK, code, stderr)

		f, err := os.Open(path)
		require.NoError(t, err)
		defer f.Close()
		_, err = png.Decode(f)
		assert.NoError(t, err)
	})

	t.Run("should print a terminal qr code", func(t *testing.T) {
		code, stdout, _ := runCLI("-qr", "-id", "12345678", "-confirm", "12345678")
		require.Equal(t, exitOK, code)
		assert.Greater(t, strings.Count(stdout, "\n"), 10)
	})
}

func TestRunErrors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		code int
		want string
	}{
		{"missing confirm", []string{"-id", "12345678"}, exitUsage, "required"},
		{"mismatch", []string{"-id", "12345678", "-confirm", "12345679"}, exitValidation, "do not match"},
		{"unknown kind", []string{"-id", "hello", "-confirm", "hello"}, exitValidation, "Unrecognised"},
		{"bad amount", []string{"-id", "12345678", "-confirm", "12345678", "-amount", "0"}, exitValidation, "Invalid amount"},
		{"bad currency", []string{"-id", "12345678", "-confirm", "12345678", "-currency", "USD"}, exitValidation, "Unsupported currency"},
		{"encoder failure", []string{"-id", "@", "-confirm", "@"}, exitFailed, "Failed to generate"},
		{"unknown flag", []string{"-nope"}, exitUsage, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			code, _, stderr := runCLI(tc.args...)
			assert.Equal(t, tc.code, code, stderr)
			assert.Contains(t, stderr, tc.want)
		})
	}
}

func TestRunInspect(t *testing.T) {
	_, payload, _ := runCLI("-id", "123456789", "-confirm", "123456789")

	code, stdout, stderr := runCLI("-inspect", strings.TrimSpace(payload))
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, `"account": "123456789"`)

	code, _, stderr = runCLI("-inspect", "000201")
	assert.Equal(t, exitFailed, code)
	assert.Contains(t, stderr, "invalid payload")
}
