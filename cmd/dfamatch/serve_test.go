package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockedBuffer is written by the server goroutine and read by the test.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServeCommand_Exists(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"serve"})
	assert.NoError(t, err)
	assert.Equal(t, "serve", cmd.Name())
}

func TestServeCommand_Integration(t *testing.T) {
	serveMachinesPath = ""
	pr, pw := io.Pipe()
	out := &lockedBuffer{}

	testCmd := &cobra.Command{Use: "serve", RunE: runServe}
	testCmd.SetIn(pr)
	testCmd.SetOut(out)
	testCmd.SetErr(io.Discard)
	testCmd.SetArgs([]string{})

	done := make(chan error, 1)
	go func() {
		done <- testCmd.Execute()
	}()

	_, err := pw.Write([]byte(`{"type":"scan","payload":{"content":"pi is 3.14","source":"note"}}` + "\n"))
	require.NoError(t, err)
	_, err = pw.Write([]byte(`{"type":"close","payload":{}}` + "\n"))
	require.NoError(t, err)
	pw.Close()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(20 * time.Second):
		t.Fatal("command did not exit in time")
	}

	var kinds []string
	scanner := bufio.NewScanner(bytes.NewBufferString(out.String()))
	for scanner.Scan() {
		var resp struct {
			Type    string `json:"type"`
			Success bool   `json:"success"`
		}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
		assert.True(t, resp.Success, scanner.Text())
		kinds = append(kinds, resp.Type)
	}
	assert.Equal(t, []string{"ready", "scan"}, kinds)
	assert.Contains(t, out.String(), "dfa.number.1")
}

func TestServeCommand_MissingMachinesFile(t *testing.T) {
	serveMachinesPath = "/nonexistent/machines.yml"
	defer func() { serveMachinesPath = "" }()

	cmd, _, _ := newTestCmd()
	cmd.SetIn(bytes.NewReader(nil))
	err := runServe(cmd, nil)
	assert.ErrorContains(t, err, "reading machines")
}
