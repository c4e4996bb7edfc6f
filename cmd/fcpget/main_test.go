package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNode answers each connection with the next scripted response and
// records the URI of each request.
type fakeNode struct {
	listener  net.Listener
	responses []string
	uris      chan string
}

func startFakeNode(t *testing.T, responses ...string) *fakeNode {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	n := &fakeNode{listener: l, responses: responses, uris: make(chan string, len(responses))}
	go n.serve()
	t.Cleanup(func() { _ = l.Close() })
	return n
}

func (n *fakeNode) addr() string {
	return n.listener.Addr().String()
}

func (n *fakeNode) serve() {
	for _, response := range n.responses {
		conn, err := n.listener.Accept()
		if err != nil {
			return
		}
		n.handle(conn, response)
	}
}

func (n *fakeNode) handle(conn net.Conn, response string) {
	defer conn.Close()
	r := bufio.NewReader(conn)

	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return
	}
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSuffix(line, "\n")
		if uri, ok := strings.CutPrefix(line, "URI="); ok {
			n.uris <- uri
		}
		if line == "EndMessage" {
			break
		}
	}
	_, _ = io.WriteString(conn, response)
}

func keyResponse(meta, data string) string {
	resp := fmt.Sprintf("DataFound\nDataLength=%x\nMetadataLength=%x\nEndMessage\n", len(meta)+len(data), len(meta))
	if len(meta)+len(data) > 0 {
		resp += fmt.Sprintf("DataChunk\nLength=%x\nData\n%s", len(meta)+len(data), meta+data)
	}
	return resp
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestFetchToStdout(t *testing.T) {
	redirect := "Version\nRevision=1\nEndPart\nDocument\nRedirect.Target=freenet:CHK@abc,def\nEnd\n"
	node := startFakeNode(t, keyResponse(redirect, ""), keyResponse("", "hello from freenet\n"))

	stdout, stderr, err := execute(t, "--node", node.addr(), "KSK@gpl.txt")
	require.NoError(t, err)

	assert.Equal(t, "hello from freenet\n", stdout)
	assert.Contains(t, stderr, "fetched")
	assert.Equal(t, "freenet:KSK@gpl.txt", <-node.uris)
	assert.Equal(t, "freenet:CHK@abc,def", <-node.uris)
}

func TestFetchToFiles(t *testing.T) {
	dir := t.TempDir()
	md := "Version\nRevision=1\nEndPart\nDocument\nInfo.Format=text/plain\nEnd\n"
	node := startFakeNode(t, keyResponse(md, "payload"))

	dataPath := filepath.Join(dir, "data")
	metaPath := filepath.Join(dir, "meta")
	metricsPath := filepath.Join(dir, "fcp.prom")

	_, _, err := execute(t,
		"--node", node.addr(),
		"-o", dataPath,
		"--metadata-output", metaPath,
		"--metrics-file", metricsPath,
		"freenet:KSK@doc")
	require.NoError(t, err)

	data, err := os.ReadFile(dataPath)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	meta, err := os.ReadFile(metaPath)
	require.NoError(t, err)
	assert.Equal(t, md, string(meta))

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "fcp_fetches_total 1")
}

func TestFetchNotFound(t *testing.T) {
	node := startFakeNode(t, "DataNotFound\nEndMessage\n")

	_, stderr, err := execute(t, "--node", node.addr(), "freenet:KSK@missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DataNotFound")
	assert.Contains(t, stderr, "fetch failed")
}

func TestFetchRequiresURI(t *testing.T) {
	_, _, err := execute(t)
	require.Error(t, err)
}

func TestFetchWithConfigFile(t *testing.T) {
	node := startFakeNode(t, keyResponse("", "configured"))

	path := filepath.Join(t.TempDir(), "fcpget.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("nodes: [%q]\nhops_to_live: 3\n", node.addr())), 0o600))

	stdout, _, err := execute(t, "--config", path, "freenet:KSK@x")
	require.NoError(t, err)
	assert.Equal(t, "configured", stdout)
}
