package fcp

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pior/fcp/internal/testutils"
)

const testNode = "node.test:8481"

// recordingLogger keeps every log line for assertions.
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Debugf(format string, v ...any) { l.add("DEBUG", format, v) }
func (l *recordingLogger) Infof(format string, v ...any)  { l.add("INFO", format, v) }
func (l *recordingLogger) Warnf(format string, v ...any)  { l.add("WARN", format, v) }

func (l *recordingLogger) add(level, format string, v []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, v...))
}

func (l *recordingLogger) contains(level, substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.HasPrefix(line, level+" ") && strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func newTestSession(dialer *testutils.ScriptedDialer, options Options) (*Session, *recordingLogger) {
	logger := &recordingLogger{}
	s := NewSession(SessionConfig{
		Node:    testNode,
		Dialer:  dialer,
		Options: options,
		Logger:  logger,
	})
	return s, logger
}

func dataFoundMsg(dataLength, metadataLength int) string {
	return fmt.Sprintf("DataFound\nDataLength=%x\nMetadataLength=%x\nEndMessage\n", dataLength, metadataLength)
}

func chunkMsg(p string) string {
	return fmt.Sprintf("DataChunk\nLength=%x\nData\n%s", len(p), p)
}

// keyResponse is a node answer for a key carrying meta and data, sent as a
// single chunk.
func keyResponse(meta, data string) string {
	resp := dataFoundMsg(len(meta)+len(data), len(meta))
	if len(meta)+len(data) > 0 {
		resp += chunkMsg(meta + data)
	}
	return resp
}

func redirectMetadata(target string) string {
	return "Version\nRevision=1\nEndPart\nDocument\nRedirect.Target=" + target + "\nEnd\n"
}

func clientGetRequest(uri string, htl int) string {
	return fmt.Sprintf("\x00\x00\x00\x02ClientGet\nRemoveLocalKey=false\nURI=%s\nHopsToLive=%x\nEndMessage\n", uri, htl)
}

const (
	restartedMsg     = "Restarted\nTimeout=1388\nEndMessage\n"
	routeNotFoundMsg = "RouteNotFound\nReason=no route\nUnreachable=2\nEndMessage\n"
)
