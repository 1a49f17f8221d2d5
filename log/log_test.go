package log

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

var (
	sampleIndex    = 3
	sampleDigest   = []byte("123")
	sampleTally    = []int64{10, 0, 200}
	sampleDuration = time.Second
	sampleTime     = time.Unix(12345678, 0)

	errSample = errors.New("some error")
)

func doLogs() {
	Infof("verified batch %d of round %x", sampleIndex, sampleDigest)
	Debugw("tally hash published", "round", "abc123", "digest", "0x01")
	Errorf("cannot commit claim: %v", errSample)
	Warnw("various types",
		"tally", sampleTally,
		"duration", sampleDuration,
		"time", sampleTime,
	)
	Error(errSample)
}

func TestCheckInvalidChars(t *testing.T) {
	t.Cleanup(func() { panicOnInvalidChars = false })

	v := []byte{'h', 'e', 'l', 'l', 'o', 0xff, 'w', 'o', 'r', 'l', 'd'}
	panicOnInvalidChars = false
	Init("debug", "stderr", nil)
	Debugf("%s", v)
	// should not panic since env var is false. if it panics, test will fail

	// now enable panic and try again: should recover() and never reach t.Errorf()
	panicOnInvalidChars = true
	Init("debug", "stderr", nil)
	defer func() { recover() }()
	Debugf("%s", v)
	t.Errorf("Debugf(%s) should have panicked because of invalid char", v)
}

func TestLevelFiltering(t *testing.T) {
	c := qt.New(t)
	t.Cleanup(func() { Init(LogLevelError, "stderr", nil) })

	buf := new(bytes.Buffer)
	logTestWriter = buf
	Init(LogLevelWarn, logTestWriterName, nil)
	c.Assert(Level(), qt.Equals, LogLevelWarn)

	buf.Reset()
	Infow("hidden", "k", 1)
	c.Assert(buf.Len(), qt.Equals, 0)

	Warnw("visible", "round", "r1")
	c.Assert(strings.Contains(buf.String(), "visible"), qt.IsTrue)
	c.Assert(strings.Contains(buf.String(), "r1"), qt.IsTrue)
}

func TestErrorOutput(t *testing.T) {
	c := qt.New(t)
	t.Cleanup(func() { Init(LogLevelError, "stderr", nil) })

	logTestWriter = io.Discard
	errBuf := new(bytes.Buffer)
	Init(LogLevelDebug, logTestWriterName, errBuf)

	Infow("not an error")
	c.Assert(errBuf.Len(), qt.Equals, 0)
	Errorw(errSample, "failed")
	c.Assert(strings.Contains(errBuf.String(), "some error"), qt.IsTrue)
}

func BenchmarkLogger(b *testing.B) {
	logTestWriter = io.Discard // to not grow a buffer
	Init("debug", logTestWriterName, nil)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		doLogs()
	}
}
