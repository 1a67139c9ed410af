package port

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, c *Chan) string {
	t.Helper()
	<-c.Done()
	var b strings.Builder
	for {
		v, ok := c.PollByte()
		if !ok {
			return b.String()
		}
		b.WriteByte(v)
	}
}

func TestChan(t *testing.T) {
	c := NewChan(strings.NewReader("help\r"))
	assert.Equal(t, "help\r", drain(t, c))
	assert.ErrorIs(t, c.Err(), io.EOF)
	_, ok := c.PollByte()
	assert.False(t, ok)
}

func TestChan_Keys(t *testing.T) {
	var mx sync.Mutex
	var got []byte
	c := NewChan(strings.NewReader("te\x03mp\x04\r"), WithKeys(func(b byte) {
		mx.Lock()
		got = append(got, b)
		mx.Unlock()
	}, KeyInterrupt, KeyEOF))
	assert.Equal(t, "temp\r", drain(t, c))
	mx.Lock()
	defer mx.Unlock()
	assert.Equal(t, []byte{KeyInterrupt, KeyEOF}, got)
}

func TestChan_FullQueueKeepsKeys(t *testing.T) {
	var mx sync.Mutex
	var got []byte
	input := strings.Repeat("x", 300) + "\x03"
	c := NewChan(strings.NewReader(input), WithDepth(4), WithKeys(func(b byte) {
		mx.Lock()
		got = append(got, b)
		mx.Unlock()
	}, KeyInterrupt))
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("reader blocked on a full queue")
	}
	mx.Lock()
	assert.Equal(t, []byte{KeyInterrupt}, got)
	mx.Unlock()
	assert.Equal(t, "xxxx", drain(t, c))
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestChan_Error(t *testing.T) {
	boom := errors.New("device gone")
	c := NewChan(failingReader{boom})
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("reader did not stop")
	}
	assert.ErrorIs(t, c.Err(), boom)
}

func TestChan_EmptyPoll(t *testing.T) {
	pr, pw := io.Pipe()
	c := NewChan(pr, WithDepth(4))
	_, ok := c.PollByte()
	assert.False(t, ok)
	_, err := pw.Write([]byte("ab"))
	require.NoError(t, err)
	require.NoError(t, pw.Close())
	assert.Equal(t, "ab", drain(t, c))
}

func TestCRLF(t *testing.T) {
	tests := []struct {
		name   string
		writes []string
		out    string
	}{
		{"plain", []string{"abc"}, "abc"},
		{"bare newline", []string{"a\nb\n"}, "a\r\nb\r\n"},
		{"already crlf", []string{"a\r\nb"}, "a\r\nb"},
		{"prompt", []string{"\n>"}, "\r\n>"},
		{"split crlf", []string{"a\r", "\nb"}, "a\r\nb"},
		{"split bare", []string{"a", "\n"}, "a\r\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewCRLF(&buf)
			for _, s := range test.writes {
				n, err := w.Write([]byte(s))
				require.NoError(t, err)
				assert.Equal(t, len(s), n)
			}
			assert.Equal(t, test.out, buf.String())
		})
	}
}

type quietReader struct {
	reads [][]byte
}

func (q *quietReader) Read(b []byte) (int, error) {
	if len(q.reads) == 0 {
		return 0, io.ErrClosedPipe
	}
	next := q.reads[0]
	q.reads = q.reads[1:]
	if next == nil {
		return 0, io.EOF
	}
	return copy(b, next), nil
}

func TestTimeoutReader(t *testing.T) {
	r := timeoutReader{&quietReader{reads: [][]byte{nil, nil, []byte("ok"), nil}}}
	buf := make([]byte, 8)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(buf[:n]))
	_, err = r.Read(buf)
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}
