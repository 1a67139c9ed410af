package cmdline

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queue is a Source that hands out a fixed byte sequence.
type queue struct {
	mu   sync.Mutex
	data []byte
}

func (q *queue) push(s string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.data = append(q.data, s...)
}

func (q *queue) PollByte() (byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return 0, false
	}
	b := q.data[0]
	q.data = q.data[1:]
	return b, true
}

func echoCommand() Command {
	return Command{Name: "echo", MinWords: 1, Handler: HandlerFunc(func(_ context.Context, c *Console) (int, error) {
		c.Printf("[%s]", strings.Join(c.Args()[1:], "|"))
		return 0, nil
	})}
}

func TestConsole_LineEditing(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple line", "echo a b\r", "echo a b\n[a|b]\n>"},
		{"line feed", "echo\n", "echo\n[]\n>"},
		{"empty line", "\r", "\n>"},
		{"backspace", "echo ax\bb\r", "echo ax\b \bb\n[ab]\n>"},
		{"delete key", "echo ax\x7fb\r", "echo ax\b \bb\n[ab]\n>"},
		{"backspace at start ignored", "\b\becho\r", "echo\n[]\n>"},
		{"non printable dropped", "ec\x01h\x1bo\x80\r", "echo\n[]\n>"},
		{"quoted argument", "echo \"x y\"\r", "echo \"x y\"\n[x y]\n>"},
		{"unknown command", "nope\r", "nope\nCommand \"nope\" not found\r\n\n>"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			src := &queue{}
			src.push(test.input)
			c, out := newTestConsole(src, echoCommand())
			assert.True(t, c.Poll(context.Background()))
			assert.Equal(t, test.expected, out.String())
		})
	}
}

func TestConsole_Overflow(t *testing.T) {
	src := &queue{}
	src.push("echo " + strings.Repeat("z", 40) + "\r")
	var got []string
	cmd := Command{Name: "echo", MinWords: 1, Handler: HandlerFunc(func(_ context.Context, c *Console) (int, error) {
		got = c.Args()
		return 0, nil
	})}
	c, _ := newTestConsole(src, cmd)
	WithBufferSize(16)(c)
	c.Poll(context.Background())
	// 15 bytes fit next to the terminator
	assert.Equal(t, []string{"echo", strings.Repeat("z", 10)}, got)
}

func TestConsole_OneLinePerPoll(t *testing.T) {
	src := &queue{}
	src.push("echo 1\recho 2\r")
	c, out := newTestConsole(src, echoCommand())
	ctx := context.Background()
	assert.True(t, c.Poll(ctx))
	assert.Equal(t, "echo 1\n[1]\n>", out.String())
	assert.True(t, c.Poll(ctx))
	assert.False(t, c.Poll(ctx))
	assert.Equal(t, "echo 1\n[1]\n>echo 2\n[2]\n>", out.String())
}

func TestConsole_PartialLineSurvivesPolls(t *testing.T) {
	src := &queue{}
	c, out := newTestConsole(src, echoCommand())
	ctx := context.Background()
	src.push("ech")
	assert.False(t, c.Poll(ctx))
	src.push("o q\r")
	assert.True(t, c.Poll(ctx))
	assert.Equal(t, "echo q\n[q]\n>", out.String())
}

func TestConsole_StartAndReset(t *testing.T) {
	src := &queue{}
	c, out := newTestConsole(src, echoCommand())
	c.Start()
	assert.Equal(t, "\nbanner\n>", out.String())
	out.Reset()
	src.push("garbage")
	c.Poll(context.Background())
	c.Reset()
	src.push("\r")
	c.Poll(context.Background())
	assert.Equal(t, "garbage\nbanner\n>\n>", out.String())
}

func TestConsole_DefaultBanner(t *testing.T) {
	lines := DefaultBanner("Feb 17 2020")
	assert.Equal(t, []string{
		"Command Line parser, Feb 17 2020",
		`Enter "help" or "?" for list of commands`,
	}, lines)
}

func TestConsole_Interrupt(t *testing.T) {
	started := make(chan struct{})
	cmd := Command{Name: "block", MinWords: 1, Handler: HandlerFunc(func(ctx context.Context, c *Console) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	})}
	c, _ := newTestConsole(nil, cmd)
	assert.False(t, c.Interrupt())
	go func() {
		<-started
		c.Interrupt()
	}()
	_, err := c.Execute(context.Background(), "block")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, c.Interrupt())
}

func TestConsole_Run(t *testing.T) {
	src := &queue{}
	src.push("echo hi\r")
	c, out := newTestConsole(src, echoCommand())
	WithInterval(time.Millisecond)(c)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	idles := 0
	err := c.Run(ctx, func(ctx context.Context) {
		idles++
		if idles == 3 {
			cancel()
		}
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, idles)
	assert.Equal(t, "\nbanner\n>echo hi\n[hi]\n>", out.String())
}
