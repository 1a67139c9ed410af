package console

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// Exit ends the command with code; the message is colored like every other
// CLI error.
func Exit(code int, msg string, args ...any) cli.ExitCoder {
	return cli.Exit(fmt.Sprintf("%s: %s", Red("ERROR"), fmt.Sprintf(msg, args...)), code)
}
