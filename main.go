// valve throttles a pipe: it copies stdin to stdout under an adjustable
// rate limit with an interactive control surface on the terminal.
package main

import "valve/cmd"

func main() {
	cmd.Execute()
}
