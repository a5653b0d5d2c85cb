// Command scribe stores segmented dictation transcripts.
package main

import "github.com/scribe-dev/scribe/internal/cli"

func main() {
	cli.Execute()
}
