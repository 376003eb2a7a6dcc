package main

import (
	"context"

	"harvest/cmd/harvest-cli/commands"
	"harvest/lib/osutil"
)

func main() {
	ctx, cancel := osutil.SignalContext(context.Background())
	defer cancel()
	commands.ExecuteContext(ctx)
}
