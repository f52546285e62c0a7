package main

import (
	"context"

	"amowidget/cmd/amowidget/commands"
	"amowidget/lib/osutil"
)

func main() {
	ctx, cancel := osutil.SignalContext(context.Background())
	defer cancel()

	commands.ExecuteContext(ctx)
}
