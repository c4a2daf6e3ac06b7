package main

import (
	"context"
	"log/slog"
	"os"
)

// App is the process-wide application instance, referenced from the command
// action funcs.
var App *SplitApp

func main() {
	App = initApp()

	err := App.cliCmd.Run(context.Background(), os.Args)
	if err != nil {
		slog.Error("Error", "msg", err)
		os.Exit(1)
	}
}
