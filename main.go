/*
This is an example of application that will use the
engine package to render the testbed frame graph headlessly
*/
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/anima-framegraph/engine"
	"github.com/spaghettifunk/anima-framegraph/engine/config"
	"github.com/spaghettifunk/anima-framegraph/testbed"
)

func main() {
	tb, err := testbed.NewTestGame()
	if err != nil {
		panic(err)
	}

	configPath := config.DefaultPath
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	engine, err := engine.New(tb.Game, configPath)
	if err != nil {
		panic(err)
	}

	if err := engine.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// start shutdown goroutine
	go func() {
		// capture sigterm and other system call here
		<-sigCh
		_ = engine.Shutdown()
	}()

	// run engine
	if err := engine.Run(); err != nil {
		panic(err)
	}
}
