//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs every package's tests.
func (Test) All() error {
	fmt.Println("Running tests...")
	if _, err := executeCmd("go", withArgs("test", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the frame graph tests with the race detector.
func (Test) Graph() error {
	if _, err := executeCmd("go", withArgs("test", "-race", "./engine/renderer/rendergraph/...", "./engine/config/..."), withStream()); err != nil {
		return err
	}
	return nil
}
