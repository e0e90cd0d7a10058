//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
)

type Graph mg.Namespace

// Renders a few testbed frames headlessly and writes the first frame's graph
// as a Mermaid flowchart to framegraph.mmd.
func (Graph) Dump() error {
	config := "framegraph.dump.toml"
	contents := "[graph]\ndump_mermaid = true\nmermaid_path = \"framegraph.mmd\"\n\n[engine]\nframes = 3\ntarget_fps = 0.0\n"
	if err := os.WriteFile(config, []byte(contents), 0o644); err != nil {
		return err
	}
	defer os.Remove(config)

	if _, err := executeCmd("go", withArgs("run", "main.go", config), withStream()); err != nil {
		return err
	}
	fmt.Println("Frame graph written to framegraph.mmd")
	return nil
}

// Runs the testbed until interrupted.
func (Graph) Run() error {
	if _, err := executeCmd("go", withArgs("run", "main.go"), withStream()); err != nil {
		return err
	}
	return nil
}
