package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionCommand(t *testing.T) {
	resetFlags()
	output, err := captureOutput(t, func() error {
		versionCmd.Run(versionCmd, nil)
		return nil
	})
	assert.NoError(t, err)
	assertContains(t, output, []string{"heapctl dev", "heap:", "commit: none", "built:  unknown"})
}

func TestBuildVersion(t *testing.T) {
	assert.Equal(t, "dev", buildVersion(), "test binaries carry no module version")
	assert.Equal(t, buildVersion(), rootCmd.Version)

	orig := version
	t.Cleanup(func() { version = orig })
	version = "v1.2.3"
	assert.Equal(t, "v1.2.3", buildVersion())
}
