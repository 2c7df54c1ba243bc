package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/kheap/heap/boot"
	"github.com/joshuapare/kheap/heap/kheap"
)

func TestBootCommand(t *testing.T) {
	tests := []struct {
		name           string
		setup          func()
		wantErr        bool
		wantJSON       bool
		wantContain    []string
		wantNotContain []string
	}{
		{
			name: "default small heap",
			wantContain: []string{
				"    computing page range...[ok]",
				"    allocating page range...[ok]",
				"    initializing allocator...[ok]",
				"    testing allocator coalescence...[ok]",
				"0x0000_4444_4444_0000 - 0x0000_4444_4445_0000",
				"65,536 B (64.0 KiB)",
				"16 mapped",
				"200 x 256 B",
			},
		},
		{
			name:        "skip self-test",
			setup:       func() { heapOpts.skipSelfTest = true },
			wantContain: []string{"testing allocator coalescence...[skipped]"},
			wantNotContain: []string{
				"Self-test",
			},
		},
		{
			name: "hex heap start parsed as given",
			setup: func() {
				heapOpts.heapStart = 0x20_0000
				heapOpts.heapSize = 8192
				heapOpts.count = 16
			},
			wantContain: []string{"0x0000_0000_0020_0000 - 0x0000_0000_0020_2000", "2 mapped"},
		},
		{
			name:           "quiet prints nothing",
			setup:          func() { quiet = true },
			wantNotContain: []string{"[ok]", "Heap"},
		},
		{
			name:     "json",
			setup:    func() { jsonOut = true },
			wantJSON: true,
			wantContain: []string{
				`"pages_mapped": 16`,
				`"frames_issued"`,
				`"chunk_count": 200`,
			},
			wantNotContain: []string{"[ok]"},
		},
		{
			name:    "no usable memory",
			setup:   func() { heapOpts.physSize = 1 << 20 },
			wantErr: true,
			wantContain: []string{
				"allocating page range...[failed]",
			},
			wantNotContain: []string{"initializing allocator"},
		},
		{
			name:    "self-test larger than heap",
			setup:   func() { heapOpts.count = 1000 },
			wantErr: true,
			wantContain: []string{
				"testing allocator coalescence...[failed]",
			},
		},
		{
			name:    "zero heap size",
			setup:   func() { heapOpts.heapSize = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			if tt.setup != nil {
				tt.setup()
			}

			output, err := captureOutput(t, func() error {
				return runBoot(nil)
			})

			if (err != nil) != tt.wantErr {
				t.Errorf("runBoot() error = %v, wantErr %v\nOutput: %s", err, tt.wantErr, output)
				return
			}
			if tt.wantJSON {
				assertJSON(t, output, nil)
			}
			assertContains(t, output, tt.wantContain)
			assertNotContains(t, output, tt.wantNotContain)
		})
	}
}

func TestBootCommand_JSONReportsFailure(t *testing.T) {
	resetFlags()
	jsonOut = true
	heapOpts.physSize = 1 << 20

	output, err := captureOutput(t, func() error {
		return runBoot(nil)
	})
	require.Error(t, err)

	var got struct {
		Stages []boot.StageResult `json:"stages"`
		Error  string             `json:"error"`
	}
	assertJSON(t, output, &got)
	require.Len(t, got.Stages, 2)
	assert.True(t, got.Stages[0].OK)
	assert.Equal(t, boot.StageMap, got.Stages[1].Name)
	assert.False(t, got.Stages[1].OK)
	assert.Contains(t, got.Error, boot.StageMap)
}

func TestBootCommand_InstallsHeap(t *testing.T) {
	resetFlags()

	_, err := captureOutput(t, func() error {
		return runBoot(nil)
	})
	require.NoError(t, err)
	assert.NotNil(t, kheap.Installed())
}

func TestConsoleWriter_ColorsMarkers(t *testing.T) {
	resetFlags()
	noColor = false

	output, err := captureOutput(t, func() error {
		_, err := consoleWriter{w: os.Stdout}.Write([]byte("    stage...[ok]\n"))
		return err
	})
	require.NoError(t, err)
	assert.Contains(t, output, "stage...")
	assert.Contains(t, output, "ok")
}
