package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amasuba/uraics-revenue-assurance/cmd/tatis/internal"
)

func TestParseGlobalFlags(t *testing.T) {
	tests := []struct {
		name       string
		flags      GlobalFlags
		wantErr    bool
		wantFormat internal.OutputFormat
	}{
		{
			name:       "defaults",
			flags:      GlobalFlags{OutputFormat: "text"},
			wantFormat: internal.FormatText,
		},
		{
			name:       "json output",
			flags:      GlobalFlags{OutputFormat: "json"},
			wantFormat: internal.FormatJSON,
		},
		{
			name:    "unknown output",
			flags:   GlobalFlags{OutputFormat: "yaml"},
			wantErr: true,
		},
		{
			name:    "verbose and quiet",
			flags:   GlobalFlags{OutputFormat: "text", Verbose: true, Quiet: true},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saved := *globalFlags
			t.Cleanup(func() { *globalFlags = saved })
			*globalFlags = tt.flags

			got, err := ParseGlobalFlags(rootCmd)
			if tt.wantErr {
				var cliErr *internal.CLIError
				require.ErrorAs(t, err, &cliErr)
				assert.Equal(t, internal.ExitError, cliErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFormat, got.GetOutputFormat())
		})
	}
}

func TestGlobalFlags_Verbosity(t *testing.T) {
	assert.True(t, (&GlobalFlags{Verbose: true}).IsVerbose())
	assert.False(t, (&GlobalFlags{Verbose: true, Quiet: true}).IsVerbose())
	assert.True(t, (&GlobalFlags{Quiet: true}).IsQuiet())
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "/etc/tatis.yaml", configPath(&GlobalFlags{ConfigFile: "/etc/tatis.yaml"}))
	assert.Equal(t, "/srv/tatis/config.yaml", configPath(&GlobalFlags{HomeDir: "/srv/tatis"}))

	t.Setenv("TATIS_HOME", "/opt/tatis")
	assert.Equal(t, "/opt/tatis/config.yaml", configPath(&GlobalFlags{}))
}
