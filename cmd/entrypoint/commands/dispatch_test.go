// Package commands tests cover invocation classification: flags route to the
// default sequence untouched, known operation names route to their sequences,
// and anything else becomes a passthrough exec.
package commands

import (
	"slices"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		expectOp   Operation
		expectArgs []string
	}{
		{
			name:       "no_arguments_runs_default_sequence",
			args:       nil,
			expectOp:   OpServe,
			expectArgs: nil,
		},
		{
			name:       "flags_pass_through_to_server",
			args:       []string{"--max-connections=200"},
			expectOp:   OpServe,
			expectArgs: []string{"--max-connections=200"},
		},
		{
			name:       "short_flag_passes_through",
			args:       []string{"-v"},
			expectOp:   OpServe,
			expectArgs: []string{"-v"},
		},
		{
			name:       "multiple_flags_untouched",
			args:       []string{"--max-connections=200", "--skip-name-resolve"},
			expectOp:   OpServe,
			expectArgs: []string{"--max-connections=200", "--skip-name-resolve"},
		},
		{
			name:       "replica_operation",
			args:       []string{"replica"},
			expectOp:   OpReplica,
			expectArgs: []string{},
		},
		{
			name:       "health_operation",
			args:       []string{"health"},
			expectOp:   OpHealth,
			expectArgs: []string{},
		},
		{
			name:       "on_change_operation",
			args:       []string{"onChange"},
			expectOp:   OpOnChange,
			expectArgs: []string{},
		},
		{
			name:       "on_change_alias",
			args:       []string{"on-change"},
			expectOp:   OpOnChange,
			expectArgs: []string{},
		},
		{
			name:       "unrecognized_command_is_execed",
			args:       []string{"ls", "-la"},
			expectOp:   OpExec,
			expectArgs: []string{"ls", "-la"},
		},
		{
			name:       "server_binary_by_name_is_execed",
			args:       []string{"mysqld", "--verbose"},
			expectOp:   OpExec,
			expectArgs: []string{"mysqld", "--verbose"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, args := Classify(tt.args)
			if op != tt.expectOp {
				t.Errorf("operation = %d, want %d", op, tt.expectOp)
			}
			if !slices.Equal(args, tt.expectArgs) {
				t.Errorf("args = %v, want %v", args, tt.expectArgs)
			}
		})
	}
}

func TestExecPassthroughRejectsEmptyCommand(t *testing.T) {
	if err := ExecPassthrough(nil); err == nil {
		t.Fatal("expected error for empty command, got nil")
	}
}

func TestExecPassthroughRejectsUnknownBinary(t *testing.T) {
	err := ExecPassthrough([]string{"definitely-not-a-binary-on-path"})
	if err == nil {
		t.Fatal("expected error for unknown binary, got nil")
	}
}
