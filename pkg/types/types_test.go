// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"testing"
)

func TestExitCode_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		code    ExitCode
		wantErr bool
	}{
		{"success", ExitCode(0), false},
		{"generic failure", ExitCode(1), false},
		{"engine error", ExitCode(125), false},
		{"max", ExitCode(255), false},
		{"negative", ExitCode(-1), true},
		{"too large", ExitCode(256), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.code.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("ExitCode(%d).Validate() error = %v, wantErr %v", tt.code, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidExitCode) {
				t.Errorf("ExitCode(%d).Validate() error does not wrap ErrInvalidExitCode", tt.code)
			}
		})
	}
}

func TestExitCode_IsTransient(t *testing.T) {
	t.Parallel()

	if !ExitCode(125).IsTransient() || !ExitCode(126).IsTransient() {
		t.Error("exit codes 125 and 126 should be transient")
	}
	if ExitCode(0).IsTransient() || ExitCode(1).IsTransient() {
		t.Error("exit codes 0 and 1 should not be transient")
	}
}

func TestFilesystemPath_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		path    FilesystemPath
		wantErr bool
	}{
		{"relative path", "runner.py", false},
		{"absolute path", "/workspace/data", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.path.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("FilesystemPath(%q).Validate() error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidFilesystemPath) {
				t.Errorf("FilesystemPath(%q).Validate() error does not wrap ErrInvalidFilesystemPath", tt.path)
			}
		})
	}
}

func TestUserID_Validate(t *testing.T) {
	t.Parallel()

	if err := UserID(1000).Validate(); err != nil {
		t.Errorf("UserID(1000).Validate() = %v, want nil", err)
	}
	err := UserID(0).Validate()
	if err == nil {
		t.Fatal("UserID(0).Validate() = nil, want error")
	}
	if !errors.Is(err, ErrInvalidUserID) {
		t.Error("UserID(0).Validate() error does not wrap ErrInvalidUserID")
	}
}
