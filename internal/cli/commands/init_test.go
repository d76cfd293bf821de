package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/strata-db/strata/internal/cli/config"
)

func TestValidateProjectName(t *testing.T) {
	testCases := []struct {
		name        string
		projectName string
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid name",
			projectName: "my-project",
			expectError: false,
		},
		{
			name:        "valid name with underscores",
			projectName: "my_project",
			expectError: false,
		},
		{
			name:        "valid name alphanumeric",
			projectName: "myproject123",
			expectError: false,
		},
		{
			name:        "empty string",
			projectName: "",
			expectError: true,
			errorMsg:    "must be 1-100 characters",
		},
		{
			name:        "whitespace only",
			projectName: "   ",
			expectError: true,
			errorMsg:    "must be 1-100 characters",
		},
		{
			name:        "contains slash",
			projectName: "my/project",
			expectError: true,
			errorMsg:    "can only contain letters, numbers, dashes, and underscores",
		},
		{
			name:        "contains dot",
			projectName: "my.project",
			expectError: true,
			errorMsg:    "can only contain letters, numbers, dashes, and underscores",
		},
		{
			name:        "path traversal attempt",
			projectName: "../malicious",
			expectError: true,
			errorMsg:    "can only contain letters, numbers, dashes, and underscores",
		},
		{
			name:        "absolute path",
			projectName: "/usr/bin/malware",
			expectError: true,
			errorMsg:    "cannot be an absolute path",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateProjectName(tc.projectName)

			if tc.expectError {
				if err == nil {
					t.Errorf("expected error for project name %q, got nil", tc.projectName)
				} else if tc.errorMsg != "" && !strings.Contains(err.Error(), tc.errorMsg) {
					t.Errorf("expected error to contain %q, got %q", tc.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("expected no error for project name %q, got %v", tc.projectName, err)
				}
			}
		})
	}
}

func TestNewInitCommand(t *testing.T) {
	cmd := NewInitCommand()

	if cmd.Use != "init [directory]" {
		t.Errorf("expected Use to be 'init [directory]', got %s", cmd.Use)
	}

	for _, flag := range []string{"name", "source", "namespace", "dialect", "example"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("expected --%s flag to be registered", flag)
		}
	}
}

func TestRunInit_CreatesProject(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blog")

	cmd := NewInitCommand()
	cmd.SetArgs([]string{
		dir,
		"--name", "blog",
		"--source", "models",
		"--namespace", "blog/models",
		"--dialect", "postgres",
		"--example=true",
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	configData, err := os.ReadFile(filepath.Join(dir, "strata.yml"))
	if err != nil {
		t.Fatalf("strata.yml not written: %v", err)
	}
	for _, want := range []string{
		"project_name: blog",
		"root: models",
		"namespace: blog/models",
		"dialect: postgres",
	} {
		if !strings.Contains(string(configData), want) {
			t.Errorf("expected strata.yml to contain %q", want)
		}
	}

	gitignore, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		t.Fatalf(".gitignore not written: %v", err)
	}
	if !strings.Contains(string(gitignore), "build/") {
		t.Error("expected .gitignore to cover build/")
	}

	model, err := os.ReadFile(filepath.Join(dir, "models", "models.go"))
	if err != nil {
		t.Fatalf("example model not written: %v", err)
	}
	if !strings.Contains(string(model), "package models") {
		t.Error("expected example model to be in the models package")
	}
	if !strings.Contains(string(model), "//strata:entity") {
		t.Error("expected example model to carry entity annotations")
	}

	// The written config must load cleanly.
	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if cfg.ProjectName != "blog" {
		t.Errorf("expected project_name 'blog', got %q", cfg.ProjectName)
	}
	if cfg.Source.Namespace != "blog/models" {
		t.Errorf("expected namespace 'blog/models', got %q", cfg.Source.Namespace)
	}
}

func TestRunInit_WithoutExample(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "api")

	cmd := NewInitCommand()
	cmd.SetArgs([]string{
		dir,
		"--name", "api",
		"--source", "models",
		"--namespace", "",
		"--example=false",
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "models", "models.go")); !os.IsNotExist(err) {
		t.Error("expected no example model with --example=false")
	}
	// The source root directory is still created.
	if _, err := os.Stat(filepath.Join(dir, "models")); err != nil {
		t.Error("expected source root directory to exist")
	}
}

func TestRunInit_ExistingProject(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "strata.yml"), []byte("project_name: old\n"), 0644); err != nil {
		t.Fatalf("failed to seed config: %v", err)
	}

	cmd := NewInitCommand()
	cmd.SetArgs([]string{dir, "--name", "fresh", "--source", "models", "--namespace", "", "--example=false"})
	err := cmd.Execute()

	if err == nil {
		t.Fatal("expected error for existing project, got nil")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("expected 'already exists' error, got: %v", err)
	}
}

func TestRunInit_InvalidProjectName(t *testing.T) {
	cmd := NewInitCommand()
	cmd.SetArgs([]string{t.TempDir(), "--name", "bad name!"})
	err := cmd.Execute()

	if err == nil {
		t.Fatal("expected error for invalid project name, got nil")
	}
	if !strings.Contains(err.Error(), "can only contain") {
		t.Errorf("expected validation error, got: %v", err)
	}
}
