package commands

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

//go:embed templates/*
var templatesFS embed.FS

var (
	initName      string
	initSource    string
	initNamespace string
	initDialect   string
	initExample   bool
)

// validateProjectName validates project name with security checks
func validateProjectName(name string) error {
	name = strings.TrimSpace(name)

	// Check length
	if len(name) == 0 || len(name) > 100 {
		return fmt.Errorf("project name must be 1-100 characters")
	}

	// Check for absolute paths
	if filepath.IsAbs(name) {
		return fmt.Errorf("project name cannot be an absolute path")
	}

	// Only allow alphanumeric, dash, and underscore
	matched, _ := regexp.MatchString(`^[a-zA-Z0-9_-]+$`, name)
	if !matched {
		return fmt.Errorf("project name can only contain letters, numbers, dashes, and underscores")
	}

	return nil
}

// NewInitCommand creates the init command
func NewInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a new strata project",
		Long: `Create a new strata project in the given directory (default: current).

Writes the strata.yml configuration, the source root directory, and
optionally an example annotated model to start from. Values not supplied
as flags are collected interactively.`,
		Example: `  # Initialize the current directory interactively
  strata init

  # Initialize a new directory without prompts
  strata init blog --name blog --namespace blog/models --example=false`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInit,
	}

	cmd.Flags().StringVar(&initName, "name", "", "Project name")
	cmd.Flags().StringVar(&initSource, "source", "models", "Source root directory")
	cmd.Flags().StringVar(&initNamespace, "namespace", "", "Root namespace (empty maps everything)")
	cmd.Flags().StringVar(&initDialect, "dialect", "postgres", "SQL dialect for schema generation")
	cmd.Flags().BoolVar(&initExample, "example", true, "Create an example model")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	successColor := color.New(color.FgGreen, color.Bold)
	infoColor := color.New(color.FgCyan)
	promptColor := color.New(color.FgYellow)

	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	for _, name := range []string{"strata.yml", "strata.yaml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return fmt.Errorf("%s already exists in %s", name, dir)
		}
	}

	projectName := initName
	if projectName == "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		prompt := &survey.Input{
			Message: "Project name:",
			Default: filepath.Base(abs),
		}
		if err := survey.AskOne(prompt, &projectName, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}
	if err := validateProjectName(projectName); err != nil {
		return err
	}

	sourceRoot := initSource
	if !cmd.Flags().Changed("source") {
		prompt := &survey.Input{
			Message: "Source root:",
			Default: sourceRoot,
			Help:    "Directory the annotated classes live in",
		}
		if err := survey.AskOne(prompt, &sourceRoot, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}

	namespace := initNamespace
	if !cmd.Flags().Changed("namespace") {
		prompt := &survey.Input{
			Message: "Root namespace (optional):",
			Help:    "Only classes in or under this namespace are mapped; leave empty to map everything",
		}
		if err := survey.AskOne(prompt, &namespace); err != nil {
			return err
		}
	}

	example := initExample
	if !cmd.Flags().Changed("example") {
		prompt := &survey.Confirm{
			Message: "Create an example model?",
			Default: true,
		}
		if err := survey.AskOne(prompt, &example); err != nil {
			return err
		}
	}

	infoColor.Printf("Creating project: %s\n\n", projectName)

	for _, d := range []string{dir, filepath.Join(dir, sourceRoot), filepath.Join(dir, "build")} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", d, err)
		}
	}

	pkg := filepath.Base(sourceRoot)
	if pkg == "." || pkg == string(filepath.Separator) {
		pkg = "models"
	}

	data := map[string]interface{}{
		"ProjectName": projectName,
		"SourceRoot":  sourceRoot,
		"Namespace":   namespace,
		"Dialect":     initDialect,
		"Package":     pkg,
	}

	files := map[string]string{
		"strata.yml": "templates/config.yml.tmpl",
		".gitignore": "templates/gitignore.tmpl",
	}
	if example {
		files[filepath.Join(sourceRoot, "models.go")] = "templates/model.go.tmpl"
	}

	destPaths := make([]string, 0, len(files))
	for destPath := range files {
		destPaths = append(destPaths, destPath)
	}
	sort.Strings(destPaths)

	for _, destPath := range destPaths {
		content, err := renderTemplate(files[destPath], data)
		if err != nil {
			return err
		}
		destFullPath := filepath.Join(dir, destPath)
		if err := os.WriteFile(destFullPath, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", destFullPath, err)
		}
		infoColor.Printf("  ✓ Created %s\n", destPath)
	}

	fmt.Println()
	successColor.Printf("✓ Initialized project: %s\n\n", projectName)

	promptColor.Println("Get started:")
	if dir != "." {
		fmt.Printf("  cd %s\n", dir)
	}
	fmt.Println("  strata build")
	fmt.Println("  strata inspect entities")

	return nil
}

func renderTemplate(path string, data map[string]interface{}) (string, error) {
	content, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read template %s: %w", path, err)
	}
	tmpl, err := template.New(filepath.Base(path)).Parse(string(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", path, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", path, err)
	}
	return buf.String(), nil
}
