package config

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

const geminiModelsURL = "https://generativelanguage.googleapis.com/v1beta/models"

// envFileOrder is the order keys are written to the env file.
var envFileOrder = []string{
	"GEMINI_API_KEY",
	"STOCKMETA_TOKEN_KEY",
	"BACKEND_URL",
	"BACKEND_SERVICE_KEY",
}

// IsInteractiveTerminal returns true if both stdin and stdout are TTYs.
// This is used to determine if we can run the interactive setup wizard.
func IsInteractiveTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// RunSetupWizard asks for the required settings and writes them to the env
// file. Returns true if setup succeeded and the caller should continue.
func RunSetupWizard() bool {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		MarginBottom(1)

	fmt.Println()
	fmt.Println(titleStyle.Render("stockmeta - first-time setup"))
	fmt.Println()

	var geminiKey, backendURL, backendKey string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Gemini API Key").
				Description("Get yours at https://aistudio.google.com/apikey").
				Value(&geminiKey).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("API key is required")
					}
					return validateGeminiKey(s)
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Backend URL (optional)").
				Description("Hosted database for profiles and credits. Leave empty to run locally.").
				Value(&backendURL),
			huh.NewInput().
				Title("Backend service key").
				Description("Only needed with a backend URL").
				EchoMode(huh.EchoModePassword).
				Value(&backendKey),
		),
	).WithTheme(huh.ThemeBase16())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("\nSetup cancelled.")
			return false
		}
		fmt.Printf("\nError: %v\n", err)
		return false
	}

	values := map[string]string{
		"GEMINI_API_KEY":      geminiKey,
		"STOCKMETA_TOKEN_KEY": GenerateTokenKey(),
	}
	if backendURL != "" {
		values["BACKEND_URL"] = backendURL
		values["BACKEND_SERVICE_KEY"] = backendKey
	}

	configPath, err := EnvFilePath()
	if err == nil {
		err = WriteEnvFile(configPath, values)
	}
	if err != nil {
		fmt.Printf("\nError saving configuration: %v\n", err)
		WaitOnWindows()
		return false
	}

	for k, v := range values {
		os.Setenv(k, v)
	}

	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)
	pathStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	fmt.Println()
	fmt.Println(successStyle.Render("✓ Configuration saved"))
	fmt.Println(pathStyle.Render("  " + configPath))
	fmt.Println()

	return true
}

// GenerateTokenKey returns a random passphrase for token encryption.
func GenerateTokenKey() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("stockmeta-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}

// validateGeminiKey validates a Gemini API key with the lightweight models
// list endpoint.
func validateGeminiKey(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var result struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	res, err := resty.New().R().
		SetContext(ctx).
		SetQueryParam("key", key).
		SetError(&result).
		Get(geminiModelsURL)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return errors.New("connection timed out - check your internet")
		}
		return errors.New("connection failed - check your internet")
	}

	switch code := res.StatusCode(); {
	case code == 200:
		return nil
	case code == 400 || code == 401 || code == 403:
		if result.Error.Message != "" {
			return errors.New(result.Error.Message)
		}
		return fmt.Errorf("API key rejected (HTTP %d)", code)
	default:
		return fmt.Errorf("unexpected response (HTTP %d)", code)
	}
}

// WriteEnvFile writes values to path with 0600 permissions since the file
// contains secrets. Known keys are written first in a fixed order.
func WriteEnvFile(path string, values map[string]string) error {
	ordered := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, k := range envFileOrder {
		if _, ok := values[k]; ok {
			ordered = append(ordered, k)
			seen[k] = true
		}
	}
	for k := range values {
		if !seen[k] {
			ordered = append(ordered, k)
		}
	}

	var content []byte
	for _, k := range ordered {
		content = fmt.Appendf(content, "%s=%q\n", k, values[k])
	}

	if err := os.WriteFile(path, content, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// WaitOnWindows pauses execution on Windows so users can see error messages
// before the console window closes.
func WaitOnWindows() {
	if runtime.GOOS == "windows" {
		fmt.Println()
		fmt.Println("Press Enter to exit...")
		fmt.Scanln()
	}
}

// FatalWithWait logs a fatal error and waits on Windows before exiting.
func FatalWithWait(format string, args ...any) {
	log.Error().Msgf(format, args...)
	WaitOnWindows()
	os.Exit(1)
}
