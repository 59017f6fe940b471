package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/joho/godotenv"

	"github.com/dyike/MacroAgent/consts"
)

var errAborted = errors.New("init aborted")

func required(val interface{}) error {
	if str, ok := val.(string); ok && strings.TrimSpace(str) == "" {
		return fmt.Errorf("value cannot be empty")
	}
	return nil
}

// providerKeyEnv maps an LLM provider to the variable holding its key.
var providerKeyEnv = map[string]string{
	consts.LLMGemini:   "GEMINI_API_KEY",
	consts.LLMOpenAI:   "OPENAI_API_KEY",
	consts.LLMDeepSeek: "DEEPSEEK_API_KEY",
}

// PromptForEnv asks for keys and storage settings. Current values are offered
// as defaults; secret prompts left blank keep the current value.
func PromptForEnv(current map[string]string) (map[string]string, error) {
	env := make(map[string]string, len(current))
	for k, v := range current {
		env[k] = v
	}

	provider := orText(env["LLM_PROVIDER"], consts.LLMGemini)
	if err := survey.AskOne(&survey.Select{
		Message: "LLM provider:",
		Options: []string{consts.LLMGemini, consts.LLMOpenAI, consts.LLMDeepSeek},
		Default: provider,
	}, &provider); err != nil {
		return nil, err
	}
	env["LLM_PROVIDER"] = provider

	secrets := []struct {
		name     string
		message  string
		optional bool
	}{
		{"ECOS_API_KEY", "Bank of Korea ECOS API key:", false},
		{providerKeyEnv[provider], provider + " API key:", false},
		{"FRED_API_KEY", "FRED API key (optional, enables the US section):", true},
	}
	for _, s := range secrets {
		var answer string
		opts := []survey.AskOpt{}
		if !s.optional && env[s.name] == "" {
			opts = append(opts, survey.WithValidator(required))
		}
		if err := survey.AskOne(&survey.Password{Message: s.message}, &answer, opts...); err != nil {
			return nil, err
		}
		if answer = strings.TrimSpace(answer); answer != "" {
			env[s.name] = answer
		}
	}

	storage := []struct {
		name    string
		message string
		def     string
	}{
		{"S3_BUCKET_NAME", "S3 bucket:", "quartz-bucket"},
		{"S3_FOLDER", "Key prefix inside the bucket:", "macro-analysis/"},
		{"AWS_REGION", "AWS region:", "ap-northeast-2"},
	}
	for _, s := range storage {
		answer := orText(env[s.name], s.def)
		if err := survey.AskOne(&survey.Input{Message: s.message, Default: answer}, &answer); err != nil {
			return nil, err
		}
		env[s.name] = strings.TrimSpace(answer)
	}

	return env, nil
}

// ConfirmOverwrite asks before replacing an existing file.
func ConfirmOverwrite(path string) (bool, error) {
	overwrite := false
	err := survey.AskOne(&survey.Confirm{
		Message: fmt.Sprintf("%s exists. Update it?", path),
		Default: true,
	}, &overwrite)
	return overwrite, err
}

func runInitWizard(out io.Writer, path string) error {
	current := map[string]string{}
	if _, err := os.Stat(path); err == nil {
		ok, err := ConfirmOverwrite(path)
		if err != nil {
			return err
		}
		if !ok {
			return errAborted
		}
		if current, err = godotenv.Read(path); err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
	}

	env, err := PromptForEnv(current)
	if err != nil {
		return err
	}
	if err := writeEnvFile(path, env); err != nil {
		return err
	}
	fmt.Fprintln(out, completedStyle.Render("✓ wrote "+path))
	return nil
}

func writeEnvFile(path string, env map[string]string) error {
	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return os.Chmod(path, 0o600)
}
