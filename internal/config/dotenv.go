package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// loadDotEnv folds a .env file into the process environment. Variables
// already set in the environment win over the file.
func loadDotEnv() {
	dotEnvPath, ok := findDotEnvPath()
	if !ok {
		return
	}

	file, err := os.Open(dotEnvPath)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := parseDotEnvLine(scanner.Text())
		if !ok {
			continue
		}
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}
}

// findDotEnvPath walks up from the working directory until it finds a .env
// file or leaves the project (marked by go.mod or .git).
func findDotEnvPath() (string, bool) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false
	}

	for dir := cwd; dir != ""; {
		path := filepath.Join(dir, ".env")
		if st, err := os.Stat(path); err == nil && st.Mode().IsRegular() {
			return path, true
		}

		if st, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil && st.Mode().IsRegular() {
			return "", false
		}
		if st, err := os.Stat(filepath.Join(dir, ".git")); err == nil && st.IsDir() {
			return "", false
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}

func parseDotEnvLine(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}

	line = strings.TrimPrefix(line, "export ")

	eqIdx := strings.IndexByte(line, '=')
	if eqIdx <= 0 {
		return "", "", false
	}

	key := strings.TrimSpace(line[:eqIdx])
	if key == "" {
		return "", "", false
	}

	raw := strings.TrimSpace(line[eqIdx+1:])
	if raw == "" {
		return key, "", true
	}

	if len(raw) >= 2 && ((raw[0] == '\'' && raw[len(raw)-1] == '\'') || (raw[0] == '"' && raw[len(raw)-1] == '"')) {
		return key, raw[1 : len(raw)-1], true
	}

	return key, strings.TrimSpace(stripInlineComment(raw)), true
}

func stripInlineComment(value string) string {
	for i := 0; i < len(value); i++ {
		if value[i] != '#' {
			continue
		}
		if i == 0 || value[i-1] == ' ' || value[i-1] == '\t' {
			return strings.TrimSpace(value[:i])
		}
	}
	return value
}
