// Copyright 2025 The EduFlow Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// envRef matches ${VAR}, ${VAR:-default} and bare $VAR references.
var envRef = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)(?::-([^}]*))?\}|\$([A-Z_][A-Z0-9_]*)`)

func expandEnvVars(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	return envRef.ReplaceAllStringFunc(s, func(match string) string {
		parts := envRef.FindStringSubmatch(match)
		name, fallback := parts[1], parts[2]
		if name == "" {
			name = parts[3]
		}
		if val := os.Getenv(name); val != "" {
			return val
		}
		return fallback
	})
}

// parseValue re-types an expanded string so "60" decodes as an int and
// "true" as a bool, matching what yaml would have produced inline.
func parseValue(value string) interface{} {
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}

// ExpandEnvVarsInData walks a decoded yaml tree and expands environment
// variable references found in string values.
func ExpandEnvVarsInData(data interface{}) interface{} {
	switch v := data.(type) {
	case string:
		if expanded := expandEnvVars(v); expanded != v {
			return parseValue(expanded)
		}
		return v
	case map[string]interface{}:
		for key, value := range v {
			v[key] = ExpandEnvVarsInData(value)
		}
		return v
	case []interface{}:
		for i, item := range v {
			v[i] = ExpandEnvVarsInData(item)
		}
		return v
	default:
		return v
	}
}

// LoadEnvFiles loads .env.local and .env from the working directory.
// Missing files are not an error.
func LoadEnvFiles() error {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}
