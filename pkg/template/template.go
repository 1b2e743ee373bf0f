// Package template renders node configuration templates against run data.
package template

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/template"
	"time"
)

// Scope is the data a node template can reference.
type Scope struct {
	ExecutionID string
	NodeID      string
	Inputs      map[string]any
	InitialData map[string]any
}

// RenderWithScope renders input with the scope exposed as .input, .initial,
// .env and .execution.
func RenderWithScope(input string, scope Scope) (any, error) {
	data := map[string]any{
		"input":   scope.Inputs,
		"initial": scope.InitialData,
		"env":     getEnvVars(),
		"execution": map[string]any{
			"id":      scope.ExecutionID,
			"node_id": scope.NodeID,
		},
	}

	return Render(input, data)
}

func Render(templateStr string, data any) (any, error) {
	tmpl, err := template.
		New("transform").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"rand": func(max int) int {
				if max <= 0 {
					return 0
				}
				num := make([]byte, 1)
				_, err := rand.Read(num)
				if err != nil {
					return 0
				}

				return int(num[0]) % max
			},
			"json": func(v any) (string, error) {
				encoded, err := json.Marshal(v)
				if err != nil {
					return "", err
				}

				return string(encoded), nil
			},
			"lower": strings.ToLower,
			"upper": strings.ToUpper,
		}).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return nil, fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	result := strings.TrimSpace(buf.String())

	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		err := json.Unmarshal([]byte(result), &jsonResult)
		if err != nil {
			return nil, fmt.Errorf("failed to parse json '%s': %w", templateStr, err)
		}

		return jsonResult, nil
	}

	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}

// getEnvVars returns environment variables as a map.
func getEnvVars() map[string]any {
	envMap := make(map[string]any)

	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) == 2 {
			envMap[parts[0]] = parts[1]
		}
	}

	return envMap
}
