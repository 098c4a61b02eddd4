package server

import (
	"slices"
	"testing"
)

func toolMap() map[string]Tool {
	m := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		m[tool.Name] = tool
	}
	return m
}

func TestGetToolDefinitions(t *testing.T) {
	expectedTools := []string{
		"image_load",
		"image_grayscale",
		"image_to_color",
		"image_gamma",
		"image_convolve",
		"image_edge_detect",
		"image_corner_detect",
	}

	tools := toolMap()
	if len(tools) != len(expectedTools) {
		t.Errorf("tool count: got %d, want %d", len(tools), len(expectedTools))
	}
	for _, name := range expectedTools {
		if _, ok := tools[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want 'object'", tool.InputSchema["type"])
			}

			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema properties should be a map")
			}
			if _, ok := props["path"]; !ok {
				t.Error("Tool should accept a 'path' parameter")
			}

			required, ok := tool.InputSchema["required"].([]string)
			if !ok {
				t.Fatal("'required' should be a string slice")
			}
			if !slices.Contains(required, "path") {
				t.Error("Tool should require 'path' parameter")
			}

			if tool.Name != "image_load" {
				if _, ok := props["output_dir"]; !ok {
					t.Error("Transform tool should accept 'output_dir'")
				}
			}
		})
	}
}

func TestToolDefinitions_OptionalDefaults(t *testing.T) {
	toolDefaults := map[string]map[string]interface{}{
		"image_gamma":    {"gamma": 10.0},
		"image_convolve": {"engine": "naive"},
		"image_corner_detect": {
			"threshold":     0.01,
			"k":             0.04,
			"sigma":         1.0,
			"nms_radius":    1,
			"marker_radius": 2,
			"marker_color":  "#ff0000",
		},
	}

	tools := toolMap()
	for toolName, expectedDefaults := range toolDefaults {
		props := tools[toolName].InputSchema["properties"].(map[string]interface{})

		for paramName, expected := range expectedDefaults {
			param, ok := props[paramName].(map[string]interface{})
			if !ok {
				t.Errorf("%s.%s: parameter not found or not a map", toolName, paramName)
				continue
			}
			if actual := param["default"]; actual != expected {
				t.Errorf("%s.%s: default got %v (%T), want %v (%T)", toolName, paramName, actual, actual, expected, expected)
			}
		}
	}
}

func TestToolDefinitions_ConvolveEngines(t *testing.T) {
	props := toolMap()["image_convolve"].InputSchema["properties"].(map[string]interface{})
	engine := props["engine"].(map[string]interface{})
	enum, ok := engine["enum"].([]string)
	if !ok {
		t.Fatal("engine should have enum")
	}
	if !slices.Equal(enum, []string{EngineNaive, EngineBild}) {
		t.Errorf("engine enum: got %v", enum)
	}
}
