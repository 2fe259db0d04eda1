package ui

import (
	"strings"
	"testing"
)

func TestFormatControl(t *testing.T) {
	tests := []struct {
		name string
		key  string
		desc string
	}{
		{name: "basic control", key: "q", desc: "Quit"},
		{name: "longer key", key: "ctrl+c", desc: "Quit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatControl(tt.key, tt.desc)
			if !strings.Contains(got, tt.key) {
				t.Errorf("FormatControl() missing key %q", tt.key)
			}
			if !strings.Contains(got, tt.desc) {
				t.Errorf("FormatControl() missing description %q", tt.desc)
			}
		})
	}
}

func TestFormatFlag(t *testing.T) {
	tests := []struct {
		name  string
		on    bool
		label string
		want  string
	}{
		{name: "on", on: true, label: "keyboard focus", want: "●"},
		{name: "off", on: false, label: "keyboard focus", want: "○"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatFlag(tt.on, tt.label)
			if !strings.Contains(got, tt.label) {
				t.Errorf("FormatFlag() missing label %q", tt.label)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("FormatFlag() on=%v should contain %q", tt.on, tt.want)
			}
		})
	}
}

func TestCreateSeparator(t *testing.T) {
	tests := []struct {
		name  string
		width int
		char  string
		count int
	}{
		{name: "default width", width: 0, char: "─", count: 50},
		{name: "custom width", width: 10, char: "=", count: 10},
		{name: "default char", width: 5, char: "", count: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CreateSeparator(tt.width, tt.char)
			char := tt.char
			if char == "" {
				char = "─"
			}
			if n := strings.Count(got, char); n != tt.count {
				t.Errorf("CreateSeparator() has %d %q, want %d", n, char, tt.count)
			}
		})
	}
}
