package main

import (
	"bytes"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/tvdiscovery/internal/config"
	"github.com/muurk/tvdiscovery/internal/discovery"
)

func TestParseTypesFlag(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    []string
		wantErr bool
	}{
		{"single", []string{"_airplay._tcp"}, []string{"_airplay._tcp"}, false},
		{"trims and skips blanks", []string{" _airplay._tcp", "", "_raop._tcp "}, []string{"_airplay._tcp", "_raop._tcp"}, false},
		{"invalid", []string{"airplay"}, nil, true},
		{"empty", []string{" "}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTypesFlag(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseTypesFlag(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseTypesFlag(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestScanParams(t *testing.T) {
	scanner := discovery.NewScanner("_airplay._tcp", "_googlecast._tcp")
	scanner.Timing.ScanTimeout = 30 * time.Second

	params := scanParams(scanner)
	if len(params) != 3 {
		t.Fatalf("got %d params, want 3", len(params))
	}
	if params[0].Value != "_airplay._tcp, _googlecast._tcp" {
		t.Errorf("service types = %q", params[0].Value)
	}
	if params[1].Value != "30s" {
		t.Errorf("timeout = %q, want 30s", params[1].Value)
	}
	if params[2].Value != "every 5s" {
		t.Errorf("rotation = %q, want every 5s", params[2].Value)
	}
}

func TestServeAddr(t *testing.T) {
	prefs := config.ServerPrefs{Host: "127.0.0.1", Port: 8765}

	tests := []struct {
		name    string
		args    map[string]string
		want    string
		wantErr bool
	}{
		{name: "settings file", want: "127.0.0.1:8765"},
		{name: "host flag", args: map[string]string{"host": "0.0.0.0"}, want: "0.0.0.0:8765"},
		{name: "port flag", args: map[string]string{"port": "9000"}, want: "127.0.0.1:9000"},
		{name: "ipv6 host", args: map[string]string{"host": "::1", "port": "9000"}, want: "[::1]:9000"},
		{name: "port out of range", args: map[string]string{"port": "70000"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(func() {
				serveHost, servePort = "", 0
			})
			cmd := &cobra.Command{}
			cmd.Flags().StringVar(&serveHost, "host", "", "")
			cmd.Flags().IntVar(&servePort, "port", 0, "")
			for name, value := range tt.args {
				if err := cmd.Flags().Set(name, value); err != nil {
					t.Fatalf("Set(%s) error = %v", name, err)
				}
			}

			got, err := serveAddr(cmd, prefs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("serveAddr() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("serveAddr() = %q, want %q", got, tt.want)
			}
		})
	}
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v: error = %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestConfigPathCommand(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG layout is linux only")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	got := strings.TrimSpace(execute(t, "config", "path"))
	want := filepath.Join(dir, "tvdiscovery", "config.yaml")
	if got != want {
		t.Errorf("config path = %q, want %q", got, want)
	}
}

func TestVersionCommand(t *testing.T) {
	out := execute(t, "version")
	if !strings.HasPrefix(out, "tvdiscovery ") {
		t.Errorf("version output = %q", out)
	}
}
