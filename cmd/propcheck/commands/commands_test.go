package commands

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/jmylchreest/propcheck/pkg/propcheck"
)

// --- parseContentSize Tests ---

func TestParseContentSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"0", 0, false},
		{"100KB", 100000, false},
		{"1MiB", 1 << 20, false},
		{" 2kb ", 2000, false},
		{"lots", 0, true},
	}

	for _, tt := range tests {
		got, err := parseContentSize(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseContentSize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseContentSize(%q): expected %d, got %d", tt.in, tt.want, got)
		}
	}
}

// --- readConfig Tests ---

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(good, []byte("provider: none\ndelay: 2s\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("provider: [none\n  delay: :\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	v := viper.New()
	if err := readConfig(v, good); err != nil {
		t.Fatalf("readConfig(good) error = %v", err)
	}
	if got := v.GetString("provider"); got != "none" {
		t.Errorf("expected provider none, got %q", got)
	}

	if err := readConfig(viper.New(), bad); err == nil {
		t.Error("expected error for a malformed config file")
	}
	if err := readConfig(viper.New(), filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}

func TestReadConfig_SearchedFileOptional(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)

	if err := readConfig(viper.New(), ""); err != nil {
		t.Errorf("expected no error without a config file, got %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, ".propcheck.yaml"), []byte("delay: [\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := readConfig(viper.New(), ""); err == nil {
		t.Error("expected error for a malformed .propcheck.yaml")
	}
}

// --- decodeRecord Tests ---

func TestDecodeRecord_Shapes(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		isYAML bool
	}{
		{"bare record", `{"address":"1 High Street","price":250000}`, false},
		{"report", `{"url":"u","record":{"address":"1 High Street","price":250000},"meta":{}}`, false},
		{"api body", `{"propertyData":{"address":"1 High Street","price":250000}}`, false},
		{"yaml report", "url: u\nrecord:\n  address: 1 High Street\n  price: 250000\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := decodeRecord([]byte(tt.data), tt.isYAML)
			if err != nil {
				t.Fatalf("decodeRecord() error = %v", err)
			}
			if r.Address != "1 High Street" || r.Price != 250000 {
				t.Errorf("unexpected record %+v", r)
			}
		})
	}
}

func TestDecodeRecord_Errors(t *testing.T) {
	if _, err := decodeRecord([]byte(`{"url":"u"}`), false); err == nil {
		t.Error("expected error when no record is present")
	}
	if _, err := decodeRecord([]byte(`{not json`), false); err == nil {
		t.Error("expected parse error")
	}
}

func TestReadRecordFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.yml")
	if err := os.WriteFile(path, []byte("propertyData:\n  address: 2 Low Road\n  price: 180000\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	r, err := readRecordFile(path, nil)
	if err != nil {
		t.Fatalf("readRecordFile() error = %v", err)
	}
	if r.Address != "2 Low Road" {
		t.Errorf("expected 2 Low Road, got %q", r.Address)
	}

	r, err = readRecordFile("-", strings.NewReader(`{"address":"3 Mill Lane","price":1}`))
	if err != nil {
		t.Fatalf("readRecordFile(stdin) error = %v", err)
	}
	if r.Address != "3 Mill Lane" {
		t.Errorf("expected 3 Mill Lane, got %q", r.Address)
	}

	if _, err := readRecordFile(filepath.Join(dir, "missing.json"), nil); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

// --- collect Tests ---

func TestCollect_RestoresInputOrder(t *testing.T) {
	urls := []string{"c", " a", "b"}
	ch := make(chan *propcheck.Result, 3)
	ch <- &propcheck.Result{URL: "b"}
	ch <- &propcheck.Result{URL: "a"}
	ch <- &propcheck.Result{URL: "c"}
	close(ch)

	got := collect(ch, urls)
	var order []string
	for _, r := range got {
		order = append(order, r.URL)
	}
	if strings.Join(order, ",") != "c,a,b" {
		t.Errorf("expected c,a,b, got %v", order)
	}
}

// --- version Tests ---

func TestVersionCommand(t *testing.T) {
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"version", "--short", "--quiet"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if strings.TrimSpace(buf.String()) == "" {
		t.Error("expected a version string")
	}
}
