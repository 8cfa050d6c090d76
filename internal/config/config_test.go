package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		ClientID: "client-abc",
		BaseDir:  "/home/user/.local/share/staffsync",
		LogDir:   "/home/user/.local/share/staffsync/log",
		LogLevel: "debug",
		Remote: RemoteConfig{
			Type:    "postgrest",
			URL:     "https://example.supabase.co",
			APIKey:  "anon-key",
			Table:   "dosen",
			Timeout: "5s",
		},
		Storage: StorageConfig{
			Type:     "s3",
			S3Bucket: "staff-cache",
			S3Prefix: "laptop-1",
			S3Region: "ap-southeast-1",
		},
		Connectivity: ConnectivityConfig{Mode: "offline"},
		Encryption: EncryptionConfig{
			PublicKeyPath:  "/keys/staffsync.pub",
			PrivateKeyPath: "/keys/staffsync.key",
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.ClientID != original.ClientID {
		t.Errorf("ClientID = %q, want %q", got.ClientID, original.ClientID)
	}
	if got.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", got.LogLevel, "debug")
	}
	if got.Remote != original.Remote {
		t.Errorf("Remote = %+v, want %+v", got.Remote, original.Remote)
	}
	if got.Storage != original.Storage {
		t.Errorf("Storage = %+v, want %+v", got.Storage, original.Storage)
	}
	if got.Connectivity.Mode != "offline" {
		t.Errorf("Connectivity.Mode = %q, want %q", got.Connectivity.Mode, "offline")
	}
	if got.Encryption != original.Encryption {
		t.Errorf("Encryption = %+v, want %+v", got.Encryption, original.Encryption)
	}
}

func TestManager_Read_TaggedUnion(t *testing.T) {
	input := `
client_id = "c1"

[remote]
type = "memory"

[storage]
type = "filesystem"
dir = "/var/lib/staffsync"
`
	m := &Manager{}
	got, err := m.Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.Remote.Type != "memory" {
		t.Errorf("Remote.Type = %q, want %q", got.Remote.Type, "memory")
	}
	if got.Storage.Dir != "/var/lib/staffsync" {
		t.Errorf("Storage.Dir = %q, want %q", got.Storage.Dir, "/var/lib/staffsync")
	}
	if got.Remote.TableName() != DefaultTable {
		t.Errorf("TableName() = %q, want %q", got.Remote.TableName(), DefaultTable)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("client-1", "/data/staffsync")

	checks := []struct {
		name string
		got  string
		want string
	}{
		{"ClientID", cfg.ClientID, "client-1"},
		{"BaseDir", cfg.BaseDir, "/data/staffsync"},
		{"LogDir", cfg.LogDir, "/data/staffsync/log"},
		{"LogLevel", cfg.LogLevel, "info"},
		{"Remote.Type", cfg.Remote.Type, "postgrest"},
		{"Remote.Table", cfg.Remote.Table, "lecturers"},
		{"Storage.Type", cfg.Storage.Type, "sqlite"},
		{"Storage.Dir", cfg.Storage.Dir, "/data/staffsync/db"},
		{"Connectivity.Mode", cfg.Connectivity.Mode, "probe"},
		{"Encryption.PublicKeyPath", cfg.Encryption.PublicKeyPath, "/data/staffsync/keys/staffsync.pub"},
		{"Encryption.PrivateKeyPath", cfg.Encryption.PrivateKeyPath, "/data/staffsync/keys/staffsync.key"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.name, c.got, c.want)
		}
	}
}

func TestDurations(t *testing.T) {
	tests := []struct {
		name    string
		parse   func() (time.Duration, error)
		want    time.Duration
		wantErr bool
	}{
		{
			name:  "timeout default",
			parse: RemoteConfig{}.TimeoutDuration,
			want:  DefaultTimeout,
		},
		{
			name:  "timeout set",
			parse: RemoteConfig{Timeout: "3s"}.TimeoutDuration,
			want:  3 * time.Second,
		},
		{
			name:    "timeout malformed",
			parse:   RemoteConfig{Timeout: "soon"}.TimeoutDuration,
			wantErr: true,
		},
		{
			name:  "probe interval default",
			parse: ConnectivityConfig{}.ProbeIntervalDuration,
			want:  DefaultProbeInterval,
		},
		{
			name:    "probe interval negative",
			parse:   ConnectivityConfig{ProbeInterval: "-1s"}.ProbeIntervalDuration,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.parse()
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("duration = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "nested", "staffsync.toml")
		cfg := NewConfig("c1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("config file not created: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("config file mode = %o, want 600", perm)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "staffsync.toml")
		cfg := NewConfig("c1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		if err := Init(path, cfg); err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "staffsync.toml")
		cfg := NewConfig("read-test", dir)
		cfg.Storage = StorageConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.ClientID != "read-test" {
			t.Errorf("ClientID = %q, want %q", got.ClientID, "read-test")
		}
		if got.Storage.Type != "memory" {
			t.Errorf("Storage.Type = %q, want %q", got.Storage.Type, "memory")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		if _, err := ReadFromFile("/nonexistent/path/staffsync.toml"); err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})

	t.Run("returns error for malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.toml")
		if err := os.WriteFile(path, []byte("client_id = [unclosed"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := ReadFromFile(path); err == nil {
			t.Fatal("ReadFromFile() expected error for malformed file")
		}
	})
}

func TestConfig_ForceOffline(t *testing.T) {
	cfg := NewConfig("c1", "/data/staffsync")
	cfg.ForceOffline()

	if cfg.Connectivity.Mode != "offline" {
		t.Errorf("Connectivity.Mode = %q, want %q", cfg.Connectivity.Mode, "offline")
	}
	if cfg.Connectivity.ProbeInterval != DefaultProbeInterval.String() {
		t.Errorf("ProbeInterval = %q, want it kept", cfg.Connectivity.ProbeInterval)
	}
}
