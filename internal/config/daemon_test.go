package config

import (
	"os"
	"testing"

	"github.com/watchfire-io/hookwatch/internal/models"
)

func TestIsDaemonRunning(t *testing.T) {
	tests := []struct {
		name      string
		pid       int
		running   bool
		keepsFile bool
	}{
		{name: "current process", pid: os.Getpid(), running: true, keepsFile: true},
		{name: "invalid pid", pid: 0, running: false, keepsFile: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(HomeEnv, t.TempDir())
			if err := SaveDaemonInfo(models.NewDaemonInfo(tt.pid, "127.0.0.1:9099")); err != nil {
				t.Fatal(err)
			}

			running, info, err := IsDaemonRunning()
			if err != nil {
				t.Fatalf("IsDaemonRunning() error = %v", err)
			}
			if running != tt.running {
				t.Errorf("IsDaemonRunning() = %v, want %v", running, tt.running)
			}
			if info == nil || info.MetricsListen != "127.0.0.1:9099" {
				t.Errorf("IsDaemonRunning() info = %+v", info)
			}

			path, _ := GlobalDaemonFile()
			if got := FileExists(path); got != tt.keepsFile {
				t.Errorf("daemon.yaml exists = %v, want %v", got, tt.keepsFile)
			}
		})
	}
}

func TestIsDaemonRunningWithoutFile(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())
	running, info, err := IsDaemonRunning()
	if running || info != nil || err != nil {
		t.Errorf("IsDaemonRunning() = %v, %v, %v, want false, nil, nil", running, info, err)
	}
	if err := RemoveDaemonInfo(); err != nil {
		t.Errorf("RemoveDaemonInfo() on missing file = %v", err)
	}
}
