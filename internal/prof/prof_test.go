package prof

import (
	"context"
	"strings"
	"testing"
)

func TestStart_Disabled(t *testing.T) {
	stop, err := Start(context.Background(), Options{Enabled: false, ServerAddress: "ignored"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	stop()
	stop()
}

func TestStart_EmptyServerAddress(t *testing.T) {
	stop, err := Start(context.Background(), Options{Enabled: true, AppName: "linnemanlabs-uihost"})
	if err == nil || !strings.Contains(err.Error(), "invalid server address") {
		t.Fatalf("err = %v", err)
	}
	if stop == nil {
		t.Fatal("stop must never be nil")
	}
	stop()
}

func TestStart_UnreachableServer(t *testing.T) {
	// pyroscope connects lazily, so only the contract is checked here
	stop, _ := Start(context.Background(), Options{
		Enabled:       true,
		AppName:       "linnemanlabs-uihost",
		ServerAddress: "http://127.0.0.1:1",
		Tags:          map[string]string{"component": "uihost"},
	})
	if stop == nil {
		t.Fatal("stop must never be nil")
	}
	stop()
	stop()
}
