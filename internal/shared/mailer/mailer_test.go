package mailer

import (
	"context"
	"errors"
	"testing"
)

func TestSendRequiresConfiguration(t *testing.T) {
	cases := []struct {
		name string
		c    *Client
	}{
		{"empty", NewClient("", "587", "", "", "")},
		{"no host", NewClient("", "587", "user", "pass", "noreply@garo.local")},
		{"no from", NewClient("smtp.garo.local", "587", "user", "pass", "")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.c.Configured() {
				t.Fatal("client should not report configured")
			}
			err := tc.c.Send(context.Background(), "ops@garo.local", "test", "<p>hi</p>")
			if !errors.Is(err, ErrNotConfigured) {
				t.Fatalf("err = %v, want ErrNotConfigured", err)
			}
		})
	}
}

func TestConfigured(t *testing.T) {
	c := NewClient("smtp.garo.local", "587", "", "", "noreply@garo.local")
	if !c.Configured() {
		t.Fatal("host+from should be enough, auth is optional")
	}
}
