package webcam

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/teslashibe/go-focus/pkg/camera"
)

func TestIsPermission(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{os.ErrPermission, true},
		{fmt.Errorf("open /dev/video0: %w", os.ErrPermission), true},
		{errors.New("camera access not authorized"), true},
		{errors.New("Error opening device: 0"), false},
	}
	for _, tc := range tests {
		if got := isPermission(tc.err); got != tc.want {
			t.Errorf("isPermission(%q) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestRead_NotOpen(t *testing.T) {
	d := New()

	_, err := d.Read(context.Background())
	if !errors.Is(err, camera.ErrNotOpen) {
		t.Errorf("Expected ErrNotOpen, got %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close on unopened device: %v", err)
	}
}
