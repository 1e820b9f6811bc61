package provider

import (
	"strings"
	"testing"

	"github.com/menonsoftware/Konexion/pkg/api"
)

func TestDecodeDataURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType string
		wantData string
		wantErr  bool
	}{
		{
			name:     "full data URL",
			input:    "data:image/png;base64,Zm9vYmFy",
			wantType: "image/png",
			wantData: "foobar",
		},
		{
			name:     "bare base64 defaults to jpeg",
			input:    "Zm9vYmFy",
			wantType: "image/jpeg",
			wantData: "foobar",
		},
		{
			name:     "missing media type defaults to jpeg",
			input:    "data:;base64,Zm9v",
			wantType: "image/jpeg",
			wantData: "foo",
		},
		{
			name:    "invalid base64",
			input:   "data:image/png;base64,!!!",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mediaType, data, err := DecodeDataURL(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeDataURL: %v", err)
			}
			if mediaType != tt.wantType {
				t.Errorf("media type = %q, want %q", mediaType, tt.wantType)
			}
			if string(data) != tt.wantData {
				t.Errorf("data = %q, want %q", data, tt.wantData)
			}
		})
	}
}

func TestBase64Payload(t *testing.T) {
	if got := Base64Payload("data:image/jpeg;base64,abc123"); got != "abc123" {
		t.Errorf("Base64Payload = %q", got)
	}
	if got := Base64Payload("abc123"); got != "abc123" {
		t.Errorf("Base64Payload without header = %q", got)
	}
}

func TestDescribeImages(t *testing.T) {
	images := []api.ImageAttachment{
		{Name: "cat.jpg", Type: "image/jpeg"},
		{Type: "image/png"},
	}

	got := DescribeImages("look at these", images)
	if !strings.Contains(got, "look at these") {
		t.Errorf("original message missing: %q", got)
	}
	if !strings.Contains(got, "[Image 1: cat.jpg (image/jpeg)]") {
		t.Errorf("first description missing: %q", got)
	}
	if !strings.Contains(got, "[Image 2: Unknown (image/png)]") {
		t.Errorf("unnamed image should fall back to Unknown: %q", got)
	}
}

func TestDescribeImagesEmptyMessage(t *testing.T) {
	images := []api.ImageAttachment{{Name: "a.png", Type: "image/png"}}

	got := DescribeImages("   ", images)
	if !strings.HasPrefix(got, "Please analyze these images:") {
		t.Errorf("blank message should use the analyze prefix: %q", got)
	}
}
