package provider

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/menonsoftware/Konexion/pkg/api"
)

// DecodeDataURL splits a data URL ("data:image/jpeg;base64,<payload>") into
// its media type and decoded bytes. A bare base64 payload without the
// "data:" header is decoded with the default media type.
func DecodeDataURL(dataURL string) (mediaType string, data []byte, err error) {
	mediaType = "image/jpeg"

	payload := dataURL
	if header, rest, found := strings.Cut(dataURL, ","); found {
		payload = rest
		if t, ok := strings.CutPrefix(header, "data:"); ok {
			if mt, _, _ := strings.Cut(t, ";"); mt != "" {
				mediaType = mt
			}
		}
	}

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decoding image payload: %w", err)
	}
	return mediaType, data, nil
}

// Base64Payload returns the raw base64 portion of a data URL, keeping the
// payload intact for backends that accept base64 directly.
func Base64Payload(dataURL string) string {
	if _, rest, found := strings.Cut(dataURL, ","); found {
		return rest
	}
	return dataURL
}

// DescribeImages renders a textual substitution for image attachments sent
// to a model without vision capability. The attached images are named so
// the model can at least acknowledge them.
func DescribeImages(message string, images []api.ImageAttachment) string {
	descriptions := make([]string, 0, len(images))
	for i, img := range images {
		name := img.Name
		if name == "" {
			name = "Unknown"
		}
		typ := img.Type
		if typ == "" {
			typ = "Unknown type"
		}
		descriptions = append(descriptions, fmt.Sprintf("[Image %d: %s (%s)]", i+1, name, typ))
	}

	joined := strings.Join(descriptions, ", ")
	if strings.TrimSpace(message) != "" {
		return fmt.Sprintf("%s\n\nAttached images: %s", message, joined)
	}
	return "Please analyze these images: " + joined
}

// DefaultVisionPrompt is used when a vision turn arrives with no text.
const DefaultVisionPrompt = "What's in this image?"
