// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package message

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/disintegration/imageorient"
	"github.com/nfnt/resize"
)

// maxAttachmentEdge bounds the longer edge of an attached image; larger
// images are downscaled before being base64-encoded into a request, to
// keep multi-image turns within a provider's payload limits.
const maxAttachmentEdge = 1568

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".bmp": true,
}

// IsImageAttachment reports whether Attachment.Path names a format
// ResolveAttachment can turn into an Image content part.
func IsImageAttachment(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// ResolveAttachment decodes a raw image attachment, applies its EXIF
// orientation, downscales it if needed, and re-encodes it as a PNG Image
// content part ready to append to a user message.
func ResolveAttachment(a Attachment) (Image, error) {
	img, _, err := imageorient.Decode(bytes.NewReader(a.Data))
	if err != nil {
		return Image{}, fmt.Errorf("decode attachment %s: %w", a.Name, err)
	}

	b := img.Bounds()
	if b.Dx() > maxAttachmentEdge || b.Dy() > maxAttachmentEdge {
		img = resize.Thumbnail(maxAttachmentEdge, maxAttachmentEdge, img, resize.Lanczos3)
	}

	var out bytes.Buffer
	if err := png.Encode(&out, img); err != nil {
		return Image{}, fmt.Errorf("encode attachment %s: %w", a.Name, err)
	}
	return Image{MediaType: "image/png", Base64Data: base64.StdEncoding.EncodeToString(out.Bytes())}, nil
}
