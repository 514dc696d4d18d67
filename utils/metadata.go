package utils

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// CaptureMetadata holds EXIF-derived fields used to default optional baseline
// attributes the uploader left blank.
type CaptureMetadata struct {
	CameraMake  *string
	CameraModel *string
	TakenAt     *time.Time
}

// helper to safely get and trim a string tag (like Make, Model)
func getString(exifData *exif.Exif, tagName exif.FieldName) *string {
	tag, err := exifData.Get(tagName)
	if err != nil || tag == nil {
		return nil // Tag not found
	}
	val, err := tag.StringVal()
	if err != nil {
		return nil
	}
	trimmed := strings.TrimSpace(val)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// GetCaptureMetadata extracts camera make/model and the capture time from an
// image payload's EXIF block. Images without EXIF (most PNGs, screenshots)
// return an error; callers treat that as "nothing to default from".
func GetCaptureMetadata(blob []byte) (*CaptureMetadata, error) {
	exifData, err := exif.Decode(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to decode EXIF data: %w", err)
	}

	meta := &CaptureMetadata{
		CameraMake:  getString(exifData, exif.Make),
		CameraModel: getString(exifData, exif.Model),
	}

	if takenAt, err := exifData.DateTime(); err == nil {
		meta.TakenAt = &takenAt
	}

	return meta, nil
}

// CameraLabel joins make and model into a single display string, dropping a
// model prefix that repeats the make (e.g. "Canon Canon EOS R5")
func (m *CaptureMetadata) CameraLabel() string {
	if m == nil {
		return ""
	}
	switch {
	case m.CameraMake != nil && m.CameraModel != nil:
		if strings.HasPrefix(*m.CameraModel, *m.CameraMake) {
			return *m.CameraModel
		}
		return *m.CameraMake + " " + *m.CameraModel
	case m.CameraModel != nil:
		return *m.CameraModel
	case m.CameraMake != nil:
		return *m.CameraMake
	}
	return ""
}
