package model

import "time"

// UploadedImage describes one stored reference image.
type UploadedImage struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
}

// UploadResponse is returned after storing the mother/anchor pair.
type UploadResponse struct {
	MotherImage UploadedImage `json:"motherImage"`
	AnchorImage UploadedImage `json:"anchorImage"`
	CreatedAt   time.Time     `json:"createdAt"`
}
