package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Response types ---

type uploadResponse struct {
	Filename   string    `json:"filename"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedAt time.Time `json:"uploaded_at"`
	Replaced   bool      `json:"replaced"`
}

type listResponse struct {
	Files []string `json:"files"`
}

// fileDescriptorResponse is one search/list hit. Owner is present only when
// the caller is an admin.
type fileDescriptorResponse struct {
	Filename   string    `json:"filename"`
	Owner      string    `json:"owner,omitempty"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type searchResponse struct {
	Results []fileDescriptorResponse `json:"results"`
}

type deleteResponse struct {
	Filename string `json:"filename"`
	Hard     bool   `json:"hard"`
}

type deleteAllResponse struct {
	Deleted int `json:"deleted"`
}
