package model

// ResourceStatus tracks an uploaded document through its storage lifecycle.
type ResourceStatus string

const (
	ResourceStatusPending   ResourceStatus = "pending"
	ResourceStatusUploading ResourceStatus = "uploading"
	ResourceStatusAvailable ResourceStatus = "available"
	ResourceStatusAborted   ResourceStatus = "aborted"
)

// Resource is a document stored in object storage. Bytes never pass through
// the API server; clients upload directly via presigned URLs.
type Resource struct {
	Base
	Filename    string         `json:"filename" db:"filename"`
	ContentType string         `json:"content_type" db:"content_type"`
	Size        int64          `json:"size" db:"size"`
	StorageKey  string         `json:"storage_key" db:"storage_key"`
	Status      ResourceStatus `json:"status" db:"status"`
	UploadID    *string        `json:"upload_id,omitempty" db:"upload_id"`
}

// CreateResourceRequest starts a simple presigned upload.
type CreateResourceRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	Size        int64  `json:"size"`
}

// CreateMultipartRequest starts a client-driven multipart upload.
type CreateMultipartRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	Size        int64  `json:"size" binding:"required"`
}

// CompletedPart identifies one uploaded part of a multipart upload.
type CompletedPart struct {
	PartNumber int32  `json:"part_number" binding:"required"`
	ETag       string `json:"etag" binding:"required"`
}

// CompleteMultipartRequest finishes a multipart upload.
type CompleteMultipartRequest struct {
	Parts []CompletedPart `json:"parts" binding:"required,min=1"`
}
