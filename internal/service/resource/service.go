package resource

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/lettermill/lettermill/internal/model"
	"github.com/lettermill/lettermill/internal/repository"
	"github.com/lettermill/lettermill/internal/storage"
	"github.com/lettermill/lettermill/pkg/errors"
)

// UploadTicket is handed to the client to perform a direct presigned PUT.
type UploadTicket struct {
	Resource  *model.Resource `json:"resource"`
	UploadURL string          `json:"upload_url"`
}

// MultipartTicket is handed to the client to drive a multipart upload.
type MultipartTicket struct {
	Resource *model.Resource `json:"resource"`
	UploadID string          `json:"upload_id"`
}

type Service interface {
	CreateUpload(ctx context.Context, req *model.CreateResourceRequest) (*UploadTicket, error)
	FinishUpload(ctx context.Context, id uuid.UUID, size int64) (*model.Resource, error)
	CreateMultipart(ctx context.Context, req *model.CreateMultipartRequest) (*MultipartTicket, error)
	PartURL(ctx context.Context, id uuid.UUID, partNumber int32) (string, error)
	CompleteMultipart(ctx context.Context, id uuid.UUID, req *model.CompleteMultipartRequest) (*model.Resource, error)
	AbortMultipart(ctx context.Context, id uuid.UUID) (*model.Resource, error)
	DownloadURL(ctx context.Context, id uuid.UUID) (string, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Resource, error)
	List(ctx context.Context, p model.Pagination) ([]*model.Resource, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo    repository.ResourceRepository
	storage storage.Client
}

func NewService(repo repository.ResourceRepository, storage storage.Client) Service {
	return &service{repo: repo, storage: storage}
}

// CreateUpload registers a pending resource and returns a presigned PUT URL.
// The resource stays pending until the client reports completion.
func (s *service) CreateUpload(ctx context.Context, req *model.CreateResourceRequest) (*UploadTicket, error) {
	res := &model.Resource{
		Base:        model.Base{ID: uuid.New()},
		Filename:    req.Filename,
		ContentType: req.ContentType,
		Size:        req.Size,
		StorageKey:  storage.NewStorageKey(req.Filename),
		Status:      model.ResourceStatusPending,
	}
	if err := s.repo.Create(ctx, res); err != nil {
		return nil, errors.Internal(err)
	}

	url, err := s.storage.PresignPut(ctx, res.StorageKey, res.ContentType)
	if err != nil {
		return nil, errors.Internal(err)
	}

	return &UploadTicket{Resource: res, UploadURL: url}, nil
}

func (s *service) FinishUpload(ctx context.Context, id uuid.UUID, size int64) (*model.Resource, error) {
	res, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, errors.NotFound("resource", err)
	}
	if res.Status == model.ResourceStatusAvailable {
		return res, nil
	}
	if res.Status != model.ResourceStatusPending {
		return nil, errors.Conflict("resource is not awaiting a simple upload", nil)
	}

	if size > 0 {
		res.Size = size
	}
	res.Status = model.ResourceStatusAvailable
	if err := s.repo.Update(ctx, res); err != nil {
		return nil, errors.Internal(err)
	}
	return res, nil
}

// CreateMultipart starts a client-driven multipart upload. The chunking,
// part uploads, and retries all happen client side against presigned part
// URLs; the server only orchestrates.
func (s *service) CreateMultipart(ctx context.Context, req *model.CreateMultipartRequest) (*MultipartTicket, error) {
	res := &model.Resource{
		Base:        model.Base{ID: uuid.New()},
		Filename:    req.Filename,
		ContentType: req.ContentType,
		Size:        req.Size,
		StorageKey:  storage.NewStorageKey(req.Filename),
		Status:      model.ResourceStatusUploading,
	}

	uploadID, err := s.storage.CreateMultipart(ctx, res.StorageKey, res.ContentType)
	if err != nil {
		return nil, errors.Internal(err)
	}
	res.UploadID = &uploadID

	if err := s.repo.Create(ctx, res); err != nil {
		// The registered upload would otherwise dangle in the bucket.
		_ = s.storage.AbortMultipart(ctx, res.StorageKey, uploadID)
		return nil, errors.Internal(err)
	}

	return &MultipartTicket{Resource: res, UploadID: uploadID}, nil
}

func (s *service) PartURL(ctx context.Context, id uuid.UUID, partNumber int32) (string, error) {
	if partNumber < 1 || partNumber > 10000 {
		return "", errors.BadRequest("part number must be between 1 and 10000", nil)
	}

	res, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", errors.NotFound("resource", err)
	}
	if res.Status != model.ResourceStatusUploading || res.UploadID == nil {
		return "", errors.Conflict("resource has no multipart upload in progress", nil)
	}

	url, err := s.storage.PresignUploadPart(ctx, res.StorageKey, *res.UploadID, partNumber)
	if err != nil {
		return "", errors.Internal(err)
	}
	return url, nil
}

func (s *service) CompleteMultipart(ctx context.Context, id uuid.UUID, req *model.CompleteMultipartRequest) (*model.Resource, error) {
	res, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, errors.NotFound("resource", err)
	}
	if res.Status != model.ResourceStatusUploading || res.UploadID == nil {
		return nil, errors.Conflict("resource has no multipart upload in progress", nil)
	}

	parts := make([]storage.Part, 0, len(req.Parts))
	for _, p := range req.Parts {
		parts = append(parts, storage.Part{PartNumber: p.PartNumber, ETag: p.ETag})
	}
	// S3 requires parts in ascending order.
	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })

	if err := s.storage.CompleteMultipart(ctx, res.StorageKey, *res.UploadID, parts); err != nil {
		return nil, errors.Internal(err)
	}

	res.Status = model.ResourceStatusAvailable
	res.UploadID = nil
	if err := s.repo.Update(ctx, res); err != nil {
		return nil, errors.Internal(err)
	}
	return res, nil
}

func (s *service) AbortMultipart(ctx context.Context, id uuid.UUID) (*model.Resource, error) {
	res, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, errors.NotFound("resource", err)
	}
	if res.Status != model.ResourceStatusUploading || res.UploadID == nil {
		return nil, errors.Conflict("resource has no multipart upload in progress", nil)
	}

	if err := s.storage.AbortMultipart(ctx, res.StorageKey, *res.UploadID); err != nil {
		return nil, errors.Internal(err)
	}

	res.Status = model.ResourceStatusAborted
	res.UploadID = nil
	if err := s.repo.Update(ctx, res); err != nil {
		return nil, errors.Internal(err)
	}
	return res, nil
}

func (s *service) DownloadURL(ctx context.Context, id uuid.UUID) (string, error) {
	res, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", errors.NotFound("resource", err)
	}
	if res.Status != model.ResourceStatusAvailable {
		return "", errors.Conflict("resource is not available", nil)
	}

	url, err := s.storage.PresignGet(ctx, res.StorageKey)
	if err != nil {
		return "", errors.Internal(err)
	}
	return url, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*model.Resource, error) {
	res, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, errors.NotFound("resource", err)
	}
	return res, nil
}

func (s *service) List(ctx context.Context, p model.Pagination) ([]*model.Resource, int, error) {
	p.Normalize()
	resources, total, err := s.repo.List(ctx, p)
	if err != nil {
		return nil, 0, errors.Internal(err)
	}
	return resources, total, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.repo.Get(ctx, id)
	if err != nil {
		return errors.NotFound("resource", err)
	}
	if res.Status == model.ResourceStatusUploading && res.UploadID != nil {
		_ = s.storage.AbortMultipart(ctx, res.StorageKey, *res.UploadID)
	}
	if res.Status == model.ResourceStatusAvailable {
		if err := s.storage.Delete(ctx, res.StorageKey); err != nil {
			return errors.Internal(err)
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return errors.Internal(err)
	}
	return nil
}
