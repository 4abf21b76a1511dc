package service

import (
	"context"
	"fmt"

	"customer-api/internal/domain"
	"customer-api/internal/repository"
)

// DocumentService runs the validate-then-persist pipeline for one resource.
type DocumentService interface {
	Resource() domain.Resource
	List(ctx context.Context, filter domain.Filter) ([]domain.Document, error)
	Create(ctx context.Context, doc domain.Document) (domain.InsertResult, error)
	Update(ctx context.Context, id string, doc domain.Document) (domain.UpdateResult, error)
	Delete(ctx context.Context, id string) (domain.DeleteResult, error)
}

type documentService struct {
	resource domain.Resource
	docs     repository.DocumentRepository
}

func NewDocumentService(resource domain.Resource, docs repository.DocumentRepository) DocumentService {
	return &documentService{
		resource: resource,
		docs:     docs,
	}
}

func (s *documentService) Resource() domain.Resource {
	return s.resource
}

// List ignores filter keys the resource does not expose and blank values.
func (s *documentService) List(ctx context.Context, filter domain.Filter) ([]domain.Document, error) {
	applied := domain.Filter{}
	for _, field := range s.resource.FilterFields {
		if value := filter[field]; value != "" {
			applied[field] = value
		}
	}

	docs, err := s.docs.List(ctx, s.resource.Name, applied)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.resource.Name, err)
	}
	return docs, nil
}

func (s *documentService) Create(ctx context.Context, doc domain.Document) (domain.InsertResult, error) {
	if err := ValidateRequired(doc, s.resource.RequiredFields); err != nil {
		return domain.InsertResult{}, err
	}

	res, err := s.docs.Insert(ctx, s.resource.Name, doc)
	if err != nil {
		return domain.InsertResult{}, fmt.Errorf("create %s: %w", s.resource.Singular, err)
	}
	return res, nil
}

func (s *documentService) Update(ctx context.Context, id string, doc domain.Document) (domain.UpdateResult, error) {
	if err := ValidateRequired(doc, s.resource.RequiredFields); err != nil {
		return domain.UpdateResult{}, err
	}

	res, err := s.docs.UpdateByID(ctx, s.resource.Name, id, doc)
	if err != nil {
		return domain.UpdateResult{}, fmt.Errorf("update %s %s: %w", s.resource.Singular, id, err)
	}
	return res, nil
}

func (s *documentService) Delete(ctx context.Context, id string) (domain.DeleteResult, error) {
	res, err := s.docs.DeleteByID(ctx, s.resource.Name, id)
	if err != nil {
		return domain.DeleteResult{}, fmt.Errorf("delete %s %s: %w", s.resource.Singular, id, err)
	}
	return res, nil
}
