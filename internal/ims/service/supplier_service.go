package service

import (
	"context"

	"github.com/bitfantasy/garo/internal/ims/entity"
	"github.com/bitfantasy/garo/internal/ims/repository"
	"github.com/google/uuid"
)

// SupplierService 供应商维护
type SupplierService struct {
	repo      *repository.SupplierRepository
	auditRepo *repository.AuditLogRepository
}

func NewSupplierService(repo *repository.SupplierRepository, auditRepo *repository.AuditLogRepository) *SupplierService {
	return &SupplierService{repo: repo, auditRepo: auditRepo}
}

// CreateSupplierRequest 创建供应商请求
type CreateSupplierRequest struct {
	Code          string `json:"code" binding:"required"`
	Name          string `json:"name" binding:"required"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email" binding:"omitempty,email"`
	Address       string `json:"address"`
	Notes         string `json:"notes"`
}

// UpdateSupplierRequest 更新供应商请求
type UpdateSupplierRequest struct {
	Name          *string `json:"name"`
	ContactPerson *string `json:"contact_person"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email" binding:"omitempty,email"`
	Address       *string `json:"address"`
	Status        *string `json:"status" binding:"omitempty,oneof=active inactive"`
	Notes         *string `json:"notes"`
}

// ListSuppliers 供应商列表
func (s *SupplierService) ListSuppliers(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Supplier, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

// GetSupplier 供应商详情
func (s *SupplierService) GetSupplier(ctx context.Context, id string) (*entity.Supplier, error) {
	supplier, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, NotFoundErr("供应商不存在")
		}
		return nil, err
	}
	return supplier, nil
}

// CreateSupplier 创建供应商
func (s *SupplierService) CreateSupplier(ctx context.Context, actor Actor, req *CreateSupplierRequest) (*entity.Supplier, error) {
	supplier := &entity.Supplier{
		ID:            uuid.New().String()[:32],
		Code:          req.Code,
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		Status:        "active",
		CreatedBy:     actor.UserID,
		Notes:         req.Notes,
	}
	if err := s.repo.Create(ctx, supplier); err != nil {
		return nil, err
	}
	s.auditRepo.Record(ctx, actor.UserID, entity.EntityTypeSupplier, supplier.ID, entity.ActionCreate,
		nil, toJSONB(supplier), "api")
	return supplier, nil
}

// UpdateSupplier 更新供应商
func (s *SupplierService) UpdateSupplier(ctx context.Context, actor Actor, id string, req *UpdateSupplierRequest) (*entity.Supplier, error) {
	supplier, err := s.GetSupplier(ctx, id)
	if err != nil {
		return nil, err
	}

	before := toJSONB(supplier)

	if req.Name != nil {
		supplier.Name = *req.Name
	}
	if req.ContactPerson != nil {
		supplier.ContactPerson = *req.ContactPerson
	}
	if req.Phone != nil {
		supplier.Phone = *req.Phone
	}
	if req.Email != nil {
		supplier.Email = *req.Email
	}
	if req.Address != nil {
		supplier.Address = *req.Address
	}
	if req.Status != nil {
		supplier.Status = *req.Status
	}
	if req.Notes != nil {
		supplier.Notes = *req.Notes
	}

	if err := s.repo.Update(ctx, supplier); err != nil {
		return nil, err
	}
	s.auditRepo.Record(ctx, actor.UserID, entity.EntityTypeSupplier, supplier.ID, entity.ActionUpdate,
		before, toJSONB(supplier), "api")
	return supplier, nil
}
