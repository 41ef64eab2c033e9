package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	directoryerrors "go-payroll/internal/directory/errors"
	"go-payroll/internal/tenant"
)

//go:generate mockgen -source=directory_repo.go -destination=mock/directory_repo_mock.go -package=mock
type Repository interface {
	FindByEmployee(ctx context.Context, companyID string, employeeID string) (*CompensationSnapshot, error)
	FindByEmployees(ctx context.Context, companyID string, employeeIDs []string) (map[string]CompensationSnapshot, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByEmployee(ctx context.Context, companyID string, employeeID string) (*CompensationSnapshot, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return nil, directoryerrors.ErrInvalidEmployeeID
	}

	var snap CompensationSnapshot
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&snap, "employee_id = ?", employeeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, directoryerrors.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// FindByEmployees returns the snapshots that exist, keyed by employee id.
// Missing employees are simply absent from the map.
func (r *repository) FindByEmployees(ctx context.Context, companyID string, employeeIDs []string) (map[string]CompensationSnapshot, error) {
	out := make(map[string]CompensationSnapshot, len(employeeIDs))
	if len(employeeIDs) == 0 {
		return out, nil
	}

	var snaps []CompensationSnapshot
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("employee_id IN ?", employeeIDs).
		Find(&snaps).Error
	if err != nil {
		return nil, err
	}

	for _, s := range snaps {
		out[s.EmployeeID.String()] = s
	}
	return out, nil
}
