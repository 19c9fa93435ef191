package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/staffly-dev/hr-attendance-api/internal/models"
	appErrors "github.com/staffly-dev/hr-attendance-api/pkg/errors"
)

type employeeStore interface {
	Create(ctx context.Context, e *models.Employee) error
	FindByID(ctx context.Context, id string) (*models.Employee, error)
	Update(ctx context.Context, e *models.Employee) error
	List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, int, error)
	Deactivate(ctx context.Context, id string) error
}

// EmployeeService manages the employee directory.
type EmployeeService struct {
	repo      employeeStore
	validator *validator.Validate
	logger    *zap.Logger
}

func NewEmployeeService(repo employeeStore, validate *validator.Validate, logger *zap.Logger) *EmployeeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmployeeService{repo: repo, validator: validate, logger: logger}
}

// EmployeeInput is the create/update payload.
type EmployeeInput struct {
	Number     string  `json:"number" validate:"required"`
	FullName   string  `json:"full_name" validate:"required"`
	Email      string  `json:"email" validate:"required,email"`
	Department *string `json:"department"`
	Position   *string `json:"position"`
	Kind       string  `json:"kind" validate:"required,oneof=staff faculty"`
}

// Create registers a new employee.
func (s *EmployeeService) Create(ctx context.Context, input EmployeeInput) (*models.Employee, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid employee payload")
	}
	employee := &models.Employee{
		Number:     input.Number,
		FullName:   input.FullName,
		Email:      input.Email,
		Department: input.Department,
		Position:   input.Position,
		Kind:       models.EmployeeKind(input.Kind),
		Active:     true,
	}
	if err := s.repo.Create(ctx, employee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create employee")
	}
	s.logger.Info("employee created", zap.String("employee_id", employee.ID), zap.String("number", employee.Number))
	return employee, nil
}

// Get returns one employee by id.
func (s *EmployeeService) Get(ctx context.Context, id string) (*models.Employee, error) {
	employee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}
	if employee == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
	}
	return employee, nil
}

// Update overwrites the mutable fields of an existing employee.
func (s *EmployeeService) Update(ctx context.Context, id string, input EmployeeInput) (*models.Employee, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid employee payload")
	}
	employee, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	employee.Number = input.Number
	employee.FullName = input.FullName
	employee.Email = input.Email
	employee.Department = input.Department
	employee.Position = input.Position
	employee.Kind = models.EmployeeKind(input.Kind)
	if err := s.repo.Update(ctx, employee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update employee")
	}
	return employee, nil
}

// EmployeeListRequest filters and pages directory listings.
type EmployeeListRequest struct {
	Department string
	Kind       *string
	Active     *bool
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// List returns paginated employees.
func (s *EmployeeService) List(ctx context.Context, req EmployeeListRequest) ([]models.Employee, *models.Pagination, error) {
	var kind *models.EmployeeKind
	if req.Kind != nil {
		k := models.EmployeeKind(*req.Kind)
		if k != models.EmployeeKindStaff && k != models.EmployeeKindFaculty {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown employee kind")
		}
		kind = &k
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = 50
	}
	filter := models.EmployeeFilter{
		Department: req.Department,
		Kind:       kind,
		Active:     req.Active,
		Search:     req.Search,
		Page:       page,
		PageSize:   size,
		SortBy:     req.SortBy,
		SortOrder:  req.SortOrder,
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list employees")
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Deactivate soft-deletes an employee. Historical attendance is kept.
func (s *EmployeeService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate employee")
	}
	return nil
}
