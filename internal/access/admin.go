package access

import (
	"context"
	"errors"
)

var (
	// ErrStoreNotFound indicates the administered store does not exist.
	ErrStoreNotFound = errors.New("access: store not found")
	// ErrStoreRoleExists indicates the user already holds a role in the store.
	ErrStoreRoleExists = errors.New("access: user already has a role in the store")
	// ErrStoreRoleNotFound indicates the user holds no role in the store.
	ErrStoreRoleNotFound = errors.New("access: user has no role in the store")
	// ErrAdminStoreRole indicates a store role change targeting a company admin.
	ErrAdminStoreRole = errors.New("access: company admins cannot hold store roles")
	// ErrSelfCompanyRole indicates an attempt to change one's own company role.
	ErrSelfCompanyRole = errors.New("access: own company role cannot be changed")
)

// User is the administered view of an account.
type User struct {
	ID          int64       `json:"id"`
	Email       string      `json:"email"`
	CompanyRole CompanyRole `json:"company_role"`
}

// StoreMember is a user together with their role in one store.
type StoreMember struct {
	User
	Role StoreRole `json:"role"`
}

// StoreWithUsers lists the members of a store.
type StoreWithUsers struct {
	ID    int64         `json:"id"`
	Title string        `json:"title"`
	Users []StoreMember `json:"users"`
}

// AssignStoreRoleInput grants a user a role in a store.
type AssignStoreRoleInput struct {
	UserID int64     `json:"user_id" validate:"required,min=1"`
	Role   StoreRole `json:"role" validate:"required,oneof=manager seller viewer"`
}

// UpdateStoreRoleInput replaces a user's role in a store.
type UpdateStoreRoleInput struct {
	Role StoreRole `json:"role" validate:"required,oneof=manager seller viewer"`
}

// UpdateCompanyRoleInput changes a user's company role. Owner is never
// assignable.
type UpdateCompanyRoleInput struct {
	Role CompanyRole `json:"role" validate:"required,oneof=admin member"`
}

// AdminRepositoryPort abstracts persistence for role administration.
type AdminRepositoryPort interface {
	GetUser(ctx context.Context, id int64) (User, error)
	StoreExists(ctx context.Context, id int64) (bool, error)
	StoreWithUsers(ctx context.Context, storeID int64) (StoreWithUsers, error)
	InsertStoreRole(ctx context.Context, storeID, userID int64, role StoreRole) error
	UpdateStoreRole(ctx context.Context, storeID, userID int64, role StoreRole) error
	DeleteStoreRole(ctx context.Context, storeID, userID int64) error
	UpdateCompanyRole(ctx context.Context, userID int64, role CompanyRole) (User, error)
}

// AdminService manages store memberships and company roles. Principals are
// loaded per request, so changes apply to the next request of the user.
type AdminService struct {
	repo AdminRepositoryPort
}

// NewAdminService builds AdminService.
func NewAdminService(repo AdminRepositoryPort) *AdminService {
	return &AdminService{repo: repo}
}

// StoreWithUsers returns the store and its members ordered by user id.
func (s *AdminService) StoreWithUsers(ctx context.Context, storeID int64) (StoreWithUsers, error) {
	return s.repo.StoreWithUsers(ctx, storeID)
}

// AssignStoreRole grants input.UserID a role in the store.
func (s *AdminService) AssignStoreRole(ctx context.Context, storeID int64, input AssignStoreRoleInput) (StoreWithUsers, error) {
	if err := s.checkMember(ctx, input.UserID); err != nil {
		return StoreWithUsers{}, err
	}
	if err := s.checkStore(ctx, storeID); err != nil {
		return StoreWithUsers{}, err
	}
	if err := s.repo.InsertStoreRole(ctx, storeID, input.UserID, input.Role); err != nil {
		return StoreWithUsers{}, err
	}
	return s.repo.StoreWithUsers(ctx, storeID)
}

// UpdateStoreRole replaces the user's role in the store.
func (s *AdminService) UpdateStoreRole(ctx context.Context, storeID, userID int64, input UpdateStoreRoleInput) (StoreWithUsers, error) {
	if err := s.checkStore(ctx, storeID); err != nil {
		return StoreWithUsers{}, err
	}
	if err := s.checkMember(ctx, userID); err != nil {
		return StoreWithUsers{}, err
	}
	if err := s.repo.UpdateStoreRole(ctx, storeID, userID, input.Role); err != nil {
		return StoreWithUsers{}, err
	}
	return s.repo.StoreWithUsers(ctx, storeID)
}

// UnassignStoreRole removes the user from the store.
func (s *AdminService) UnassignStoreRole(ctx context.Context, storeID, userID int64) error {
	if err := s.checkStore(ctx, storeID); err != nil {
		return err
	}
	if err := s.checkMember(ctx, userID); err != nil {
		return err
	}
	return s.repo.DeleteStoreRole(ctx, storeID, userID)
}

// UpdateCompanyRole lets the owner move other users between admin and member.
func (s *AdminService) UpdateCompanyRole(ctx context.Context, actor Principal, userID int64, input UpdateCompanyRoleInput) (User, error) {
	if actor.CompanyRole != CompanyRoleOwner {
		return User{}, ErrForbidden
	}
	if actor.UserID == userID {
		return User{}, ErrSelfCompanyRole
	}
	if input.Role != CompanyRoleAdmin && input.Role != CompanyRoleMember {
		return User{}, ErrForbidden
	}
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if user.CompanyRole == CompanyRoleOwner {
		return User{}, ErrForbidden
	}
	return s.repo.UpdateCompanyRole(ctx, userID, input.Role)
}

// checkMember rejects unknown users and company admins, whose access never
// depends on store roles.
func (s *AdminService) checkMember(ctx context.Context, userID int64) error {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.CompanyRole == CompanyRoleOwner || user.CompanyRole == CompanyRoleAdmin {
		return ErrAdminStoreRole
	}
	return nil
}

func (s *AdminService) checkStore(ctx context.Context, storeID int64) error {
	ok, err := s.repo.StoreExists(ctx, storeID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrStoreNotFound
	}
	return nil
}
