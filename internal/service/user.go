package service

import (
	"context"
	"fmt"
	"strings"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/logger"
	"rentacar-backend/internal/repository"
	"rentacar-backend/internal/security"
)

type ProfileInput struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Password *string `json:"password"`
}

// UserInput is the admin view of a user. Password is required on create and
// optional on update.
type UserInput struct {
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Phone    string          `json:"phone"`
	Password string          `json:"password"`
	Role     domain.UserRole `json:"role"`
	BranchID *int64          `json:"branch_id"`
}

func (in UserInput) validate(create bool) error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "name is required"
	}
	if !validEmail(normalizeEmail(in.Email)) {
		fields["email"] = "a valid email address is required"
	}
	if !in.Role.IsValid() {
		fields["role"] = "role must be one of KLIJENT, SLUZBENIK, ADMINISTRATOR"
	}
	if (create || in.Password != "") && !security.ValidPassword(in.Password) {
		fields["password"] = "password must be at least 8 characters"
	}
	if len(fields) > 0 {
		return domain.NewValidationError("VALIDATION_FAILED", "invalid user", fields)
	}
	return nil
}

type userService struct {
	store    repository.Store
	activity *ActivityRecorder
}

func NewUserService(store repository.Store, activity *ActivityRecorder) UserService {
	return &userService{store: store, activity: activity}
}

func (s *userService) GetProfile(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	return s.store.Users().GetByID(ctx, actor.UserID)
}

func (s *userService) UpdateProfile(ctx context.Context, actor domain.Actor, in ProfileInput) (*domain.User, error) {
	var user *domain.User
	err := s.activity.InTx(ctx, s.store, nil, func(tx repository.Store, record RecordFunc) error {
		var err error
		user, err = tx.Users().GetByID(ctx, actor.UserID)
		if err != nil {
			return err
		}

		fields := map[string]string{}
		if in.Name != nil {
			if user.Name = strings.TrimSpace(*in.Name); user.Name == "" {
				fields["name"] = "name is required"
			}
		}
		if in.Email != nil {
			if user.Email = normalizeEmail(*in.Email); !validEmail(user.Email) {
				fields["email"] = "a valid email address is required"
			}
		}
		if in.Phone != nil {
			user.Phone = strings.TrimSpace(*in.Phone)
		}
		if in.Password != nil {
			if !security.ValidPassword(*in.Password) {
				fields["password"] = "password must be at least 8 characters"
			} else if user.PasswordHash, err = security.HashPassword(*in.Password); err != nil {
				return err
			}
		}
		if len(fields) > 0 {
			return domain.NewValidationError("VALIDATION_FAILED", "invalid profile", fields)
		}

		if err := tx.Users().Update(ctx, user); err != nil {
			return emailTaken(err)
		}
		return record(domain.ActivityEvent{
			Actor:    actor,
			Action:   domain.ActionUserUpdated,
			Severity: domain.SeverityInfo,
			Detail:   fmt.Sprintf("User #%d updated their profile", user.ID),
		})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers lets staff search users; only admins see every role.
func (s *userService) ListUsers(ctx context.Context, actor domain.Actor, filter domain.UserFilter, page domain.PageRequest) (domain.Page[domain.User], error) {
	if err := security.Authorize(actor, security.ActionSearchUsers, security.Resource{}); err != nil {
		return domain.Page[domain.User]{}, err
	}
	if !security.CanPerform(actor, security.ActionManageUsers, security.Resource{}) {
		filter.Role = domain.UserRoleClient
	}
	filter.Search = strings.TrimSpace(filter.Search)
	page = page.Normalize()
	items, total, err := s.store.Users().List(ctx, filter, page)
	if err != nil {
		return domain.Page[domain.User]{}, err
	}
	return domain.NewPage(items, total, page), nil
}

func (s *userService) CreateUser(ctx context.Context, actor domain.Actor, in UserInput) (*domain.User, error) {
	logger.EnterMethod("userService.CreateUser", "actorID", actor.UserID, "role", in.Role)

	if err := security.Authorize(actor, security.ActionManageUsers, security.Resource{}); err != nil {
		return nil, err
	}
	if err := in.validate(true); err != nil {
		return nil, err
	}
	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, domain.NewPersistenceError(err)
	}

	user := &domain.User{
		BranchID:     in.BranchID,
		Name:         strings.TrimSpace(in.Name),
		Email:        normalizeEmail(in.Email),
		PasswordHash: hash,
		Phone:        strings.TrimSpace(in.Phone),
		Role:         in.Role,
	}
	err = s.activity.InTx(ctx, s.store, nil, func(tx repository.Store, record RecordFunc) error {
		if user.BranchID != nil {
			if _, err := tx.Branches().GetByID(ctx, *user.BranchID); err != nil {
				return requireRef(err, "branch_id", "branch does not exist")
			}
		}
		if err := tx.Users().Create(ctx, user); err != nil {
			return emailTaken(err)
		}
		return record(domain.ActivityEvent{
			Actor:    actor,
			Action:   domain.ActionUserCreated,
			Severity: domain.SeveritySuccess,
			Detail:   fmt.Sprintf("User #%d created: %s <%s> as %s", user.ID, user.Name, user.Email, user.Role),
		})
	})
	if err != nil {
		logger.ExitMethodWithError("userService.CreateUser", err)
		return nil, err
	}

	logger.ExitMethod("userService.CreateUser", "userID", user.ID)
	return user, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor domain.Actor, id int64, in UserInput) (*domain.User, error) {
	if err := security.Authorize(actor, security.ActionManageUsers, security.Resource{}); err != nil {
		return nil, err
	}
	if err := in.validate(false); err != nil {
		return nil, err
	}

	var user *domain.User
	err := s.activity.InTx(ctx, s.store, nil, func(tx repository.Store, record RecordFunc) error {
		var err error
		user, err = tx.Users().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if in.BranchID != nil {
			if _, err := tx.Branches().GetByID(ctx, *in.BranchID); err != nil {
				return requireRef(err, "branch_id", "branch does not exist")
			}
		}
		if id == actor.UserID && in.Role != user.Role {
			return domain.NewFieldError("role", "you cannot change your own role")
		}

		user.Name = strings.TrimSpace(in.Name)
		user.Email = normalizeEmail(in.Email)
		user.Phone = strings.TrimSpace(in.Phone)
		user.Role = in.Role
		user.BranchID = in.BranchID
		if in.Password != "" {
			if user.PasswordHash, err = security.HashPassword(in.Password); err != nil {
				return err
			}
		}
		if err := tx.Users().Update(ctx, user); err != nil {
			return emailTaken(err)
		}
		return record(domain.ActivityEvent{
			Actor:    actor,
			Action:   domain.ActionUserUpdated,
			Severity: domain.SeverityInfo,
			Detail:   fmt.Sprintf("User #%d updated: %s <%s> as %s", user.ID, user.Name, user.Email, user.Role),
		})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, actor domain.Actor, id int64) error {
	if err := security.Authorize(actor, security.ActionManageUsers, security.Resource{}); err != nil {
		return err
	}
	if id == actor.UserID {
		return domain.NewConflictError("SELF_DELETE", "you cannot delete your own account")
	}

	return s.activity.InTx(ctx, s.store, nil, func(tx repository.Store, record RecordFunc) error {
		user, err := tx.Users().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Users().SoftDelete(ctx, id); err != nil {
			return err
		}
		return record(domain.ActivityEvent{
			Actor:    actor,
			Action:   domain.ActionUserDeleted,
			Severity: domain.SeverityWarning,
			Detail:   fmt.Sprintf("User #%d deleted: %s <%s>", user.ID, user.Name, user.Email),
		})
	})
}
