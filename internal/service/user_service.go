package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"opticinvoicer/internal/model"
	"opticinvoicer/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	accessTokenTTL  = 24 * time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
	trialDays       = 30
)

// --- DTOs ---

type RegisterOrganizationRequest struct {
	OrganizationName string `json:"organization_name" binding:"required"`
	Email            string `json:"email" binding:"required,email"`
	Country          string `json:"country"`
	City             string `json:"city"`
	Username         string `json:"username" binding:"required"`
	Password         string `json:"password" binding:"required,min=8"`
	FirstName        string `json:"first_name" binding:"required"`
	LastName         string `json:"last_name"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type InviteStaffRequest struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	FirstName   string `json:"first_name" binding:"required"`
	LastName    string `json:"last_name"`
	Designation string `json:"designation"`
	Phone       string `json:"phone"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthenticatedUser is the resolved identity carried through a session.
type AuthenticatedUser struct {
	UserID         uuid.UUID `json:"user_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Username       string    `json:"username"`
	Role           string    `json:"role"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
}

// --- Interface ---

type UserService interface {
	RegisterOrganization(ctx context.Context, req RegisterOrganizationRequest) (*AuthenticatedUser, error)
	Login(ctx context.Context, req LoginRequest) (*TokenPair, *AuthenticatedUser, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID uuid.UUID) (*AuthenticatedUser, error)
	InviteStaff(ctx context.Context, orgID, actorID uuid.UUID, req InviteStaffRequest) (*model.Staff, error)
	ListStaff(ctx context.Context, orgID uuid.UUID, page, limit int) ([]model.Staff, int64, error)
}

type userService struct {
	userRepo  repository.UserRepository
	orgRepo   repository.OrganizationRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	mailer    Mailer
	log       *zap.Logger
	jwtSecret []byte
}

func NewUserService(
	userRepo repository.UserRepository,
	orgRepo repository.OrganizationRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	mailer Mailer,
	log *zap.Logger,
	jwtSecret []byte,
) UserService {
	return &userService{
		userRepo:  userRepo,
		orgRepo:   orgRepo,
		auditRepo: auditRepo,
		txManager: txManager,
		mailer:    mailer,
		log:       log,
		jwtSecret: jwtSecret,
	}
}

// --- Implementation ---

func (s *userService) RegisterOrganization(ctx context.Context, req RegisterOrganizationRequest) (*AuthenticatedUser, error) {
	if _, err := s.userRepo.GetByUsername(ctx, req.Username); err == nil {
		return nil, errors.New("username already exists")
	}
	if _, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, errors.New("email already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var user *model.User
	var org *model.Organization
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		org = &model.Organization{
			Name:     req.OrganizationName,
			Email:    req.Email,
			Country:  req.Country,
			City:     req.City,
			IsActive: true,
			IsRetail: true,
		}
		if err := s.orgRepo.Create(txCtx, org); err != nil {
			return fmt.Errorf("failed to create organization: %w", err)
		}

		user = &model.User{
			Username: req.Username,
			Email:    req.Email,
			Password: string(hashed),
			Role:     model.RoleAdmin,
		}
		if err := s.userRepo.Create(txCtx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		staff := &model.Staff{
			UserID:         user.ID,
			OrganizationID: org.ID,
			FirstName:      req.FirstName,
			LastName:       req.LastName,
			Email:          req.Email,
			IsSuperStaff:   true,
			IsActive:       true,
		}
		if err := s.userRepo.CreateStaff(txCtx, staff); err != nil {
			return fmt.Errorf("failed to create staff profile: %w", err)
		}

		now := time.Now()
		trialEnd := now.AddDate(0, 0, trialDays)
		sub := &model.Subscription{
			OrganizationID:   org.ID,
			SubscriptionType: model.SubscriptionTrial,
			Status:           model.SubscriptionStatusTrial,
			TrialStartDate:   &now,
			TrialEndDate:     &trialEnd,
			IsActive:         true,
		}
		if err := s.orgRepo.CreateSubscription(txCtx, sub); err != nil {
			return fmt.Errorf("failed to create trial subscription: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &AuthenticatedUser{
		UserID:         user.ID,
		OrganizationID: org.ID,
		Username:       user.Username,
		Role:           user.Role,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
	}, nil
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (*TokenPair, *AuthenticatedUser, error) {
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, nil, errors.New("invalid username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, nil, errors.New("invalid username or password")
	}

	staff, err := s.userRepo.GetStaffByUserID(ctx, user.ID)
	if err != nil {
		return nil, nil, errors.New("no staff profile linked to this account")
	}
	if !staff.IsActive {
		return nil, nil, errors.New("staff account is deactivated")
	}

	pair, err := s.issueTokens(ctx, user, staff.OrganizationID)
	if err != nil {
		return nil, nil, err
	}

	return pair, &AuthenticatedUser{
		UserID:         user.ID,
		OrganizationID: staff.OrganizationID,
		Username:       user.Username,
		Role:           user.Role,
		FirstName:      staff.FirstName,
		LastName:       staff.LastName,
	}, nil
}

// issueTokens signs an access token carrying user, organization and role
// claims, and persists a refresh token.
func (s *userService) issueTokens(ctx context.Context, user *model.User, orgID uuid.UUID) (*TokenPair, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID.String(),
		"org":  orgID.String(),
		"role": user.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(accessTokenTTL).Unix(),
	})
	accessToken, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	refreshToken := hex.EncodeToString(raw)

	if err := s.userRepo.SaveRefreshToken(ctx, &model.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: now.Add(refreshTokenTTL),
	}); err != nil {
		return nil, fmt.Errorf("failed to persist refresh token: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *userService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	stored, err := s.userRepo.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, errors.New("invalid refresh token")
	}
	if time.Now().After(stored.ExpiresAt) {
		_ = s.userRepo.RevokeRefreshToken(ctx, refreshToken)
		return nil, errors.New("refresh token expired")
	}

	user, err := s.userRepo.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, errors.New("user no longer exists")
	}
	staff, err := s.userRepo.GetStaffByUserID(ctx, user.ID)
	if err != nil {
		return nil, errors.New("no staff profile linked to this account")
	}

	// Rotate: the presented token is revoked and a fresh pair issued.
	if err := s.userRepo.RevokeRefreshToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return s.issueTokens(ctx, user, staff.OrganizationID)
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.userRepo.RevokeRefreshToken(ctx, refreshToken)
}

func (s *userService) Me(ctx context.Context, userID uuid.UUID) (*AuthenticatedUser, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrNotFound
	}
	staff, err := s.userRepo.GetStaffByUserID(ctx, user.ID)
	if err != nil {
		return nil, ErrNotFound
	}
	return &AuthenticatedUser{
		UserID:         user.ID,
		OrganizationID: staff.OrganizationID,
		Username:       user.Username,
		Role:           user.Role,
		FirstName:      staff.FirstName,
		LastName:       staff.LastName,
	}, nil
}

func (s *userService) InviteStaff(ctx context.Context, orgID, actorID uuid.UUID, req InviteStaffRequest) (*model.Staff, error) {
	if _, err := s.userRepo.GetByUsername(ctx, req.Username); err == nil {
		return nil, errors.New("username already exists")
	}
	if _, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, errors.New("email already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}

	var staff *model.Staff
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		user := &model.User{
			Username: req.Username,
			Email:    req.Email,
			Password: string(hashed),
			Role:     model.RoleStaff,
		}
		if err := s.userRepo.Create(txCtx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		staff = &model.Staff{
			UserID:         user.ID,
			OrganizationID: orgID,
			FirstName:      req.FirstName,
			LastName:       req.LastName,
			Designation:    req.Designation,
			Phone:          req.Phone,
			Email:          req.Email,
			IsActive:       true,
			CreatedByID:    &actorID,
		}
		if err := s.userRepo.CreateStaff(txCtx, staff); err != nil {
			return fmt.Errorf("failed to create staff profile: %w", err)
		}

		audit := &model.AuditLog{
			OrganizationID: orgID,
			UserID:         &actorID,
			Action:         model.ActionCreateStaff,
			EntityID:       staff.ID.String(),
			EntityName:     req.FirstName + " " + req.LastName,
			Details:        fmt.Sprintf(`{"username":%q}`, req.Username),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Invitation mail is best effort; a delivery failure never undoes the
	// account that was just created.
	subject := fmt.Sprintf("You have been invited to %s", org.Name)
	body := fmt.Sprintf("Hello %s,\n\nAn account has been created for you at %s. Sign in with username %q.\n",
		req.FirstName, org.Name, req.Username)
	if err := s.mailer.Send(req.Email, subject, body); err != nil {
		s.log.Warn("failed to send staff invitation mail",
			zap.String("email", req.Email), zap.Error(err))
	}

	return staff, nil
}

func (s *userService) ListStaff(ctx context.Context, orgID uuid.UUID, page, limit int) ([]model.Staff, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.userRepo.ListStaff(ctx, orgID, page, limit)
}
