package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"foodgram/domain"
	"foodgram/entities"
	"foodgram/internal/utils/mailing"
	"foodgram/internal/utils/storage"
	"foodgram/pkg/jwt"
)

const resetTokenDuration = 15 * time.Minute

type (
	UserService interface {
		Register(ctx context.Context, req domain.UserRegisterRequest) (domain.UserResponse, error)
		Login(ctx context.Context, req domain.UserLoginRequest) (domain.UserLoginResponse, error)
		SetPassword(ctx context.Context, req domain.SetPasswordRequest, userID uint) error
		ForgotPassword(ctx context.Context, req domain.ForgotPasswordRequest) error
		ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error

		GetUserByID(ctx context.Context, id uint, requesterID uint) (domain.UserResponse, error)
		GetUsers(ctx context.Context, page, limit int, requesterID uint) ([]domain.UserResponse, int64, error)

		UpdateAvatar(ctx context.Context, req domain.UpdateAvatarRequest, userID uint) (domain.UpdateAvatarResponse, error)
		DeleteAvatar(ctx context.Context, userID uint) error

		Subscribe(ctx context.Context, authorID, userID uint, recipesLimit int) (domain.UserWithRecipesResponse, error)
		Unsubscribe(ctx context.Context, authorID, userID uint) error
		GetSubscriptions(ctx context.Context, userID uint, page, limit, recipesLimit int) ([]domain.UserWithRecipesResponse, int64, error)
	}

	userService struct {
		userRepository UserRepository
		jwtService     jwt.JWTService
		s3             storage.AwsS3
	}
)

func NewUserService(userRepository UserRepository, jwtService jwt.JWTService, s3 storage.AwsS3) UserService {
	return &userService{
		userRepository: userRepository,
		jwtService:     jwtService,
		s3:             s3,
	}
}

func (s *userService) Register(ctx context.Context, req domain.UserRegisterRequest) (domain.UserResponse, error) {
	if _, err := s.userRepository.GetUserByEmail(ctx, req.Email); err == nil {
		return domain.UserResponse{}, domain.ErrEmailAlreadyUsed
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.UserResponse{}, err
	}

	if _, err := s.userRepository.GetUserByUsername(ctx, req.Username); err == nil {
		return domain.UserResponse{}, domain.ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.UserResponse{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.UserResponse{}, err
	}

	user := &entities.User{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  string(hashed),
	}

	if err := s.userRepository.CreateUser(ctx, user); err != nil {
		// A concurrent registration can slip past the lookups above; the
		// unique indexes are the source of truth.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.UserResponse{}, domain.ErrEmailAlreadyUsed
		}
		return domain.UserResponse{}, err
	}

	return toUserResponse(user, false), nil
}

func (s *userService) Login(ctx context.Context, req domain.UserLoginRequest) (domain.UserLoginResponse, error) {
	user, err := s.userRepository.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.UserLoginResponse{}, domain.ErrCredentialsInvalid
		}
		return domain.UserLoginResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return domain.UserLoginResponse{}, domain.ErrCredentialsInvalid
	}

	return domain.UserLoginResponse{
		AuthToken: s.jwtService.GenerateTokenUser(user.ID),
	}, nil
}

func (s *userService) SetPassword(ctx context.Context, req domain.SetPasswordRequest, userID uint) error {
	user, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return domain.ErrPasswordIncorrect
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.Password = string(hashed)
	return s.userRepository.UpdateUser(ctx, user)
}

func (s *userService) ForgotPassword(ctx context.Context, req domain.ForgotPasswordRequest) error {
	user, err := s.userRepository.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	token, err := s.jwtService.GenerateTokenResetPassword(user.Email, resetTokenDuration)
	if err != nil {
		return err
	}

	return mailing.SendPasswordResetMail(user.Email, token)
}

func (s *userService) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error {
	email, err := s.jwtService.ValidateTokenResetPassword(req.Token)
	if err != nil {
		return err
	}

	user, err := s.userRepository.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.Password = string(hashed)
	return s.userRepository.UpdateUser(ctx, user)
}

func (s *userService) GetUserByID(ctx context.Context, id uint, requesterID uint) (domain.UserResponse, error) {
	user, err := s.userRepository.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.UserResponse{}, domain.ErrUserNotFound
		}
		return domain.UserResponse{}, err
	}

	isSubscribed := false
	if requesterID != 0 && requesterID != id {
		if isSubscribed, err = s.userRepository.IsSubscribed(ctx, requesterID, id); err != nil {
			return domain.UserResponse{}, err
		}
	}

	return toUserResponse(user, isSubscribed), nil
}

func (s *userService) GetUsers(ctx context.Context, page, limit int, requesterID uint) ([]domain.UserResponse, int64, error) {
	users, count, err := s.userRepository.GetUsers(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]domain.UserResponse, 0, len(users))
	for _, u := range users {
		isSubscribed := false
		if requesterID != 0 && requesterID != u.ID {
			if isSubscribed, err = s.userRepository.IsSubscribed(ctx, requesterID, u.ID); err != nil {
				return nil, 0, err
			}
		}
		res = append(res, toUserResponse(u, isSubscribed))
	}

	return res, count, nil
}

func (s *userService) UpdateAvatar(ctx context.Context, req domain.UpdateAvatarRequest, userID uint) (domain.UpdateAvatarResponse, error) {
	user, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.UpdateAvatarResponse{}, domain.ErrUserNotFound
		}
		return domain.UpdateAvatarResponse{}, err
	}

	content, contentType, ext, err := storage.DecodeBase64Image(req.Avatar)
	if err != nil {
		return domain.UpdateAvatarResponse{}, domain.ErrInvalidImage
	}

	key := fmt.Sprintf("avatars/%s.%s", uuid.New().String(), ext)
	url, err := s.s3.UploadFile(ctx, key, content, contentType)
	if err != nil {
		return domain.UpdateAvatarResponse{}, err
	}

	user.AvatarURL = url
	if err := s.userRepository.UpdateUser(ctx, user); err != nil {
		return domain.UpdateAvatarResponse{}, err
	}

	return domain.UpdateAvatarResponse{Avatar: url}, nil
}

func (s *userService) DeleteAvatar(ctx context.Context, userID uint) error {
	user, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	if user.AvatarURL == "" {
		return domain.ErrNoAvatar
	}

	if err := s.s3.DeleteFile(ctx, s.s3.KeyFromURL(user.AvatarURL)); err != nil {
		return err
	}

	user.AvatarURL = ""
	return s.userRepository.UpdateUser(ctx, user)
}

func (s *userService) Subscribe(ctx context.Context, authorID, userID uint, recipesLimit int) (domain.UserWithRecipesResponse, error) {
	// Self-subscription is rejected before any duplicate check.
	if authorID == userID {
		return domain.UserWithRecipesResponse{}, domain.ErrSelfSubscription
	}

	author, err := s.userRepository.GetUserByID(ctx, authorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.UserWithRecipesResponse{}, domain.ErrUserNotFound
		}
		return domain.UserWithRecipesResponse{}, err
	}

	subscription := &entities.Subscription{
		UserID:   userID,
		AuthorID: authorID,
	}
	if err := s.userRepository.CreateSubscription(ctx, subscription); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.UserWithRecipesResponse{}, domain.ErrAlreadySubscribed
		}
		return domain.UserWithRecipesResponse{}, err
	}

	return s.toUserWithRecipes(ctx, author, true, recipesLimit)
}

func (s *userService) Unsubscribe(ctx context.Context, authorID, userID uint) error {
	if _, err := s.userRepository.GetUserByID(ctx, authorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	rows, err := s.userRepository.DeleteSubscription(ctx, userID, authorID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotSubscribed
	}
	return nil
}

func (s *userService) GetSubscriptions(ctx context.Context, userID uint, page, limit, recipesLimit int) ([]domain.UserWithRecipesResponse, int64, error) {
	authors, count, err := s.userRepository.GetSubscribedAuthors(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]domain.UserWithRecipesResponse, 0, len(authors))
	for _, author := range authors {
		projection, err := s.toUserWithRecipes(ctx, author, true, recipesLimit)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, projection)
	}

	return res, count, nil
}

func (s *userService) toUserWithRecipes(ctx context.Context, author *entities.User, isSubscribed bool, recipesLimit int) (domain.UserWithRecipesResponse, error) {
	recipes, err := s.userRepository.GetRecipesByAuthor(ctx, author.ID, recipesLimit)
	if err != nil {
		return domain.UserWithRecipesResponse{}, err
	}

	count, err := s.userRepository.CountRecipesByAuthor(ctx, author.ID)
	if err != nil {
		return domain.UserWithRecipesResponse{}, err
	}

	shortRecipes := make([]domain.RecipeShortResponse, 0, len(recipes))
	for _, r := range recipes {
		shortRecipes = append(shortRecipes, domain.RecipeShortResponse{
			ID:          r.ID,
			Name:        r.Name,
			Image:       r.ImageURL,
			CookingTime: r.CookingTime,
		})
	}

	return domain.UserWithRecipesResponse{
		UserResponse: toUserResponse(author, isSubscribed),
		Recipes:      shortRecipes,
		RecipesCount: count,
	}, nil
}

func toUserResponse(user *entities.User, isSubscribed bool) domain.UserResponse {
	res := domain.UserResponse{
		ID:           user.ID,
		Email:        user.Email,
		Username:     user.Username,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		IsSubscribed: isSubscribed,
	}
	if user.AvatarURL != "" {
		avatar := user.AvatarURL
		res.Avatar = &avatar
	}
	return res
}
