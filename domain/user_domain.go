package domain

import (
	"errors"
)

var (
	MessageSuccessRegister         = "user registered successfully"
	MessageSuccessLogin            = "login success"
	MessageSuccessGetProfile       = "success get profile"
	MessageSuccessGetUsers         = "success get users"
	MessageSuccessSetPassword      = "password changed successfully"
	MessageSuccessForgotPassword   = "password reset email sent"
	MessageSuccessResetPassword    = "password reset successfully"
	MessageSuccessUpdateAvatar     = "avatar updated successfully"
	MessageSuccessSubscribe        = "subscribed successfully"
	MessageSuccessGetSubscriptions = "success get subscriptions"

	MessageFailedRegister         = "failed to register user"
	MessageFailedLogin            = "failed to login"
	MessageFailedGetProfile       = "failed to get profile"
	MessageFailedGetUsers         = "failed to get users"
	MessageFailedSetPassword      = "failed to change password"
	MessageFailedForgotPassword   = "failed to send password reset email"
	MessageFailedResetPassword    = "failed to reset password"
	MessageFailedUpdateAvatar     = "failed to update avatar"
	MessageFailedDeleteAvatar     = "failed to delete avatar"
	MessageFailedSubscribe        = "failed to subscribe"
	MessageFailedUnsubscribe      = "failed to unsubscribe"
	MessageFailedGetSubscriptions = "failed to get subscriptions"

	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyUsed   = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrCredentialsInvalid = errors.New("invalid email or password")
	ErrPasswordIncorrect  = errors.New("current password is incorrect")
	ErrSelfSubscription   = errors.New("cannot subscribe to yourself")
	ErrAlreadySubscribed  = errors.New("already subscribed to this user")
	ErrNotSubscribed      = errors.New("not subscribed to this user")
	ErrNoAvatar           = errors.New("user has no avatar")
)

type (
	UserRegisterRequest struct {
		Email     string `json:"email" validate:"required,email,max=254"`
		Username  string `json:"username" validate:"required,max=150,username"`
		FirstName string `json:"first_name" validate:"required,max=150"`
		LastName  string `json:"last_name" validate:"required,max=150"`
		Password  string `json:"password" validate:"required,min=8,max=150"`
	}

	UserLoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	UserLoginResponse struct {
		AuthToken string `json:"auth_token"`
	}

	SetPasswordRequest struct {
		CurrentPassword string `json:"current_password" validate:"required"`
		NewPassword     string `json:"new_password" validate:"required,min=8,max=150"`
	}

	ForgotPasswordRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	ResetPasswordRequest struct {
		Token       string `json:"token" validate:"required"`
		NewPassword string `json:"new_password" validate:"required,min=8,max=150"`
	}

	UpdateAvatarRequest struct {
		Avatar string `json:"avatar" validate:"required"`
	}

	UpdateAvatarResponse struct {
		Avatar string `json:"avatar"`
	}

	UserResponse struct {
		ID           uint    `json:"id"`
		Email        string  `json:"email"`
		Username     string  `json:"username"`
		FirstName    string  `json:"first_name"`
		LastName     string  `json:"last_name"`
		IsSubscribed bool    `json:"is_subscribed"`
		Avatar       *string `json:"avatar"`
	}

	UserWithRecipesResponse struct {
		UserResponse
		Recipes      []RecipeShortResponse `json:"recipes"`
		RecipesCount int64                 `json:"recipes_count"`
	}
)
