package dto

import (
	"kkp/internal/entity"
	"kkp/internal/service"
)

type UserInfo struct {
	ID         int64  `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Role       int    `json:"role"`
	MFAEnabled bool   `json:"mfa_enabled"`
}

func UserInfoFromEntity(user *entity.User) UserInfo {
	return UserInfo{
		ID:         user.ID,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Email:      user.Email,
		Role:       int(user.Role),
		MFAEnabled: user.MFAEnabled(),
	}
}

type MFAProvisionResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type MFAEnableRequest struct {
	Key      string `json:"key" validate:"required,len=16,base32"`
	Code     string `json:"code" validate:"required,len=6,numeric"`
	Password string `json:"password" validate:"required"`
}

type MFADisableRequest struct {
	Code     string `json:"code" validate:"required,len=6,numeric"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

type RegisterDeviceRequest struct {
	FcmToken string `json:"fcm_token" validate:"required,max=255"`
}

type LocationRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

type UserListResponse struct {
	Count  int64      `json:"count"`
	Result []UserInfo `json:"result"`
}

func UserListResponseFromPage(page *service.UserPage) UserListResponse {
	result := make([]UserInfo, 0, len(page.Users))
	for i := range page.Users {
		result = append(result, UserInfoFromEntity(&page.Users[i]))
	}
	return UserListResponse{Count: page.Count, Result: result}
}
