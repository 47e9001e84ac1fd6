package user

import (
	"context"
	"errors"
	"strings"

	"meetup-backend/config"
	"meetup-backend/internal/global/database"
	"meetup-backend/internal/global/jwt"
	"meetup-backend/internal/global/response"
	"meetup-backend/internal/model"
	"meetup-backend/tools"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type credentials struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required"`
}

type registerReq struct {
	credentials
	DisplayName string `json:"display_name" binding:"required,max=50"`
}

// tokenResp 登录与注册成功后的返回
type tokenResp struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func localAuthEnabled(c *gin.Context) bool {
	if config.Get().Auth.Provider == config.AuthProviderRemote {
		response.Fail(c, response.ErrAuthModeDisabled)
		return false
	}
	return true
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login 邮箱密码登录，返回访问令牌
func Login(c *gin.Context) {
	if !localAuthEnabled(c) {
		return
	}
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("绑定登录请求失败", "error", err)
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	email := normalizeEmail(req.Email)

	var user model.User
	err := database.DB.Preload("Profile").Where("email = ?", email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		log.Warn("用户不存在", "email", email)
		response.Fail(c, response.ErrUserNotFound)
		return
	case err != nil:
		log.Error("数据库查询失败", "error", err, "email", email)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}

	// 外部身份服务创建的用户没有本地密码
	if user.Password == "" || !tools.PasswordCompare(req.Password, user.Password) {
		log.Warn("密码错误", "user_id", user.ID)
		response.Fail(c, response.ErrInvalidPassword)
		return
	}

	token, err := jwt.CreateToken(jwt.Payload{UserID: user.ID, Email: user.Email})
	if err != nil {
		response.Fail(c, response.ErrServerInternal.WithOrigin(err))
		return
	}

	log.Info("用户登录成功", "user_id", user.ID)
	response.Success(c, tokenResp{Token: token, User: &user})
}

// validatePasswordStrength 验证密码强度
func validatePasswordStrength(password string) error {
	if password == "" {
		return errors.New("密码不能为空")
	}
	if len(password) < 8 {
		return errors.New("密码长度必须至少8字符")
	}

	hasLetter := false
	hasDigit := false
	hasSpecial := false
	specialChars := "!@#$%^&*-"

	for _, char := range password {
		switch {
		case strings.ContainsRune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ", char):
			hasLetter = true
		case strings.ContainsRune("0123456789", char):
			hasDigit = true
		case strings.ContainsRune(specialChars, char):
			hasSpecial = true
		}
	}

	if !hasLetter {
		return errors.New("密码必须包含至少一个字母")
	}
	if !hasDigit {
		return errors.New("密码必须包含至少一个数字")
	}
	if !hasSpecial {
		return errors.New("密码必须包含至少一个特殊字符（!@#$%^&*-）")
	}

	return nil
}

// Register 本地注册，同时创建资料
func Register(c *gin.Context) {
	if !localAuthEnabled(c) {
		return
	}
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("绑定注册请求失败", "error", err)
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}

	if err := validatePasswordStrength(req.Password); err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithTips(err.Error()))
		return
	}

	email := normalizeEmail(req.Email)
	user := model.User{
		Email:    email,
		Password: tools.PasswordEncrypt(req.Password),
	}
	err := database.Transaction(c.Request.Context(), database.DB, func(ctx context.Context) error {
		tx := database.Conn(ctx, database.DB)
		var count int64
		if err := tx.Model(&model.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return response.ErrAlreadyExists.WithTips("邮箱已被注册")
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		user.Profile = &model.Profile{UserID: user.ID, DisplayName: strings.TrimSpace(req.DisplayName)}
		return tx.Create(user.Profile).Error
	})
	var e *response.Error
	switch {
	case errors.As(err, &e):
		response.Fail(c, e)
		return
	case err != nil:
		log.Error("创建用户失败", "error", err, "email", email)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}

	token, err := jwt.CreateToken(jwt.Payload{UserID: user.ID, Email: user.Email})
	if err != nil {
		response.Fail(c, response.ErrServerInternal.WithOrigin(err))
		return
	}

	log.Info("用户注册成功", "user_id", user.ID)
	response.Success(c, tokenResp{Token: token, User: &user})
}

// ChangePasswordReq 修改密码请求
type ChangePasswordReq struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangePassword 验证旧密码后更新为新密码
func ChangePassword(c *gin.Context) {
	if !localAuthEnabled(c) {
		return
	}
	payload, ok := jwt.GetUserPayload(c)
	if !ok {
		response.Fail(c, response.ErrUnauthorized)
		return
	}

	var req ChangePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("绑定修改密码请求失败", "error", err, "user_id", payload.UserID)
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	if err := validatePasswordStrength(req.NewPassword); err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithTips(err.Error()))
		return
	}

	var user model.User
	if err := database.DB.First(&user, payload.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Fail(c, response.ErrUserNotFound)
			return
		}
		log.Error("查询用户失败", "error", err, "user_id", payload.UserID)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	if !tools.PasswordCompare(req.OldPassword, user.Password) {
		log.Warn("旧密码错误", "user_id", user.ID)
		response.Fail(c, response.ErrInvalidPassword)
		return
	}

	if err := database.DB.Model(&user).Update("password", tools.PasswordEncrypt(req.NewPassword)).Error; err != nil {
		log.Error("更新密码失败", "error", err, "user_id", user.ID)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}

	log.Info("用户修改密码成功", "user_id", user.ID)
	response.Success(c)
}

// GetMe 当前登录用户及其资料
func GetMe(c *gin.Context) {
	payload, ok := jwt.GetUserPayload(c)
	if !ok {
		response.Fail(c, response.ErrUnauthorized)
		return
	}

	var user model.User
	err := database.DB.Preload("Profile").First(&user, payload.UserID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		response.Fail(c, response.ErrUserNotFound)
		return
	case err != nil:
		log.Error("查询用户失败", "error", err, "user_id", payload.UserID)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	response.Success(c, user)
}
