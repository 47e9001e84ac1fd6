package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"meetup-backend/internal/global/database"
	"meetup-backend/internal/global/jwt"
	"meetup-backend/internal/global/pictureBed"
	"meetup-backend/internal/global/response"
	"meetup-backend/internal/model"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpdateProfileReq 只更新传入的字段，gender 与 birth_date 传空字符串表示清除
type UpdateProfileReq struct {
	DisplayName *string `json:"display_name" binding:"omitempty,min=1,max=50"`
	AvatarURL   *string `json:"avatar_url" binding:"omitempty,max=512"`
	Gender      *string `json:"gender" binding:"omitempty,max=32"`
	BirthDate   *string `json:"birth_date"`
	Bio         *string `json:"bio" binding:"omitempty,max=500"`
}

func (req UpdateProfileReq) updates(now time.Time) (map[string]any, error) {
	updates := make(map[string]any)
	if req.DisplayName != nil {
		updates["display_name"] = strings.TrimSpace(*req.DisplayName)
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = *req.AvatarURL
	}
	if req.Gender != nil {
		updates["gender"] = strings.ToLower(strings.TrimSpace(*req.Gender))
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if req.BirthDate != nil {
		raw := strings.TrimSpace(*req.BirthDate)
		if raw == "" {
			updates["birth_date"] = nil
		} else {
			birth, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return nil, response.ErrInvalidRequest.WithTips("生日格式应为 YYYY-MM-DD")
			}
			if birth.After(now) {
				return nil, response.ErrInvalidRequest.WithTips("生日不能晚于今天")
			}
			updates["birth_date"] = birth
		}
	}
	return updates, nil
}

// saveProfile 资料不存在时先以邮箱前缀建档再更新
func saveProfile(ctx context.Context, userID uint, updates map[string]any) (*model.Profile, error) {
	var profile model.Profile
	err := database.Transaction(ctx, database.DB, func(ctx context.Context) error {
		tx := database.Conn(ctx, database.DB)
		var user model.User
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}
		seed := model.Profile{UserID: userID, DisplayName: defaultDisplayName(user.Email)}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}
		if len(updates) > 0 {
			if err := tx.Model(&model.Profile{}).Where("user_id = ?", userID).Updates(updates).Error; err != nil {
				return err
			}
		}
		return tx.First(&profile, "user_id = ?", userID).Error
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func defaultDisplayName(email string) string {
	name, _, _ := strings.Cut(email, "@")
	if name == "" {
		return "新用户"
	}
	return name
}

func failProfile(c *gin.Context, userID uint, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		response.Fail(c, response.ErrUserNotFound)
		return
	}
	log.Error("更新资料失败", "error", err, "user_id", userID)
	response.Fail(c, response.ErrDatabase.WithOrigin(err))
}

// UpdateProfile 修改昵称、性别、生日等资料，性别与生日影响活动报名资格
func UpdateProfile(c *gin.Context) {
	payload, ok := jwt.GetUserPayload(c)
	if !ok {
		response.Fail(c, response.ErrUnauthorized)
		return
	}
	var req UpdateProfileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	updates, err := req.updates(time.Now())
	if err != nil {
		response.Fail(c, err)
		return
	}

	profile, err := saveProfile(c.Request.Context(), payload.UserID, updates)
	if err != nil {
		failProfile(c, payload.UserID, err)
		return
	}
	log.Info("用户资料已更新", "user_id", payload.UserID, "fields", len(updates))
	response.Success(c, profile)
}

type presignReq struct {
	Filename    string `json:"filename" binding:"required,max=255"`
	ContentType string `json:"content_type" binding:"required"`
}

// PresignAvatar 返回头像直传地址，前端上传完成后通过 UpdateProfile 写入 avatar_url
func PresignAvatar(c *gin.Context) {
	payload, ok := jwt.GetUserPayload(c)
	if !ok {
		response.Fail(c, response.ErrUnauthorized)
		return
	}
	var req presignReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	if !strings.HasPrefix(req.ContentType, "image/") {
		response.Fail(c, response.ErrInvalidRequest.WithTips("头像必须是图片"))
		return
	}

	resp, err := bed.GeneratePresignedUploadURL(c.Request.Context(), pictureBed.PresignedUploadRequest{
		Filename:    req.Filename,
		ContentType: req.ContentType,
	})
	if err != nil {
		log.Error("生成头像上传地址失败", "error", err, "user_id", payload.UserID)
		response.Fail(c, response.ErrStorage.WithOrigin(err))
		return
	}
	response.Success(c, resp)
}

// UploadAvatar 经后端上传头像并立即写入资料
func UploadAvatar(c *gin.Context) {
	payload, ok := jwt.GetUserPayload(c)
	if !ok {
		response.Fail(c, response.ErrUnauthorized)
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithTips("缺少文件字段 file"))
		return
	}
	if fileHeader.Size > pictureBed.MaxImageSize {
		response.Fail(c, response.ErrInvalidRequest.WithTips("图片不能超过 5 MB"))
		return
	}
	if !strings.HasPrefix(fileHeader.Header.Get("Content-Type"), "image/") {
		response.Fail(c, response.ErrInvalidRequest.WithTips("头像必须是图片"))
		return
	}

	url, err := bed.SaveImage(c.Request.Context(), fileHeader)
	if err != nil {
		log.Error("上传头像失败", "error", err, "user_id", payload.UserID)
		response.Fail(c, response.ErrStorage.WithOrigin(err))
		return
	}

	profile, err := saveProfile(c.Request.Context(), payload.UserID, map[string]any{"avatar_url": url})
	if err != nil {
		failProfile(c, payload.UserID, err)
		return
	}
	response.Success(c, profile)
}
