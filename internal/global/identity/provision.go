package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"meetup-backend/internal/global/database"
	"meetup-backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserProvisioner 基于 user.external_id 建立外部身份与本地用户的对应关系
type UserProvisioner struct {
	db *gorm.DB
}

func NewUserProvisioner(db *gorm.DB) *UserProvisioner {
	return &UserProvisioner{db: db}
}

func (p *UserProvisioner) Provision(ctx context.Context, externalID, email string) (uint, error) {
	var user model.User
	err := p.db.WithContext(ctx).Where("external_id = ?", externalID).First(&user).Error
	if err == nil {
		return user.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	if email == "" {
		email = externalID + "@users.invalid"
	}
	err = database.Transaction(ctx, p.db, func(ctx context.Context) error {
		tx := database.Conn(ctx, p.db)
		linked, err := p.linkByEmail(tx, externalID, email)
		if err != nil {
			return err
		}
		if linked != nil {
			user = *linked
			return nil
		}

		user = model.User{ExternalID: &externalID, Email: email}
		// 并发请求可能同时创建，external_id 冲突时读取已存在的用户
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoNothing: true,
		}).Create(&user)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return tx.Where("external_id = ?", externalID).First(&user).Error
		}
		profile := model.Profile{UserID: user.ID, DisplayName: displayNameFromEmail(email)}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&profile).Error
	})
	if err != nil {
		return 0, fmt.Errorf("创建外部用户失败: %w", err)
	}
	return user.ID, nil
}

// linkByEmail 邮箱已属于本地用户时绑定 external_id，已绑定其他外部身份时返回 ErrEmailTaken
func (p *UserProvisioner) linkByEmail(tx *gorm.DB, externalID, email string) (*model.User, error) {
	var existing model.User
	err := tx.Where("email = ?", email).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if existing.ExternalID == nil {
		result := tx.Model(&model.User{}).
			Where("id = ? AND external_id IS NULL", existing.ID).
			Update("external_id", externalID)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 1 {
			existing.ExternalID = &externalID
			return &existing, nil
		}
		if err := tx.First(&existing, existing.ID).Error; err != nil {
			return nil, err
		}
	}
	if existing.ExternalID == nil || *existing.ExternalID != externalID {
		return nil, ErrEmailTaken
	}
	return &existing, nil
}

func displayNameFromEmail(email string) string {
	name, _, _ := strings.Cut(email, "@")
	if name == "" {
		return "新用户"
	}
	if len([]rune(name)) > 50 {
		name = string([]rune(name)[:50])
	}
	return name
}
