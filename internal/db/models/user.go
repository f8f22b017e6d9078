package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID        uint           `json:"id" gorm:"primaryKey" binding:"required"`
	Email     string         `json:"email" gorm:"uniqueIndex;type:varchar(320);not null"`
	Trips     []Trip         `json:"-" gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (u User) TableName() string {
	return "users"
}

func FindUserByID(db *gorm.DB, id uint) (User, error) {
	var user User
	err := db.First(&user, id).Error
	return user, err
}

func FindUserByEmail(db *gorm.DB, email string) (User, error) {
	var user User
	err := db.Where(&User{Email: email}).First(&user).Error
	return user, err
}

// FindOrCreateUserByEmail mirrors the identity provider's user into the local
// users table the first time it is seen.
func FindOrCreateUserByEmail(db *gorm.DB, email string) (User, error) {
	user, err := FindUserByEmail(db, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return user, err
	}
	user = User{Email: email}
	err = db.Create(&user).Error
	return user, err
}
