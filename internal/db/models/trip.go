package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-nulltype"
	"gorm.io/gorm"
)

type Trip struct {
	ID             string              `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OwnerID        uint                `json:"-" gorm:"index;not null"`
	Title          string              `json:"title" gorm:"not null"`
	Description    string              `json:"description"`
	StartDate      time.Time           `json:"start_date"`
	EndDate        time.Time           `json:"end_date"`
	ImageURL       nulltype.NullString `json:"image_url" gorm:"type:varchar(2048)"`
	PlanArchiveKey nulltype.NullString `json:"-" gorm:"type:varchar(255)"`
	Waypoints      []Waypoint          `json:"waypoints,omitempty" gorm:"foreignKey:TripID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t Trip) TableName() string {
	return "trips"
}

func (t *Trip) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

func FindTripByID(db *gorm.DB, id string) (Trip, error) {
	var trip Trip
	err := db.Where("id = ?", id).First(&trip).Error
	return trip, err
}

func FindTripWithWaypoints(db *gorm.DB, id string) (Trip, error) {
	var trip Trip
	err := db.Preload("Waypoints", func(db *gorm.DB) *gorm.DB {
		return db.Order("position asc")
	}).Where("id = ?", id).First(&trip).Error
	return trip, err
}

func ListTripsByOwnerID(db *gorm.DB, ownerID uint) ([]Trip, error) {
	var trips []Trip
	err := db.Where(&Trip{OwnerID: ownerID}).Order("created_at desc").Find(&trips).Error
	return trips, err
}

// DeleteTrip removes the trip and every waypoint it owns.
func DeleteTrip(db *gorm.DB, id string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("trip_id = ?", id).Delete(&Waypoint{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&Trip{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func CountTripsByOwnerID(db *gorm.DB, ownerID uint) (int64, error) {
	var count int64
	err := db.Model(&Trip{}).Where(&Trip{OwnerID: ownerID}).Count(&count).Error
	return count, err
}
