package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-nulltype"
	"gorm.io/gorm"
)

// Waypoint is one stop of a trip. Latitude and Longitude are both null when
// the stop could not be geocoded. Order is stored in the "position" column and
// is unique per trip.
type Waypoint struct {
	ID          string               `json:"id" gorm:"primaryKey;type:varchar(36)"`
	TripID      string               `json:"trip_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_waypoints_trip_position,priority:1"`
	Title       string               `json:"title" gorm:"not null"`
	Description string               `json:"description"`
	Latitude    nulltype.NullFloat64 `json:"latitude" gorm:"type:double precision"`
	Longitude   nulltype.NullFloat64 `json:"longitude" gorm:"type:double precision"`
	Order       int                  `json:"order" gorm:"column:position;not null;uniqueIndex:idx_waypoints_trip_position,priority:2"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (w Waypoint) TableName() string {
	return "waypoints"
}

func (w *Waypoint) BeforeCreate(_ *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}

func (w Waypoint) Resolved() bool {
	return w.Latitude.Valid() && w.Longitude.Valid()
}

func FindWaypointsByTripID(db *gorm.DB, tripID string) ([]Waypoint, error) {
	var waypoints []Waypoint
	err := db.Where(&Waypoint{TripID: tripID}).Order("position asc").Find(&waypoints).Error
	return waypoints, err
}

func CountWaypointsByTripID(db *gorm.DB, tripID string) (int, error) {
	var count int64
	err := db.Model(&Waypoint{}).Where("trip_id = ?", tripID).Count(&count).Error
	return int(count), err
}

func ListWaypointIDsByTripID(db *gorm.DB, tripID string) ([]string, error) {
	var ids []string
	err := db.Model(&Waypoint{}).Where("trip_id = ?", tripID).Order("position asc").Pluck("id", &ids).Error
	return ids, err
}

func CreateWaypoint(db *gorm.DB, waypoint *Waypoint) error {
	return db.Create(waypoint).Error
}

// DeleteWaypoint reports whether a waypoint with id existed on the trip.
func DeleteWaypoint(db *gorm.DB, tripID, id string) (bool, error) {
	res := db.Where("id = ? AND trip_id = ?", id, tripID).Delete(&Waypoint{})
	return res.RowsAffected > 0, res.Error
}
