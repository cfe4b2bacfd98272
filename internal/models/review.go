package models

import (
	"gorm.io/gorm"
)

// RideReview is the one post-ride review a passenger may leave per booking
type RideReview struct {
	gorm.Model
	BookingID  uint    `json:"bookingId" gorm:"column:booking_id;unique;not null"`
	Booking    Booking `json:"-"`
	RideID     uint    `json:"rideId" gorm:"column:ride_id;not null;index"`
	ReviewerID uint    `json:"reviewerId" gorm:"column:reviewer_id;not null"`
	Rating     int     `json:"rating" gorm:"column:rating;not null"`
	Comment    string  `json:"comment" gorm:"column:comment"`
}

func (RideReview) TableName() string {
	return "ride_reviews"
}
