package models

import (
	"gorm.io/gorm"
)

type PointKind string

const (
	PointKindPickup  PointKind = "pickup"
	PointKindDropoff PointKind = "dropoff"
)

// City is a supported origin/destination. Only city pairs present in the
// pricing distance table are bookable.
type City struct {
	gorm.Model
	Name     string  `json:"name" gorm:"column:name;unique;not null"`
	State    string  `json:"state" gorm:"column:state;not null;default:'FL'"`
	Lat      float64 `json:"lat" gorm:"column:lat"`
	Lng      float64 `json:"lng" gorm:"column:lng"`
	IsActive bool    `json:"isActive" gorm:"column:is_active;default:true"`
}

func (City) TableName() string {
	return "cities"
}

// CityPoint is a curated pickup or dropoff spot inside a city
type CityPoint struct {
	gorm.Model
	CityID  uint      `json:"cityId" gorm:"column:city_id;not null;index"`
	City    City      `json:"-"`
	Name    string    `json:"name" gorm:"column:name;not null"`
	Kind    PointKind `json:"kind" gorm:"column:kind;not null"`
	Address string    `json:"address" gorm:"column:address"`
	Lat     float64   `json:"lat" gorm:"column:lat"`
	Lng     float64   `json:"lng" gorm:"column:lng"`
}

func (CityPoint) TableName() string {
	return "city_points"
}
