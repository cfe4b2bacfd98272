package models

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserType string

const (
	UserTypePassenger UserType = "passenger"
	UserTypeDriver    UserType = "driver"
)

type User struct {
	gorm.Model
	Username     string `json:"username" gorm:"column:username;not null"`
	Email        string `json:"email" gorm:"column:email;unique;not null"`
	Password     string `json:"-" gorm:"-"` // Temporary field for password handling
	PasswordHash string `json:"-" gorm:"column:password_hash;not null"`
	PhoneNumber  string `json:"phoneNumber" gorm:"column:phone_number"`
	UserType     string `json:"userType" gorm:"column:user_type;not null"`
	AvatarURL    string `json:"avatarUrl" gorm:"column:avatar_url"`

	// Driver-only fields
	CarMake        string `json:"carMake,omitempty" gorm:"column:car_make"`
	CarModel       string `json:"carModel,omitempty" gorm:"column:car_model"`
	CarYear        string `json:"carYear,omitempty" gorm:"column:car_year"`
	CarColor       string `json:"carColor,omitempty" gorm:"column:car_color"`
	LicensePlate   string `json:"licensePlate,omitempty" gorm:"column:license_plate"`
	LicenseURL     string `json:"-" gorm:"column:license_url"`
	DriverVerified bool   `json:"driverVerified" gorm:"column:driver_verified;default:false"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}

func (u *User) HashPassword() error {
	if u.Password == "" {
		return nil
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}
