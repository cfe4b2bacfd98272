package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ribit-tech/ribit-backend/internal/models"
	"github.com/ribit-tech/ribit-backend/internal/services"
)

func profileResponse(user *models.User) gin.H {
	return gin.H{
		"id":             user.ID,
		"email":          user.Email,
		"username":       user.Username,
		"phoneNumber":    user.PhoneNumber,
		"userType":       user.UserType,
		"avatarUrl":      services.GetImageURL(user.AvatarURL),
		"carMake":        user.CarMake,
		"carModel":       user.CarModel,
		"carYear":        user.CarYear,
		"carColor":       user.CarColor,
		"licensePlate":   user.LicensePlate,
		"driverVerified": user.DriverVerified,
	}
}

// GetProfile retrieves the user's profile
func GetProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var user models.User
		if err := db.First(&user, userId).Error; err != nil {
			c.JSON(404, gin.H{"error": "User not found"})
			return
		}

		c.JSON(200, profileResponse(&user))
	}
}

// GetDriverRating returns a driver's average review score
func GetDriverRating(db *gorm.DB, reviews *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid driver id"})
			return
		}

		var driver models.User
		if err := db.Where("id = ? AND user_type = ?", uint(driverID), models.UserTypeDriver).
			First(&driver).Error; err != nil {
			c.JSON(404, gin.H{"error": "Driver not found"})
			return
		}

		avg, count, err := reviews.DriverRating(c.Request.Context(), uint(driverID))
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch rating"})
			return
		}

		c.JSON(200, gin.H{
			"driverId":    driver.ID,
			"username":    driver.Username,
			"rating":      avg,
			"reviewCount": count,
		})
	}
}

// UpdateProfile updates the user's profile information
func UpdateProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var input struct {
			Username     *string `json:"username"`
			PhoneNumber  *string `json:"phoneNumber"`
			CarMake      *string `json:"carMake"`
			CarModel     *string `json:"carModel"`
			CarYear      *string `json:"carYear"`
			CarColor     *string `json:"carColor"`
			LicensePlate *string `json:"licensePlate"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if err := db.First(&user, userId).Error; err != nil {
			c.JSON(404, gin.H{"error": "User not found"})
			return
		}

		// Update fields individually to handle empty strings properly
		if input.Username != nil {
			user.Username = *input.Username
		}
		if input.PhoneNumber != nil {
			user.PhoneNumber = *input.PhoneNumber
		}
		if input.CarMake != nil {
			user.CarMake = *input.CarMake
		}
		if input.CarModel != nil {
			user.CarModel = *input.CarModel
		}
		if input.CarYear != nil {
			user.CarYear = *input.CarYear
		}
		if input.CarColor != nil {
			user.CarColor = *input.CarColor
		}
		if input.LicensePlate != nil {
			user.LicensePlate = *input.LicensePlate
		}

		if err := db.Save(&user).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to update profile"})
			return
		}

		c.JSON(200, profileResponse(&user))
	}
}

// UploadAvatar stores a new profile picture
func UploadAvatar(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		file, err := c.FormFile("avatar")
		if err != nil {
			c.JSON(400, gin.H{"error": "avatar file is required"})
			return
		}

		var user models.User
		if err := db.First(&user, userId).Error; err != nil {
			c.JSON(404, gin.H{"error": "User not found"})
			return
		}

		path, err := services.UploadImage(file, services.FolderAvatars)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to store avatar"})
			return
		}

		if user.AvatarURL != "" {
			services.DeleteImage(user.AvatarURL)
		}

		if err := db.Model(&user).Update("avatar_url", path).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to update profile"})
			return
		}

		c.JSON(200, gin.H{"avatarUrl": services.GetImageURL(path)})
	}
}

// UploadDriverLicense stores a driver's license document for verification.
// Uploading resets the verified flag until an operator re-checks it.
func UploadDriverLicense(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		userType := c.GetString("userType")

		if userType != string(models.UserTypeDriver) {
			c.JSON(403, gin.H{"error": "Only drivers can upload a license"})
			return
		}

		file, err := c.FormFile("license")
		if err != nil {
			c.JSON(400, gin.H{"error": "license file is required"})
			return
		}

		path, err := services.UploadImage(file, services.FolderLicenses)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to store license"})
			return
		}

		updates := map[string]interface{}{
			"license_url":     path,
			"driver_verified": false,
		}
		if err := db.Model(&models.User{}).Where("id = ?", userId).Updates(updates).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to update profile"})
			return
		}

		c.JSON(200, gin.H{"message": "License submitted for verification"})
	}
}
