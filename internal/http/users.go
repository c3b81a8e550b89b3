package http

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/database/users"
	"github.com/mrlokans/librarian/internal/media"
	"github.com/mrlokans/librarian/internal/services"
)

// ProfileController handles the reader's profile: identity fields, photo,
// password and API token.
type ProfileController struct {
	authService *auth.Service
	profiles    ProfileStore
	photos      PhotoStorage
	auditor     ProfileAuditor
	render      *Renderer
}

// NewProfileController creates a new ProfileController. photos and auditor
// may be nil.
func NewProfileController(authService *auth.Service, profiles ProfileStore, photos PhotoStorage, auditor ProfileAuditor, render *Renderer) *ProfileController {
	return &ProfileController{
		authService: authService,
		profiles:    profiles,
		photos:      photos,
		auditor:     auditor,
		render:      render,
	}
}

// profileForm is the state of the profile update form.
type profileForm struct {
	FirstName string
	LastName  string
	Email     string
	Errors    map[string]string
}

type profileRequest struct {
	FirstName string `form:"first_name" binding:"max=150"`
	LastName  string `form:"last_name" binding:"max=150"`
	Email     string `form:"email" binding:"required,email"`
}

// ProfilePage handles GET /profile/
func (pc *ProfileController) ProfilePage(c *gin.Context) {
	pc.renderProfile(c, http.StatusOK, nil, nil)
}

// UpdateProfile handles POST /profile/. The photo is optional; the identity
// fields are always replaced.
func (pc *ProfileController) UpdateProfile(c *gin.Context) {
	userID := auth.GetUserID(c)
	ctx := c.Request.Context()

	submitted := &profileForm{
		FirstName: strings.TrimSpace(c.PostForm("first_name")),
		LastName:  strings.TrimSpace(c.PostForm("last_name")),
		Email:     strings.TrimSpace(c.PostForm("email")),
	}

	var req profileRequest
	if err := c.ShouldBind(&req); err != nil {
		submitted.Errors = bindingError(err).Messages()
		pc.renderProfile(c, http.StatusBadRequest, submitted, nil)
		return
	}

	photo, err := pc.savePhoto(c, userID)
	if err != nil {
		submitted.Errors = map[string]string{"photo": photoErrorMessage(err)}
		pc.renderProfile(c, http.StatusBadRequest, submitted, nil)
		return
	}

	err = pc.profiles.UpdateUserDetails(ctx, userID, submitted.FirstName, submitted.LastName, submitted.Email)
	if err != nil {
		pc.discardPhoto(photo)
		if errors.Is(err, users.ErrEmailTaken) {
			submitted.Errors = map[string]string{"email": "User with this email already exists."}
			pc.renderProfile(c, http.StatusBadRequest, submitted, nil)
			return
		}
		pc.render.handleServiceError(c, err, "Profile")
		return
	}

	if photo != "" {
		previous := ""
		if profile, err := pc.profiles.GetOrCreateProfile(ctx, userID); err == nil {
			previous = profile.Photo
		}
		if err := pc.profiles.UpdateProfilePhoto(ctx, userID, photo); err != nil {
			pc.discardPhoto(photo)
			pc.render.handleServiceError(c, err, "Profile")
			return
		}
		if previous != "" && previous != photo {
			pc.discardPhoto(previous)
		}
	}

	if pc.auditor != nil {
		pc.auditor.LogProfile(userID, "profile_update", "Updated profile details")
	}
	pc.render.flash(c, auth.FlashSuccess, "Profile updated")
	c.Redirect(http.StatusFound, "/profile/")
}

// savePhoto stores the uploaded photo, if any, and returns its media path.
func (pc *ProfileController) savePhoto(c *gin.Context, userID uint) (string, error) {
	header, err := c.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if pc.photos == nil {
		return "", errors.New("photo uploads are not configured")
	}

	file, err := header.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	return pc.photos.Save(media.KindProfilePhoto, userID, file)
}

func (pc *ProfileController) discardPhoto(rel string) {
	if rel == "" || pc.photos == nil {
		return
	}
	if err := pc.photos.Remove(rel); err != nil {
		log.Printf("Failed to remove photo %s: %v", rel, err)
	}
}

func photoErrorMessage(err error) string {
	switch {
	case errors.Is(err, media.ErrUnsupportedType):
		return "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
	case errors.Is(err, media.ErrTooLarge):
		return "The uploaded file is too large."
	default:
		log.Printf("Photo upload failed: %v", err)
		return "The photo could not be saved."
	}
}

// ChangePassword handles POST /profile/password
func (pc *ProfileController) ChangePassword(c *gin.Context) {
	userID := auth.GetUserID(c)

	currentPassword := c.PostForm("current_password")
	newPassword := c.PostForm("new_password")
	confirmPassword := c.PostForm("confirm_password")

	if newPassword != confirmPassword {
		pc.renderProfile(c, http.StatusBadRequest, nil, gin.H{"password_error": "New passwords do not match"})
		return
	}

	err := pc.authService.ChangePassword(userID, currentPassword, newPassword)
	if err != nil {
		errMsg := "Failed to change password"
		switch {
		case errors.Is(err, auth.ErrInvalidPassword):
			errMsg = "Current password is incorrect"
		case auth.IsPasswordRuleError(err):
			errMsg = capitalizeFirst(err.Error())
		default:
			log.Printf("Failed to change password for user %d: %v", userID, err)
		}
		pc.renderProfile(c, http.StatusBadRequest, nil, gin.H{"password_error": errMsg})
		return
	}

	if pc.auditor != nil {
		pc.auditor.LogProfile(userID, "password_change", "Changed password")
	}
	pc.render.flash(c, auth.FlashSuccess, "Password changed")
	c.Redirect(http.StatusFound, "/profile/")
}

// GenerateToken handles POST /profile/token. The plaintext token is shown
// once, on the page rendered by this request.
func (pc *ProfileController) GenerateToken(c *gin.Context) {
	userID := auth.GetUserID(c)

	token, err := pc.authService.GenerateToken(userID)
	if err != nil {
		log.Printf("Failed to generate token for user %d: %v", userID, err)
		pc.renderProfile(c, http.StatusInternalServerError, nil, gin.H{"token_error": "Failed to generate token"})
		return
	}

	if pc.auditor != nil {
		pc.auditor.LogProfile(userID, "token_generate", "Generated API token")
	}
	pc.renderProfile(c, http.StatusOK, nil, gin.H{"new_token": token})
}

// RevokeToken handles POST /profile/token/revoke
func (pc *ProfileController) RevokeToken(c *gin.Context) {
	userID := auth.GetUserID(c)

	if err := pc.authService.RevokeToken(userID); err != nil {
		log.Printf("Failed to revoke token for user %d: %v", userID, err)
		pc.renderProfile(c, http.StatusInternalServerError, nil, gin.H{"token_error": "Failed to revoke token"})
		return
	}

	if pc.auditor != nil {
		pc.auditor.LogProfile(userID, "token_revoke", "Revoked API token")
	}
	pc.render.flash(c, auth.FlashInfo, "API token revoked")
	c.Redirect(http.StatusFound, "/profile/")
}

// renderProfile renders the profile page. A nil form is filled from the
// stored user.
func (pc *ProfileController) renderProfile(c *gin.Context, status int, form *profileForm, extra gin.H) {
	ctx := c.Request.Context()
	userID := auth.GetUserID(c)

	user, err := pc.profiles.GetUserByID(ctx, userID)
	if err != nil {
		pc.render.handleServiceError(c, translateStoreError(err), "Profile")
		return
	}
	profile, err := pc.profiles.GetOrCreateProfile(ctx, userID)
	if err != nil {
		pc.render.handleServiceError(c, err, "Profile")
		return
	}

	if form == nil {
		form = &profileForm{FirstName: user.FirstName, LastName: user.LastName, Email: user.Email}
	}

	data := gin.H{
		"Title":     "Profile",
		"profile":   profile,
		"account":   user,
		"form":      form,
		"has_token": user.TokenHash != "",
	}
	for k, v := range extra {
		data[k] = v
	}
	pc.render.HTML(c, status, "profile.html", data)
}

// translateStoreError maps a missing row onto services.ErrNotFound.
func translateStoreError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return services.ErrNotFound
	}
	return err
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
