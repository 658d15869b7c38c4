package controllers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"journal-api/services"
)

// POST /api/auth/register
func (a *API) Register(c *gin.Context) {
	var req services.RegisterInput
	if !a.bindJSON(c, &req) {
		return
	}
	session, err := a.Users.Register(c.Request.Context(), req)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"user":       session.User,
	})
}

// POST /api/auth/login
func (a *API) Login(c *gin.Context) {
	var req services.LoginInput
	if !a.bindJSON(c, &req) {
		return
	}
	session, err := a.Users.Login(c.Request.Context(), req)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"user":       session.User,
	})
}

// GET /api/auth/profile
func (a *API) GetProfile(c *gin.Context) {
	user, err := a.Users.Profile(c.Request.Context(), currentUser(c))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// PUT /api/auth/profile
func (a *API) UpdateProfile(c *gin.Context) {
	var req services.ProfileInput
	if !a.bindJSON(c, &req) {
		return
	}
	user, err := a.Users.UpdateProfile(c.Request.Context(), currentUser(c), req)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// GET /api/auth/orcid returns the ORCID authorize URL for the caller.
func (a *API) OrcidStart(c *gin.Context) {
	authURL, err := a.Users.OrcidAuthURL(c.Request.Context(), currentUser(c))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "url": authURL})
}

// GET /api/auth/orcid/callback?code=&state=
func (a *API) OrcidCallback(c *gin.Context) {
	user, err := a.Users.OrcidCallback(c.Request.Context(), c.Query("code"), c.Query("state"))
	if a.OrcidSuccessURL != "" {
		target, perr := url.Parse(a.OrcidSuccessURL)
		if perr == nil {
			q := target.Query()
			if err != nil {
				q.Set("orcid", "error")
				q.Set("reason", services.KindOf(err).String())
			} else {
				q.Set("orcid", "linked")
			}
			target.RawQuery = q.Encode()
			c.Redirect(http.StatusFound, target.String())
			return
		}
	}
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// POST /api/auth/orcid/unlink
func (a *API) OrcidUnlink(c *gin.Context) {
	user, err := a.Users.OrcidUnlink(c.Request.Context(), currentUser(c))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// POST /api/auth/google/link
func (a *API) GoogleLink(c *gin.Context) {
	var req struct {
		GoogleID string `json:"googleId"`
	}
	if !a.bindJSON(c, &req) {
		return
	}
	user, err := a.Users.LinkGoogle(c.Request.Context(), currentUser(c), req.GoogleID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}
