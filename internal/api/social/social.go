// Package social implements the social.* and profile.* RPC methods.
package social

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hushmap/hushmap/internal/api/objects"
	"github.com/hushmap/hushmap/internal/db"
	"github.com/hushmap/hushmap/internal/identity"
	"github.com/hushmap/hushmap/internal/models"
	"github.com/hushmap/hushmap/internal/validate"
)

// API provides follow and profile methods
type API struct {
	follows  *db.FollowRepository
	profiles *db.ProfileRepository
}

// NewAPI creates the social API
func NewAPI(repo *db.Repository) *API {
	return &API{
		follows:  db.NewFollowRepository(repo),
		profiles: db.NewProfileRepository(repo),
	}
}

type userParams struct {
	UserID string `json:"userId"`
}

func (p userParams) check() error {
	if strings.TrimSpace(p.UserID) == "" {
		return fmt.Errorf("%w: missing required parameter: userId", validate.ErrInvalidParams)
	}
	return nil
}

// Follow handles social.follow
func (a *API) Follow(c *gin.Context, params json.RawMessage) (interface{}, error) {
	ctx := c.Request.Context()
	me, err := identity.Require(ctx)
	if err != nil {
		return nil, err
	}

	var p userParams
	if err := validate.Decode(params, &p); err != nil {
		return nil, err
	}
	if err := p.check(); err != nil {
		return nil, err
	}

	created, err := a.follows.Follow(ctx, me, p.UserID)
	if err != nil {
		return nil, err
	}
	return gin.H{"userId": p.UserID, "following": true, "changed": created}, nil
}

// Unfollow handles social.unfollow
func (a *API) Unfollow(c *gin.Context, params json.RawMessage) (interface{}, error) {
	ctx := c.Request.Context()
	me, err := identity.Require(ctx)
	if err != nil {
		return nil, err
	}

	var p userParams
	if err := validate.Decode(params, &p); err != nil {
		return nil, err
	}
	if err := p.check(); err != nil {
		return nil, err
	}

	removed, err := a.follows.Unfollow(ctx, me, p.UserID)
	if err != nil {
		return nil, err
	}
	return gin.H{"userId": p.UserID, "following": false, "changed": removed}, nil
}

// GetFollowCounts handles social.get_follow_counts. Without a userId the
// caller's own counts are returned.
func (a *API) GetFollowCounts(c *gin.Context, params json.RawMessage) (interface{}, error) {
	ctx := c.Request.Context()

	var p userParams
	if err := validate.Decode(params, &p); err != nil {
		return nil, err
	}
	userID := p.UserID
	if userID == "" {
		me, err := identity.Require(ctx)
		if err != nil {
			return nil, err
		}
		userID = me
	}

	counts, err := a.follows.Counts(ctx, userID)
	if err != nil {
		return nil, err
	}
	return gin.H{"userId": userID, "followers": counts.Followers, "following": counts.Following}, nil
}

// GetProfile handles profile.get. Users without a stored profile get an empty card.
func (a *API) GetProfile(c *gin.Context, params json.RawMessage) (interface{}, error) {
	ctx := c.Request.Context()

	var p userParams
	if err := validate.Decode(params, &p); err != nil {
		return nil, err
	}
	viewer, _ := identity.FromContext(ctx)
	userID := p.UserID
	if userID == "" {
		if viewer == "" {
			return nil, identity.ErrUnauthenticated
		}
		userID = viewer
	}

	profile, err := a.profiles.Get(ctx, userID)
	switch {
	case errors.Is(err, db.ErrNotFound):
		profile = &models.Profile{ID: userID}
	case err != nil:
		return nil, err
	}

	counts, err := a.follows.Counts(ctx, userID)
	if err != nil {
		return nil, err
	}

	following := false
	if viewer != "" && viewer != userID {
		if following, err = a.follows.IsFollowing(ctx, viewer, userID); err != nil {
			return nil, err
		}
	}
	return objects.NewProfile(*profile, counts, following), nil
}

type updateParams struct {
	DisplayName *string `json:"displayName"`
	Bio         *string `json:"bio"`
	AvatarURL   *string `json:"avatarUrl"`
}

// UpdateProfile handles profile.update. Absent fields keep their stored value.
func (a *API) UpdateProfile(c *gin.Context, params json.RawMessage) (interface{}, error) {
	ctx := c.Request.Context()
	me, err := identity.Require(ctx)
	if err != nil {
		return nil, err
	}

	var p updateParams
	if err := validate.Decode(params, &p); err != nil {
		return nil, err
	}

	profile, err := a.profiles.Get(ctx, me)
	switch {
	case errors.Is(err, db.ErrNotFound):
		profile = &models.Profile{ID: me}
	case err != nil:
		return nil, err
	}

	if p.DisplayName != nil {
		profile.DisplayName = strings.TrimSpace(*p.DisplayName)
	}
	if p.Bio != nil {
		profile.Bio = strings.TrimSpace(*p.Bio)
	}
	if p.AvatarURL != nil {
		profile.AvatarURL = strings.TrimSpace(*p.AvatarURL)
	}

	if err := a.profiles.Upsert(ctx, profile); err != nil {
		return nil, err
	}

	counts, err := a.follows.Counts(ctx, me)
	if err != nil {
		return nil, err
	}
	return objects.NewProfile(*profile, counts, false), nil
}
