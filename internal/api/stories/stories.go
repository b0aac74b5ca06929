// Package stories implements the stories.* RPC methods.
package stories

import (
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/hushmap/hushmap/internal/api/objects"
	"github.com/hushmap/hushmap/internal/identity"
	"github.com/hushmap/hushmap/internal/story"
	"github.com/hushmap/hushmap/internal/validate"
)

// API provides the stories.* methods
type API struct {
	svc *story.Service
}

// NewAPI creates the stories API
func NewAPI(svc *story.Service) *API {
	return &API{svc: svc}
}

type createParams struct {
	ImageURL string `json:"imageUrl"`
	Caption  string `json:"caption"`
}

// Create handles stories.create
func (a *API) Create(c *gin.Context, params json.RawMessage) (interface{}, error) {
	ctx := c.Request.Context()
	userID, err := identity.Require(ctx)
	if err != nil {
		return nil, err
	}

	var p createParams
	if err := validate.Decode(params, &p); err != nil {
		return nil, err
	}

	st, err := a.svc.Create(ctx, userID, p.ImageURL, p.Caption)
	if err != nil {
		return nil, err
	}
	return objects.NewStory(*st), nil
}

// ListActive handles stories.list_active
func (a *API) ListActive(c *gin.Context, _ json.RawMessage) (interface{}, error) {
	grouped, err := a.svc.ActiveByAuthor(c.Request.Context())
	if err != nil {
		return nil, err
	}
	return objects.NewStoryGroups(grouped), nil
}

type storyParams struct {
	StoryID string `json:"storyId"`
}

func (p storyParams) check() error {
	if p.StoryID == "" {
		return fmt.Errorf("%w: missing required parameter: storyId", validate.ErrInvalidParams)
	}
	return nil
}

// View handles stories.view
func (a *API) View(c *gin.Context, params json.RawMessage) (interface{}, error) {
	ctx := c.Request.Context()
	userID, err := identity.Require(ctx)
	if err != nil {
		return nil, err
	}

	var p storyParams
	if err := validate.Decode(params, &p); err != nil {
		return nil, err
	}
	if err := p.check(); err != nil {
		return nil, err
	}

	first, err := a.svc.View(ctx, userID, p.StoryID)
	if err != nil {
		return nil, err
	}
	return gin.H{"storyId": p.StoryID, "firstView": first}, nil
}

// Delete handles stories.delete
func (a *API) Delete(c *gin.Context, params json.RawMessage) (interface{}, error) {
	ctx := c.Request.Context()
	userID, err := identity.Require(ctx)
	if err != nil {
		return nil, err
	}

	var p storyParams
	if err := validate.Decode(params, &p); err != nil {
		return nil, err
	}
	if err := p.check(); err != nil {
		return nil, err
	}

	if err := a.svc.Delete(ctx, userID, p.StoryID); err != nil {
		return nil, err
	}
	return gin.H{"storyId": p.StoryID, "deleted": true}, nil
}
