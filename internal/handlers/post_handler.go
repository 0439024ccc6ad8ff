package handlers

import (
	"blog/internal/middleware"
	"blog/internal/services"

	"github.com/gofiber/fiber/v2"
)

// PostHandler handles HTTP requests for blog posts.
type PostHandler struct {
	auth  *services.AuthService
	posts *services.PostService
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(auth *services.AuthService, posts *services.PostService) *PostHandler {
	return &PostHandler{
		auth:  auth,
		posts: posts,
	}
}

// RegisterRoutes registers the post routes with the Fiber router.
func (h *PostHandler) RegisterRoutes(router fiber.Router) {
	posts := router.Group("/blog/posts")
	posts.Get("/", middleware.Authorize(h.auth, services.OpPostList), h.HandleList)
	posts.Post("/", middleware.Authorize(h.auth, services.OpPostCreate), h.HandleCreate)
	posts.Get("/:id<int>", middleware.Authorize(h.auth, services.OpPostRetrieve), h.HandleRetrieve)
	posts.Put("/:id<int>", middleware.Authorize(h.auth, services.OpPostUpdate), h.HandleUpdate)
	posts.Patch("/:id<int>", middleware.Authorize(h.auth, services.OpPostPartialUpdate), h.HandlePartialUpdate)
	posts.Delete("/:id<int>", middleware.Authorize(h.auth, services.OpPostDestroy), h.HandleDelete)
}

func (h *PostHandler) HandleList(c *fiber.Ctx) error {
	posts, err := h.posts.List(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(posts)
}

func (h *PostHandler) HandleCreate(c *fiber.Ctx) error {
	var in services.PostInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	post, err := h.posts.Create(c.UserContext(), middleware.CurrentUser(c), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *PostHandler) HandleRetrieve(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	post, err := h.posts.Retrieve(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return err
	}
	return c.JSON(post)
}

func (h *PostHandler) HandleUpdate(c *fiber.Ctx) error {
	return h.update(c, false)
}

func (h *PostHandler) HandlePartialUpdate(c *fiber.Ctx) error {
	return h.update(c, true)
}

func (h *PostHandler) update(c *fiber.Ctx, partial bool) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var in services.PostInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	update := h.posts.Update
	if partial {
		update = h.posts.PartialUpdate
	}
	post, err := update(c.UserContext(), middleware.CurrentUser(c), id, in)
	if err != nil {
		return err
	}
	return c.JSON(post)
}

func (h *PostHandler) HandleDelete(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := h.posts.Delete(c.UserContext(), middleware.CurrentUser(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
