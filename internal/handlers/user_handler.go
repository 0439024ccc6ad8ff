package handlers

import (
	"blog/internal/middleware"
	"blog/internal/services"

	"github.com/gofiber/fiber/v2"
)

// UserHandler handles HTTP requests for user accounts and authentication.
type UserHandler struct {
	auth  *services.AuthService
	users *services.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(auth *services.AuthService, users *services.UserService) *UserHandler {
	return &UserHandler{
		auth:  auth,
		users: users,
	}
}

// RegisterRoutes registers the account routes. Only the methods listed
// here exist; anything else on these paths is answered with 405.
func (h *UserHandler) RegisterRoutes(router fiber.Router) {
	users := router.Group("/account/users")
	users.Get("/", middleware.Authorize(h.auth, services.OpUserList), h.HandleList)
	users.Post("/", middleware.Authorize(h.auth, services.OpUserCreate), h.HandleCreate)
	users.Post("/login", middleware.Authorize(h.auth, services.OpLogin), h.HandleLogin)
	users.Post("/logout", middleware.Authorize(h.auth, services.OpLogout), h.HandleLogout)
	users.Get("/:id<int>", middleware.Authorize(h.auth, services.OpUserRetrieve), h.HandleRetrieve)
	users.Put("/:id<int>", middleware.Authorize(h.auth, services.OpUserUpdate), h.HandleUpdate)
}

// HandleList returns the users visible to the caller.
func (h *UserHandler) HandleList(c *fiber.Ctx) error {
	users, err := h.users.List(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(users)
}

// HandleCreate registers a new user.
func (h *UserHandler) HandleCreate(c *fiber.Ctx) error {
	var in services.AccountInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	user, err := h.users.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// HandleRetrieve returns one user if the caller may see it.
func (h *UserHandler) HandleRetrieve(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	user, err := h.users.Retrieve(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// HandleUpdate replaces a user's editable fields.
func (h *UserHandler) HandleUpdate(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var in services.AccountInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	user, err := h.users.Update(c.UserContext(), middleware.CurrentUser(c), id, in)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// HandleLogin exchanges credentials for the user's token.
func (h *UserHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	verr := &services.ValidationError{}
	if req.Username == "" {
		verr.Add("username", "This field is required.")
	}
	if req.Password == "" {
		verr.Add("password", "This field is required.")
	}
	if len(verr.Fields) > 0 {
		return verr
	}

	token, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "User logged in.",
		"token":   token.Key,
	})
}

// HandleLogout revokes the caller's token. The success message is sent
// under "error" for compatibility with existing clients.
func (h *UserHandler) HandleLogout(c *fiber.Ctx) error {
	if err := h.auth.Logout(c.UserContext(), middleware.CurrentToken(c)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"error": "User logged out",
	})
}
