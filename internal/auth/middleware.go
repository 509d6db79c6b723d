package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// LocalsUser is the fiber locals key holding the authenticated *UserInfo.
const LocalsUser = "user_info"

// RequireUser returns a middleware that decodes the bearer token from the
// Authorization header and stores the identity in the request locals.
// Requests without a valid token are rejected with 401.
func RequireUser(decoder *Decoder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return unauthorized(c, ErrMissingToken.Error())
		}

		user, err := decoder.Decode(token)
		if err != nil {
			return unauthorized(c, err.Error())
		}

		c.Locals(LocalsUser, user)

		return c.Next()
	}
}

// RequireAdmin returns a middleware that rejects requests whose user is
// not a member of adminGroup with 403. It must run after RequireUser.
func RequireAdmin(adminGroup string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := UserFromContext(c)
		if !ok {
			return unauthorized(c, ErrMissingToken.Error())
		}

		if !user.MemberOf(adminGroup) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "administrator privileges required",
			})
		}

		return c.Next()
	}
}

// UserFromContext returns the identity stored by RequireUser.
func UserFromContext(c *fiber.Ctx) (*UserInfo, bool) {
	user, ok := c.Locals(LocalsUser).(*UserInfo)

	return user, ok
}

func bearerToken(header string) string {
	const prefix = "Bearer "

	if !strings.HasPrefix(header, prefix) {
		return ""
	}

	return strings.TrimSpace(header[len(prefix):])
}

func unauthorized(c *fiber.Ctx, detail string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": detail,
	})
}
