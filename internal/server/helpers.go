package server

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode"

	"github.com/gofiber/fiber/v2"

	"crewdesk/internal/authz"
	"crewdesk/internal/models"
	"crewdesk/internal/notifications"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const maxPaginationLimit = 100

// parsePagination extracts limit and offset query parameters with the given
// default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{Limit: limit, Offset: offset}
}

// parseID extracts a route parameter by name as a positive uint. On failure
// it writes a 400 JSON response and returns errResponseWritten; callers
// should then return nil.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID", "attachmentId" ->
// "attachment ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		prefix := param[:len(param)-2]
		words := splitCamel(prefix)
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// optionalID is a partial-update body field that distinguishes an absent key
// from an explicit null. Present with a nil Value means the caller sent null
// to clear the reference.
type optionalID struct {
	Present bool
	Value   *uint
}

func (o *optionalID) UnmarshalJSON(b []byte) error {
	o.Present = true
	if string(b) == "null" {
		return nil
	}
	var v uint
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// actor resolves the request's identity. Routes behind OptionalAuth may
// have no user ID in locals; those requests act as the anonymous actor. A
// token whose user no longer exists is also treated as anonymous.
func (s *Server) actor(c *fiber.Ctx) authz.Actor {
	userID, ok := c.Locals("userID").(uint)
	if !ok || userID == 0 {
		return authz.Anonymous
	}
	user, err := s.userService.GetUser(c.UserContext(), userID)
	if err != nil {
		return authz.Anonymous
	}
	return authz.ActorFromUser(user)
}

// requireActor resolves the actor for a route behind AuthRequired. A stale
// token for a deleted or deactivated account gets a 401; the returned error
// is errResponseWritten in that case.
func (s *Server) requireActor(c *fiber.Ctx) (authz.Actor, error) {
	actor := s.actor(c)
	if !actor.Authenticated() {
		_ = models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Account is inactive or no longer exists"))
		return authz.Anonymous, errResponseWritten
	}
	return actor, nil
}

// notify publishes an event to one user, best effort. Users who opted out
// of notifications in their profile are skipped, as are self-notifications.
func (s *Server) notify(c *fiber.Ctx, userID uint, event notifications.Event) {
	if s.notifier == nil || userID == 0 || userID == event.ActorID {
		return
	}
	user, err := s.userService.GetUser(c.UserContext(), userID)
	if err != nil {
		return
	}
	if user.Profile != nil && !user.Profile.ReceivesNotifications {
		return
	}
	_ = s.notifier.NotifyUser(c.UserContext(), userID, event)
}
