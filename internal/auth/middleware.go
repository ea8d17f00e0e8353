package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/storefront-bff/internal/events"
	"github.com/spec-kit/storefront-bff/internal/observability"
)

const accessKey = "auth_access"

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	Validate(token string) (*Identity, error)
}

// Gate enforces route requirements on incoming requests.
type Gate struct {
	tokens     TokenValidator
	logger     *zap.Logger
	metrics    *observability.Metrics
	dispatcher events.Dispatcher
}

// NewGate constructs the gate. metrics and dispatcher may be nil.
func NewGate(tokens TokenValidator, logger *zap.Logger, metrics *observability.Metrics, dispatcher events.Dispatcher) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{tokens: tokens, logger: logger.Named("gate"), metrics: metrics, dispatcher: dispatcher}
}

// Require returns a handler enforcing req before the route handler runs.
func (g *Gate) Require(req Requirement) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if req.IsPublic() {
			return c.Next()
		}

		identity, cause := g.authenticate(c)
		decision := req.Evaluate(identity)
		if decision != Allow {
			if cause == "" {
				cause = "role not permitted"
			}
			g.deny(c, decision, identity, cause)
			return decision.Err()
		}

		g.metrics.RecordAuthDecision(Allow.String())
		access := NewAccess(identity, req)
		route, method, ip := routeOf(c), c.Method(), c.IP()
		access.observe = func(d Decision) {
			g.record(context.Background(), d, identity, method, route, ip, "not resource owner")
		}
		c.Locals(accessKey, access)
		return c.Next()
	}
}

// authenticate extracts and validates the bearer token. A nil identity comes
// with a short cause for the audit log.
func (g *Gate) authenticate(c *fiber.Ctx) (*Identity, string) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return nil, "missing authorization header"
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, "invalid authorization scheme"
	}
	identity, err := g.tokens.Validate(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, "invalid token"
	}
	return identity, ""
}

func (g *Gate) deny(c *fiber.Ctx, decision Decision, identity *Identity, cause string) {
	g.record(c.UserContext(), decision, identity, c.Method(), routeOf(c), c.IP(), cause)
}

func (g *Gate) record(ctx context.Context, decision Decision, identity *Identity, method, route, ip, cause string) {
	g.metrics.RecordAuthDecision(decision.String())

	actor := events.Actor{IP: ip}
	fields := []zap.Field{
		zap.String("decision", decision.String()),
		zap.String("method", method),
		zap.String("route", route),
		zap.String("cause", cause),
	}
	if identity != nil {
		id := identity.SubjectID()
		actor.SubjectID = &id
		actor.Role = string(identity.Role())
		fields = append(fields, zap.Int64("subject_id", id), zap.String("role", actor.Role))
	}
	g.logger.Info("access denied", fields...)

	if g.dispatcher == nil {
		return
	}
	event := events.New(events.EventAccessDenied, actor, events.AccessDeniedPayload{
		Method:   method,
		Route:    route,
		Decision: decision.String(),
		Cause:    cause,
	})
	if err := g.dispatcher.Publish(ctx, event); err != nil {
		g.logger.Warn("publish access denied event", zap.Error(err))
	}
}

// AccessFromContext retrieves the authorization context stored by the gate.
func AccessFromContext(c *fiber.Ctx) (*Access, bool) {
	val := c.Locals(accessKey)
	if val == nil {
		return nil, false
	}
	access, ok := val.(*Access)
	return access, ok
}

func routeOf(c *fiber.Ctx) string {
	if r := c.Route(); r != nil && r.Path != "" {
		return r.Path
	}
	return c.Path()
}
