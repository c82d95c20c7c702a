package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jcastillo/vacunastock-api/internal/application/dto"
	"github.com/jcastillo/vacunastock-api/internal/domain/entity"
	"github.com/jcastillo/vacunastock-api/pkg/jwt"
)

// Locals keys para los claims del token en Fiber.
const (
	LocalUserID    = "user_id"
	LocalRole      = "role"
	LocalOwnerType = "owner_type"
	LocalOwnerID   = "owner_id"
)

// AuthMiddleware valida el Bearer Token JWT y carga los claims en c.Locals.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"})
		}
		claims, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalRole, claims.Role)
		c.Locals(LocalOwnerType, claims.OwnerType)
		c.Locals(LocalOwnerID, claims.OwnerID)
		return c.Next()
	}
}

// RequireRole autoriza solo a los roles indicados. Debe usarse DESPUÉS de
// AuthMiddleware. Token sin claim de rol responde 401; rol no permitido, 403.
func RequireRole(allowed ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := GetRole(c)
		if role == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_ROLE", Message: "token sin rol"})
		}
		for _, a := range allowed {
			if role == a {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"})
	}
}

// GetUserID devuelve el UserID del contexto (después del middleware de auth).
func GetUserID(c *fiber.Ctx) string {
	return localString(c, LocalUserID)
}

// GetRole devuelve el rol del contexto (después del middleware de auth).
func GetRole(c *fiber.Ctx) string {
	return localString(c, LocalRole)
}

// GetOwnerScope devuelve el alcance jerárquico del token. ok=false si el token
// no trae alcance (usuario de nivel nacional o token legacy).
func GetOwnerScope(c *fiber.Ctx) (entity.OwnerRef, bool) {
	t := localString(c, LocalOwnerType)
	if t == "" {
		return entity.OwnerRef{}, false
	}
	ownerType, ok := entity.ParseOwnerType(t)
	if !ok {
		return entity.OwnerRef{}, false
	}
	return entity.OwnerRef{Type: ownerType, ID: localString(c, LocalOwnerID)}, true
}

func localString(c *fiber.Ctx, key string) string {
	v := c.Locals(key)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
