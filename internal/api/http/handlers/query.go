package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/panchayat-portal/internal/auth"
	"github.com/spec-kit/panchayat-portal/internal/domain"
	"github.com/spec-kit/panchayat-portal/internal/repository"
	apperrors "github.com/spec-kit/panchayat-portal/pkg/util/errorutil"
)

func currentUser(c *fiber.Ctx) (*domain.User, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal.User, nil
}

func parsePage(c *fiber.Ctx) repository.Page {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	return repository.Page{Limit: pageSize, Offset: (page - 1) * pageSize}.Normalize()
}

// csv splits a comma separated query value into typed values.
func csv[T ~string](val string) []T {
	if val == "" {
		return nil
	}
	var out []T
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, T(part))
		}
	}
	return out
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
