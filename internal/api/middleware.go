// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"fmt"
	"slices"
	"strings"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/magnetar-sync/magnetar/internal/config"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

func withSecurity(security config.ApiSecurity) fiber.Handler {
	var jwkSetUrls = make([]string, 0, len(security.TrustedIssuers))
	for _, issuer := range security.TrustedIssuers {
		jwkSetUrls = append(jwkSetUrls, strings.TrimSuffix(issuer, "/")+"/protocol/openid-connect/certs")
	}

	return jwtware.New(jwtware.Config{
		JWKSetURLs: jwkSetUrls,
	})
}

func withTrustedClients(trustedClients []string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if len(trustedClients) > 0 {
			user, ok := ctx.Locals("user").(*jwt.Token)
			if !ok {
				return &fiber.Error{Code: fiber.StatusUnauthorized, Message: "Missing token"}
			}

			claims, ok := user.Claims.(jwt.MapClaims)
			if !ok {
				return &fiber.Error{Code: fiber.StatusUnauthorized, Message: "Malformed token"}
			}

			clientId, _ := claims["clientId"].(string)
			if !slices.Contains(trustedClients, clientId) {
				return &fiber.Error{Code: fiber.StatusUnauthorized, Message: "Unauthorized client"}
			}
		}
		return ctx.Next()
	}
}

func withGvr(ctx *fiber.Ctx) error {
	group, version, resource := ctx.Params("group"), ctx.Params("version"), ctx.Params("resource")

	if version == "" || resource == "" || group == "" {
		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "Failed to retrieve group, version and resource from request",
			Code:  fiber.StatusInternalServerError,
		})
	}

	ctx.Locals("gvr", schema.GroupVersionResource{
		Group:    group,
		Version:  version,
		Resource: resource,
	})
	return ctx.Next()
}

func getGvrFromContext(ctx *fiber.Ctx) (schema.GroupVersionResource, error) {
	gvr, ok := ctx.Locals("gvr").(schema.GroupVersionResource)
	if !ok || gvr.Version == "" || gvr.Resource == "" || gvr.Group == "" {
		logger.Warn().
			Str("url", ctx.Request().URI().String()).
			Msg("Failed to retrieve group, version and resource from context")

		return schema.GroupVersionResource{}, &fiber.Error{
			Code:    fiber.StatusInternalServerError,
			Message: "Invalid or missing GVR in context",
		}
	}
	return gvr, nil
}

func getDataSetForGvr(gvr schema.GroupVersionResource) string {
	return strings.ToLower(fmt.Sprintf("%s.%s.%s", gvr.Resource, gvr.Group, gvr.Version))
}
