package controllers

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/ManuelReschke/PlayerFolio/app/models"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/entitlements"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/media"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/upload"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/usercontext"
)

// HandleUploadMedia stores a profile file for the caller.
// Form: file, kind (avatar|certificate|achievement|highlight), title
func (ctl *Controller) HandleUploadMedia(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user, err := ctl.Users.GetByID(ctx, usercontext.GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	kind := strings.ToLower(strings.TrimSpace(c.FormValue("kind")))
	title := strings.TrimSpace(c.FormValue("title"))
	if len(title) > 200 {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", "title must be at most 200 characters")
	}
	file, err := c.FormFile("file")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_error", "file is required")
	}

	now := ctl.Now()
	limits := entitlements.ForUser(user, now)
	if !limits.AllowsKind(kind) {
		return jsonError(c, fiber.StatusForbidden, "plan_required", "This media type requires an active subscription")
	}
	if file.Size > limits.MaxUploadBytes {
		return jsonError(c, fiber.StatusRequestEntityTooLarge, "file_too_large", "File exceeds the upload limit of your plan")
	}
	count, err := ctl.Media.CountByUserID(ctx, user.ID)
	if err != nil {
		return respondError(c, err)
	}
	if !limits.CanAddMedia(count) {
		return jsonError(c, fiber.StatusForbidden, "quota_exceeded", "Media limit of your plan reached")
	}

	src, err := file.Open()
	if err != nil {
		return respondError(c, err)
	}
	defer src.Close()

	head := make([]byte, upload.SniffLen)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return respondError(c, err)
	}
	head = head[:n]

	contentType, err := upload.ValidateMedia(kind, file.Filename, head)
	switch {
	case errors.Is(err, upload.ErrUnsupportedKind):
		return jsonError(c, fiber.StatusBadRequest, "validation_error", err.Error())
	case err != nil:
		return jsonError(c, fiber.StatusUnsupportedMediaType, "unsupported_media_type", err.Error())
	}

	item := &models.Media{
		UUID:        uuid.New().String(),
		UserID:      user.ID,
		Kind:        kind,
		Title:       title,
		FileName:    filepath.Base(file.Filename),
		ContentType: contentType,
		FileSize:    file.Size,
	}
	item.ObjectKey = media.ObjectKey(user.ID, kind, item.UUID, filepath.Ext(file.Filename), now)

	body := io.MultiReader(bytes.NewReader(head), src)
	if err := ctl.MediaStore.Put(ctx, item.ObjectKey, body, file.Size, contentType); err != nil {
		log.Errorf("[Media] Upload for user %d failed: %v", user.ID, err)
		return jsonError(c, fiber.StatusBadGateway, "storage_error", "Failed to store file")
	}
	if err := ctl.Media.Create(ctx, item); err != nil {
		if delErr := ctl.MediaStore.Delete(ctx, item.ObjectKey); delErr != nil {
			log.Warnf("[Media] Cleanup of %s failed: %v", item.ObjectKey, delErr)
		}
		return respondError(c, err)
	}

	item.URL = ctl.MediaStore.URL(item.ObjectKey)
	return c.Status(fiber.StatusCreated).JSON(item)
}

// HandleListMedia lists the caller's media together with the plan limits.
func (ctl *Controller) HandleListMedia(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user, err := ctl.Users.GetByID(ctx, usercontext.GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	items, err := ctl.Media.ListByUserID(ctx, user.ID)
	if err != nil {
		return respondError(c, err)
	}
	for i := range items {
		items[i].URL = ctl.MediaStore.URL(items[i].ObjectKey)
	}
	if items == nil {
		items = []models.Media{}
	}

	return c.JSON(fiber.Map{
		"items":  items,
		"limits": entitlements.ForUser(user, ctl.Now()),
	})
}

// HandleDeleteMedia removes media :uuid owned by the caller.
func (ctl *Controller) HandleDeleteMedia(c *fiber.Ctx) error {
	ctx := c.UserContext()
	item, err := ctl.Media.GetByUUID(ctx, c.Params("uuid"))
	if err != nil {
		return respondError(c, err)
	}
	caller := usercontext.GetUserContext(c)
	if item.UserID != caller.UserID && !caller.IsAdmin {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Media not found")
	}

	if err := ctl.MediaStore.Delete(ctx, item.ObjectKey); err != nil {
		log.Errorf("[Media] Deleting %s failed: %v", item.ObjectKey, err)
		return jsonError(c, fiber.StatusBadGateway, "storage_error", "Failed to delete file")
	}
	if err := ctl.Media.Delete(ctx, item.ID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
