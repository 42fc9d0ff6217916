package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/upload"
	"github.com/Skotchmaster/storefront/internal/util"
)

const (
	msgFileTooLarge  = "File too large. Maximum 5MB."
	msgFileRejected  = "Only image files (jpeg, jpg, png, gif, webp) are allowed"
	msgNoImage       = "No image uploaded"
	msgNotFound      = "Product not found"
	msgInvalidID     = "Invalid product id"
	msgInvalidFields = "Invalid product fields"
)

type ProductHTTP struct {
	Svc     *service.CatalogService
	Uploads *upload.Uploader
}

func (h *ProductHTTP) uploadError(c echo.Context, l *slog.Logger, op string, err error) error {
	switch {
	case errors.Is(err, upload.ErrFileTooLarge):
		l.Warn(op, "status", 400, "reason", "file too large", "error", err)
		return jsonError(c, http.StatusBadRequest, msgFileTooLarge)
	case errors.Is(err, upload.ErrFileRejected):
		l.Warn(op, "status", 400, "reason", "upload rejected", "error", err)
		return jsonError(c, http.StatusBadRequest, msgFileRejected)
	default:
		l.Error(op, "status", 500, "reason", "cannot store upload", "error", err)
		return jsonError(c, http.StatusInternalServerError, "Failed to upload image")
	}
}

// discard removes an upload that ended up unreferenced.
func (h *ProductHTTP) discard(c echo.Context, stored *string) {
	if stored == nil {
		return
	}
	if err := h.Uploads.Storage.Remove(c.Request().Context(), *stored); err != nil {
		logging.FromContext(c.Request().Context()).Warn("upload_remove_error", "path", *stored, "error", err)
	}
}

// validationMessage strips the sentinel prefix so clients see only the reason.
func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), service.ErrValidation.Error()+": ")
}

func input(req transport.ProductRequest) service.ProductInput {
	return service.ProductInput{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
	}
}

func (h *ProductHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create")

	// the upload is read first so the multipart body is parsed under its size limit
	image, err := h.Uploads.FromRequest(c, "image")
	if err != nil {
		return h.uploadError(c, l, "product_create_error", err)
	}

	var req transport.ProductRequest
	if err := c.Bind(&req); err != nil {
		h.discard(c, image)
		l.Warn("product_create_error", "status", 400, "reason", "invalid body", "error", err)
		return jsonError(c, http.StatusBadRequest, msgInvalidFields)
	}

	p, err := h.Svc.CreateProduct(ctx, input(req), image)
	if err != nil {
		h.discard(c, image)
		if errors.Is(err, service.ErrValidation) {
			l.Warn("product_create_error", "status", 400, "reason", "validation", "error", err)
			return jsonError(c, http.StatusBadRequest, validationMessage(err))
		}
		l.Error("product_create_error", "status", 500, "reason", "cannot add product to db", "error", err)
		return jsonError(c, http.StatusInternalServerError, "Failed to add product")
	}

	l.Info("create_product_success", "productID", p.ID)
	return jsonSuccess(c, http.StatusOK, "Product added successfully", map[string]any{"productId": p.ID})
}

func (h *ProductHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get")

	id, err := parseID(c)
	if err != nil {
		l.Warn("get_product_error", "status", 400, "reason", "id is not a positive integer", "id", c.Param("id"))
		return jsonError(c, http.StatusBadRequest, msgInvalidID)
	}

	p, err := h.Svc.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("get_product_error", "status", 404, "reason", "not found", "productID", id)
			return jsonError(c, http.StatusNotFound, msgNotFound)
		}
		l.Error("get_product_error", "status", 500, "reason", "cannot get product", "error", err)
		return jsonError(c, http.StatusInternalServerError, "Failed to get product")
	}

	return c.JSON(http.StatusOK, p)
}

func (h *ProductHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.update")

	id, err := parseID(c)
	if err != nil {
		l.Warn("product_update_error", "status", 400, "reason", "id is not a positive integer", "id", c.Param("id"))
		return jsonError(c, http.StatusBadRequest, msgInvalidID)
	}

	var req transport.ProductRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("product_update_error", "status", 400, "reason", "invalid body", "error", err)
		return jsonError(c, http.StatusBadRequest, msgInvalidFields)
	}

	if _, err := h.Svc.UpdateProduct(ctx, id, input(req)); err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			l.Warn("product_update_error", "status", 400, "reason", "validation", "error", err)
			return jsonError(c, http.StatusBadRequest, validationMessage(err))
		case errors.Is(err, service.ErrNotFound):
			l.Warn("product_update_error", "status", 404, "reason", "not found", "productID", id)
			return jsonError(c, http.StatusNotFound, msgNotFound)
		default:
			l.Error("product_update_error", "status", 500, "reason", "cannot update product", "error", err)
			return jsonError(c, http.StatusInternalServerError, "Failed to update product")
		}
	}

	l.Info("update_product_success", "productID", id)
	return jsonSuccess(c, http.StatusOK, "Product updated successfully", nil)
}

func (h *ProductHTTP) UpdateImage(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.update_image")

	id, err := parseID(c)
	if err != nil {
		l.Warn("product_image_error", "status", 400, "reason", "id is not a positive integer", "id", c.Param("id"))
		return jsonError(c, http.StatusBadRequest, msgInvalidID)
	}

	image, err := h.Uploads.FromRequest(c, "image")
	if err != nil {
		return h.uploadError(c, l, "product_image_error", err)
	}
	if image == nil {
		l.Warn("product_image_error", "status", 400, "reason", "no file")
		return jsonError(c, http.StatusBadRequest, msgNoImage)
	}

	prev, err := h.Svc.UpdateProductImage(ctx, id, *image)
	if err != nil {
		h.discard(c, image)
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("product_image_error", "status", 404, "reason", "not found", "productID", id)
			return jsonError(c, http.StatusNotFound, msgNotFound)
		}
		l.Error("product_image_error", "status", 500, "reason", "cannot update image", "error", err)
		return jsonError(c, http.StatusInternalServerError, "Failed to update product image")
	}
	if prev != nil && *prev != *image {
		h.discard(c, prev)
	}

	l.Info("update_product_image_success", "productID", id, "image", *image)
	return jsonSuccess(c, http.StatusOK, "Product image updated successfully", map[string]any{"image": *image})
}

func (h *ProductHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete")

	id, err := parseID(c)
	if err != nil {
		l.Warn("product_delete_error", "status", 400, "reason", "id is not a positive integer", "id", c.Param("id"))
		return jsonError(c, http.StatusBadRequest, msgInvalidID)
	}

	image, err := h.Svc.DeleteProduct(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("product_delete_error", "status", 404, "reason", "not found", "productID", id)
			return jsonError(c, http.StatusNotFound, msgNotFound)
		}
		l.Error("product_delete_error", "status", 500, "reason", "cannot delete product", "error", err)
		return jsonError(c, http.StatusInternalServerError, "Failed to delete product")
	}
	h.discard(c, image)

	l.Info("delete_product_success", "productID", id)
	return jsonSuccess(c, http.StatusOK, "Product deleted successfully", nil)
}

func (h *ProductHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.search")

	q := c.QueryParam("q")
	pageNo := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(pageNo, size)

	res, err := h.Svc.SearchProducts(ctx, q, offset, limit)
	if err != nil {
		l.Error("search_error", "status", 500, "reason", "search failed", "error", err)
		return jsonError(c, http.StatusInternalServerError, "Search failed")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": res.Items,
		"meta": map[string]any{
			"q":           q,
			"page":        pageNo,
			"size":        limit,
			"total":       res.Total,
			"total_pages": util.TotalPages(res.Total, limit),
			"has_prev":    pageNo > 1,
			"has_next":    int64(offset+limit) < res.Total,
		},
	})
}
