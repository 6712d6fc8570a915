package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/flicky/luxbag-api/internal/apperror"
	"github.com/flicky/luxbag-api/internal/dto"
	"github.com/flicky/luxbag-api/internal/model"
	"github.com/flicky/luxbag-api/internal/service"
	"github.com/flicky/luxbag-api/internal/storage"
)

const imagesField = "images"

type ProductHandler struct {
	productService *service.ProductService
}

func NewProductHandler(productService *service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

func (h *ProductHandler) List(c *gin.Context) {
	var req dto.ListProductsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, apperror.New(apperror.InvalidArgument, "Invalid query parameters").Wrap(err))
		return
	}

	page, err := h.productService.List(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ProductListResponse{
		Success:     true,
		Count:       len(page.Products),
		Total:       page.Total,
		TotalPages:  page.TotalPages,
		CurrentPage: page.Page,
		Products:    dto.NewProductList(page.Products),
	})
}

func (h *ProductHandler) Featured(c *gin.Context) {
	products, err := h.productService.Featured(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"count": len(products), "products": dto.NewProductList(products)})
}

func (h *ProductHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id", "product")
	if !ok {
		return
	}
	product, err := h.productService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"product": dto.NewProductResponse(product)})
}

func (h *ProductHandler) Create(c *gin.Context) {
	req, uploads, err := bindProduct(c)
	if err != nil {
		respondError(c, err)
		return
	}
	product, err := h.productService.Create(c.Request.Context(), req, uploads)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{
		"message": "Product created successfully",
		"product": dto.NewProductResponse(product),
	})
}

func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id", "product")
	if !ok {
		return
	}
	req, uploads, err := bindProduct(c)
	if err != nil {
		respondError(c, err)
		return
	}
	product, err := h.productService.Update(c.Request.Context(), id, req, uploads)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"message": "Product updated successfully",
		"product": dto.NewProductResponse(product),
	})
}

func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id", "product")
	if !ok {
		return
	}
	if err := h.productService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// bindProduct reads a product body from a multipart or urlencoded form, or
// from JSON. Form values arrive as strings; dimensions is a JSON object.
func bindProduct(c *gin.Context) (dto.ProductRequest, []storage.Upload, error) {
	var req dto.ProductRequest
	contentType := c.ContentType()
	if contentType != gin.MIMEMultipartPOSTForm && contentType != gin.MIMEPOSTForm {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			return req, nil, errInvalidBody.Wrap(err)
		}
		return req, nil, nil
	}

	req.Name = formValue(c, "name")
	req.Description = formValue(c, "description")
	req.Brand = formValue(c, "brand")
	req.Category = formValue(c, "category")
	req.Material = formValue(c, "material")
	req.Color = formValue(c, "color")

	if v := formValue(c, "price"); v != nil && *v != "" {
		price, err := decimal.NewFromString(*v)
		if err != nil {
			return req, nil, apperror.New(apperror.InvalidArgument, "Price must be a number").Wrap(err)
		}
		req.Price = &price
	}
	if v := formValue(c, "stock"); v != nil && *v != "" {
		stock, err := strconv.Atoi(*v)
		if err != nil {
			return req, nil, apperror.New(apperror.InvalidArgument, "Stock must be a whole number").Wrap(err)
		}
		req.Stock = &stock
	}
	if v := formValue(c, "isFeatured"); v != nil && *v != "" {
		featured, err := strconv.ParseBool(*v)
		if err != nil {
			return req, nil, apperror.New(apperror.InvalidArgument, "isFeatured must be true or false").Wrap(err)
		}
		req.IsFeatured = &featured
	}
	if v := formValue(c, "dimensions"); v != nil && *v != "" {
		var dims model.Dimensions
		if err := json.Unmarshal([]byte(*v), &dims); err != nil {
			return req, nil, apperror.New(apperror.InvalidArgument, "Invalid dimensions").Wrap(err)
		}
		req.Dimensions = &dims
	}

	var uploads []storage.Upload
	if contentType == gin.MIMEMultipartPOSTForm {
		form, err := c.MultipartForm()
		if err != nil {
			return req, nil, errInvalidBody.Wrap(err)
		}
		for _, fh := range form.File[imagesField] {
			uploads = append(uploads, uploadFrom(fh))
		}
	}
	return req, uploads, nil
}

func formValue(c *gin.Context, key string) *string {
	v, ok := c.GetPostForm(key)
	if !ok {
		return nil
	}
	v = strings.TrimSpace(v)
	return &v
}

func uploadFrom(fh *multipart.FileHeader) storage.Upload {
	return storage.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			f, err := fh.Open()
			if err != nil {
				return nil, err
			}
			return f, nil
		},
	}
}
