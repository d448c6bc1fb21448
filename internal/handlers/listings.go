package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/bidwise/bidcore/internal/auction"
	"github.com/bidwise/bidcore/internal/cache"
	"github.com/bidwise/bidcore/internal/ledger"
	"github.com/bidwise/bidcore/internal/model"
	"github.com/bidwise/bidcore/internal/service"
	"github.com/bidwise/bidcore/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const imageBucket = "item-images"

type ListingHandler struct {
	svc     service.ListingServicer
	storage storage.Storager
	cache   cache.Cacher
}

func NewListingHandler(svc service.ListingServicer, s storage.Storager, c cache.Cacher) (*ListingHandler, error) {
	return &ListingHandler{
		svc:     svc,
		storage: s,
		cache:   c,
	}, nil
}

func respondValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var details []model.ErrorDetails
	if validErrs, ok := err.(validator.ValidationErrors); ok {
		for _, vErr := range validErrs {
			details = append(details, model.ErrorDetails{
				Field: vErr.Field(),
				Issue: fmt.Sprintf("failed on tag '%s' with param '%s'", vErr.Tag(), vErr.Param()),
			})
		}
	}
	RespondErrorJSON(w, r, http.StatusBadRequest, ErrInvalidRequest.Error(), "Input validation failed", details)
}

// CreateListing godoc
//
//	@Summary		Create a new Listing
//	@Description	Create a new auction listing
//	@Tags			Listings
//	@Accept			json
//	@Produce		json
//	@Param			listing	body		model.CreateListingRequest	true	"Listing details"
//	@Success		201		{object}	map[string]any
//	@Failure		400		{object}	map[string]any
//	@Failure		401		{object}	map[string]any
//	@Router			/items [post]
func (h *ListingHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req model.CreateListingRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondErrorJSON(w, r, http.StatusBadRequest, ErrInvalidJson.Error(), "invalid json format", nil)
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, r, err)
		return
	}

	claims := GetUserClaims(r.Context())
	if claims == nil {
		RespondErrorJSON(w, r, http.StatusUnauthorized, ErrAuthFailed.Error(), "user claims not found in context", nil)
		return
	}

	item, err := h.svc.CreateListing(r.Context(), service.ListingParams{
		SellerID:      claims.UserID,
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Images:        req.Images,
		StartingPrice: req.StartingPrice,
		EndTime:       req.EndTime,
	})
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}

	// claimed images are no longer temporary
	for _, imgName := range req.Images {
		h.cache.RemoveImageNameFromTempList(r.Context(), imgName)
	}

	resp := map[string]any{
		"item": item,
	}
	RespondSuccessJSON(w, r, http.StatusCreated, "Listing created successfully", resp)
}

// GetItem godoc
//
//	@Summary		Get Item by ID
//	@Description	Retrieve a specific item; expired items are reconciled on read
//	@Tags			Listings
//	@Produce		json
//	@Param			itemId	path		string	true	"Item ID"
//	@Success		200		{object}	map[string]any
//	@Failure		404		{object}	map[string]any
//	@Router			/items/{itemId} [get]
func (h *ListingHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, itemParamKey))
	if err != nil {
		RespondErrorJSON(w, r, http.StatusBadRequest, ErrMissingParam.Error(), "A valid item ID is required", nil)
		return
	}

	item, err := h.svc.GetItem(r.Context(), itemID)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}

	resp := map[string]any{
		"item": item,
	}
	RespondSuccessJSON(w, r, http.StatusOK, "Item fetched successfully", resp)
}

// ListItems godoc
//
//	@Summary		List Items
//	@Description	Browse listings with search, category, status, price filters and sorting
//	@Tags			Listings
//	@Produce		json
//	@Param			search		query	string	false	"Search in title and description"
//	@Param			category	query	string	false	"Category filter"
//	@Param			status		query	string	false	"Status filter"
//	@Param			minPrice	query	string	false	"Minimum current bid"
//	@Param			maxPrice	query	string	false	"Maximum current bid"
//	@Param			sort		query	string	false	"price_asc, price_desc, newest, ending_soon"
//	@Param			limit		query	int		false	"Page size"
//	@Param			offset		query	int		false	"Page offset"
//	@Success		200			{object}	map[string]any
//	@Router			/items [get]
func (h *ListingHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := ledger.ItemFilter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Status:   auction.ItemStatus(q.Get("status")),
		Sort:     q.Get("sort"),
		Limit:    12,
	}
	if v := q.Get("minPrice"); v != "" {
		if p, err := decimal.NewFromString(v); err == nil {
			filter.MinPrice = &p
		}
	}
	if v := q.Get("maxPrice"); v != "" {
		if p, err := decimal.NewFromString(v); err == nil {
			filter.MaxPrice = &p
		}
	}
	if v := q.Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &filter.Limit)
	}
	if v := q.Get("offset"); v != "" {
		fmt.Sscanf(v, "%d", &filter.Offset)
	}

	items, err := h.svc.ListItems(r.Context(), filter)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}

	resp := map[string]any{
		"items": items,
	}
	RespondSuccessJSON(w, r, http.StatusOK, "Items fetched successfully", resp)
}

// UpdateListing godoc
//
//	@Summary		Update a Listing
//	@Description	Edit a listing; allowed only for the seller while no bids exist
//	@Tags			Listings
//	@Accept			json
//	@Produce		json
//	@Param			itemId	path		string	true	"Item ID"
//	@Param			listing	body		model.UpdateListingRequest	true	"Listing details"
//	@Success		200		{object}	map[string]any
//	@Failure		400		{object}	map[string]any
//	@Failure		403		{object}	map[string]any
//	@Router			/items/{itemId} [put]
func (h *ListingHandler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, itemParamKey))
	if err != nil {
		RespondErrorJSON(w, r, http.StatusBadRequest, ErrMissingParam.Error(), "A valid item ID is required", nil)
		return
	}

	var req model.UpdateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondErrorJSON(w, r, http.StatusBadRequest, ErrInvalidJson.Error(), "invalid json format", nil)
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, r, err)
		return
	}

	claims := GetUserClaims(r.Context())
	if claims == nil {
		RespondErrorJSON(w, r, http.StatusUnauthorized, ErrAuthFailed.Error(), "user claims not found in context", nil)
		return
	}

	item, err := h.svc.UpdateListing(r.Context(), itemID, claims.UserID, service.ListingParams{
		SellerID:      claims.UserID,
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Images:        req.Images,
		StartingPrice: req.StartingPrice,
		EndTime:       req.EndTime,
	})
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}

	resp := map[string]any{
		"item": item,
	}
	RespondSuccessJSON(w, r, http.StatusOK, "Listing updated successfully", resp)
}

// DeleteListing godoc
//
//	@Summary		Delete a Listing
//	@Description	Remove a listing; allowed only for the seller while no bids exist
//	@Tags			Listings
//	@Produce		json
//	@Param			itemId	path		string	true	"Item ID"
//	@Success		200		{object}	map[string]any
//	@Failure		400		{object}	map[string]any
//	@Failure		403		{object}	map[string]any
//	@Router			/items/{itemId} [delete]
func (h *ListingHandler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, itemParamKey))
	if err != nil {
		RespondErrorJSON(w, r, http.StatusBadRequest, ErrMissingParam.Error(), "A valid item ID is required", nil)
		return
	}

	claims := GetUserClaims(r.Context())
	if claims == nil {
		RespondErrorJSON(w, r, http.StatusUnauthorized, ErrAuthFailed.Error(), "user claims not found in context", nil)
		return
	}

	item, err := h.svc.GetItem(r.Context(), itemID)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}

	if err := h.svc.DeleteListing(r.Context(), itemID, claims.UserID); err != nil {
		RespondServiceError(w, r, err)
		return
	}

	// Best effort; orphaned objects are not worth failing the request.
	for _, imgKey := range item.Images {
		if err := h.storage.DeleteFile(r.Context(), imageBucket, imgKey); err != nil {
			slog.Warn("failed to delete listing image", "item_id", itemID, "image", imgKey, "error", err)
		}
		h.cache.Delete(r.Context(), "img_url:"+imgKey)
	}

	RespondSuccessJSON(w, r, http.StatusOK, "Listing deleted successfully", "")
}

// UploadImages godoc
//
//	@Summary		Upload Listing Images
//	@Description	Upload images for a listing before creating it
//	@Tags			Listings
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			images	formData	file	true	"Listing images"
//	@Success		200		{object}	map[string]any
//	@Failure		400		{object}	map[string]any
//	@Router			/items/upload-images [post]
func (h *ListingHandler) UploadImages(w http.ResponseWriter, r *http.Request) {

	r.Body = http.MaxBytesReader(w, r.Body, 50<<20) // Limit request body to 50MB
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		RespondErrorJSON(w, r, http.StatusBadRequest, ErrInvalidForm.Error(), "failed to parse multipart form", nil)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
	}()

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		RespondErrorJSON(w, r, http.StatusBadRequest, ErrMissingFiles.Error(), "No images uploaded", nil)
		return
	}

	var imageNames []string
	for _, fileHeader := range files {
		if fileHeader.Size > 10<<20 { // 10MB limit per file
			fileNameResp := fmt.Sprintf("File %s exceeds 10MB limit", fileHeader.Filename)
			RespondErrorJSON(w, r, http.StatusBadRequest, ErrLargeFile.Error(), fileNameResp, nil)
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			RespondErrorJSON(w, r, http.StatusInternalServerError, ErrUploadFailed.Error(), "Failed to process uploaded file", nil)
			return
		}

		fileData, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			RespondErrorJSON(w, r, http.StatusInternalServerError, ErrUploadFailed.Error(), "failed to read uploaded file", nil)
			return
		}

		detectedType := http.DetectContentType(fileData)
		if !strings.HasPrefix(detectedType, "image/") {
			fileNameResp := fmt.Sprintf("File %s is not a valid image", fileHeader.Filename)
			RespondErrorJSON(w, r, http.StatusBadRequest, ErrInvalidFile.Error(), fileNameResp, nil)
			return
		}

		// Unique filename, original extension preserved
		ext := filepath.Ext(fileHeader.Filename)
		if ext == "" {
			ext = ".jpg"
		}
		uniqueFilename := uuid.New().String() + ext

		imageName, err := h.storage.SaveImage(r.Context(), imageBucket, uniqueFilename, fileData)
		if err != nil {
			slog.Error("Error on uploading image", "err:", err.Error())
			RespondErrorJSON(w, r, http.StatusInternalServerError, ErrUploadFailed.Error(), "failed to store image", nil)
			return
		}

		imageNames = append(imageNames, imageName)
		h.cache.AddImageNameToTempList(r.Context(), imageName)

		slog.Info("Uploaded image", "original_filename", fileHeader.Filename, "stored_as", imageName)
	}

	resp := map[string]any{
		"image_names": imageNames,
	}
	RespondSuccessJSON(w, r, http.StatusOK, "Images uploaded successfully", resp)
}

// GetItemImageUrls godoc
//
//	@Summary		Get Item Image URLs
//	@Description	Resolve an item's stored image names to presigned URLs
//	@Tags			Listings
//	@Produce		json
//	@Param			itemId	path		string	true	"Item ID"
//	@Success		200		{object}	map[string]any
//	@Failure		404		{object}	map[string]any
//	@Router			/items/{itemId}/images [get]
func (h *ListingHandler) GetItemImageUrls(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, itemParamKey))
	if err != nil {
		RespondErrorJSON(w, r, http.StatusBadRequest, ErrMissingParam.Error(), "A valid item ID is required", nil)
		return
	}

	item, err := h.svc.GetItem(r.Context(), itemID)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}

	imageUrls := []string{}
	for _, imgKey := range item.Images {
		cacheKey := "img_url:" + imgKey
		if cached, ok, err := h.cache.Get(r.Context(), cacheKey); err == nil && ok {
			imageUrls = append(imageUrls, cached)
			continue
		}

		url, err := h.storage.GetFileUrl(r.Context(), imageBucket, imgKey)
		if err != nil {
			slog.Error("failed to presign image url", "item_id", itemID, "image", imgKey, "error", err)
			RespondErrorJSON(w, r, http.StatusInternalServerError, ErrInternalServer.Error(), "failed to resolve image urls", nil)
			return
		}

		// Well under the presign validity, so cached links stay usable.
		if err := h.cache.Set(r.Context(), cacheKey, url, time.Hour); err != nil {
			slog.Warn("failed to cache image url", "image", imgKey, "error", err)
		}
		imageUrls = append(imageUrls, url)
	}

	resp := map[string]any{
		"image_urls": imageUrls,
	}
	RespondSuccessJSON(w, r, http.StatusOK, "Images retrieved successfully", resp)
}
