package http

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"carhub/internal/auth"
	"carhub/internal/domain"
	"carhub/internal/repository"
	"carhub/internal/service"
	"carhub/internal/storage"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users    service.UserService
	cars     service.CarService
	store    storage.Service
	tokens   auth.TokenService
	maxFiles int
}

func NewHandler(users service.UserService, cars service.CarService, store storage.Service, tokens auth.TokenService, maxFiles int) *Handler {
	if maxFiles <= 0 {
		maxFiles = 10
	}
	return &Handler{
		users:    users,
		cars:     cars,
		store:    store,
		tokens:   tokens,
		maxFiles: maxFiles,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	if dir := h.store.StaticDir(); dir != "" {
		router.Static(storage.PublicPrefix, dir)
	}

	api := router.Group("/api")
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
		api.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

		users := api.Group("/users")
		{
			users.POST("/signup", h.signup)
			users.POST("/login", h.login)
		}

		cars := api.Group("/cars", authMiddleware(h.tokens, h.users))
		{
			cars.POST("", h.createCar)
			cars.GET("", h.listCars)
			cars.GET("/search", h.searchCars)
			cars.GET("/:id", h.getCar)
			cars.PUT("/:id", h.updateCar)
			cars.DELETE("/:id", h.deleteCar)
			cars.POST("/logout", h.logout)
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// signup registers a new user and returns a token for it.
//
//	@Summary	Sign up
//	@Tags		users
//	@Accept		json
//	@Produce	json
//	@Param		credentials	body		credentialsRequest	true	"username and password"
//	@Success	200			{object}	tokenResponse
//	@Failure	400			{object}	map[string]string
//	@Router		/users/signup [post]
func (h *Handler) signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserAlreadyExists), errors.Is(err, service.ErrUserValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		}
		return
	}

	h.respondToken(c, user.ID)
}

// login authenticates an existing user.
//
//	@Summary	Log in
//	@Tags		users
//	@Accept		json
//	@Produce	json
//	@Param		credentials	body		credentialsRequest	true	"username and password"
//	@Success	200			{object}	tokenResponse
//	@Failure	400			{object}	map[string]string
//	@Router		/users/login [post]
func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credentials"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		}
		return
	}

	h.respondToken(c, user.ID)
}

func (h *Handler) respondToken(c *gin.Context, userID int64) {
	token, err := h.tokens.Issue(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(http.StatusOK, tokenResponse{Token: token})
}

// createCar creates a listing with up to maxFiles uploaded images.
//
//	@Summary	Create a car listing
//	@Tags		cars
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		title		formData	string	true	"listing title"
//	@Param		description	formData	string	false	"listing description"
//	@Param		tags		formData	string	false	"comma-separated tags"
//	@Param		images		formData	file	false	"up to 10 jpeg/png images"
//	@Success	201			{object}	CarResponse
//	@Failure	400			{object}	map[string]string
//	@Security	BearerAuth
//	@Router		/cars [post]
func (h *Handler) createCar(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return
	}

	input, files, err := h.carForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	images, err := h.saveUploads(c, files)
	if err != nil {
		h.respondCarError(c, err)
		return
	}

	car, err := h.cars.CreateCar(c.Request.Context(), user.ID, input, images)
	if err != nil {
		h.removeStored(c, images)
		h.respondCarError(c, err)
		return
	}

	c.JSON(http.StatusCreated, h.carToResponse(c, *car))
}

// listCars returns every listing owned by the requester, newest first.
//
//	@Summary	List own car listings
//	@Tags		cars
//	@Produce	json
//	@Success	200	{array}	CarResponse
//	@Security	BearerAuth
//	@Router		/cars [get]
func (h *Handler) listCars(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return
	}

	cars, err := h.cars.ListCars(c.Request.Context(), user.ID)
	if err != nil {
		h.respondCarError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.carsToResponse(c, cars))
}

// searchCars filters the requester's listings by keyword.
//
//	@Summary	Search own car listings
//	@Tags		cars
//	@Produce	json
//	@Param		keyword	query	string	true	"case-insensitive keyword"
//	@Success	200		{array}	CarResponse
//	@Failure	400		{object}	map[string]string
//	@Security	BearerAuth
//	@Router		/cars/search [get]
func (h *Handler) searchCars(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return
	}

	cars, err := h.cars.SearchCars(c.Request.Context(), user.ID, c.Query("keyword"))
	if err != nil {
		h.respondCarError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.carsToResponse(c, cars))
}

// getCar returns a single listing owned by the requester.
//
//	@Summary	Get a car listing
//	@Tags		cars
//	@Produce	json
//	@Param		id	path		int	true	"car id"
//	@Success	200	{object}	CarResponse
//	@Failure	400	{object}	map[string]string
//	@Failure	404	{object}	map[string]string
//	@Security	BearerAuth
//	@Router		/cars/{id} [get]
func (h *Handler) getCar(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return
	}

	id, err := carID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid car id"})
		return
	}

	car, err := h.cars.GetCar(c.Request.Context(), user.ID, id)
	if err != nil {
		h.respondCarError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.carToResponse(c, *car))
}

// updateCar replaces a listing's fields; uploaded files replace the image set.
//
//	@Summary	Update a car listing
//	@Tags		cars
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		id			path		int		true	"car id"
//	@Param		title		formData	string	true	"listing title"
//	@Param		description	formData	string	false	"listing description"
//	@Param		tags		formData	string	false	"comma-separated tags"
//	@Param		images		formData	file	false	"replacement images"
//	@Success	200			{object}	CarResponse
//	@Failure	400			{object}	map[string]string
//	@Failure	404			{object}	map[string]string
//	@Security	BearerAuth
//	@Router		/cars/{id} [put]
func (h *Handler) updateCar(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return
	}

	id, err := carID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid car id"})
		return
	}

	input, files, err := h.carForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// resolved before the update so replaced files can be removed after
	previous, err := h.cars.GetCar(c.Request.Context(), user.ID, id)
	if err != nil {
		h.respondCarError(c, err)
		return
	}

	var newImages []domain.CarImage
	if len(files) > 0 {
		newImages, err = h.saveUploads(c, files)
		if err != nil {
			h.respondCarError(c, err)
			return
		}
	}

	car, err := h.cars.UpdateCar(c.Request.Context(), user.ID, id, input, newImages)
	if err != nil {
		h.removeStored(c, newImages)
		h.respondCarError(c, err)
		return
	}

	if newImages != nil {
		h.removeStored(c, previous.Images)
	}

	c.JSON(http.StatusOK, h.carToResponse(c, *car))
}

// deleteCar removes a listing together with its stored images.
//
//	@Summary	Delete a car listing
//	@Tags		cars
//	@Produce	json
//	@Param		id	path		int	true	"car id"
//	@Success	200	{object}	map[string]any
//	@Failure	400	{object}	map[string]string
//	@Failure	404	{object}	map[string]string
//	@Security	BearerAuth
//	@Router		/cars/{id} [delete]
func (h *Handler) deleteCar(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return
	}

	id, err := carID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid car id"})
		return
	}

	car, err := h.cars.DeleteCar(c.Request.Context(), user.ID, id)
	if err != nil {
		h.respondCarError(c, err)
		return
	}

	var warnings []string
	for _, image := range car.Images {
		if err := h.store.Remove(c.Request.Context(), image.FileName); err != nil {
			warnings = append(warnings, fmt.Sprintf("remove image %s: %v", image.FileName, err))
		}
	}

	resp := gin.H{"deleted": car.ID}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	c.JSON(http.StatusOK, resp)
}

// logout confirms the client intends to drop its token. Tokens are stateless,
// so nothing is invalidated server-side; clients must discard the token.
//
//	@Summary	Log out
//	@Tags		cars
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Security	BearerAuth
//	@Router		/cars/logout [post]
func (h *Handler) logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func carID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid car id")
	}
	return id, nil
}

// carForm parses the shared multipart shape of create and update requests.
func (h *Handler) carForm(c *gin.Context) (service.CarInput, []*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return service.CarInput{}, nil, fmt.Errorf("invalid multipart form: %w", err)
	}

	input := service.CarInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Tags:        parseTags(c.PostFormArray("tags")),
	}

	files := form.File["images"]
	if len(files) > h.maxFiles {
		return service.CarInput{}, nil, fmt.Errorf("at most %d images per request", h.maxFiles)
	}

	return input, files, nil
}

// parseTags accepts repeated fields and comma-separated values, in any mix.
func parseTags(raw []string) []string {
	var tags []string
	for _, value := range raw {
		for _, tag := range strings.Split(value, ",") {
			tag = strings.TrimSpace(tag)
			if tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

func (h *Handler) saveUploads(c *gin.Context, files []*multipart.FileHeader) ([]domain.CarImage, error) {
	images := make([]domain.CarImage, 0, len(files))
	for _, file := range files {
		obj, err := h.store.Save(c.Request.Context(), file)
		if err != nil {
			h.removeStored(c, images)
			return nil, err
		}
		images = append(images, domain.CarImage{
			FileName:     obj.Name,
			OriginalName: obj.OriginalName,
			Size:         obj.Size,
			ContentType:  obj.ContentType,
		})
	}
	return images, nil
}

func (h *Handler) removeStored(c *gin.Context, images []domain.CarImage) {
	for _, image := range images {
		_ = h.store.Remove(c.Request.Context(), image.FileName)
	}
}

func (h *Handler) respondCarError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrCarNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "car not found"})
	case errors.Is(err, service.ErrCarValidation), errors.Is(err, storage.ErrUnsupportedFile):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
	}
}

type CarResponse struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Images      []string `json:"images"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

func (h *Handler) carsToResponse(c *gin.Context, cars []domain.Car) []CarResponse {
	resp := make([]CarResponse, len(cars))
	for i := range cars {
		resp[i] = h.carToResponse(c, cars[i])
	}
	return resp
}

func (h *Handler) carToResponse(c *gin.Context, car domain.Car) CarResponse {
	resp := CarResponse{
		ID:          car.ID,
		Title:       car.Title,
		Description: car.Description,
		Tags:        car.Tags,
		Images:      make([]string, 0, len(car.Images)),
		CreatedAt:   car.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   car.UpdatedAt.Format(time.RFC3339),
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}

	base := requestBaseURL(c)
	for _, image := range car.Images {
		resolved, err := h.store.URL(c.Request.Context(), image.FileName, base)
		if err != nil {
			continue
		}
		resp.Images = append(resp.Images, resolved)
	}
	return resp
}

// requestBaseURL rebuilds the scheme and host the client used, honoring
// X-Forwarded-Proto when the service sits behind a proxy.
func requestBaseURL(c *gin.Context) string {
	scheme := "http"
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	} else if c.Request.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, c.Request.Host)
}
