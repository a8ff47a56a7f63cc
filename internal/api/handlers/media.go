package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/cloudreel/cloudreel/internal/media"
	"github.com/cloudreel/cloudreel/internal/models"
	"github.com/cloudreel/cloudreel/internal/repositories"
	"github.com/cloudreel/cloudreel/internal/utils"
)

// maxVideoSize is the hard ceiling on a single video upload. The client
// enforces the same 70 MB limit before submitting.
const maxVideoSize = 70 << 20

// maxFormMemory bounds how much of a multipart body stays in memory before
// spilling to disk.
const maxFormMemory = 32 << 20

// MediaHandler serves the ingest and listing endpoints. The pipeline client
// and the record store are injected so tests can substitute them.
type MediaHandler struct {
	uploader media.Uploader
	videos   repositories.VideoRepository
}

func NewMediaHandler(uploader media.Uploader, videos repositories.VideoRepository) *MediaHandler {
	return &MediaHandler{uploader: uploader, videos: videos}
}

// POST /api/v1/image
// UploadImage godoc
// @Summary Upload an image
// @Description Streams the image to the media pipeline and returns its public ID.
// @Tags Media
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image to upload"
// @Success 200 {object} map[string]string
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /image [post]
func (h *MediaHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "File not found.")
		return
	}
	defer file.Close()

	if h.uploader == nil {
		log.Println("Upload image failed: media pipeline is not configured")
		utils.Error(w, http.StatusInternalServerError, "Upload image failed.")
		return
	}

	result, err := h.uploader.UploadImage(r.Context(), file)
	if err != nil {
		log.Println("Upload image failed:", err)
		utils.Error(w, http.StatusInternalServerError, "Upload image failed.")
		return
	}

	utils.JSON(w, http.StatusOK, map[string]string{
		"publicId": result.PublicID,
	})
}

// POST /api/v1/video-upload
// UploadVideo godoc
// @Summary Upload a video
// @Description Streams the video to the media pipeline, requests the compressed mp4 derivative, and persists the upload record.
// @Tags Media
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Video to upload (max 70 MB)"
// @Param title formData string true "Video title"
// @Param description formData string true "Video description (may be empty)"
// @Param originalSize formData string true "Source file size in bytes"
// @Success 200 {object} map[string]models.Video
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /video-upload [post]
func (h *MediaHandler) UploadVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	// Credential check comes first: a misconfigured pipeline must fail before
	// any bytes are read or any network call is attempted.
	if h.uploader == nil {
		log.Println("Upload video failed: Cloudinary credentials missing")
		utils.Error(w, http.StatusInternalServerError, "Cloudinary configuration is missing.")
		return
	}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid file upload form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "File not found.")
		return
	}
	defer file.Close()

	title := r.FormValue("title")
	// description must be present in the form but may be the empty string;
	// it is stored and returned as "" in that case, never omitted.
	description, hasDescription := formField(r, "description")
	originalSize := r.FormValue("originalSize")

	if title == "" || !hasDescription || originalSize == "" {
		utils.Error(w, http.StatusBadRequest, "Title, description, and original size are required.")
		return
	}

	if header.Size > maxVideoSize {
		utils.Error(w, http.StatusBadRequest, "File exceeds the 70 MB upload limit.")
		return
	}

	result, err := h.uploader.UploadVideo(r.Context(), file)
	if err != nil {
		log.Println("Upload video failed:", err)
		utils.Error(w, http.StatusInternalServerError, "Upload video failed.")
		return
	}

	video := &models.Video{
		Title:          title,
		Description:    description,
		PublicID:       result.PublicID,
		OriginalSize:   originalSize,
		CompressedSize: strconv.FormatInt(result.Bytes, 10),
		Duration:       result.Duration,
	}

	if err := h.videos.Create(r.Context(), video); err != nil {
		log.Println("Persisting video record failed:", err)
		// The asset already landed in Cloudinary; delete it so it is not
		// orphaned. Best-effort only.
		if destroyErr := h.uploader.Destroy(r.Context(), result.PublicID, "video"); destroyErr != nil {
			log.Printf("Compensating destroy of %s failed: %v", result.PublicID, destroyErr)
		}
		utils.Error(w, http.StatusInternalServerError, "Upload video failed.")
		return
	}

	utils.JSON(w, http.StatusOK, map[string]*models.Video{
		"video": video,
	})
}

// GET /api/v1/videos
// ListVideos godoc
// @Summary List uploaded videos
// @Description Returns all video records, newest first.
// @Tags Media
// @Produce json
// @Success 200 {array} models.Video
// @Failure 500 {object} utils.ErrorResponse
// @Router /videos [get]
func (h *MediaHandler) ListVideos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	videos, err := h.videos.ListRecent(r.Context())
	if err != nil {
		log.Println("Fetching videos failed:", err)
		utils.Error(w, http.StatusInternalServerError, "Failed to fetch videos")
		return
	}

	utils.JSON(w, http.StatusOK, videos)
}

// formField reports a multipart value along with whether the field was
// present at all, which FormValue cannot distinguish from an empty value.
func formField(r *http.Request, key string) (string, bool) {
	if r.MultipartForm == nil {
		return "", false
	}
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}
