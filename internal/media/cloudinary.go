package media

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cloudreel/cloudreel/internal/config"
	"golang.org/x/sync/semaphore"
)

const (
	defaultBaseURL = "https://api.cloudinary.com/v1_1"

	imageFolder = "image-uploads"
	videoFolder = "video-uploads"

	// Eager derivative requested for every video: auto quality, mp4 container,
	// generated asynchronously on Cloudinary's side.
	videoEagerTransformation = "q_auto,f_mp4"
)

// UploadResult is the normalized outcome of a successful pipeline upload.
type UploadResult struct {
	PublicID string  `json:"public_id"`
	Bytes    int64   `json:"bytes"`
	Duration float64 `json:"duration"` // 0 for assets without a duration
}

// Uploader streams raw upload bytes to the external media pipeline. One call
// is one provider request; there are no internal retries, so a failed call
// requires the client to resubmit the whole upload.
type Uploader interface {
	UploadImage(ctx context.Context, file io.Reader) (*UploadResult, error)
	UploadVideo(ctx context.Context, file io.Reader) (*UploadResult, error)
	// Destroy removes an already-uploaded asset. Used as a best-effort
	// compensation when persisting the record fails after a successful upload.
	Destroy(ctx context.Context, publicID, resourceType string) error
}

// CloudinaryClient talks to Cloudinary's upload API with signed requests.
// Construct one per process and inject it; it is safe for concurrent use.
type CloudinaryClient struct {
	cfg        config.CloudinaryConfig
	httpClient *http.Client
	baseURL    string
	sem        *semaphore.Weighted
	now        func() time.Time
}

// NewCloudinaryClient builds a client with a ceiling on simultaneous provider
// calls. maxConcurrent <= 0 falls back to 4.
func NewCloudinaryClient(cfg config.CloudinaryConfig, maxConcurrent int64) *CloudinaryClient {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &CloudinaryClient{
		cfg:        cfg,
		httpClient: &http.Client{},
		baseURL:    defaultBaseURL,
		sem:        semaphore.NewWeighted(maxConcurrent),
		now:        time.Now,
	}
}

// UploadImage stores the image as-is; no transformation directives are sent.
func (c *CloudinaryClient) UploadImage(ctx context.Context, file io.Reader) (*UploadResult, error) {
	params := url.Values{}
	params.Set("folder", imageFolder)
	return c.upload(ctx, "image", params, file)
}

// UploadVideo stores the video and requests the compressed mp4 derivative.
func (c *CloudinaryClient) UploadVideo(ctx context.Context, file io.Reader) (*UploadResult, error) {
	params := url.Values{}
	params.Set("folder", videoFolder)
	params.Set("eager", videoEagerTransformation)
	params.Set("eager_async", "true")
	return c.upload(ctx, "video", params, file)
}

func (c *CloudinaryClient) upload(ctx context.Context, resourceType string, params url.Values, file io.Reader) (*UploadResult, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("cloudinary: waiting for upload slot: %w", err)
	}
	defer c.sem.Release(1)

	params.Set("timestamp", strconv.FormatInt(c.now().Unix(), 10))
	signature := signParams(params, c.cfg.APISecret)

	// Stream the multipart body; the file is never buffered whole in memory.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := func() error {
			for key := range params {
				if err := mw.WriteField(key, params.Get(key)); err != nil {
					return err
				}
			}
			if err := mw.WriteField("api_key", c.cfg.APIKey); err != nil {
				return err
			}
			if err := mw.WriteField("signature", signature); err != nil {
				return err
			}
			part, err := mw.CreateFormFile("file", "file")
			if err != nil {
				return err
			}
			if _, err := io.Copy(part, file); err != nil {
				return err
			}
			return mw.Close()
		}()
		pw.CloseWithError(err)
	}()

	endpoint := fmt.Sprintf("%s/%s/%s/upload", c.baseURL, c.cfg.CloudName, resourceType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: upload request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("cloudinary: reading upload response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cloudinary: upload rejected: %s", apiErrorMessage(body, resp.StatusCode))
	}

	var result UploadResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("cloudinary: decoding upload response: %w", err)
	}
	if result.PublicID == "" {
		return nil, fmt.Errorf("cloudinary: upload response missing public_id")
	}
	return &result, nil
}

// Destroy deletes an asset from Cloudinary. A "not found" result is treated
// as success so the compensation path is idempotent.
func (c *CloudinaryClient) Destroy(ctx context.Context, publicID, resourceType string) error {
	params := url.Values{}
	params.Set("public_id", publicID)
	params.Set("timestamp", strconv.FormatInt(c.now().Unix(), 10))
	signature := signParams(params, c.cfg.APISecret)

	form := url.Values{}
	for key := range params {
		form.Set(key, params.Get(key))
	}
	form.Set("api_key", c.cfg.APIKey)
	form.Set("signature", signature)

	endpoint := fmt.Sprintf("%s/%s/%s/destroy", c.baseURL, c.cfg.CloudName, resourceType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cloudinary: destroy request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("cloudinary: reading destroy response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cloudinary: destroy rejected: %s", apiErrorMessage(body, resp.StatusCode))
	}

	var result struct {
		Result string `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("cloudinary: decoding destroy response: %w", err)
	}
	if result.Result != "ok" && result.Result != "not found" {
		return fmt.Errorf("cloudinary: destroy returned %q", result.Result)
	}
	return nil
}

// signParams computes the request signature Cloudinary expects: SHA-1 over
// the sorted key=value pairs joined with '&', with the API secret appended.
// The file, api_key and signature fields are never part of the signed set.
func signParams(params url.Values, secret string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+strings.Join(params[key], ","))
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}

func apiErrorMessage(body []byte, status int) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return http.StatusText(status)
}
