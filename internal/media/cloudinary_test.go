package media

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/cloudreel/cloudreel/internal/config"
	"golang.org/x/sync/semaphore"
)

var fixedTime = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func newTestClient(server *httptest.Server) *CloudinaryClient {
	return &CloudinaryClient{
		cfg: config.CloudinaryConfig{
			CloudName: "demo",
			APIKey:    "test-key",
			APISecret: "test-secret",
		},
		httpClient: server.Client(),
		baseURL:    server.URL,
		sem:        semaphore.NewWeighted(2),
		now:        func() time.Time { return fixedTime },
	}
}

func TestSignParamsDeterministic(t *testing.T) {
	params := url.Values{}
	params.Set("folder", "video-uploads")
	params.Set("timestamp", "1700000000")

	first := signParams(params, "secret")
	second := signParams(params, "secret")

	if first != second {
		t.Errorf("signature not deterministic: %q vs %q", first, second)
	}
	if len(first) != 40 {
		t.Errorf("signature length = %d, want 40 hex chars", len(first))
	}
	if other := signParams(params, "different"); other == first {
		t.Error("signature did not change with the secret")
	}
}

func TestSignParamsOrderIndependent(t *testing.T) {
	a := url.Values{}
	a.Set("timestamp", "1700000000")
	a.Set("folder", "video-uploads")
	a.Set("eager", "q_auto,f_mp4")

	b := url.Values{}
	b.Set("eager", "q_auto,f_mp4")
	b.Set("folder", "video-uploads")
	b.Set("timestamp", "1700000000")

	if signParams(a, "secret") != signParams(b, "secret") {
		t.Error("signature depends on insertion order")
	}
}

func TestUploadVideoSendsDirectives(t *testing.T) {
	var gotPath string
	var gotForm url.Values
	var gotFile []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart form: %v", err)
		}
		gotForm = url.Values(r.MultipartForm.Value)
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("reading file part: %v", err)
		} else {
			gotFile, _ = io.ReadAll(file)
			file.Close()
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"public_id":"video-uploads/xyz","bytes":1048576,"duration":9.5}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	result, err := client.UploadVideo(context.Background(), strings.NewReader("fake video bytes"))
	if err != nil {
		t.Fatal(err)
	}

	if gotPath != "/demo/video/upload" {
		t.Errorf("path = %q, want /demo/video/upload", gotPath)
	}
	if got := gotForm.Get("folder"); got != "video-uploads" {
		t.Errorf("folder = %q", got)
	}
	if got := gotForm.Get("eager"); got != "q_auto,f_mp4" {
		t.Errorf("eager = %q", got)
	}
	if got := gotForm.Get("eager_async"); got != "true" {
		t.Errorf("eager_async = %q", got)
	}
	if got := gotForm.Get("api_key"); got != "test-key" {
		t.Errorf("api_key = %q", got)
	}
	if string(gotFile) != "fake video bytes" {
		t.Errorf("file bytes = %q", gotFile)
	}

	// The signature must cover exactly the non-auth fields that were sent.
	signed := url.Values{}
	signed.Set("folder", gotForm.Get("folder"))
	signed.Set("eager", gotForm.Get("eager"))
	signed.Set("eager_async", gotForm.Get("eager_async"))
	signed.Set("timestamp", gotForm.Get("timestamp"))
	if want := signParams(signed, "test-secret"); gotForm.Get("signature") != want {
		t.Errorf("signature = %q, want %q", gotForm.Get("signature"), want)
	}

	if result.PublicID != "video-uploads/xyz" {
		t.Errorf("publicId = %q", result.PublicID)
	}
	if result.Bytes != 1048576 {
		t.Errorf("bytes = %d", result.Bytes)
	}
	if result.Duration != 9.5 {
		t.Errorf("duration = %v", result.Duration)
	}
}

func TestUploadImageStorageOnly(t *testing.T) {
	var gotPath string
	var gotForm url.Values

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart form: %v", err)
		}
		gotForm = url.Values(r.MultipartForm.Value)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"public_id":"image-uploads/abc","bytes":2048}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	result, err := client.UploadImage(context.Background(), strings.NewReader("png bytes"))
	if err != nil {
		t.Fatal(err)
	}

	if gotPath != "/demo/image/upload" {
		t.Errorf("path = %q, want /demo/image/upload", gotPath)
	}
	if got := gotForm.Get("folder"); got != "image-uploads" {
		t.Errorf("folder = %q", got)
	}
	// Storage only: no transformation directives at upload time.
	if _, ok := gotForm["eager"]; ok {
		t.Error("image upload sent an eager directive")
	}
	if result.PublicID != "image-uploads/abc" {
		t.Errorf("publicId = %q", result.PublicID)
	}
	if result.Duration != 0 {
		t.Errorf("duration = %v, want 0 for images", result.Duration)
	}
}

func TestUploadRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid video file"}}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.UploadVideo(context.Background(), strings.NewReader("junk"))
	if err == nil {
		t.Fatal("expected an error for a rejected upload")
	}
	if !strings.Contains(err.Error(), "Invalid video file") {
		t.Errorf("error = %v, want provider message included", err)
	}
}

func TestUploadMissingPublicID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	if _, err := client.UploadImage(context.Background(), strings.NewReader("x")); err == nil {
		t.Fatal("expected an error for a response without public_id")
	}
}

func TestDestroy(t *testing.T) {
	cases := []struct {
		name    string
		result  string
		wantErr bool
	}{
		{"ok", "ok", false},
		{"not found is idempotent", "not found", false},
		{"other result", "error", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var gotForm url.Values
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := r.ParseForm(); err != nil {
					t.Errorf("parsing form: %v", err)
				}
				gotForm = r.PostForm
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"result":"` + tc.result + `"}`))
			}))
			defer server.Close()

			client := newTestClient(server)
			err := client.Destroy(context.Background(), "video-uploads/orphan", "video")

			if tc.wantErr && err == nil {
				t.Fatal("expected an error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := gotForm.Get("public_id"); got != "video-uploads/orphan" {
				t.Errorf("public_id = %q", got)
			}
			if gotForm.Get("signature") == "" {
				t.Error("destroy request was not signed")
			}
		})
	}
}
