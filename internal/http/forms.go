package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"blog/internal/store"
)

var imageExts = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// postForm is the submitted create/edit form. Errors is non-empty when the
// form must be shown again.
type postForm struct {
	Text    string
	GroupID int64
	Errors  []string

	image    []byte
	imageExt string
}

func (f *postForm) fail(msg string) { f.Errors = append(f.Errors, msg) }

func (f postForm) Valid() bool { return len(f.Errors) == 0 }

func (f postForm) groupID() *int64 {
	if f.GroupID == 0 {
		return nil
	}
	id := f.GroupID
	return &id
}

// readPostForm parses a multipart or urlencoded post form. Oversized bodies
// and bad images become form errors, not request errors.
func (s *Server) readPostForm(w http.ResponseWriter, r *http.Request) postForm {
	var f postForm
	limit := s.Cfg.MaxImageBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)

	err := r.ParseMultipartForm(1 << 20)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			f.fail(fmt.Sprintf("the image must be at most %d bytes", limit))
		} else {
			f.fail("could not read the form")
		}
		return f
	}

	f.Text = strings.TrimSpace(r.FormValue("text"))
	if raw := strings.TrimSpace(r.FormValue("group")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			f.fail("choose a valid group")
		} else {
			f.GroupID = id
		}
	}

	if r.MultipartForm == nil {
		return f
	}
	file, hdr, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		f.fail("could not read the image")
	default:
		defer file.Close()
		b, err := io.ReadAll(io.LimitReader(file, limit+1))
		if err != nil {
			f.fail("could not read the image")
			break
		}
		if int64(len(b)) > limit {
			f.fail(fmt.Sprintf("the image must be at most %d bytes", limit))
			break
		}
		if len(b) == 0 {
			break
		}
		ct := http.DetectContentType(b)
		if !strings.HasPrefix(ct, "image/") {
			f.fail("upload a valid image")
			break
		}
		f.image = b
		f.imageExt = imageExts[ct]
		if f.imageExt == "" {
			f.imageExt = strings.ToLower(filepath.Ext(hdr.Filename))
		}
	}
	return f
}

// validate checks the fields that need the store.
func (s *Server) validate(ctx context.Context, f *postForm) error {
	if f.Text == "" {
		f.fail("text is required")
	}
	if f.GroupID != 0 {
		_, err := s.Store.GetGroup(ctx, f.GroupID)
		if errors.Is(err, store.ErrNotFound) {
			f.fail("choose a valid group")
		} else if err != nil {
			return err
		}
	}
	return nil
}

// saveImage writes the uploaded image under MediaDir and returns its path
// relative to /media/, or "" when nothing was uploaded.
func (s *Server) saveImage(f postForm) (string, error) {
	if f.image == nil {
		return "", nil
	}
	name := path.Join("posts", uuid.New().String()+f.imageExt)
	dst := filepath.Join(s.Cfg.MediaDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(dst, f.image, 0o644); err != nil {
		return "", err
	}
	return name, nil
}

func (s *Server) removeImage(name string) {
	if name == "" {
		return
	}
	dst := filepath.Join(s.Cfg.MediaDir, filepath.FromSlash(name))
	if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.WithError(err).WithField("image", name).Warn("remove image")
	}
}
