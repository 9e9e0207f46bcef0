package handlers

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/validtech/valid_backend/utils"
)

// downloads are limited to objects under this prefix
const documentPrefix = "pricing"

// DocumentStore keeps generated pricing documents for signed downloads.
type DocumentStore interface {
	Put(ctx context.Context, object string, data []byte, contentType string) error
	Get(ctx context.Context, object string) ([]byte, error)
}

type GCSDocumentStore struct {
	Bucket string
}

func (s GCSDocumentStore) Put(ctx context.Context, object string, data []byte, contentType string) error {
	return utils.UploadBytesToGCS(ctx, s.Bucket, object, data, contentType)
}

func (s GCSDocumentStore) Get(ctx context.Context, object string) ([]byte, error) {
	return utils.ReadObjectFromGCS(ctx, s.Bucket, object)
}

// NewDocumentStore returns nil when DOCUMENT_BUCKET is unset.
func NewDocumentStore() DocumentStore {
	bucket := utils.DocumentBucket()
	if bucket == "" {
		return nil
	}
	return GCSDocumentStore{Bucket: bucket}
}

// storeDocument uploads data and returns the signed download path. Storage
// failures are logged by the caller and never fail the download itself.
func (h *Handlers) storeDocument(ctx context.Context, filename string, data []byte, contentType string) (string, error) {
	object := path.Join(documentPrefix, utils.GenerateUniqueFilename()+"-"+filename)
	if err := h.Documents.Put(ctx, object, data, contentType); err != nil {
		return "", err
	}
	token, err := utils.DocumentLinkGenerate(object, contentType, h.now())
	if err != nil {
		return "", err
	}
	return "/api/documents/" + token, nil
}

func (h *Handlers) documentDownloadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.Documents == nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "document storage is not configured"})
			return
		}
		claim, err := utils.DocumentLinkValidate(c.Param("token"))
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "link is invalid or expired"})
			return
		}
		object := path.Clean(claim.Object)
		if !strings.HasPrefix(object, documentPrefix+"/") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "link does not point at a pricing document"})
			return
		}
		data, err := h.Documents.Get(c.Request.Context(), object)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+path.Base(object)+`"`)
		c.Data(http.StatusOK, claim.ContentType, data)
	}
}
