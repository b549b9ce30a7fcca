// Package remote implements the catalog API collaborators: entity
// create/update, image upload and image deletion. The server side is opaque;
// this client only depends on the three REST contracts.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/flotillahq/flotilla/internal/config"
	"github.com/flotillahq/flotilla/internal/model"
)

var remoteLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	remoteLogger = l
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type idResponse struct {
	ID string `json:"id"`
}

type uploadResponse struct {
	UploadedImageID string `json:"uploadedImageId"`
}

// CreateEntity posts body to the entity collection and returns the server
// identifier of the created resource.
func (c *Client) CreateEntity(ctx context.Context, entityPath string, body any) (string, error) {
	return c.sendEntity(ctx, http.MethodPost, c.baseURL+"/"+entityPath, body)
}

// UpdateEntity puts body to an existing resource and returns its identifier.
func (c *Client) UpdateEntity(ctx context.Context, entityPath, id string, body any) (string, error) {
	return c.sendEntity(ctx, http.MethodPut, c.baseURL+"/"+entityPath+"/"+id, body)
}

func (c *Client) sendEntity(ctx context.Context, method, url string, body any) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("error encoding entity body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set(config.HCType, config.CTypeJSON)

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("error calling %s %s: %w", method, url, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", fmt.Errorf("%s %s returned %d", method, url, res.StatusCode)
	}

	var out idResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("error decoding entity response: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("%s %s returned no id", method, url)
	}

	remoteLogger.Debug().Str("method", method).Str("url", url).Str("id", out.ID).Msg("Entity call succeeded")
	return out.ID, nil
}

// UploadImage pushes one staged binary to the upload endpoint and returns the
// uploaded image identifier. Called once per staged slot during commit.
func (c *Client) UploadImage(ctx context.Context, entityID string, entityType model.EntityType, imageType, filename string, content []byte) (string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	fields := map[string]string{
		config.FormFieldEntityID:   entityID,
		config.FormFieldEntityType: string(entityType),
		config.FormFieldImageType:  imageType,
	}
	for field, value := range fields {
		if err := form.WriteField(field, value); err != nil {
			return "", fmt.Errorf("error writing form field %s: %w", field, err)
		}
	}

	part, err := form.CreateFormFile(config.FormFieldFile, filename)
	if err != nil {
		return "", fmt.Errorf("error creating form file: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("error writing file content: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set(config.HCType, form.FormDataContentType())

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("error uploading image: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return "", fmt.Errorf("upload returned %d: %s", res.StatusCode, body)
	}

	var out uploadResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("error decoding upload response: %w", err)
	}
	if out.UploadedImageID == "" {
		return "", fmt.Errorf("upload returned no image id")
	}

	remoteLogger.Info().
		Str("entity_id", entityID).
		Str("entity_type", string(entityType)).
		Str("image_type", imageType).
		Str("image_id", out.UploadedImageID).
		Msg("Image uploaded")
	return out.UploadedImageID, nil
}

// DeleteImage removes a previously uploaded image, used when an existing
// server-side cover is being replaced.
func (c *Client) DeleteImage(ctx context.Context, uploadedImageID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/upload/"+uploadedImageID, nil)
	if err != nil {
		return err
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error deleting image %s: %w", uploadedImageID, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("delete image %s returned %d", uploadedImageID, res.StatusCode)
	}

	remoteLogger.Info().Str("image_id", uploadedImageID).Msg("Image deleted")
	return nil
}
